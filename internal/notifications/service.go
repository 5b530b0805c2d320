package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"courier/internal/config"
)

const userAgent = "Courier-Go/0.1.0"

// Service defines the notification surface exposed to the dispatcher.
type Service interface {
	NotifyShareCreated(ctx context.Context, token string, items int) error
	NotifyShareDeleted(ctx context.Context, token string, items int) error
	NotifyRelayFailure(ctx context.Context, err error, items int) error
	NotifyDaemonStarted(ctx context.Context) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint:    topic,
		client:      client,
		shareEvents: cfg.Notifications.Shares,
		errorEvents: cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint    string
	client      *http.Client
	shareEvents bool
	errorEvents bool
}

func (n *ntfyService) NotifyShareCreated(ctx context.Context, token string, items int) error {
	if !n.shareEvents {
		return nil
	}
	data := payload{
		title:   "Courier - Share Created",
		message: fmt.Sprintf("New share %s with %d items", token, items),
		tags:    []string{"courier", "share", "created"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyShareDeleted(ctx context.Context, token string, items int) error {
	if !n.shareEvents {
		return nil
	}
	data := payload{
		title:   "Courier - Share Deleted",
		message: fmt.Sprintf("Share %s removed (%d items)", token, items),
		tags:    []string{"courier", "share", "deleted"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRelayFailure(ctx context.Context, err error, items int) error {
	if !n.errorEvents {
		return nil
	}
	detail := "unknown"
	if err != nil {
		detail = strings.TrimSpace(err.Error())
	}
	data := payload{
		title:    "Courier - Relay Failure",
		message:  fmt.Sprintf("Dropped a batch of %d items: %s", items, detail),
		tags:     []string{"courier", "relay", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDaemonStarted(ctx context.Context) error {
	data := payload{
		title:    "Courier - Started",
		message:  "Relay daemon is up and accepting updates",
		tags:     []string{"courier", "daemon", "started"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errorEvents {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Courier - Error",
		message:  builder.String(),
		tags:     []string{"courier", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Courier - Test",
		message:  "Notification system test",
		tags:     []string{"courier", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyShareCreated(context.Context, string, int) error { return nil }
func (noopService) NotifyShareDeleted(context.Context, string, int) error { return nil }
func (noopService) NotifyRelayFailure(context.Context, error, int) error  { return nil }
func (noopService) NotifyDaemonStarted(context.Context) error             { return nil }
func (noopService) NotifyError(context.Context, error, string) error      { return nil }
func (noopService) TestNotification(context.Context) error                { return nil }
