package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"log/slog"

	"courier/internal/daemon"
	"courier/internal/logging"
	"courier/internal/transport"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logging.NewComponentLogger(logger, "ipc"), ctx: ctx}
	if err := rpcServer.RegisterName("Courier", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed", logging.Error(err))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) Ping(_ PingRequest, resp *PingResponse) error {
	resp.Message = "pong"
	resp.PID = os.Getpid()
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.PID = status.PID
	resp.LockPath = status.LockFilePath
	resp.RegistryPath = status.RegistryPath
	resp.Shares = status.Shares.Shares
	resp.Items = status.Shares.Items
	resp.Owners = status.Shares.Owners
	resp.Healthy = status.Healthy
	resp.HealthDetail = status.HealthDetail
	return nil
}

func (s *service) SharesList(req SharesListRequest, resp *SharesListResponse) error {
	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	shares, err := s.daemon.ListShares(s.ctx, transport.PrincipalID(req.Owner), req.Offset, limit)
	if err != nil {
		return err
	}
	resp.Shares = make([]ShareSummary, 0, len(shares))
	for _, share := range shares {
		resp.Shares = append(resp.Shares, ShareSummary{
			Token:     share.Token,
			Owner:     int64(share.Owner),
			Items:     share.Count(),
			Kind:      share.Kind,
			Caption:   share.Caption,
			CreatedAt: share.CreatedAt.Format(time.RFC3339),
		})
	}
	return nil
}

func (s *service) SharesDelete(req SharesDeleteRequest, resp *SharesDeleteResponse) error {
	if req.Token == "" {
		return errors.New("shares delete requires a token")
	}
	s.logger.Debug("share delete requested", logging.String(logging.FieldToken, req.Token))
	items, err := s.daemon.DeleteShare(s.ctx, req.Token)
	if err != nil {
		return err
	}
	resp.Removed = true
	resp.Items = items
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
