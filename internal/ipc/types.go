package ipc

// PingRequest checks daemon liveness.
type PingRequest struct{}

// PingResponse acknowledges a ping.
type PingResponse struct {
	Message string `json:"message"`
	PID     int    `json:"pid"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents combined daemon and registry status.
type StatusResponse struct {
	Running      bool   `json:"running"`
	PID          int    `json:"pid"`
	LockPath     string `json:"lock_path"`
	RegistryPath string `json:"registry_path"`
	Shares       int    `json:"shares"`
	Items        int    `json:"items"`
	Owners       int    `json:"owners"`
	Healthy      bool   `json:"healthy"`
	HealthDetail string `json:"health_detail,omitempty"`
}

// ShareSummary is the share DTO crossing the control socket.
type ShareSummary struct {
	Token     string `json:"token"`
	Owner     int64  `json:"owner"`
	Items     int    `json:"items"`
	Kind      string `json:"kind"`
	Caption   string `json:"caption,omitempty"`
	CreatedAt string `json:"created_at"`
}

// SharesListRequest lists shares, optionally scoped to one owner.
type SharesListRequest struct {
	Owner  int64 `json:"owner"`
	Offset int   `json:"offset"`
	Limit  int   `json:"limit"`
}

// SharesListResponse contains share summaries.
type SharesListResponse struct {
	Shares []ShareSummary `json:"shares"`
}

// SharesDeleteRequest removes a share by token on operator authority.
type SharesDeleteRequest struct {
	Token string `json:"token"`
}

// SharesDeleteResponse reports the removal result.
type SharesDeleteResponse struct {
	Removed bool `json:"removed"`
	Items   int  `json:"items"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
