package model

// SessionState represents where a chat session sits in the multi-step dialog.
type SessionState string

const (
	StateIdle               SessionState = "idle"
	StateAwaitingAuthCode   SessionState = "awaiting_auth_code"
	StateAwaitingClientName SessionState = "awaiting_client_name"
	StateAwaitingConfigs    SessionState = "awaiting_configs"
)
