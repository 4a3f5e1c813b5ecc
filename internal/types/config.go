package types

import "fmt"

// Config drives the sync client. DatabaseURL points at the root of a
// Firebase-RTDB-dialect REST store; clips for a target live under
// `rooms/<target>/clips`.
// APIKey and OAuthClientID are only required for the Google sign-in mode;
// room mode talks to the store unauthenticated.
// PollIntervalSeconds is the subscription poll cadence (default 2).
type Config struct {
	DatabaseURL   string `json:"database_url" yaml:"database_url"`
	APIKey        string `json:"api_key" yaml:"api_key"`
	OAuthClientID string `json:"oauth_client_id" yaml:"oauth_client_id"`

	PollIntervalSeconds int `json:"poll_interval_seconds" yaml:"poll_interval_seconds"`
}

const (
	DefaultPollIntervalSeconds = 2

	RoomIDMinLength = 1
)

// AuthMode is persisted in local state so a later start can restore the
// prior session. Exactly one mode is active at a time.
const (
	AuthModeRoom   = "room"
	AuthModeGoogle = "google"
)

// Identity is the resolved federated user. UID is the stable per-identity
// id used as the sync target in authenticated mode.
type Identity struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}

// LocalState is the key-value state persisted by the host between runs,
// mirroring what the popup kept in extension storage.
type LocalState struct {
	RoomID       string `json:"room_id,omitempty"`
	AuthMode     string `json:"auth_mode,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	DeviceID     string `json:"device_id,omitempty"`
}

// Validate checks the shape only; whether database_url is required
// depends on the selected backend and is enforced at wiring time.
func (c Config) Validate() error {
	if c.PollIntervalSeconds < 0 {
		return fmt.Errorf("poll_interval_seconds must be non-negative. 0 for the default")
	}
	return nil
}

func (s LocalState) Validate() error {
	switch s.AuthMode {
	case "", AuthModeGoogle:
	case AuthModeRoom:
		if s.RoomID == "" {
			return fmt.Errorf("room mode requires a room_id")
		}
	default:
		return fmt.Errorf("unknown auth_mode %q", s.AuthMode)
	}
	return nil
}
