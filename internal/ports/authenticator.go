package ports

import (
	"context"

	"clipsync/internal/types"
)

// Authenticator runs the host-delegated federated login flow and yields
// the resolved identity plus a TokenSource for subsequent store calls.
// Failures are typed types.ErrAuth.
type Authenticator interface {
	SignIn(ctx context.Context) (types.Identity, TokenSource, error)

	// Resume rebuilds a session from a persisted long-lived credential
	// without user interaction. MUST return types.ErrAuth when the
	// credential is no longer valid.
	Resume(ctx context.Context, refreshToken string) (types.Identity, TokenSource, error)

	// SignOut invalidates the current credential.
	SignOut(ctx context.Context) error
}
