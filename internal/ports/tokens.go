package ports

import "context"

// TokenSource yields the bearer token attached to authenticated store
// calls. Tokens are short-lived: implementations MUST resolve a currently
// valid token on every call (refreshing upstream when stale) rather than
// handing out a cached one across calls. A nil TokenSource means the
// caller is anonymous and no token is attached.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}
