package ports

import (
	"context"

	"clipsync/internal/types"
)

// StateStore persists the small key-value session state between runs
// (room id, auth mode, refresh token). Load on a store that has never
// been written MUST return a zero LocalState and no error.
type StateStore interface {
	Load(ctx context.Context) (types.LocalState, error)
	Save(ctx context.Context, s types.LocalState) error
	Clear(ctx context.Context) error
}
