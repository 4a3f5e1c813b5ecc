package ports

import (
	"context"

	"clipsync/internal/types"
)

// ClipStore persists the clip collections of sync targets. A target is the
// string key of one remote collection (a room id or an identity uid);
// implementations map it onto their own addressing (REST path, hash key,
// partition key).
// Implementations MUST be safe for concurrent use; the poller and user
// actions call them from different goroutines.
type ClipStore interface {
	// Append stores data under a newly generated id and returns that id.
	// Generated ids MUST be unique within the target and SHOULD sort by
	// creation order. Failures are typed types.ErrRemoteWrite.
	Append(ctx context.Context, target string, data types.ClipData) (string, error)

	// Remove deletes one clip. Removing an id that does not exist is NOT
	// an error. Failures are typed types.ErrRemoteWrite.
	Remove(ctx context.Context, target, id string) error

	// ReadAll returns the full collection as an unordered id → payload
	// mapping. A target with no data MUST yield (nil, nil).
	// Failures are typed types.ErrRemoteRead.
	ReadAll(ctx context.Context, target string) (map[string]types.ClipData, error)

	// ClearAll purges a target's collection. Used in tests only.
	ClearAll(ctx context.Context, target string) error
}
