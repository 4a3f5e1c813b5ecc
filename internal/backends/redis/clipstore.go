package redis

import (
	"context"
	"fmt"

	"clipsync/internal/types"

	"github.com/goccy/go-json"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
)

const roomKeyNameTemplate = "_clipsync_room_%s"

// ClipStore implements ports.ClipStore on a self-hosted Redis: one hash
// per target, field = generated id, value = JSON clip payload. Ids are
// ULIDs so they sort by creation order like the hosted store's push ids.
type ClipStore struct {
	cli *redis.Client
}

func NewClipStore(cli *redis.Client) *ClipStore {
	return &ClipStore{cli: cli}
}

func (s *ClipStore) Append(ctx context.Context, target string, data types.ClipData) (string, error) {
	if err := data.Validate(); err != nil {
		return "", err
	}
	out, err := json.Marshal(data)
	if err != nil {
		return "", types.Err(types.ErrRemoteWrite, err, "marshal clip")
	}
	id := ulid.Make().String()
	if err := s.cli.HSet(ctx, getRoomKey(target), id, string(out)).Err(); err != nil {
		return "", types.Err(types.ErrRemoteWrite, err, "hset %s", target)
	}
	return id, nil
}

func (s *ClipStore) Remove(ctx context.Context, target, id string) error {
	// HDel of a missing field answers 0, which keeps Remove idempotent.
	if err := s.cli.HDel(ctx, getRoomKey(target), id).Err(); err != nil {
		return types.Err(types.ErrRemoteWrite, err, "hdel %s/%s", target, id)
	}
	return nil
}

func (s *ClipStore) ReadAll(ctx context.Context, target string) (map[string]types.ClipData, error) {
	out := s.cli.HGetAll(ctx, getRoomKey(target))
	if out.Err() != nil {
		return nil, types.Err(types.ErrRemoteRead, out.Err(), "hgetall %s", target)
	}
	m := out.Val()
	if len(m) == 0 {
		return nil, nil
	}
	clips := make(map[string]types.ClipData, len(m))
	for id, raw := range m {
		var d types.ClipData
		if err := json.Unmarshal([]byte(raw), &d); err != nil {
			return nil, types.Err(types.ErrRemoteRead, err, "invalid clip %s/%s", target, id)
		}
		clips[id] = d
	}
	return clips, nil
}

func (s *ClipStore) ClearAll(ctx context.Context, target string) error {
	if err := s.cli.Del(ctx, getRoomKey(target)).Err(); err != nil {
		return types.Err(types.ErrRemoteWrite, err, "del %s", target)
	}
	return nil
}

func getRoomKey(target string) string {
	return fmt.Sprintf(roomKeyNameTemplate, target)
}
