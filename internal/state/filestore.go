package state

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"clipsync/internal/types"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

const (
	EnvStatePath = "CLIPSYNC_STATE"

	stateDirName  = ".clipsync"
	stateFileName = "state.json"
)

// FileStore persists the session state as a small JSON file, standing in
// for the extension's host key-value storage. Writes go through a temp
// file + rename so a crash never leaves a half-written state behind.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// DefaultPath is $CLIPSYNC_STATE when set, otherwise
// ~/.clipsync/state.json.
func DefaultPath() (string, error) {
	if p := os.Getenv(EnvStatePath); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, stateDirName, stateFileName), nil
}

func (s *FileStore) Load(_ context.Context) (types.LocalState, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return types.LocalState{}, nil
		}
		return types.LocalState{}, err
	}
	var st types.LocalState
	if err := json.Unmarshal(raw, &st); err != nil {
		return types.LocalState{}, err
	}
	return st, nil
}

func (s *FileStore) Save(_ context.Context, st types.LocalState) error {
	if st.DeviceID == "" {
		st.DeviceID = uuid.NewString()
	}
	if err := st.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Clear forgets the session but keeps the per-install device id.
func (s *FileStore) Clear(ctx context.Context) error {
	st, err := s.Load(ctx)
	if err != nil {
		return err
	}
	return s.Save(ctx, types.LocalState{DeviceID: st.DeviceID})
}
