package firebase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"clipsync/internal/ports"
	"clipsync/internal/types"

	"github.com/goccy/go-json"
)

// ClipStore implements ports.ClipStore against the Firebase Realtime
// Database REST dialect: collections are paths, `POST <path>.json` creates
// a child under a server-generated id and answers `{"name": id}`, `DELETE`
// removes, `GET` reads the whole subtree (JSON `null` when absent).
// Authenticated calls carry `?auth=<token>`; the token is resolved fresh
// from the TokenSource on every request.
type ClipStore struct {
	baseURL string
	tokens  ports.TokenSource // nil = anonymous
	httpCli *http.Client
}

const defaultTimeout = 10 * time.Second

func NewClipStore(baseURL string, tokens ports.TokenSource) *ClipStore {
	return &ClipStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		httpCli: &http.Client{Timeout: defaultTimeout},
	}
}

// clipsPath addresses a target's collection, optionally down to one clip.
func clipsPath(target string, id string) string {
	if id == "" {
		return fmt.Sprintf("rooms/%s/clips", target)
	}
	return fmt.Sprintf("rooms/%s/clips/%s", target, id)
}

func (s *ClipStore) Append(ctx context.Context, target string, data types.ClipData) (string, error) {
	if err := data.Validate(); err != nil {
		return "", err
	}
	body, err := json.Marshal(data)
	if err != nil {
		return "", types.Err(types.ErrRemoteWrite, err, "marshal clip")
	}
	resp, err := s.do(ctx, http.MethodPost, clipsPath(target, ""), body)
	if err != nil {
		return "", types.Err(types.ErrRemoteWrite, err, "push to %s", target)
	}
	defer closeBody(resp)
	if resp.StatusCode != http.StatusOK {
		return "", types.Err(types.ErrRemoteWrite, nil, "push to %s: %s", target, resp.Status)
	}
	var out struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", types.Err(types.ErrRemoteWrite, err, "decode push response")
	}
	if out.Name == "" {
		return "", types.Err(types.ErrRemoteWrite, nil, "push response carries no generated id")
	}
	return out.Name, nil
}

func (s *ClipStore) Remove(ctx context.Context, target, id string) error {
	resp, err := s.do(ctx, http.MethodDelete, clipsPath(target, id), nil)
	if err != nil {
		return types.Err(types.ErrRemoteWrite, err, "delete %s/%s", target, id)
	}
	defer closeBody(resp)
	// Deleting an absent path is idempotent; the store answers 200 with
	// a null body either way, but tolerate 404 from stricter dialects.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		return types.Err(types.ErrRemoteWrite, nil, "delete %s/%s: %s", target, id, resp.Status)
	}
	return nil
}

func (s *ClipStore) ReadAll(ctx context.Context, target string) (map[string]types.ClipData, error) {
	resp, err := s.do(ctx, http.MethodGet, clipsPath(target, ""), nil)
	if err != nil {
		return nil, types.Err(types.ErrRemoteRead, err, "read %s", target)
	}
	defer closeBody(resp)
	if resp.StatusCode != http.StatusOK {
		return nil, types.Err(types.ErrRemoteRead, nil, "read %s: %s", target, resp.Status)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, types.Err(types.ErrRemoteRead, err, "read %s body", target)
	}
	// An empty subtree reads back as the JSON literal null.
	var clips map[string]types.ClipData
	if err := json.Unmarshal(raw, &clips); err != nil {
		return nil, types.Err(types.ErrRemoteRead, err, "decode %s subtree", target)
	}
	if len(clips) == 0 {
		return nil, nil
	}
	return clips, nil
}

// Set writes data at an exact clip path (PUT), for callers that need
// deterministic ids (seeding, migrations).
func (s *ClipStore) Set(ctx context.Context, target, id string, data types.ClipData) error {
	body, err := json.Marshal(data)
	if err != nil {
		return types.Err(types.ErrRemoteWrite, err, "marshal clip")
	}
	resp, err := s.do(ctx, http.MethodPut, clipsPath(target, id), body)
	if err != nil {
		return types.Err(types.ErrRemoteWrite, err, "set %s/%s", target, id)
	}
	defer closeBody(resp)
	if resp.StatusCode != http.StatusOK {
		return types.Err(types.ErrRemoteWrite, nil, "set %s/%s: %s", target, id, resp.Status)
	}
	return nil
}

func (s *ClipStore) ClearAll(ctx context.Context, target string) error {
	resp, err := s.do(ctx, http.MethodDelete, clipsPath(target, ""), nil)
	if err != nil {
		return types.Err(types.ErrRemoteWrite, err, "clear %s", target)
	}
	defer closeBody(resp)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		return types.Err(types.ErrRemoteWrite, nil, "clear %s: %s", target, resp.Status)
	}
	return nil
}

func (s *ClipStore) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	u, err := s.buildURL(ctx, path)
	if err != nil {
		return nil, err
	}
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.httpCli.Do(req)
}

// buildURL shapes `<base>/<path>.json[?auth=<token>]`, resolving a fresh
// token per call when a TokenSource is present.
func (s *ClipStore) buildURL(ctx context.Context, path string) (string, error) {
	u := fmt.Sprintf("%s/%s.json", s.baseURL, path)
	if s.tokens == nil {
		return u, nil
	}
	token, err := s.tokens.Token(ctx)
	if err != nil {
		return "", err
	}
	if token == "" {
		return u, nil
	}
	return u + "?auth=" + url.QueryEscape(token), nil
}

func closeBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}
