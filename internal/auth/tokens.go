package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"clipsync/internal/types"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
)

// expiryLeeway keeps us from handing out a token that dies mid-request.
const expiryLeeway = 30 * time.Second

// tokenSource resolves a currently valid Firebase ID token on every
// call, refreshing through the secure-token endpoint when the held one
// is stale. Refresh tokens rotate; rotations are written back to the
// state store so a later Resume still works.
type tokenSource struct {
	g *Google

	mu           sync.Mutex
	idToken      string
	refreshToken string
	expiry       time.Time
}

func newTokenSource(g *Google, idToken, refreshToken string, expiry time.Time) *tokenSource {
	return &tokenSource{g: g, idToken: idToken, refreshToken: refreshToken, expiry: expiry}
}

func (t *tokenSource) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.idToken != "" && time.Now().Before(t.expiry.Add(-expiryLeeway)) {
		return t.idToken, nil
	}
	if err := t.refreshLocked(ctx); err != nil {
		return "", err
	}
	return t.idToken, nil
}

type refreshResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id"`
	ExpiresIn    string `json:"expires_in"`
}

func (t *tokenSource) refreshLocked(ctx context.Context) error {
	if t.refreshToken == "" {
		return types.Err(types.ErrAuth, nil, "no refresh token")
	}
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {t.refreshToken},
	}
	u := fmt.Sprintf("%s/token?key=%s", t.g.SecureTokenEndpoint, url.QueryEscape(t.g.APIKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return types.Err(types.ErrAuth, err, "")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := t.g.httpCli.Do(req)
	if err != nil {
		return types.Err(types.ErrAuth, err, "refresh token")
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return types.Err(types.ErrAuth, nil, "refresh token: %s", resp.Status)
	}
	var out refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return types.Err(types.ErrAuth, err, "decode refresh response")
	}
	if out.IDToken == "" {
		return types.Err(types.ErrAuth, nil, "refresh response carries no id token")
	}

	t.idToken = out.IDToken
	t.expiry = expiryFromSeconds(out.ExpiresIn)
	if t.expiry.IsZero() {
		// Fall back to the exp claim baked into the token itself.
		if _, _, exp, err := parseIDToken(out.IDToken); err == nil {
			t.expiry = exp
		}
	}
	if out.RefreshToken != "" && out.RefreshToken != t.refreshToken {
		t.refreshToken = out.RefreshToken
		if err := t.g.persistRefreshToken(ctx, out.RefreshToken); err != nil {
			log.WithError(err).Warn("persist rotated refresh token")
		}
	}
	return nil
}

// parseIDToken reads the uid, email and expiry claims without verifying
// the signature; verification is the store's job, we only schedule
// refreshes with these.
func parseIDToken(idToken string) (uid, email string, exp time.Time, err error) {
	claims := jwt.MapClaims{}
	if _, _, err = jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return "", "", time.Time{}, err
	}
	if sub, serr := claims.GetSubject(); serr == nil {
		uid = sub
	}
	if uid == "" {
		if v, ok := claims["user_id"].(string); ok {
			uid = v
		}
	}
	if v, ok := claims["email"].(string); ok {
		email = v
	}
	if expClaim, eerr := claims.GetExpirationTime(); eerr == nil && expClaim != nil {
		exp = expClaim.Time
	}
	if uid == "" {
		return "", "", time.Time{}, fmt.Errorf("id token carries no subject")
	}
	return uid, email, exp, nil
}

func expiryFromSeconds(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	secs, err := strconv.Atoi(s)
	if err != nil {
		return time.Time{}
	}
	return time.Now().Add(time.Duration(secs) * time.Second)
}
