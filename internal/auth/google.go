package auth

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"clipsync/internal/ports"
	"clipsync/internal/types"

	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
)

const (
	defaultAuthEndpoint        = "https://accounts.google.com/o/oauth2/v2/auth"
	defaultIdentityEndpoint    = "https://identitytoolkit.googleapis.com/v1"
	defaultSecureTokenEndpoint = "https://securetoken.googleapis.com/v1"

	signInTimeout = 3 * time.Minute
)

var oauthScopes = []string{
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
	"openid",
}

// Google implements ports.Authenticator: a browser-delegated OAuth2
// implicit flow against Google on a loopback redirect, followed by an
// exchange of the access token for a Firebase credential. The endpoints
// are overridable for tests.
type Google struct {
	APIKey   string
	ClientID string

	AuthEndpoint        string
	IdentityEndpoint    string
	SecureTokenEndpoint string

	// OpenURL launches the system browser. Defaults to the platform
	// opener; the URL is also logged so a headless user can follow it
	// by hand.
	OpenURL func(url string) error

	states  ports.StateStore
	httpCli *http.Client
}

func NewGoogle(apiKey, clientID string, states ports.StateStore) *Google {
	return &Google{
		APIKey:              apiKey,
		ClientID:            clientID,
		AuthEndpoint:        defaultAuthEndpoint,
		IdentityEndpoint:    defaultIdentityEndpoint,
		SecureTokenEndpoint: defaultSecureTokenEndpoint,
		OpenURL:             openBrowser,
		states:              states,
		httpCli:             &http.Client{Timeout: 15 * time.Second},
	}
}

func (g *Google) SignIn(ctx context.Context) (types.Identity, ports.TokenSource, error) {
	if g.ClientID == "" || g.APIKey == "" {
		return types.Identity{}, nil, types.Err(types.ErrAuth, nil, "oauth client id and api key are required for sign-in")
	}
	accessToken, err := g.obtainAccessToken(ctx)
	if err != nil {
		return types.Identity{}, nil, types.Err(types.ErrAuth, err, "google authorization")
	}
	sess, err := g.signInWithIdp(ctx, accessToken)
	if err != nil {
		return types.Identity{}, nil, err
	}
	if err := g.persistRefreshToken(ctx, sess.RefreshToken); err != nil {
		return types.Identity{}, nil, err
	}
	user := types.Identity{UID: sess.LocalID, Email: sess.Email}
	ts := newTokenSource(g, sess.IDToken, sess.RefreshToken, sess.expiry())
	log.WithField("email", user.Email).Info("signed in")
	return user, ts, nil
}

// Resume rebuilds the session from a persisted refresh token, without
// user interaction.
func (g *Google) Resume(ctx context.Context, refreshToken string) (types.Identity, ports.TokenSource, error) {
	ts := newTokenSource(g, "", refreshToken, time.Time{})
	idToken, err := ts.Token(ctx)
	if err != nil {
		return types.Identity{}, nil, err
	}
	uid, email, _, err := parseIDToken(idToken)
	if err != nil {
		return types.Identity{}, nil, types.Err(types.ErrAuth, err, "parse id token")
	}
	return types.Identity{UID: uid, Email: email}, ts, nil
}

// SignOut drops the local credential. There is nothing to revoke
// upstream: refresh tokens die when the persisted state forgets them.
func (g *Google) SignOut(_ context.Context) error {
	return nil
}

// obtainAccessToken runs the implicit-grant flow: a loopback HTTP
// listener receives the redirect, and a small relay page turns the
// URL fragment (where the token arrives) into query parameters the
// process can read.
func (g *Google) obtainAccessToken(ctx context.Context) (string, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", err
	}
	defer func() { _ = ln.Close() }()

	redirectURL := fmt.Sprintf("http://%s/callback", ln.Addr().String())

	tokenCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("access_token") != "":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(signedInPage))
			tokenCh <- q.Get("access_token")
		case q.Get("error") != "":
			http.Error(w, "authorization failed", http.StatusBadRequest)
			errCh <- fmt.Errorf("authorization denied: %s", q.Get("error"))
		default:
			// First hit: the token is in the fragment, which never
			// reaches the server. Relay it into the query string.
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(relayPage))
		}
	})
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	defer func() { _ = srv.Close() }()

	authURL := g.AuthEndpoint + "?" + url.Values{
		"client_id":     {g.ClientID},
		"redirect_uri":  {redirectURL},
		"response_type": {"token"},
		"scope":         {strings.Join(oauthScopes, " ")},
		"prompt":        {"select_account"},
	}.Encode()

	log.Infof("Opening browser for sign-in: %s", authURL)
	if err := g.OpenURL(authURL); err != nil {
		log.WithError(err).Warn("could not open browser, follow the URL above")
	}

	timer := time.NewTimer(signInTimeout)
	defer timer.Stop()
	select {
	case token := <-tokenCh:
		return token, nil
	case err := <-errCh:
		return "", err
	case <-timer.C:
		return "", fmt.Errorf("timed out waiting for the browser flow")
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

type idpSession struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	ExpiresIn    string `json:"expiresIn"`
}

func (s idpSession) expiry() time.Time {
	return expiryFromSeconds(s.ExpiresIn)
}

// signInWithIdp exchanges the Google access token for a Firebase
// credential.
func (g *Google) signInWithIdp(ctx context.Context, accessToken string) (idpSession, error) {
	body, err := json.Marshal(map[string]any{
		"postBody":            "access_token=" + accessToken + "&providerId=google.com",
		"requestUri":          "http://localhost",
		"returnSecureToken":   true,
		"returnIdpCredential": true,
	})
	if err != nil {
		return idpSession{}, types.Err(types.ErrAuth, err, "marshal idp request")
	}
	u := fmt.Sprintf("%s/accounts:signInWithIdp?key=%s", g.IdentityEndpoint, url.QueryEscape(g.APIKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return idpSession{}, types.Err(types.ErrAuth, err, "")
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := g.httpCli.Do(req)
	if err != nil {
		return idpSession{}, types.Err(types.ErrAuth, err, "exchange access token")
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return idpSession{}, types.Err(types.ErrAuth, nil, "exchange access token: %s", resp.Status)
	}
	var sess idpSession
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		return idpSession{}, types.Err(types.ErrAuth, err, "decode idp response")
	}
	if sess.IDToken == "" || sess.RefreshToken == "" || sess.LocalID == "" {
		return idpSession{}, types.Err(types.ErrAuth, nil, "incomplete idp response")
	}
	return sess, nil
}

func (g *Google) persistRefreshToken(ctx context.Context, refreshToken string) error {
	if g.states == nil {
		return nil
	}
	st, err := g.states.Load(ctx)
	if err != nil {
		return err
	}
	st.RefreshToken = refreshToken
	return g.states.Save(ctx, st)
}

const relayPage = `<!doctype html>
<html><body><script>
var h = window.location.hash.substring(1);
if (h) {
  window.location.replace(window.location.pathname + "?" + h);
} else {
  document.body.textContent = "Missing token response.";
}
</script></body></html>`

const signedInPage = `<!doctype html>
<html><body><p>Signed in. You can close this window.</p></body></html>`

func openBrowser(u string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", u).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", u).Start()
	default:
		return exec.Command("xdg-open", u).Start()
	}
}
