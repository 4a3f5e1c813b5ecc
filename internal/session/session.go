package session

import (
	"context"
	"strings"
	"sync"

	"clipsync/internal/ports"
	"clipsync/internal/types"

	log "github.com/sirupsen/logrus"
)

// Status is the resolver's auth lifecycle state.
type Status int

const (
	StatusAnonymous Status = iota // fresh start, no mode chosen or restored yet
	StatusAuthenticating
	StatusAuthenticated
	StatusSignedOut
)

var StatusTextMap = map[Status]string{
	StatusAnonymous:      "anonymous",
	StatusAuthenticating: "authenticating",
	StatusAuthenticated:  "authenticated",
	StatusSignedOut:      "signed_out",
}

// TargetKind tags the sync-target variant. Exactly one mode is active at
// a time; the tagged form makes the invalid "both set" state
// unrepresentable.
type TargetKind int

const (
	TargetNone TargetKind = iota
	TargetRoom
	TargetIdentity
)

// Target is the current sync-target variant: nothing, a shared room id,
// or a federated identity.
type Target struct {
	Kind   TargetKind
	RoomID string
	User   *types.Identity
}

// Resolver determines the effective sync target from the two mutually
// exclusive auth modes and tracks the login lifecycle. It also acts as
// the store's TokenSource: anonymous room mode yields no token, the
// authenticated mode delegates to the credential obtained at sign-in.
type Resolver struct {
	states ports.StateStore
	auth   ports.Authenticator

	mu     sync.Mutex
	status Status
	target Target
	tokens ports.TokenSource
}

func NewResolver(states ports.StateStore, auth ports.Authenticator) *Resolver {
	return &Resolver{states: states, auth: auth}
}

// Restore reloads the persisted mode at startup so a prior session
// resumes without re-entry. A persisted authenticated mode resumes from
// the stored credential; when that fails the resolver lands in
// signed-out rather than silently falling back to room mode.
func (r *Resolver) Restore(ctx context.Context) error {
	st, err := r.states.Load(ctx)
	if err != nil {
		return err
	}
	switch st.AuthMode {
	case types.AuthModeRoom:
		if st.RoomID == "" {
			return nil
		}
		r.mu.Lock()
		r.target = Target{Kind: TargetRoom, RoomID: st.RoomID}
		r.mu.Unlock()

	case types.AuthModeGoogle:
		if st.RefreshToken == "" {
			r.setStatus(StatusSignedOut)
			return nil
		}
		r.setStatus(StatusAuthenticating)
		user, tokens, err := r.auth.Resume(ctx, st.RefreshToken)
		if err != nil {
			log.WithError(err).Warn("session resume failed")
			r.setStatus(StatusSignedOut)
			return types.Err(types.ErrAuth, err, "resume session")
		}
		r.mu.Lock()
		r.status = StatusAuthenticated
		r.target = Target{Kind: TargetIdentity, User: &user}
		r.tokens = tokens
		r.mu.Unlock()
	}
	return nil
}

// Authenticate runs the delegated login flow. On success the mode is
// persisted as authenticated; on failure the resolver is signed out and
// the error surfaces to the caller. Any prior room target is discarded,
// never merged.
func (r *Resolver) Authenticate(ctx context.Context) error {
	r.setStatus(StatusAuthenticating)

	user, tokens, err := r.auth.SignIn(ctx)
	if err != nil {
		r.setStatus(StatusSignedOut)
		return types.Err(types.ErrAuth, err, "sign in")
	}

	r.mu.Lock()
	r.status = StatusAuthenticated
	r.target = Target{Kind: TargetIdentity, User: &user}
	r.tokens = tokens
	r.mu.Unlock()

	return r.persistMode(ctx, func(st *types.LocalState) {
		st.AuthMode = types.AuthModeGoogle
		st.RoomID = ""
	})
}

// SignOut invalidates the credential and clears the persisted mode.
func (r *Resolver) SignOut(ctx context.Context) error {
	if err := r.auth.SignOut(ctx); err != nil {
		log.WithError(err).Warn("sign out")
	}
	r.mu.Lock()
	r.status = StatusSignedOut
	r.target = Target{}
	r.tokens = nil
	r.mu.Unlock()

	return r.persistMode(ctx, func(st *types.LocalState) {
		st.AuthMode = ""
		st.RoomID = ""
		st.RefreshToken = ""
	})
}

// SetRoomMode enters anonymous room mode with the given id. Valid only
// while not authenticated.
func (r *Resolver) SetRoomMode(ctx context.Context, roomID string) error {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return types.Err(types.ErrValidation, nil, "room id must be non-empty")
	}
	r.mu.Lock()
	if r.status == StatusAuthenticated || r.status == StatusAuthenticating {
		r.mu.Unlock()
		return types.Err(types.ErrValidation, nil, "sign out before switching to room mode")
	}
	r.target = Target{Kind: TargetRoom, RoomID: roomID}
	r.mu.Unlock()

	return r.persistMode(ctx, func(st *types.LocalState) {
		st.AuthMode = types.AuthModeRoom
		st.RoomID = roomID
	})
}

// ClearMode drops the current target and the persisted mode without
// touching the credential state. Used by disconnect.
func (r *Resolver) ClearMode(ctx context.Context) error {
	r.mu.Lock()
	r.target = Target{}
	r.mu.Unlock()

	return r.persistMode(ctx, func(st *types.LocalState) {
		st.AuthMode = ""
		st.RoomID = ""
	})
}

// EffectiveTarget is a pure function of the current mode and identity:
// the room id in room mode, the identity's uid once authenticated, and
// nothing while no mode is active or the identity is still resolving.
func (r *Resolver) EffectiveTarget() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.target.Kind {
	case TargetRoom:
		return r.target.RoomID, true
	case TargetIdentity:
		if r.status != StatusAuthenticated || r.target.User == nil {
			return "", false
		}
		return r.target.User.UID, true
	default:
		return "", false
	}
}

func (r *Resolver) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Resolver) Current() Target {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.target
}

// Token implements ports.TokenSource. Room mode is anonymous: no token,
// no error.
func (r *Resolver) Token(ctx context.Context) (string, error) {
	r.mu.Lock()
	tokens := r.tokens
	r.mu.Unlock()
	if tokens == nil {
		return "", nil
	}
	return tokens.Token(ctx)
}

func (r *Resolver) setStatus(s Status) {
	r.mu.Lock()
	r.status = s
	r.mu.Unlock()
}

// persistMode load-modifies-saves the local state, preserving unrelated
// fields (device id, refresh token).
func (r *Resolver) persistMode(ctx context.Context, mutate func(*types.LocalState)) error {
	st, err := r.states.Load(ctx)
	if err != nil {
		return err
	}
	mutate(&st)
	return r.states.Save(ctx, st)
}
