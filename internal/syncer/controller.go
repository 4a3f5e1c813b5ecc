package syncer

import (
	"context"
	"sort"
	"sync"
	"time"

	"clipsync/internal/ports"
	"clipsync/internal/session"
	"clipsync/internal/types"

	log "github.com/sirupsen/logrus"
)

// Controller is the composition root of the sync core. It exclusively
// owns the in-memory clip list and the single active subscription; the
// store and poller are stateless collaborators. The list is only ever
// replaced by poll snapshots or by teardown — user actions write to the
// store and wait for the poller to reflect the result (no optimistic
// local mutation).
type Controller struct {
	store    ports.ClipStore
	clipbrd  ports.Clipboard
	sess     *session.Resolver
	interval time.Duration

	// OnUpdate, when set before Connect, observes every new sorted clip
	// list. Called from the poll goroutine.
	OnUpdate func([]types.Clip)

	mu      sync.Mutex
	clips   []types.Clip
	cancel  func()
	offline bool
}

func NewController(store ports.ClipStore, clipbrd ports.Clipboard, sess *session.Resolver, interval time.Duration) *Controller {
	return &Controller{
		store:    store,
		clipbrd:  clipbrd,
		sess:     sess,
		interval: interval,
	}
}

// Connect resolves the effective sync target and establishes the polling
// subscription for it, strictly tearing down any prior one first so no
// callback can fire against a stale target. When no target resolves yet
// (no mode chosen, or authenticated mode with the identity still
// loading), nothing is established and no error is returned; callers
// re-Connect once the identity settles.
func (c *Controller) Connect(_ context.Context) error {
	c.teardown()

	target, ok := c.sess.EffectiveTarget()
	if !ok {
		c.publish(nil)
		return nil
	}

	p := NewPoller(c.store, c.interval)
	p.OnCycle = c.noteCycle
	cancel := p.Subscribe(target, c.applySnapshot, nil)

	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
	log.WithField("target", target).Info("subscribed")
	return nil
}

// Disconnect tears down the subscription and forgets the session mode,
// both in memory and persisted. Remote data is untouched.
func (c *Controller) Disconnect(ctx context.Context) error {
	c.teardown()
	c.publish(nil)
	return c.sess.ClearMode(ctx)
}

// Close stops the subscription without touching the session. For
// process shutdown.
func (c *Controller) Close() {
	c.teardown()
}

// SyncNow reads the OS clipboard and appends its trimmed text with a
// client-assigned timestamp. The new clip becomes visible on the next
// poll cycle, there is no optimistic insert.
func (c *Controller) SyncNow(ctx context.Context) error {
	target, ok := c.sess.EffectiveTarget()
	if !ok {
		return types.Err(types.ErrValidation, nil, "no sync target: connect a room or sign in first")
	}
	raw, err := c.clipbrd.ReadText()
	if err != nil {
		return types.Err(types.ErrValidation, err, "read clipboard")
	}
	data, err := types.NewClipData(raw, EpochMillis())
	if err != nil {
		return err
	}
	id, err := c.store.Append(ctx, target, data)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{"target": target, "id": id}).Debug("clip pushed")
	return nil
}

// Copy writes text back to the OS clipboard. Failures are logged and
// non-fatal.
func (c *Controller) Copy(text string) {
	if err := c.clipbrd.WriteText(text); err != nil {
		log.WithError(err).Warn("clipboard write failed")
	}
}

// DeleteClip removes one clip by id. The list reflects the removal on
// the next poll cycle.
func (c *Controller) DeleteClip(ctx context.Context, id string) error {
	target, ok := c.sess.EffectiveTarget()
	if !ok {
		return types.Err(types.ErrValidation, nil, "no sync target")
	}
	return c.store.Remove(ctx, target, id)
}

// List fetches the target's collection once, outside any subscription,
// sorted the same way snapshots are.
func (c *Controller) List(ctx context.Context) ([]types.Clip, error) {
	target, ok := c.sess.EffectiveTarget()
	if !ok {
		return nil, types.Err(types.ErrValidation, nil, "no sync target")
	}
	snap, err := c.store.ReadAll(ctx, target)
	if err != nil {
		return nil, err
	}
	return sortSnapshot(snap), nil
}

// Clips returns the current in-memory list.
func (c *Controller) Clips() []types.Clip {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]types.Clip, len(c.clips))
	copy(out, c.clips)
	return out
}

// Offline reports whether the most recent poll cycle failed. It clears
// on the next successful cycle; the loop itself never stops on errors.
func (c *Controller) Offline() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offline
}

func (c *Controller) applySnapshot(snap Snapshot) {
	clips := sortSnapshot(snap)
	c.mu.Lock()
	c.clips = clips
	onUpdate := c.OnUpdate
	c.mu.Unlock()
	if onUpdate != nil {
		onUpdate(clips)
	}
}

func (c *Controller) noteCycle(ok bool) {
	c.mu.Lock()
	c.offline = !ok
	c.mu.Unlock()
}

func (c *Controller) publish(clips []types.Clip) {
	c.mu.Lock()
	c.clips = clips
	c.offline = false
	onUpdate := c.OnUpdate
	c.mu.Unlock()
	if onUpdate != nil {
		onUpdate(clips)
	}
}

// teardown synchronously stops the active subscription, if any. After it
// returns no poll callback can fire.
func (c *Controller) teardown() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// sortSnapshot orders newest-first. Ids are walked in their natural
// (creation) order first so that equal timestamps keep arrival order
// under the stable sort.
func sortSnapshot(snap map[string]types.ClipData) []types.Clip {
	if len(snap) == 0 {
		return nil
	}
	ids := make([]string, 0, len(snap))
	for id := range snap {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	clips := make([]types.Clip, 0, len(ids))
	for _, id := range ids {
		clips = append(clips, types.Clip{ID: id, ClipData: snap[id]})
	}
	sort.SliceStable(clips, func(i, j int) bool {
		return clips[i].Timestamp > clips[j].Timestamp
	})
	return clips
}
