package syncer

import (
	"context"
	"sync"
	"time"

	"clipsync/internal/types"
)

// changeRecorder collects onChange snapshots.
type changeRecorder struct {
	mu    sync.Mutex
	snaps []Snapshot
	errs  int
}

func (r *changeRecorder) onChange(s Snapshot) {
	r.mu.Lock()
	r.snaps = append(r.snaps, s)
	r.mu.Unlock()
}

func (r *changeRecorder) onError(error) {
	r.mu.Lock()
	r.errs++
	r.mu.Unlock()
}

func (r *changeRecorder) changes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

func (r *changeRecorder) errors() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errs
}

func (r *changeRecorder) last() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snaps) == 0 {
		return nil
	}
	return r.snaps[len(r.snaps)-1]
}

func (s *UnitTestSuite) TestPollerFiresOnceOnFirstFetch() {
	rec := &changeRecorder{}
	p := NewPoller(s.store, testInterval)

	cancel := p.Subscribe("ABC123", rec.onChange, rec.onError)
	defer cancel()

	// The very first fetch of an empty collection still counts as a
	// change from the initial state.
	s.eventually(func() bool { return rec.changes() == 1 })
	s.Nil(rec.last())

	// Identical fetches afterwards stay silent.
	time.Sleep(6 * testInterval)
	s.Equal(1, rec.changes())
	s.GreaterOrEqual(s.store.readCount(), 3)
}

func (s *UnitTestSuite) TestPollerFiresOnEachDistinctSnapshot() {
	ctx := context.Background()
	rec := &changeRecorder{}
	p := NewPoller(s.store, testInterval)

	cancel := p.Subscribe("ABC123", rec.onChange, rec.onError)
	defer cancel()
	s.eventually(func() bool { return rec.changes() == 1 })

	id, err := s.store.Append(ctx, "ABC123", types.ClipData{Text: "hello", Timestamp: 42})
	s.Require().NoError(err)

	s.eventually(func() bool { return rec.changes() == 2 })
	s.Equal(types.ClipData{Text: "hello", Timestamp: 42}, rec.last()[id])

	// No change, no callback.
	time.Sleep(4 * testInterval)
	s.Equal(2, rec.changes())

	s.Require().NoError(s.store.Remove(ctx, "ABC123", id))
	s.eventually(func() bool { return rec.changes() == 3 })
	s.Nil(rec.last())
}

func (s *UnitTestSuite) TestPollerErrorKeepsLoopAndSnapshot() {
	rec := &changeRecorder{}
	s.store.setFailReads(true)
	p := NewPoller(s.store, testInterval)

	cancel := p.Subscribe("ABC123", rec.onChange, rec.onError)
	defer cancel()

	s.eventually(func() bool { return rec.errors() >= 2 })
	s.Equal(0, rec.changes())

	// Recovery: the loop never stopped and the failed cycles did not
	// advance the stored serialization, so the next good fetch still
	// registers as a change.
	_, err := s.store.Append(context.Background(), "ABC123", types.ClipData{Text: "back", Timestamp: 7})
	s.Require().NoError(err)
	s.store.setFailReads(false)

	s.eventually(func() bool { return rec.changes() == 1 })
	s.Len(rec.last(), 1)
}

func (s *UnitTestSuite) TestUnsubscribeIsIdempotentAndFinal() {
	rec := &changeRecorder{}
	p := NewPoller(s.store, testInterval)

	cancel := p.Subscribe("ABC123", rec.onChange, rec.onError)
	s.eventually(func() bool { return rec.changes() == 1 })

	cancel()
	cancel() // second call is a no-op

	seen := rec.changes()
	reads := s.store.readCount()
	_, err := s.store.Append(context.Background(), "ABC123", types.ClipData{Text: "late", Timestamp: 1})
	s.Require().NoError(err)

	time.Sleep(5 * testInterval)
	s.Equal(seen, rec.changes(), "no callback after cancel returned")
	s.Equal(reads, s.store.readCount(), "no fetch after cancel returned")
}
