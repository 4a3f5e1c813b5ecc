package syncer

import (
	"bytes"
	"context"
	"sync"
	"time"

	"clipsync/internal/ports"
	"clipsync/internal/types"

	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
)

// Snapshot is the full state of a target's remote collection as observed
// by one poll cycle: an unordered id → payload mapping, nil when the
// target holds no data.
type Snapshot map[string]types.ClipData

// Poller simulates a push-based subscription over the pull-based store:
// it fetches the full subtree on a fixed cadence, serializes the result,
// and invokes the change callback only when the serialization differs
// from the previous cycle's.
type Poller struct {
	store    ports.ClipStore
	interval time.Duration

	// OnCycle, when set, observes the health of every completed cycle:
	// true for a successful fetch whether or not it changed anything.
	// Lets owners keep an "offline" indicator honest without receiving
	// redundant snapshots.
	OnCycle func(ok bool)
}

func NewPoller(store ports.ClipStore, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = types.DefaultPollIntervalSeconds * time.Second
	}
	return &Poller{store: store, interval: interval}
}

// Subscribe starts polling target and returns the cancel function. The
// first fetch is issued immediately, then one per interval. onChange
// observes every distinct snapshot exactly once; onError observes read
// failures, which neither stop the loop nor advance the stored
// serialization (a failed poll must not mask the next real change).
//
// All cycles for one subscription run on a single goroutine, so a slow
// response can never race a staler one into onChange. The returned
// cancel is idempotent and blocks until the loop goroutine has exited:
// once it returns, no further callback fires.
func (p *Poller) Subscribe(target string, onChange func(Snapshot), onError func(error)) (cancel func()) {
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan struct{})

	go p.loop(ctx, done, target, onChange, onError)

	var once sync.Once
	return func() {
		once.Do(func() {
			stop()
			<-done
		})
	}
}

func (p *Poller) loop(ctx context.Context, done chan<- struct{}, target string, onChange func(Snapshot), onError func(error)) {
	defer close(done)

	tick := time.NewTicker(p.interval)
	defer tick.Stop()

	last := p.cycle(ctx, target, nil, onChange, onError)
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			last = p.cycle(ctx, target, last, onChange, onError)
		}
	}
}

// cycle runs one fetch → diff → callback pass and returns the
// serialization to compare the next cycle against.
func (p *Poller) cycle(ctx context.Context, target string, last []byte, onChange func(Snapshot), onError func(error)) []byte {
	clips, err := p.store.ReadAll(ctx, target)
	if err != nil {
		if ctx.Err() != nil {
			// Canceled mid-fetch; not a poll failure.
			return last
		}
		log.WithError(err).WithField("target", target).Warn("poll read failed")
		if p.OnCycle != nil {
			p.OnCycle(false)
		}
		if onError != nil {
			onError(err)
		}
		return last
	}
	if p.OnCycle != nil {
		p.OnCycle(true)
	}

	// Go maps marshal with sorted keys, so this is deterministic and a
	// nil map reads back as the literal `null` — which makes the very
	// first empty fetch differ from the initial nil serialization and
	// fire onChange once, matching the subscription contract.
	serialized, err := json.Marshal(clips)
	if err != nil {
		if onError != nil {
			onError(types.Err(types.ErrRemoteRead, err, "serialize snapshot for %s", target))
		}
		return last
	}
	if bytes.Equal(serialized, last) {
		return last
	}
	if onChange != nil {
		onChange(Snapshot(clips))
	}
	return serialized
}
