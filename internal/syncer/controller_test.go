package syncer

import (
	"context"
	"errors"
	"time"

	"clipsync/internal/types"
)

func (s *UnitTestSuite) TestSyncNowRejectsBlankClipboardBeforeNetwork() {
	ctrl := s.roomController("ABC123")
	s.clip.content = "   \n\t "

	err := ctrl.SyncNow(context.Background())
	s.Require().Error(err)
	s.True(errors.Is(err, types.ErrValidation))
	s.Equal(0, s.store.appendCount())
}

func (s *UnitTestSuite) TestSyncNowPushesTrimmedTextWithClientTimestamp() {
	at := time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)
	SetTimeNowFn(func() time.Time { return at })
	defer RestoreTimeNow()

	ctrl := s.roomController("ABC123")
	s.clip.content = "  hello  "

	s.Require().NoError(ctrl.SyncNow(context.Background()))

	room, err := s.store.ReadAll(context.Background(), "ABC123")
	s.Require().NoError(err)
	s.Require().Len(room, 1)
	for _, d := range room {
		s.Equal("hello", d.Text)
		s.Equal(at.UnixMilli(), d.Timestamp)
	}
}

func (s *UnitTestSuite) TestSnapshotsSortNewestFirstWithStableTies() {
	ctx := context.Background()
	for _, d := range []types.ClipData{
		{Text: "oldest", Timestamp: 100},
		{Text: "tie-a", Timestamp: 200},
		{Text: "tie-b", Timestamp: 200},
		{Text: "newest", Timestamp: 300},
	} {
		_, err := s.store.Append(ctx, "ABC123", d)
		s.Require().NoError(err)
	}

	ctrl := s.roomController("ABC123")
	s.Require().NoError(ctrl.Connect(ctx))
	defer ctrl.Close()

	s.eventually(func() bool { return len(ctrl.Clips()) == 4 })
	clips := ctrl.Clips()
	s.Equal("newest", clips[0].Text)
	// Equal timestamps keep creation (id) order under the stable sort.
	s.Equal("tie-a", clips[1].Text)
	s.Equal("tie-b", clips[2].Text)
	s.Equal("oldest", clips[3].Text)
}

func (s *UnitTestSuite) TestSwitchingTargetsLeavesOneSubscription() {
	ctx := context.Background()
	ctrl := s.roomController("room-a")
	s.Require().NoError(ctrl.Connect(ctx))
	defer ctrl.Close()
	s.eventually(func() bool { return s.store.readCount() >= 1 })

	// Switch rooms. Teardown happens before the new subscription, so
	// nothing from room-a may surface afterwards.
	s.Require().NoError(ctrl.sess.SetRoomMode(ctx, "room-b"))
	s.Require().NoError(ctrl.Connect(ctx))

	_, err := s.store.Append(ctx, "room-a", types.ClipData{Text: "stale", Timestamp: 1})
	s.Require().NoError(err)
	_, err = s.store.Append(ctx, "room-b", types.ClipData{Text: "fresh", Timestamp: 2})
	s.Require().NoError(err)

	s.eventually(func() bool {
		clips := ctrl.Clips()
		return len(clips) == 1 && clips[0].Text == "fresh"
	})
	time.Sleep(4 * testInterval)
	clips := ctrl.Clips()
	s.Require().Len(clips, 1)
	s.Equal("fresh", clips[0].Text)
}

func (s *UnitTestSuite) TestDeleteClipReflectsOnNextPoll() {
	ctx := context.Background()
	id, err := s.store.Append(ctx, "ABC123", types.ClipData{Text: "hello", Timestamp: 10})
	s.Require().NoError(err)

	ctrl := s.roomController("ABC123")
	s.Require().NoError(ctrl.Connect(ctx))
	defer ctrl.Close()
	s.eventually(func() bool { return len(ctrl.Clips()) == 1 })

	s.Require().NoError(ctrl.DeleteClip(ctx, id))
	// No optimistic removal: the list empties on a poll cycle.
	s.eventually(func() bool { return len(ctrl.Clips()) == 0 })
}

func (s *UnitTestSuite) TestDisconnectClearsListAndPersistedMode() {
	ctx := context.Background()
	_, err := s.store.Append(ctx, "ABC123", types.ClipData{Text: "hello", Timestamp: 10})
	s.Require().NoError(err)

	ctrl := s.roomController("ABC123")
	s.Require().NoError(ctrl.Connect(ctx))
	s.eventually(func() bool { return len(ctrl.Clips()) == 1 })

	s.Require().NoError(ctrl.Disconnect(ctx))
	s.Empty(ctrl.Clips())
	s.Equal("", s.states.current().AuthMode)
	s.Equal("", s.states.current().RoomID)

	// Remote data is untouched by a disconnect.
	room, err := s.store.ReadAll(ctx, "ABC123")
	s.Require().NoError(err)
	s.Len(room, 1)

	_, ok := ctrl.sess.EffectiveTarget()
	s.False(ok)
	s.Require().Error(ctrl.SyncNow(ctx))
}

func (s *UnitTestSuite) TestConnectWithoutTargetEstablishesNothing() {
	ctx := context.Background()
	sess := s.newResolver()
	ctrl := NewController(s.store, s.clip, sess, testInterval)

	// No mode chosen yet: connect is a no-op, not an error.
	s.Require().NoError(ctrl.Connect(ctx))
	time.Sleep(4 * testInterval)
	s.Equal(0, s.store.readCount())

	// A failed sign-in leaves the target unresolved too.
	s.authsrv.signErr = errors.New("window closed")
	s.Require().Error(sess.Authenticate(ctx))
	s.Require().NoError(ctrl.Connect(ctx))
	time.Sleep(4 * testInterval)
	s.Equal(0, s.store.readCount())

	// Once the identity resolves, exactly one subscription forms,
	// keyed by the uid.
	s.authsrv.signErr = nil
	s.Require().NoError(sess.Authenticate(ctx))
	s.Require().NoError(ctrl.Connect(ctx))
	defer ctrl.Close()

	_, err := s.store.Append(ctx, "uid-1234", types.ClipData{Text: "mine", Timestamp: 5})
	s.Require().NoError(err)
	s.eventually(func() bool {
		clips := ctrl.Clips()
		return len(clips) == 1 && clips[0].Text == "mine"
	})
}

func (s *UnitTestSuite) TestOfflineFlagTracksPollHealth() {
	ctx := context.Background()
	ctrl := s.roomController("ABC123")
	s.Require().NoError(ctrl.Connect(ctx))
	defer ctrl.Close()

	s.eventually(func() bool { return s.store.readCount() >= 1 })
	s.False(ctrl.Offline())

	s.store.setFailReads(true)
	s.eventually(func() bool { return ctrl.Offline() })

	s.store.setFailReads(false)
	s.eventually(func() bool { return !ctrl.Offline() })
}

func (s *UnitTestSuite) TestCopyWritesClipboard() {
	ctrl := s.roomController("ABC123")
	ctrl.Copy("from-history")
	s.Equal("from-history", s.clip.content)
}
