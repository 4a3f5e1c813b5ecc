package tests

import (
	"context"
	"path/filepath"
	"time"

	"clipsync/internal/backends/firebase"
	"clipsync/internal/session"
	"clipsync/internal/state"
	"clipsync/internal/syncer"
)

func (s *IntegrationTestSuite) TestRoomSyncRoundTrip() {
	ctx := context.Background()
	s.joinRoom("ABC123")

	s.clipboard.set("hello from device one")
	s.Require().NoError(s.controller.SyncNow(ctx))

	s.eventually(func() bool {
		clips := s.controller.Clips()
		return len(clips) == 1 && clips[0].Text == "hello from device one"
	}, "the pushed clip shows up within a poll interval")
	s.Equal(1, s.rtdb.clipCount("ABC123"))
	s.Empty(s.rtdb.lastAuth(), "room mode talks to the store anonymously")
}

func (s *IntegrationTestSuite) TestDeleteRemovesRemotelyAndLocally() {
	ctx := context.Background()
	s.joinRoom("ABC123")

	s.clipboard.set("short lived")
	s.Require().NoError(s.controller.SyncNow(ctx))
	s.eventually(func() bool { return len(s.controller.Clips()) == 1 })

	id := s.controller.Clips()[0].ID
	s.Require().NoError(s.controller.DeleteClip(ctx, id))

	s.eventually(func() bool { return len(s.controller.Clips()) == 0 })
	s.Equal(0, s.rtdb.clipCount("ABC123"))
}

func (s *IntegrationTestSuite) TestTwoDevicesConverge() {
	ctx := context.Background()
	s.joinRoom("ABC123")

	// A second device joins the same room through the same store.
	otherStates := state.NewFileStore(filepath.Join(s.T().TempDir(), "state.json"))
	otherResolver := session.NewResolver(otherStates, &noAuth{})
	otherClipboard := &fakeClipboard{}
	other := syncer.NewController(
		firebase.NewClipStore(s.srv.URL, otherResolver),
		otherClipboard,
		otherResolver,
		testPollInterval,
	)
	defer other.Close()
	s.Require().NoError(otherResolver.SetRoomMode(ctx, "ABC123"))
	s.Require().NoError(other.Connect(ctx))

	otherClipboard.set("typed on the other device")
	s.Require().NoError(other.SyncNow(ctx))

	s.eventually(func() bool {
		clips := s.controller.Clips()
		return len(clips) == 1 && clips[0].Text == "typed on the other device"
	}, "the first device picks up the other device's clip")

	// Pull it onto this device's clipboard.
	s.controller.Copy(s.controller.Clips()[0].Text)
	s.Equal("typed on the other device", s.clipboard.get())
}

func (s *IntegrationTestSuite) TestListIsNewestFirst() {
	ctx := context.Background()
	s.joinRoom("ABC123")

	base := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	for i, text := range []string{"oldest", "middle", "newest"} {
		syncer.SetTimeNowFn(func() time.Time { return base.Add(time.Duration(i) * time.Second) })
		s.clipboard.set(text)
		s.Require().NoError(s.controller.SyncNow(ctx))
	}
	syncer.RestoreTimeNow()

	clips, err := s.controller.List(ctx)
	s.Require().NoError(err)
	s.Require().Len(clips, 3)
	s.Equal("newest", clips[0].Text)
	s.Equal("middle", clips[1].Text)
	s.Equal("oldest", clips[2].Text)
}

func (s *IntegrationTestSuite) TestDisconnectStopsFollowingTheRoom() {
	ctx := context.Background()
	s.joinRoom("ABC123")

	s.clipboard.set("before disconnect")
	s.Require().NoError(s.controller.SyncNow(ctx))
	s.eventually(func() bool { return len(s.controller.Clips()) == 1 })

	s.Require().NoError(s.controller.Disconnect(ctx))
	s.Empty(s.controller.Clips())
	s.Equal(1, s.rtdb.clipCount("ABC123"), "disconnect never touches remote data")

	_, active := s.resolver.EffectiveTarget()
	s.False(active)
}

func (s *IntegrationTestSuite) TestSyncWithoutModeFails() {
	err := s.controller.SyncNow(context.Background())
	s.Error(err)
	s.Equal(0, s.rtdb.clipCount("ABC123"))
}
