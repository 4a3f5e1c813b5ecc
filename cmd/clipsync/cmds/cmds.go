package cmds

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clipsync/internal/session"
	"clipsync/internal/syncer"
	"clipsync/internal/types"

	"github.com/google/uuid"
)

// Room enters anonymous shared-room mode.
func Room(ctx context.Context, sess *session.Resolver, roomID string) error {
	if err := sess.SetRoomMode(ctx, roomID); err != nil {
		return err
	}
	fmt.Printf("Connected to room %s\n", roomID)
	return nil
}

// Login runs the browser sign-in flow and persists the authenticated
// mode.
func Login(ctx context.Context, sess *session.Resolver) error {
	if err := sess.Authenticate(ctx); err != nil {
		return err
	}
	t := sess.Current()
	if t.User != nil {
		fmt.Printf("Signed in as %s\n", t.User.Email)
	}
	return nil
}

// Logout signs out and forgets the persisted session.
func Logout(ctx context.Context, sess *session.Resolver) error {
	if err := sess.SignOut(ctx); err != nil {
		return err
	}
	fmt.Println("Signed out")
	return nil
}

// Disconnect leaves the current room or identity target.
func Disconnect(ctx context.Context, ctrl *syncer.Controller) error {
	if err := ctrl.Disconnect(ctx); err != nil {
		return err
	}
	fmt.Println("Disconnected")
	return nil
}

// Sync pushes the current OS clipboard content.
func Sync(ctx context.Context, ctrl *syncer.Controller) error {
	if err := ctrl.SyncNow(ctx); err != nil {
		return err
	}
	fmt.Println("Clipboard synced")
	return nil
}

// List prints the target's clips, newest first.
func List(ctx context.Context, ctrl *syncer.Controller) error {
	clips, err := ctrl.List(ctx)
	if err != nil {
		return err
	}
	printClips(clips)
	return nil
}

// Copy puts one synced clip back onto the OS clipboard.
func Copy(ctx context.Context, ctrl *syncer.Controller, id string) error {
	clips, err := ctrl.List(ctx)
	if err != nil {
		return err
	}
	for _, c := range clips {
		if c.ID == id {
			ctrl.Copy(c.Text)
			fmt.Println("Copied")
			return nil
		}
	}
	return types.Err(types.ErrNotFound, nil, "no clip %s", id)
}

// Delete removes one clip from the remote collection.
func Delete(ctx context.Context, ctrl *syncer.Controller, id string) error {
	if err := ctrl.DeleteClip(ctx, id); err != nil {
		return err
	}
	fmt.Println("Deleted")
	return nil
}

// Watch subscribes to the target and prints the list on every change
// until interrupted.
func Watch(ctx context.Context, ctrl *syncer.Controller) error {
	ctrl.OnUpdate = func(clips []types.Clip) {
		fmt.Printf("--- %s\n", time.Now().Format(time.TimeOnly))
		printClips(clips)
	}
	if err := ctrl.Connect(ctx); err != nil {
		return err
	}
	defer ctrl.Close()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-stop:
	case <-ctx.Done():
	}
	return nil
}

// GenRoom prints a fresh room id.
func GenRoom() error {
	fmt.Println(uuid.NewString())
	return nil
}

func printClips(clips []types.Clip) {
	if len(clips) == 0 {
		fmt.Println("(no clips)")
		return
	}
	for _, c := range clips {
		at := time.UnixMilli(c.Timestamp).Format(time.DateTime)
		fmt.Printf("%s  %s  %s\n", c.ID, at, truncate(c.Text, 80))
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
