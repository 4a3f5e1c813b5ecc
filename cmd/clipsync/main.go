package main

import (
	"context"
	"os"
	"time"

	"clipsync/cmd/clipsync/cmds"
	"clipsync/internal/auth"
	"clipsync/internal/backends"
	"clipsync/internal/clipboard"
	"clipsync/internal/session"
	"clipsync/internal/state"
	"clipsync/internal/syncer"

	"github.com/docopt/docopt-go"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const ClipSyncVersion = "0.1.0"

const usage = `Clipboard sync across devices.

Clips live in a remote collection addressed by a sync target: either a
shared room id (anonymous) or your Google account (rooms keyed by uid).

Usage:
    clipsync room <room_id> [--config=<path>]
    clipsync login [--config=<path>]
    clipsync logout [--config=<path>]
    clipsync disconnect [--config=<path>]
    clipsync sync [--config=<path>]
    clipsync list [--config=<path>]
    clipsync copy <clip_id> [--config=<path>]
    clipsync delete <clip_id> [--config=<path>]
    clipsync watch [--config=<path>]
    clipsync gen-room

Options:
    -h --help          Show this screen.
    --version          Show version.
    --config=<path>    YAML config file (default: $CLIPSYNC_CONFIG).
`

func main() {
	opts, err := docopt.ParseArgs(usage, os.Args[1:], ClipSyncVersion)
	if err != nil {
		log.Fatal(err)
	}

	if genRoom, _ := opts.Bool("gen-room"); genRoom {
		exitOn(cmds.GenRoom())
		return
	}

	// Load environment variables
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Debug("The .env file not found.")
	}

	configPath, _ := opts.String("--config")
	cfg, err := cmds.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	statePath, err := state.DefaultPath()
	if err != nil {
		log.Fatalf("Failed to resolve state path: %v", err)
	}
	states := state.NewFileStore(statePath)

	authenticator := auth.NewGoogle(cfg.APIKey, cfg.OAuthClientID, states)
	sess := session.NewResolver(states, authenticator)
	if err := sess.Restore(ctx); err != nil {
		log.WithError(err).Warn("could not restore the previous session")
	}

	store, err := backends.ClipBackendFromEnv(cfg.DatabaseURL, sess)
	if err != nil {
		log.Fatalf("Failed to initialize clip store: %v", err)
	}

	ctrl := syncer.NewController(
		store,
		clipboard.System{},
		sess,
		time.Duration(cfg.PollIntervalSeconds)*time.Second,
	)

	switch {
	case command(opts, "room"):
		roomID, _ := opts.String("<room_id>")
		exitOn(cmds.Room(ctx, sess, roomID))
	case command(opts, "login"):
		exitOn(cmds.Login(ctx, sess))
	case command(opts, "logout"):
		exitOn(cmds.Logout(ctx, sess))
	case command(opts, "disconnect"):
		exitOn(cmds.Disconnect(ctx, ctrl))
	case command(opts, "sync"):
		exitOn(cmds.Sync(ctx, ctrl))
	case command(opts, "list"):
		exitOn(cmds.List(ctx, ctrl))
	case command(opts, "copy"):
		id, _ := opts.String("<clip_id>")
		exitOn(cmds.Copy(ctx, ctrl, id))
	case command(opts, "delete"):
		id, _ := opts.String("<clip_id>")
		exitOn(cmds.Delete(ctx, ctrl, id))
	case command(opts, "watch"):
		exitOn(cmds.Watch(ctx, ctrl))
	}
}

func command(opts docopt.Opts, name string) bool {
	v, _ := opts.Bool(name)
	return v
}

func exitOn(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
