package cmds

import (
	"os"
	"strconv"

	"clipsync/internal/types"

	"github.com/goccy/go-yaml"
)

const (
	EnvConfigPath    = "CLIPSYNC_CONFIG"
	EnvDatabaseURL   = "CLIPSYNC_DATABASE_URL"
	EnvAPIKey        = "CLIPSYNC_API_KEY"
	EnvOAuthClientID = "CLIPSYNC_OAUTH_CLIENT_ID"
	EnvPollInterval  = "CLIPSYNC_POLL_INTERVAL"
)

// LoadConfig builds the client config: an optional YAML file (path
// argument, falling back to $CLIPSYNC_CONFIG) overlaid by environment
// variables, env winning.
func LoadConfig(path string) (types.Config, error) {
	var cfg types.Config

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return types.Config{}, err
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return types.Config{}, err
		}
	}

	if v := os.Getenv(EnvDatabaseURL); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv(EnvAPIKey); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv(EnvOAuthClientID); v != "" {
		cfg.OAuthClientID = v
	}
	if v := os.Getenv(EnvPollInterval); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return types.Config{}, types.Err(types.ErrValidation, err, "invalid %s", EnvPollInterval)
		}
		cfg.PollIntervalSeconds = secs
	}
	if cfg.PollIntervalSeconds == 0 {
		cfg.PollIntervalSeconds = types.DefaultPollIntervalSeconds
	}

	if err := cfg.Validate(); err != nil {
		return types.Config{}, err
	}
	return cfg, nil
}
