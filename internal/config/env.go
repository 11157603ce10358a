package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type envVar struct {
	name  string
	desc  string
	apply func(*Config, string) error
}

func setString(field func(*Config) *string) func(*Config, string) error {
	return func(c *Config, s string) error {
		*field(c) = s
		return nil
	}
}

func setInt(field func(*Config) *int) func(*Config, string) error {
	return func(c *Config, s string) error {
		n, err := strconv.Atoi(s)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

var supportedEnvVars = []envVar{
	{
		// Only here for documentation purposes.  It points to where the config should be loaded and is handled prior
		// to loading the config.
		name:  "REEL_CONFIG_PATH",
		desc:  "Sets the path to the config file.  Default: OS-specific config directory",
		apply: func(c *Config, s string) error { return nil },
	},
	{
		name:  "REEL_CONFIG_PLAYER_TYPE",
		desc:  "Sets the player engine.  Should be one of `mpv` or `beep`.  Default: mpv",
		apply: setString(func(c *Config) *string { return &c.Player.Type }),
	},
	{
		name:  "REEL_CONFIG_PLAYER_PATH",
		desc:  "Sets the path to the mpv binary.  Default: mpv",
		apply: setString(func(c *Config) *string { return &c.Player.Path }),
	},
	{
		name:  "REEL_CONFIG_PLAYER_ARGS",
		desc:  "Sets extra mpv arguments.  Default: None",
		apply: setString(func(c *Config) *string { return &c.Player.Args }),
	},
	{
		name:  "REEL_CONFIG_PLAYER_SOCKET_PATH",
		desc:  "Sets the base path of the mpv IPC socket.  Default: OS-specific",
		apply: setString(func(c *Config) *string { return &c.Player.SocketPath }),
	},
	{
		name:  "REEL_CONFIG_MASTER_MAX_ACTIVE",
		desc:  "Sets how many playables may hold a renderer at once.  -1 is unlimited.  Default: 1",
		apply: setInt(func(c *Config) *int { return &c.Master.MaxActive }),
	},
	{
		name:  "REEL_CONFIG_MASTER_MAX_PLAYBACKS_PER_PLAYABLE",
		desc:  "Sets how many live playbacks one playable may have.  0 is unlimited.  Default: 0",
		apply: setInt(func(c *Config) *int { return &c.Master.MaxPlaybacksPerPlayable }),
	},
	{
		name:  "REEL_CONFIG_MASTER_TIE_BREAK",
		desc:  "Sets which eligible surface wins a free renderer.  One of: recent, oldest.  Default: recent",
		apply: setString(func(c *Config) *string { return &c.Master.TieBreak }),
	},
	{
		name:  "REEL_CONFIG_MASTER_RELEASE_GRACE",
		desc:  "Sets how long an unreferenced playable keeps its engine.  Default: 5s",
		apply: setString(func(c *Config) *string { return &c.Master.ReleaseGrace }),
	},
	{
		name:  "REEL_CONFIG_CATALOG_SOURCE",
		desc:  "Sets where the media feed comes from.  One of: file, graphql.  Default: file",
		apply: setString(func(c *Config) *string { return &c.Catalog.Source }),
	},
	{
		name:  "REEL_CONFIG_CATALOG_FILE_PATH",
		desc:  "Sets the YAML feed file.  Default: None",
		apply: setString(func(c *Config) *string { return &c.Catalog.FilePath }),
	},
	{
		name:  "REEL_CONFIG_CATALOG_ENDPOINT",
		desc:  "Sets the GraphQL feed endpoint.  Default: None",
		apply: setString(func(c *Config) *string { return &c.Catalog.Endpoint }),
	},
	{
		name:  "REEL_CONFIG_CATALOG_TOKEN",
		desc:  "Sets the bearer token sent to the GraphQL endpoint.  Default: None",
		apply: setString(func(c *Config) *string { return &c.Catalog.Token }),
	},
	{
		name: "REEL_CONFIG_STATE_DISABLED",
		desc: "Disables saved sessions when true.  Default: false",
		apply: func(c *Config, s string) error {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return err
			}
			c.State.Disabled = b
			return nil
		},
	},
	{
		name:  "REEL_CONFIG_STATE_DB_PATH",
		desc:  "Sets the saved session database path.  Default: XDG data directory",
		apply: setString(func(c *Config) *string { return &c.State.DBPath }),
	},
	{
		name:  "REEL_CONFIG_UI_FEED_HEIGHT",
		desc:  "Sets the rows each feed surface takes.  Default: 3",
		apply: setInt(func(c *Config) *int { return &c.UI.FeedHeight }),
	},
	{
		name:  "REEL_CONFIG_LOGGING_LEVEL",
		desc:  "Sets the logging level.  One of: trace, debug, info, warn, error.  Default: info",
		apply: setString(func(c *Config) *string { return &c.Logging.Level }),
	},
	{
		name:  "REEL_CONFIG_LOGGING_FILE_PATH",
		desc:  "Sets the logging file path.  Default: OS-specific",
		apply: setString(func(c *Config) *string { return &c.Logging.FilePath }),
	},
}

func applyEnvVarOverrides(c *Config) error {
	for _, envVar := range supportedEnvVars {
		if value := os.Getenv(envVar.name); value != "" {
			if err := envVar.apply(c, value); err != nil {
				return fmt.Errorf("invalid value for %s: %w", envVar.name, err)
			}
		}
	}
	return nil
}

// EnvHelp returns one line per supported environment variable
func EnvHelp() string {
	var sb strings.Builder
	for _, envVar := range supportedEnvVars {
		fmt.Fprintf(&sb, "  %-46s %s\n", envVar.name, envVar.desc)
	}
	return sb.String()
}
