package cli

import "github.com/alecthomas/kong"

// Root is the command tree parsed by kong.
type Root struct {
	Version kong.VersionFlag `short:"v" help:"Print version information and quit."`

	Tui    TuiCmd    `cmd:"" default:"1" help:"Launch the interactive dashboard."`
	Habits HabitsCmd `cmd:"" help:"List habits with streaks and completion rates."`
	Stats  StatsCmd  `cmd:"" help:"Show analytics for one habit."`
	Import ImportCmd `cmd:"" help:"Import habits and check-ins from a JSON export."`

	Cache struct {
		Stats   CacheStatsCmd   `cmd:"" help:"Show cache diagnostics."`
		Cleanup CacheCleanupCmd `cmd:"" help:"Remove expired entries."`
		Clear   CacheClearCmd   `cmd:"" help:"Remove every entry of the configured user."`
	} `cmd:"" help:"Inspect and manage the analytics cache."`

	Keyring struct {
		Set    KeyringSetCmd    `cmd:"" help:"Store the MongoDB URI in the system keyring."`
		Delete KeyringDeleteCmd `cmd:"" help:"Remove the stored MongoDB URI."`
	} `cmd:"" help:"Manage stored credentials."`
}
