package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/figbridge/internal/config"
)

// bridgeFlags are the per-command overrides of config values. A flag only
// wins over the file and environment when it was set explicitly.
type bridgeFlags struct {
	host       string
	port       int
	waitPlugin time.Duration
	opTimeout  time.Duration
	tempRoot   string
	journal    string
}

func (f *bridgeFlags) registerListen(cmd *cobra.Command) {
	d := config.Default()
	cmd.Flags().StringVar(&f.host, "host", d.Host, "bridge host")
	cmd.Flags().IntVar(&f.port, "port", d.Port, "bridge port")
}

func (f *bridgeFlags) registerTimeouts(cmd *cobra.Command) {
	d := config.Default()
	cmd.Flags().DurationVar(&f.waitPlugin, "wait-plugin", d.WaitPlugin, "how long to wait for the plugin to connect")
	cmd.Flags().DurationVar(&f.opTimeout, "op-timeout", d.OpTimeout, "per-command timeout")
}

func (f *bridgeFlags) registerTempRoot(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.tempRoot, "temp-root", "", "temp root directory (default $TMPDIR/auto-figma)")
}

func (f *bridgeFlags) registerJournal(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.journal, "journal", "", `journal database path ("-" disables; default <temp-root>/figbridge.db)`)
}

// resolve applies explicitly set flags to the loaded config and validates
// the result.
func (f *bridgeFlags) resolve(cmd *cobra.Command, opts *RootOptions) (config.Config, error) {
	if err := opts.load(cmd); err != nil {
		return config.Config{}, err
	}
	cfg := opts.Config

	changed := cmd.Flags().Changed
	if changed("host") {
		cfg.Host = f.host
	}
	if changed("port") {
		cfg.Port = f.port
	}
	if changed("wait-plugin") {
		cfg.WaitPlugin = f.waitPlugin
	}
	if changed("op-timeout") {
		cfg.OpTimeout = f.opTimeout
	}
	if changed("temp-root") {
		cfg.TempRoot = f.tempRoot
	}
	if changed("journal") {
		cfg.Journal = f.journal
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	return cfg, nil
}
