package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/zhangyunhao116/proxysearch"
	"github.com/zhangyunhao116/proxysearch/internal/envutil"
)

// newConfig returns the base configuration. Tests replace it.
var newConfig = proxysearch.DefaultConfig

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	strategies []string
	disabled   []string
	env        []string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "proxysearch",
		Short:         "Find the proxies configured for a URL",
		Long:          "proxysearch reads the system, desktop, browser and environment proxy settings and reports which proxies apply to a URL.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := cmd.PersistentFlags()
	f.StringVarP(&opts.configPath, "config", "c", "", "YAML configuration file")
	f.StringSliceVarP(&opts.strategies, "strategy", "s", nil, "strategies to evaluate, in order (default: platform order)")
	f.StringSliceVar(&opts.disabled, "disable", nil, "strategies to register but skip")
	f.StringArrayVar(&opts.env, "env", nil, "KEY=VALUE added to the environment seen by the env strategy")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "log every strategy outcome")

	cmd.AddCommand(
		newResolveCmd(opts),
		newStrategiesCmd(opts),
		newServeCmd(opts),
	)
	return cmd
}

// logger writes to w at warn level, or debug level with --verbose.
func (o *rootOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// config builds the search configuration: the base configuration, then the
// --config file, then the command-line flags.
func (o *rootOptions) config(cmd *cobra.Command) (*proxysearch.Config, error) {
	cfg := newConfig()
	if o.configPath != "" {
		fc, err := proxysearch.LoadFile(o.configPath)
		if err != nil {
			return nil, err
		}
		fc.Apply(cfg)
	}
	if len(o.env) > 0 {
		cfg.Env = envutil.MergeEnv(cfg.Env, o.env)
	}
	if cmd.Flags().Changed("strategy") {
		cfg.Strategies = append([]string{}, o.strategies...)
	}
	cfg.Disabled = append(cfg.Disabled, o.disabled...)
	cfg.Logger = o.logger(cmd.ErrOrStderr())
	return cfg, nil
}

func (o *rootOptions) search(cmd *cobra.Command) (*proxysearch.Search, error) {
	cfg, err := o.config(cmd)
	if err != nil {
		return nil, err
	}
	return proxysearch.NewSearch(cfg)
}
