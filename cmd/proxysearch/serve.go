package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/zhangyunhao116/proxysearch"
	"github.com/zhangyunhao116/proxysearch/proxy"
)

const defaultShutdownTimeout = 5 * time.Second

type serveOptions struct {
	listen      string
	socks       string
	noProxy     string
	printEnv    bool
	dialTimeout time.Duration
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	so := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run local HTTP and SOCKS5 proxies that route through the selected proxies",
		Long: `serve starts a local HTTP proxy, and optionally a SOCKS5 server, that send
every connection through the proxies selected for its target. Point tools that
only accept a single static proxy at it. It runs until interrupted.`,
		Example: `  proxysearch serve --listen 127.0.0.1:3128 --socks 127.0.0.1:1080
  eval "$(proxysearch serve --print-env)"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.config(cmd)
			if err != nil {
				return err
			}
			s, err := proxysearch.NewSearch(cfg)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, s, cfg.Logger, so)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&so.listen, "listen", "l", "127.0.0.1:3128", "HTTP proxy listen address")
	f.StringVar(&so.socks, "socks", "", "SOCKS5 listen address (empty disables)")
	f.StringVar(&so.noProxy, "no-proxy", "", "NO_PROXY value printed by --print-env (default: local addresses)")
	f.BoolVar(&so.printEnv, "print-env", false, "print shell exports pointing at the listeners")
	f.DurationVar(&so.dialTimeout, "dial-timeout", 0, "timeout for each outbound connection attempt (default 10s)")
	return cmd
}

// runServe starts the front ends and blocks until ctx is done, then shuts
// them down.
func runServe(ctx context.Context, cmd *cobra.Command, s *proxysearch.Search, logger *slog.Logger, so *serveOptions) error {
	dialer, err := proxy.NewDialer(&proxy.DialerConfig{
		Selector: s.Selector(ctx),
		Timeout:  so.dialTimeout,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	fp, err := proxy.NewForwardProxy(&proxy.ForwardConfig{Dialer: dialer, Logger: logger})
	if err != nil {
		return err
	}
	httpAddr, err := fp.ListenAndServe(so.listen)
	if err != nil {
		return err
	}
	shutdowns := []func(context.Context) error{fp.Shutdown}
	envCfg := &proxy.EnvConfig{HTTPAddr: httpAddr.String(), NoProxy: so.noProxy}
	fmt.Fprintf(cmd.ErrOrStderr(), "HTTP proxy listening on %s\n", httpAddr)

	if so.socks != "" {
		socksAddr, shutdown, err := startSOCKS(dialer, logger, so.socks)
		if err != nil {
			_ = fp.Shutdown(context.WithoutCancel(ctx))
			return err
		}
		shutdowns = append(shutdowns, shutdown)
		envCfg.SOCKSAddr = socksAddr.String()
		fmt.Fprintf(cmd.ErrOrStderr(), "SOCKS5 proxy listening on %s\n", socksAddr)
	}

	if so.printEnv {
		fmt.Fprint(cmd.OutOrStdout(), proxy.ShellExports(proxy.GenerateEnv(envCfg)))
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, shutdown := range shutdowns {
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.WithoutCancel(gctx), defaultShutdownTimeout)
			defer cancel()
			return shutdown(sctx)
		})
	}
	return g.Wait()
}

func startSOCKS(dialer *proxy.Dialer, logger *slog.Logger, addr string) (net.Addr, func(context.Context) error, error) {
	sf, err := proxy.NewSOCKSFrontend(&proxy.SOCKSConfig{Dialer: dialer, Logger: logger})
	if err != nil {
		return nil, nil, err
	}
	listening, err := sf.ListenAndServe(addr)
	if err != nil {
		return nil, nil, err
	}
	return listening, sf.Shutdown, nil
}
