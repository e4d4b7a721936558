package main

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zhangyunhao116/proxysearch/proxy"
)

func newResolveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve URL...",
		Short: "Print the proxies selected for each URL",
		Example: `  proxysearch resolve https://example.com/
  proxysearch resolve --strategy env --env HTTPS_PROXY=proxy:3128 https://example.com/`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			targets := make([]*url.URL, len(args))
			for i, arg := range args {
				u, err := parseTarget(arg)
				if err != nil {
					return err
				}
				targets[i] = u
			}

			s, err := opts.search(cmd)
			if err != nil {
				return err
			}
			sel := s.Selector(cmd.Context())
			for _, u := range targets {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", u, formatProxies(sel.Select(u)))
			}
			return nil
		},
	}
}

// parseTarget parses a URL argument. Both a scheme and a host are required.
func parseTarget(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid URL %q: scheme and host are required", raw)
	}
	return u, nil
}

func formatProxies(ps []proxy.Proxy) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.String()
	}
	return strings.Join(parts, ", ")
}
