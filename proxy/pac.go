package proxy

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"time"
)

// defaultPACTimeout bounds a single PAC evaluation.
const defaultPACTimeout = 5 * time.Second

// PACEvaluator runs a PAC script's FindProxyForURL. The result uses PAC
// syntax, for example "PROXY a:8080; DIRECT".
type PACEvaluator interface {
	FindProxyForURL(ctx context.Context, rawURL, host string) (string, error)
}

// PACEvaluatorFunc adapts a function to PACEvaluator.
type PACEvaluatorFunc func(ctx context.Context, rawURL, host string) (string, error)

// FindProxyForURL calls f.
func (f PACEvaluatorFunc) FindProxyForURL(ctx context.Context, rawURL, host string) (string, error) {
	return f(ctx, rawURL, host)
}

// StaticPAC returns an evaluator that always answers result.
func StaticPAC(result string) PACEvaluator {
	return PACEvaluatorFunc(func(context.Context, string, string) (string, error) {
		return result, nil
	})
}

// PACConfig configures a PACSelector.
type PACConfig struct {
	// Evaluator runs the script. Required.
	Evaluator PACEvaluator

	// Timeout bounds each evaluation. Defaults to 5s if zero.
	Timeout time.Duration

	// Logger is the structured logger. If nil, a no-op logger is used.
	Logger *slog.Logger
}

// PACSelector asks a PAC evaluator for every URL.
type PACSelector struct {
	eval    PACEvaluator
	timeout time.Duration
	logger  *slog.Logger
}

var _ Selector = (*PACSelector)(nil)

// NewPACSelector returns a selector backed by cfg.Evaluator.
func NewPACSelector(cfg *PACConfig) (*PACSelector, error) {
	if cfg == nil || cfg.Evaluator == nil {
		return nil, errors.New("proxy: PAC selector requires an evaluator")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultPACTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &PACSelector{eval: cfg.Evaluator, timeout: timeout, logger: logger}, nil
}

// Select evaluates the script for u. Evaluation errors and empty results
// yield [Direct].
func (s *PACSelector) Select(u *url.URL) []Proxy {
	mustURL(u)
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	result, err := s.eval.FindProxyForURL(ctx, u.String(), u.Hostname())
	if err != nil {
		s.logger.Warn("PAC evaluation failed", "url", u.Redacted(), "err", err)
		return []Proxy{Direct}
	}
	proxies := ParsePACResult(result)
	if len(proxies) == 0 {
		s.logger.Debug("PAC result has no usable directive", "url", u.Redacted(), "result", result)
		return []Proxy{Direct}
	}
	return proxies
}

// ConnectFailed does nothing; the script decides fallbacks itself.
func (s *PACSelector) ConnectFailed(*url.URL, string, error) {}
