package proxysearch

import (
	"errors"
	"fmt"

	"github.com/zhangyunhao116/proxysearch/proxy"
)

// Sentinel errors returned by the proxysearch package.
var (
	// ErrConfigUnavailable indicates a strategy's configuration source does
	// not exist on this system (no variables set, no profile, no settings).
	// The strategy yields nothing; it is not a failure.
	ErrConfigUnavailable = errors.New("proxysearch: configuration source unavailable")

	// ErrConfigInvalid indicates the provided configuration failed validation.
	ErrConfigInvalid = errors.New("proxysearch: invalid configuration")

	// ErrInvalidFormat indicates a malformed proxy or bypass entry. It is the
	// same value as proxy.ErrInvalidFormat.
	ErrInvalidFormat = proxy.ErrInvalidFormat

	// ErrUnknownStrategy indicates a strategy name that is not built in.
	ErrUnknownStrategy = errors.New("proxysearch: unknown strategy")
)

// StrategyError is returned when a strategy fails to produce a selector.
// It wraps the underlying error so that errors.Is(err, ErrConfigUnavailable)
// and similar checks still work.
type StrategyError struct {
	// Strategy is the name of the failing strategy.
	Strategy string
	// Err is the underlying error.
	Err error
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("proxysearch: strategy %q: %v", e.Strategy, e.Err)
}

func (e *StrategyError) Unwrap() error {
	return e.Err
}

// unavailable wraps ErrConfigUnavailable with a reason.
func unavailable(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConfigUnavailable}, args...)...)
}
