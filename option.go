package proxysearch

import "log/slog"

// Option configures a Search at construction time.
type Option func(*searchOptions)

// searchOptions holds construction-time configuration applied via Option
// functions.
type searchOptions struct {
	logger *slog.Logger
	front  []Strategy
	back   []Strategy
	skip   []string
}

// WithLogger overrides Config.Logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *searchOptions) {
		o.logger = l
	}
}

// WithStrategy registers s after the configured built-in strategies, or
// before them when atFront is true. A strategy whose name matches a built-in
// replaces it in place, as AddStrategy does.
func WithStrategy(s Strategy, atFront bool) Option {
	return func(o *searchOptions) {
		if s == nil {
			return
		}
		if atFront {
			o.front = append(o.front, s)
		} else {
			o.back = append(o.back, s)
		}
	}
}

// WithoutStrategies drops the named built-in strategies from the
// configured order.
func WithoutStrategies(names ...string) Option {
	cpy := append([]string(nil), names...)
	return func(o *searchOptions) {
		o.skip = append(o.skip, cpy...)
	}
}
