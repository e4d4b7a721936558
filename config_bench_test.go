package proxysearch

import (
	"context"
	"net/url"
	"testing"

	"github.com/zhangyunhao116/proxysearch/platform"
)

func BenchmarkDefaultConfig(b *testing.B) {
	for b.Loop() {
		DefaultConfig()
	}
}

func BenchmarkConfigValidate(b *testing.B) {
	cfg := DefaultConfig()
	b.ResetTimer()
	for b.Loop() {
		_ = cfg.Validate()
	}
}

func BenchmarkConfigValidate_WithManual(b *testing.B) {
	cfg := DefaultConfig()
	cfg.Manual = &ManualConfig{
		Proxies: map[string]string{"http": "proxy:3128", "https": "proxy:3129", "socks": "socks5://gw:1080"},
		Bypass:  "*.corp, 10.0.0.0/8, <local>",
	}
	b.ResetTimer()
	for b.Loop() {
		_ = cfg.Validate()
	}
}

func BenchmarkSearchSelector_Env(b *testing.B) {
	s, err := NewSearch(&Config{
		Strategies: []string{StrategyEnv},
		Env:        []string{"HTTP_PROXY=http://proxy:3128", "NO_PROXY=localhost,*.corp"},
		Reader:     platform.NewUnsupportedReader(),
	})
	if err != nil {
		b.Fatal(err)
	}
	u := &url.URL{Scheme: "http", Host: "example.com"}
	ctx := context.Background()
	b.ResetTimer()
	for b.Loop() {
		_ = s.Selector(ctx).Select(u)
	}
}
