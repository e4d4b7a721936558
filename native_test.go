package proxysearch

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/zhangyunhao116/proxysearch/platform"
	"github.com/zhangyunhao116/proxysearch/proxy"
)

// failingReader is an available reader whose calls fail.
type failingReader struct {
	readErr   error
	detectErr error
}

func (r *failingReader) Name() string    { return "failing" }
func (r *failingReader) Available() bool { return true }

func (r *failingReader) Read(context.Context) (*platform.Settings, error) {
	if r.readErr != nil {
		return nil, r.readErr
	}
	return &platform.Settings{AccessType: platform.AccessAuto, AutoDetect: true}, nil
}

func (r *failingReader) DetectAutoConfigURL(context.Context) (string, error) {
	return "", r.detectErr
}

// pacFactoryFor returns a factory that records the requested URL and answers
// result for every URL.
func pacFactoryFor(result string, got *string) PACFactory {
	return func(_ context.Context, pacURL string) (proxy.PACEvaluator, error) {
		if got != nil {
			*got = pacURL
		}
		return proxy.StaticPAC(result), nil
	}
}

func nativeSelector(t *testing.T, cfg *Config) (proxy.Selector, error) {
	t.Helper()
	return NewNativeStrategy(cfg).Selector(context.Background())
}

func TestNativeStrategyNamed(t *testing.T) {
	cfg := &Config{Reader: &platform.StaticReader{Settings: platform.Settings{
		AccessType: platform.AccessNamed,
		Proxy:      "http=http_proxy.unit-test.invalid:8090;https=https_proxy.unit-test.invalid:8091;ftp=ftp_proxy.unit-test.invalid:8092",
		Bypass:     "*.unit-test.local;<local>,10.0.0.0/8",
	}}}
	sel, err := nativeSelector(t, cfg)
	if err != nil {
		t.Fatalf("Selector() error = %v", err)
	}

	tests := []struct {
		url  string
		want []proxy.Proxy
	}{
		{"http://host1.unit-test.invalid/", []proxy.Proxy{httpTestProxy}},
		{"https://host1.unit-test.invalid/", []proxy.Proxy{httpsTestProxy}},
		{"ftp://host1.unit-test.invalid/", []proxy.Proxy{ftpTestProxy}},
		{"http://a.unit-test.local/", []proxy.Proxy{proxy.Direct}},
		{"http://localhost/", []proxy.Proxy{proxy.Direct}},
		{"http://10.1.2.3/", []proxy.Proxy{proxy.Direct}},
		{"ws://host1.unit-test.invalid/", []proxy.Proxy{}},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, sel.Select(mustParseURL(t, tt.url))); diff != "" {
				t.Errorf("Select() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNativeStrategyAccessTypes(t *testing.T) {
	gw := proxy.MustNew(proxy.TypeSOCKS, "gw.test", 1080)
	pac := proxy.MustNew(proxy.TypeHTTP, "pac.test", 8080)

	tests := []struct {
		name    string
		reader  *platform.StaticReader
		wantURL string
		want    []proxy.Proxy
	}{
		{
			name:   "direct",
			reader: &platform.StaticReader{},
			want:   []proxy.Proxy{proxy.Direct},
		},
		{
			name: "single proxy for every scheme",
			reader: &platform.StaticReader{Settings: platform.Settings{
				AccessType: platform.AccessNamed,
				Proxy:      "proxy.test:3128",
			}},
			want: []proxy.Proxy{proxy.MustNew(proxy.TypeHTTP, "proxy.test", 3128)},
		},
		{
			name: "socks only becomes default",
			reader: &platform.StaticReader{Settings: platform.Settings{
				AccessType: platform.AccessNamed,
				Proxy:      "socks=gw.test:1080",
			}},
			want: []proxy.Proxy{gw},
		},
		{
			name: "auto config URL",
			reader: &platform.StaticReader{Settings: platform.Settings{
				AccessType:    platform.AccessAuto,
				AutoConfigURL: "http://config.test/proxy.pac",
			}},
			wantURL: "http://config.test/proxy.pac",
			want:    []proxy.Proxy{pac},
		},
		{
			name: "auto detect",
			reader: &platform.StaticReader{
				Settings:      platform.Settings{AccessType: platform.AccessAuto, AutoDetect: true},
				AutoConfigURL: "http://wpad.test/wpad.dat",
			},
			wantURL: "http://wpad.test/wpad.dat",
			want:    []proxy.Proxy{pac},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotURL string
			cfg := &Config{Reader: tt.reader, PACFactory: pacFactoryFor("PROXY pac.test:8080", &gotURL)}
			sel, err := nativeSelector(t, cfg)
			if err != nil {
				t.Fatalf("Selector() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, sel.Select(mustParseURL(t, "https://example.com/"))); diff != "" {
				t.Errorf("Select() mismatch (-want +got):\n%s", diff)
			}
			if gotURL != tt.wantURL {
				t.Errorf("PAC URL = %q, want %q", gotURL, tt.wantURL)
			}
		})
	}
}

func TestNativeStrategyNothing(t *testing.T) {
	tests := []struct {
		name   string
		reader platform.Reader
	}{
		{"unsupported", platform.NewUnsupportedReader()},
		{"auto detect finds nothing", &platform.StaticReader{Settings: platform.Settings{
			AccessType: platform.AccessAuto, AutoDetect: true,
		}}},
		{"auto without script", &platform.StaticReader{Settings: platform.Settings{
			AccessType: platform.AccessAuto,
		}}},
		{"unparsable proxy", &platform.StaticReader{Settings: platform.Settings{
			AccessType: platform.AccessNamed, Proxy: "http=:0",
		}}},
		{"detection not supported", &failingReader{detectErr: platform.ErrNotSupported}},
		{"read not supported", &failingReader{readErr: platform.ErrNotSupported}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := nativeSelector(t, &Config{Reader: tt.reader, PACFactory: pacFactoryFor("DIRECT", nil)})
			if !errors.Is(err, ErrConfigUnavailable) {
				t.Errorf("error = %v, want ErrConfigUnavailable", err)
			}
		})
	}
}

func TestNativeStrategyErrors(t *testing.T) {
	nce := &platform.NativeCallError{Op: "WinHttpGetIEProxyConfigForCurrentUser", Code: 5}
	_, err := nativeSelector(t, &Config{Reader: &failingReader{readErr: nce}})
	if !errors.Is(err, platform.ErrNativeCall) {
		t.Errorf("read error = %v, want ErrNativeCall", err)
	}

	detect := &platform.NativeCallError{Op: "WinHttpDetectAutoProxyConfigUrl", Code: 12029}
	_, err = nativeSelector(t, &Config{Reader: &failingReader{detectErr: detect}})
	var got *platform.NativeCallError
	if !errors.As(err, &got) || got.Code != 12029 {
		t.Errorf("detect error = %v, want code 12029", err)
	}
}

func TestNativeStrategyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewNativeStrategy(&Config{Reader: &platform.StaticReader{}}).Selector(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
