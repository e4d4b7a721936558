package proxy

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// ---------------------------------------------------------------------------
// ParseProxy
// ---------------------------------------------------------------------------

func TestParseProxy(t *testing.T) {
	tests := []struct {
		in      string
		typ     Type
		want    Proxy
		wantErr bool
	}{
		{"proxy:3128", TypeHTTP, MustNew(TypeHTTP, "proxy", 3128), false},
		{"proxy", TypeHTTP, MustNew(TypeHTTP, "proxy", 80), false},
		{"proxy", TypeSOCKS, MustNew(TypeSOCKS, "proxy", 1080), false},
		{"proxy:3128", TypeDirect, MustNew(TypeHTTP, "proxy", 3128), false},
		{"http://http_proxy.unit-test.invalid:8090", TypeHTTP, MustNew(TypeHTTP, "http_proxy.unit-test.invalid", 8090), false},
		{"http://proxy.example/", TypeSOCKS, MustNew(TypeHTTP, "proxy.example", 80), false},
		{"https://proxy.example", TypeHTTP, MustNew(TypeHTTP, "proxy.example", 443), false},
		{"socks5://user:pw@s.example:9050", TypeHTTP, MustNew(TypeSOCKS, "s.example", 9050), false},
		{"socks://s.example", TypeHTTP, MustNew(TypeSOCKS, "s.example", 1080), false},
		{"[::1]:8080", TypeHTTP, MustNew(TypeHTTP, "::1", 8080), false},
		{"[::1]", TypeHTTP, MustNew(TypeHTTP, "::1", 80), false},
		{"http://[fe80::1]:3128", TypeHTTP, MustNew(TypeHTTP, "fe80::1", 3128), false},
		{"", TypeHTTP, Direct, true},
		{"proxy:0", TypeHTTP, Direct, true},
		{"proxy:99999", TypeHTTP, Direct, true},
		{"proxy:abc", TypeHTTP, Direct, true},
		{"ftp://proxy:21", TypeHTTP, Direct, true},
		{"http://", TypeHTTP, Direct, true},
		{":8080", TypeHTTP, Direct, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseProxy(tt.in, tt.typ)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseProxy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidFormat) {
				t.Errorf("error %v does not wrap ErrInvalidFormat", err)
			}
			if got != tt.want {
				t.Errorf("ParseProxy(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// ParseProxyList
// ---------------------------------------------------------------------------

func TestParseProxyList(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    map[string]Proxy
		wantErr bool
	}{
		{
			name: "single entry applies to all",
			in:   "proxy.example:8080",
			want: map[string]Proxy{DefaultScheme: MustNew(TypeHTTP, "proxy.example", 8080)},
		},
		{
			name: "scoped entries",
			in:   "http=h.example:80;HTTPS=s.example:443;ftp=f.example:21;socks=k.example:1080",
			want: map[string]Proxy{
				"http":  MustNew(TypeHTTP, "h.example", 80),
				"https": MustNew(TypeHTTP, "s.example", 443),
				"ftp":   MustNew(TypeHTTP, "f.example", 21),
				"socks": MustNew(TypeSOCKS, "k.example", 1080),
			},
		},
		{
			name: "space separated and first wins",
			in:   "http=a:1 http=b:2  https=c:3",
			want: map[string]Proxy{
				"http":  MustNew(TypeHTTP, "a", 1),
				"https": MustNew(TypeHTTP, "c", 3),
			},
		},
		{
			name: "scheme urls inside entries",
			in:   "https=http://secure.example:8443",
			want: map[string]Proxy{"https": MustNew(TypeHTTP, "secure.example", 8443)},
		},
		{
			name:    "bad entries are skipped",
			in:      "http=:1;=x:2;https=good:3;ftp=bad:0",
			want:    map[string]Proxy{"https": MustNew(TypeHTTP, "good", 3)},
			wantErr: true,
		},
		{
			name: "empty",
			in:   " ; ",
			want: map[string]Proxy{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseProxyList(tt.in, TypeHTTP)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseProxyList() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidFormat) {
				t.Errorf("error %v does not wrap ErrInvalidFormat", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseProxyList() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// ParsePACResult
// ---------------------------------------------------------------------------

func TestParsePACResult(t *testing.T) {
	tests := []struct {
		in   string
		want []Proxy
	}{
		{"DIRECT", []Proxy{Direct}},
		{"PROXY a.example:8080; DIRECT", []Proxy{MustNew(TypeHTTP, "a.example", 8080), Direct}},
		{"proxy a.example; socks s.example; SOCKS5 t.example:9050", []Proxy{
			MustNew(TypeHTTP, "a.example", 80),
			MustNew(TypeSOCKS, "s.example", 1080),
			MustNew(TypeSOCKS, "t.example", 9050),
		}},
		{"HTTPS secure.example; HTTP plain.example:81", []Proxy{
			MustNew(TypeHTTP, "secure.example", 443),
			MustNew(TypeHTTP, "plain.example", 81),
		}},
		{"BOGUS x:1; PROXY; PROXY bad:0; DIRECT", []Proxy{Direct}},
		{"", nil},
		{" ;; ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ParsePACResult(tt.in)); diff != "" {
				t.Errorf("ParsePACResult(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Fuzz
// ---------------------------------------------------------------------------

func FuzzParseProxyList(f *testing.F) {
	for _, s := range []string{"h:1", "http=a:1;https=b:2", "socks=s", "=;=", "http=[::1]:80"} {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, s string) {
		got, err := ParseProxyList(s, TypeHTTP)
		if err != nil && !errors.Is(err, ErrInvalidFormat) {
			t.Fatalf("error %v does not wrap ErrInvalidFormat", err)
		}
		for key, p := range got {
			if p.IsDirect() || p.Port < 1 || p.Port > 65535 {
				t.Fatalf("entry %q = %#v is not a usable proxy", key, p)
			}
		}
	})
}

func FuzzParsePACResult(f *testing.F) {
	for _, s := range []string{"PROXY a:1; DIRECT", "SOCKS b", "", "DIRECT;;PROXY"} {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, s string) {
		for _, p := range ParsePACResult(s) {
			if !p.IsDirect() && (p.Host == "" || p.Port < 1 || p.Port > 65535) {
				t.Fatalf("ParsePACResult(%q) produced %#v", s, p)
			}
		}
	})
}
