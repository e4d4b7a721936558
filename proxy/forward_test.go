package proxy

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"
)

func TestNewForwardProxy_RequiresDialer(t *testing.T) {
	if _, err := NewForwardProxy(nil); err == nil {
		t.Error("NewForwardProxy(nil) succeeded")
	}
	if _, err := NewForwardProxy(&ForwardConfig{}); err == nil {
		t.Error("NewForwardProxy without dialer succeeded")
	}
}

func TestForwardProxy_PlainHTTP(t *testing.T) {
	var gotHopHeader string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHopHeader = r.Header.Get("Proxy-Authorization")
		w.Header().Set("Keep-Alive", "timeout=5")
		w.Header().Set("X-Backend", "yes")
		_, _ = io.WriteString(w, "hello from backend")
	}))
	defer backend.Close()

	addr := startForward(t)
	proxyURL := &url.URL{Scheme: "http", Host: addr.String()}
	client := &http.Client{
		Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
		Timeout:   5 * time.Second,
	}

	req, err := http.NewRequest(http.MethodGet, backend.URL+"/path", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Proxy-Authorization", "Basic secret")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("GET through proxy: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "hello from backend" {
		t.Errorf("response = %d %q", resp.StatusCode, body)
	}
	if resp.Header.Get("X-Backend") != "yes" {
		t.Error("end-to-end header not forwarded")
	}
	if resp.Header.Get("Keep-Alive") != "" {
		t.Error("hop-by-hop response header forwarded")
	}
	if gotHopHeader != "" {
		t.Errorf("backend saw Proxy-Authorization %q", gotHopHeader)
	}
}

func TestForwardProxy_UpstreamFailure(t *testing.T) {
	host, port := closedAddr(t)
	fp, err := NewForwardProxy(&ForwardConfig{Dialer: newDialer(t, NoProxy())})
	if err != nil {
		t.Fatalf("NewForwardProxy: %v", err)
	}

	target := &url.URL{Scheme: "http", Host: net.JoinHostPort(host, strconv.Itoa(port)), Path: "/"}
	req := httptest.NewRequest(http.MethodGet, target.String(), nil)
	rec := httptest.NewRecorder()
	fp.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadGateway)
	}
}

func TestForwardProxy_BadRequests(t *testing.T) {
	fp, err := NewForwardProxy(&ForwardConfig{Dialer: newDialer(t, NoProxy())})
	if err != nil {
		t.Fatalf("NewForwardProxy: %v", err)
	}

	// Origin-form request: no host in the URL.
	req := httptest.NewRequest(http.MethodGet, "/relative", nil)
	req.URL.Host = ""
	rec := httptest.NewRecorder()
	fp.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("relative URL status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	// CONNECT with an invalid port.
	req = httptest.NewRequest(http.MethodConnect, "http://example.com:99999", nil)
	req.Host = "example.com:99999"
	rec = httptest.NewRecorder()
	fp.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("CONNECT bad port status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestForwardProxy_Lifecycle(t *testing.T) {
	fp, err := NewForwardProxy(&ForwardConfig{Dialer: newDialer(t, NoProxy())})
	if err != nil {
		t.Fatalf("NewForwardProxy: %v", err)
	}
	if fp.Addr() != nil {
		t.Error("Addr() != nil before start")
	}
	if err := fp.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown before start = %v", err)
	}
	addr, err := fp.ListenAndServe("127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenAndServe: %v", err)
	}
	if fp.Addr().String() != addr.String() {
		t.Errorf("Addr() = %v, want %v", fp.Addr(), addr)
	}
	if err := fp.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown = %v", err)
	}
}

// ---------------------------------------------------------------------------
// parseHostPort
// ---------------------------------------------------------------------------

func TestParseHostPort(t *testing.T) {
	tests := []struct {
		in, def    string
		host, port string
		wantErr    bool
	}{
		{"example.com:8080", "80", "example.com", "8080", false},
		{"example.com", "443", "example.com", "443", false},
		{"[::1]:80", "", "::1", "80", false},
		{"[::1]", "443", "::1", "443", false},
		{"example.com", "", "", "", true},
		{"", "80", "", "", true},
		{":80", "80", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			host, port, err := parseHostPort(tt.in, tt.def)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseHostPort(%q, %q) error = %v, wantErr %v", tt.in, tt.def, err, tt.wantErr)
			}
			if host != tt.host || port != tt.port {
				t.Errorf("parseHostPort(%q, %q) = (%q, %q), want (%q, %q)", tt.in, tt.def, host, port, tt.host, tt.port)
			}
		})
	}
}

func TestRemoveHopByHopHeaders(t *testing.T) {
	h := http.Header{}
	for _, name := range hopByHopHeaders {
		h.Set(name, "x")
	}
	h.Set("Content-Type", "text/plain")
	removeHopByHopHeaders(h)
	if len(h) != 1 || h.Get("Content-Type") == "" {
		t.Errorf("headers after removal = %v, want only Content-Type", h)
	}
}
