package proxy

import (
	"strings"
	"testing"
)

func envSliceToMap(env []string) map[string]string {
	m := make(map[string]string, len(env))
	for _, e := range env {
		k, v, _ := strings.Cut(e, "=")
		m[k] = v
	}
	return m
}

func TestGenerateEnv_BothFrontends(t *testing.T) {
	env := envSliceToMap(GenerateEnv(&EnvConfig{
		HTTPAddr:  "127.0.0.1:8080",
		SOCKSAddr: "127.0.0.1:1080",
	}))

	expected := map[string]string{
		"NO_PROXY":               DefaultNoProxy,
		"no_proxy":               DefaultNoProxy,
		"HTTP_PROXY":             "http://127.0.0.1:8080",
		"http_proxy":             "http://127.0.0.1:8080",
		"HTTPS_PROXY":            "http://127.0.0.1:8080",
		"https_proxy":            "http://127.0.0.1:8080",
		"FTP_PROXY":              "http://127.0.0.1:8080",
		"ftp_proxy":              "http://127.0.0.1:8080",
		"ALL_PROXY":              "socks5h://127.0.0.1:1080",
		"all_proxy":              "socks5h://127.0.0.1:1080",
		"RSYNC_PROXY":            "127.0.0.1:1080",
		"GRPC_PROXY":             "socks5h://127.0.0.1:1080",
		"DOCKER_HTTP_PROXY":      "http://127.0.0.1:8080",
		"DOCKER_HTTPS_PROXY":     "http://127.0.0.1:8080",
		"CLOUDSDK_PROXY_TYPE":    "http",
		"CLOUDSDK_PROXY_ADDRESS": "127.0.0.1",
		"CLOUDSDK_PROXY_PORT":    "8080",
	}
	for key, want := range expected {
		if got, ok := env[key]; !ok || got != want {
			t.Errorf("env var %s = %q (present %v), want %q", key, got, ok, want)
		}
	}
}

func TestGenerateEnv_Empty(t *testing.T) {
	if env := GenerateEnv(nil); env != nil {
		t.Errorf("GenerateEnv(nil) = %v, want nil", env)
	}
	if env := GenerateEnv(&EnvConfig{}); env != nil {
		t.Errorf("GenerateEnv(no addrs) = %v, want nil", env)
	}
}

func TestGenerateEnv_HTTPOnly(t *testing.T) {
	env := envSliceToMap(GenerateEnv(&EnvConfig{HTTPAddr: "[::1]:3128", NoProxy: "corp.example"}))
	if env["HTTP_PROXY"] != "http://[::1]:3128" {
		t.Errorf("HTTP_PROXY = %q", env["HTTP_PROXY"])
	}
	if env["NO_PROXY"] != "corp.example" {
		t.Errorf("NO_PROXY = %q", env["NO_PROXY"])
	}
	if env["CLOUDSDK_PROXY_ADDRESS"] != "::1" {
		t.Errorf("CLOUDSDK_PROXY_ADDRESS = %q", env["CLOUDSDK_PROXY_ADDRESS"])
	}
	for _, key := range []string{"ALL_PROXY", "GIT_SSH_COMMAND", "RSYNC_PROXY", "GRPC_PROXY"} {
		if _, ok := env[key]; ok {
			t.Errorf("%s set without a SOCKS front end", key)
		}
	}
}

func TestGenerateEnv_SOCKSOnlyDockerFallback(t *testing.T) {
	env := envSliceToMap(GenerateEnv(&EnvConfig{SOCKSAddr: "127.0.0.1:1080"}))
	if env["DOCKER_HTTP_PROXY"] != "socks5h://127.0.0.1:1080" {
		t.Errorf("DOCKER_HTTP_PROXY = %q", env["DOCKER_HTTP_PROXY"])
	}
	if _, ok := env["HTTP_PROXY"]; ok {
		t.Error("HTTP_PROXY set without an HTTP front end")
	}
	if _, ok := env["CLOUDSDK_PROXY_TYPE"]; ok {
		t.Error("CLOUDSDK_PROXY_TYPE set without an HTTP front end")
	}
}

func TestGenerateEnv_GitSSHPerOS(t *testing.T) {
	orig := goos
	t.Cleanup(func() { goos = orig })

	tests := []struct {
		goos string
		want string
	}{
		{"darwin", "nc -X 5 -x 127.0.0.1:1080"},
		{"linux", "ncat --proxy-type socks5 --proxy 127.0.0.1:1080"},
	}
	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			goos = tt.goos
			env := envSliceToMap(GenerateEnv(&EnvConfig{SOCKSAddr: "127.0.0.1:1080"}))
			if !strings.Contains(env["GIT_SSH_COMMAND"], tt.want) {
				t.Errorf("GIT_SSH_COMMAND = %q, want it to contain %q", env["GIT_SSH_COMMAND"], tt.want)
			}
		})
	}
}

func TestShellExports(t *testing.T) {
	got := ShellExports([]string{"A=1", "B=it's", "broken"})
	want := "export A='1'\nexport B='it'\\''s'\n"
	if got != want {
		t.Errorf("ShellExports = %q, want %q", got, want)
	}
}
