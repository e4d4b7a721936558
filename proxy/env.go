package proxy

import (
	"fmt"
	"net"
	"runtime"
	"strings"
)

// goos is the operating system identifier used for platform-specific logic.
// It defaults to runtime.GOOS and can be overridden in tests.
var goos = runtime.GOOS

// EnvConfig describes running front ends to advertise through environment
// variables.
type EnvConfig struct {
	// HTTPAddr is the host:port of a ForwardProxy. Empty omits the HTTP
	// variables.
	HTTPAddr string

	// SOCKSAddr is the host:port of a SOCKSFrontend. Empty omits the SOCKS
	// variables.
	SOCKSAddr string

	// NoProxy is the bypass list written to NO_PROXY. Empty uses
	// DefaultNoProxy.
	NoProxy string
}

// platformDarwin is the GOOS value for macOS.
const platformDarwin = "darwin"

// DefaultNoProxy lists addresses that should bypass a local front end:
// localhost, loopback, link-local and private address ranges.
const DefaultNoProxy = "localhost,127.0.0.1,::1,*.local,10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,100.64.0.0/10,169.254.0.0/16,fc00::/7,fe80::/10"

// GenerateEnv generates the environment variables that point common tools at
// the given front ends. It returns a slice of "KEY=VALUE" strings suitable for
// exec.Cmd.Env or for printing as shell exports. The variables are the same
// ones the "env" search strategy reads.
func GenerateEnv(cfg *EnvConfig) []string {
	if cfg == nil || (cfg.HTTPAddr == "" && cfg.SOCKSAddr == "") {
		return nil
	}

	var env []string

	noProxy := cfg.NoProxy
	if noProxy == "" {
		noProxy = DefaultNoProxy
	}
	env = append(env,
		"NO_PROXY="+noProxy,
		"no_proxy="+noProxy,
	)

	// HTTP proxy settings.
	if cfg.HTTPAddr != "" {
		httpProxy := "http://" + cfg.HTTPAddr
		env = append(env,
			"HTTP_PROXY="+httpProxy,
			"http_proxy="+httpProxy,
			"HTTPS_PROXY="+httpProxy,
			"https_proxy="+httpProxy,
			"FTP_PROXY="+httpProxy,
			"ftp_proxy="+httpProxy,
		)
	}

	if cfg.SOCKSAddr != "" {
		socksProxy := "socks5h://" + cfg.SOCKSAddr
		env = append(env,
			"ALL_PROXY="+socksProxy,
			"all_proxy="+socksProxy,
		)

		// GIT_SSH_COMMAND: platform-specific SSH proxy command.
		var gitSSHCmd string
		switch goos {
		case platformDarwin:
			gitSSHCmd = fmt.Sprintf("ssh -o ProxyCommand='nc -X 5 -x %s %%h %%p'", cfg.SOCKSAddr)
		default:
			gitSSHCmd = fmt.Sprintf("ssh -o ProxyCommand='ncat --proxy-type socks5 --proxy %s %%h %%p'", cfg.SOCKSAddr)
		}
		env = append(env, "GIT_SSH_COMMAND="+gitSSHCmd)

		// RSYNC_PROXY: rsync uses host:port format without protocol prefix.
		env = append(env, "RSYNC_PROXY="+cfg.SOCKSAddr)

		env = append(env,
			"GRPC_PROXY="+socksProxy,
			"grpc_proxy="+socksProxy,
		)
	}

	// DOCKER_HTTP_PROXY / DOCKER_HTTPS_PROXY: prefer HTTP, fall back to SOCKS5.
	dockerProxy := "http://" + cfg.HTTPAddr
	if cfg.HTTPAddr == "" {
		dockerProxy = "socks5h://" + cfg.SOCKSAddr
	}
	env = append(env,
		"DOCKER_HTTP_PROXY="+dockerProxy,
		"DOCKER_HTTPS_PROXY="+dockerProxy,
	)

	// CLOUDSDK_PROXY_*: Google Cloud SDK proxy settings.
	if host, port, err := net.SplitHostPort(cfg.HTTPAddr); err == nil {
		env = append(env,
			"CLOUDSDK_PROXY_TYPE=http",
			"CLOUDSDK_PROXY_ADDRESS="+host,
			"CLOUDSDK_PROXY_PORT="+port,
		)
	}
	return env
}

// ShellExports formats env as POSIX shell export lines.
func ShellExports(env []string) string {
	var b strings.Builder
	for _, e := range env {
		key, value, ok := strings.Cut(e, "=")
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "export %s='%s'\n", key, strings.ReplaceAll(value, "'", `'\''`))
	}
	return b.String()
}
