package platform

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net"
	"strings"
)

const scutilTool = "scutil"

// scutilProtocols maps the dictionary key prefix to the proxy string scheme.
var scutilProtocols = []struct {
	prefix string
	scheme string
}{
	{"HTTP", "http"},
	{"HTTPS", "https"},
	{"FTP", "ftp"},
	{"SOCKS", "socks"},
}

// ScutilReader reads macOS proxy settings through "scutil --proxy".
type ScutilReader struct{}

// Name returns "scutil".
func (r *ScutilReader) Name() string { return scutilTool }

// Available reports whether scutil is on PATH.
func (r *ScutilReader) Available() bool { return toolAvailable(scutilTool) }

// Read runs "scutil --proxy" and parses the dictionary it prints.
func (r *ScutilReader) Read(ctx context.Context) (*Settings, error) {
	if !r.Available() {
		return nil, ErrNotSupported
	}
	out, err := runCommand(ctx, scutilTool, "--proxy")
	if err != nil {
		return nil, err
	}
	return parseScutil(out)
}

// DetectAutoConfigURL is not supported; the system resolves WPAD itself and
// only reports ProxyAutoDiscoveryEnable.
func (r *ScutilReader) DetectAutoConfigURL(_ context.Context) (string, error) {
	return "", ErrNotSupported
}

// scutilDict is the flattened top level of a scutil dictionary.
type scutilDict struct {
	values map[string]string
	arrays map[string][]string
}

func (d *scutilDict) enabled(key string) bool { return d.values[key] == "1" }

// parseScutilDict reads the "<dictionary> { ... }" format. Nested
// dictionaries are skipped; arrays are collected in index order.
func parseScutilDict(out []byte) (*scutilDict, error) {
	d := &scutilDict{values: map[string]string{}, arrays: map[string][]string{}}
	sc := bufio.NewScanner(bytes.NewReader(out))
	var (
		depth    int
		arrayKey string
	)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if line == "}" {
			depth--
			if depth <= 1 {
				arrayKey = ""
			}
			continue
		}
		key, value, ok := strings.Cut(line, " : ")
		if !ok {
			if strings.HasSuffix(line, "{") {
				depth++
			}
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch {
		case strings.HasPrefix(value, "<array>"):
			depth++
			if depth == 2 {
				arrayKey = key
				d.arrays[key] = nil
			}
		case strings.HasPrefix(value, "<dictionary>"):
			depth++
		case depth == 1:
			d.values[key] = value
		case depth == 2 && arrayKey != "":
			d.arrays[arrayKey] = append(d.arrays[arrayKey], value)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("platform: reading scutil output: %w", err)
	}
	return d, nil
}

// parseScutil converts scutil --proxy output into Settings. An explicit PAC
// URL takes precedence over named proxies, which take precedence over WPAD.
func parseScutil(out []byte) (*Settings, error) {
	d, err := parseScutilDict(out)
	if err != nil {
		return nil, err
	}

	s := &Settings{Source: scutilTool}
	bypass := append([]string(nil), d.arrays["ExceptionsList"]...)
	if d.enabled("ExcludeSimpleHostnames") {
		bypass = append(bypass, "<local>")
	}
	s.Bypass = strings.Join(bypass, ",")

	if url := d.values["ProxyAutoConfigURLString"]; d.enabled("ProxyAutoConfigEnable") && url != "" {
		s.AccessType = AccessAuto
		s.AutoConfigURL = url
		return s, nil
	}

	var entries []string
	for _, p := range scutilProtocols {
		host, port := d.values[p.prefix+"Proxy"], d.values[p.prefix+"Port"]
		if !d.enabled(p.prefix+"Enable") || host == "" || port == "" {
			continue
		}
		entries = append(entries, p.scheme+"="+net.JoinHostPort(host, port))
	}
	if len(entries) > 0 {
		s.AccessType = AccessNamed
		s.Proxy = strings.Join(entries, ";")
		return s, nil
	}

	if d.enabled("ProxyAutoDiscoveryEnable") {
		s.AccessType = AccessAuto
		s.AutoDetect = true
		return s, nil
	}
	s.AccessType = AccessDirect
	return s, nil
}

var _ Reader = (*ScutilReader)(nil)
