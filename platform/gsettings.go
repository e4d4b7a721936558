package platform

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
)

const (
	gsettingsTool   = "gsettings"
	gsettingsSchema = "org.gnome.system.proxy"
)

// gsettingsProtocols lists the per-protocol sub-schemas in the order the
// proxy string is built.
var gsettingsProtocols = []struct {
	schema string
	scheme string
}{
	{"http", "http"},
	{"https", "https"},
	{"ftp", "ftp"},
	{"socks", "socks"},
}

// GSettingsReader reads GNOME proxy settings through the gsettings tool.
type GSettingsReader struct{}

// Name returns "gsettings".
func (r *GSettingsReader) Name() string { return gsettingsTool }

// Available reports whether gsettings is on PATH.
func (r *GSettingsReader) Available() bool { return toolAvailable(gsettingsTool) }

// Read runs "gsettings list-recursively org.gnome.system.proxy".
func (r *GSettingsReader) Read(ctx context.Context) (*Settings, error) {
	if !r.Available() {
		return nil, ErrNotSupported
	}
	out, err := runCommand(ctx, gsettingsTool, "list-recursively", gsettingsSchema)
	if err != nil {
		return nil, err
	}
	return parseGSettings(out)
}

// DetectAutoConfigURL is not supported; GNOME leaves WPAD to the
// application.
func (r *GSettingsReader) DetectAutoConfigURL(_ context.Context) (string, error) {
	return "", ErrNotSupported
}

// parseGSettings converts list-recursively output into Settings.
// Each line has the form "<schema> <key> <value>".
func parseGSettings(out []byte) (*Settings, error) {
	values := make(map[string]string)
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		schema, rest, ok := strings.Cut(line, " ")
		if !ok || !strings.HasPrefix(schema, gsettingsSchema) {
			continue
		}
		key, value, ok := strings.Cut(strings.TrimSpace(rest), " ")
		if !ok {
			continue
		}
		sub := strings.TrimPrefix(strings.TrimPrefix(schema, gsettingsSchema), ".")
		if sub != "" {
			key = sub + "." + key
		}
		values[key] = strings.TrimSpace(value)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("platform: reading gsettings output: %w", err)
	}

	s := &Settings{Source: gsettingsTool}
	switch mode := gvariantString(values["mode"]); mode {
	case "", "none":
		s.AccessType = AccessDirect
	case "manual":
		s.AccessType = AccessNamed
		var entries []string
		for _, p := range gsettingsProtocols {
			host := gvariantString(values[p.schema+".host"])
			port, _ := strconv.Atoi(values[p.schema+".port"])
			if host == "" || port <= 0 {
				continue
			}
			entries = append(entries, p.scheme+"="+net.JoinHostPort(host, strconv.Itoa(port)))
		}
		s.Proxy = strings.Join(entries, ";")
		s.Bypass = strings.Join(gvariantStrings(values["ignore-hosts"]), ",")
	case "auto":
		s.AccessType = AccessAuto
		s.AutoConfigURL = gvariantString(values["autoconfig-url"])
		s.AutoDetect = s.AutoConfigURL == ""
	default:
		return nil, fmt.Errorf("platform: unknown gsettings proxy mode %q", mode)
	}
	return s, nil
}

// gvariantString decodes a GVariant string literal such as 'manual'.
// Values that are not quoted are returned as is.
func gvariantString(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 2 && (v[0] == '\'' || v[0] == '"') && v[len(v)-1] == v[0] {
		inner := v[1 : len(v)-1]
		return strings.ReplaceAll(inner, `\`+string(v[0]), string(v[0]))
	}
	return v
}

// gvariantStrings decodes a GVariant string array such as
// ['localhost', '127.0.0.0/8'] or the typed empty array "@as []".
func gvariantStrings(v string) []string {
	v = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(v), "@as"))
	if !strings.HasPrefix(v, "[") || !strings.HasSuffix(v, "]") {
		return nil
	}
	v = v[1 : len(v)-1]
	var out []string
	for _, item := range strings.Split(v, ",") {
		if s := gvariantString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

var _ Reader = (*GSettingsReader)(nil)
