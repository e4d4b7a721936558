//go:build windows

package platform

import (
	"context"
	"errors"

	"golang.org/x/sys/windows/registry"
)

const winhttpName = "winhttp"

const (
	internetSettingsKey = `Software\Microsoft\Windows\CurrentVersion\Internet Settings`
	connectionsKey      = internetSettingsKey + `\Connections`
)

// autoDetectFlag is the bit of DefaultConnectionSettings byte 8 that
// enables "Automatically detect settings".
const autoDetectFlag = 0x08

// detectReader returns the WinHTTP reader.
func detectReader() Reader {
	return &winhttpReader{}
}

// winhttpReader reads the current user's Internet Options. The WinHTTP API
// is consulted first; the registry is read directly when WinHTTP fails, and
// the machine-wide WinHTTP default is used when the user has no proxy.
type winhttpReader struct{}

func (r *winhttpReader) Name() string { return winhttpName }

func (r *winhttpReader) Available() bool {
	return procWinHttpGetIEProxyConfigForCurrentUser.Find() == nil
}

func (r *winhttpReader) Read(ctx context.Context) (*Settings, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s, err := getIEProxyConfig()
	if err != nil {
		rs, rerr := readRegistrySettings()
		if rerr != nil {
			return nil, errors.Join(err, rerr)
		}
		s = rs
	}
	if s.AccessType == AccessDirect {
		if d, derr := getDefaultProxyConfig(); derr == nil && d.AccessType == AccessNamed {
			return d, nil
		}
	}
	return s, nil
}

func (r *winhttpReader) DetectAutoConfigURL(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	type result struct {
		url string
		err error
	}
	ch := make(chan result, 1)
	go func() {
		url, err := detectAutoProxyConfigURL()
		ch <- result{url, err}
	}()
	select {
	case res := <-ch:
		return res.url, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// readRegistrySettings reads the Internet Settings key of HKCU.
func readRegistrySettings() (*Settings, error) {
	k, err := registry.OpenKey(registry.CURRENT_USER, internetSettingsKey, registry.QUERY_VALUE)
	if err != nil {
		return nil, err
	}
	defer k.Close()

	s := &Settings{Source: "registry"}
	enabled, _, _ := k.GetIntegerValue("ProxyEnable")
	s.Proxy = stringValue(k, "ProxyServer")
	s.Bypass = stringValue(k, "ProxyOverride")
	s.AutoConfigURL = stringValue(k, "AutoConfigURL")
	s.AutoDetect = registryAutoDetect()

	switch {
	case s.AutoConfigURL != "" || s.AutoDetect:
		s.AccessType = AccessAuto
	case enabled != 0 && s.Proxy != "":
		s.AccessType = AccessNamed
	default:
		s.AccessType = AccessDirect
	}
	return s, nil
}

func stringValue(k registry.Key, name string) string {
	v, _, err := k.GetStringValue(name)
	if err != nil {
		return ""
	}
	return v
}

// registryAutoDetect reads the auto-detect flag from the binary
// DefaultConnectionSettings value.
func registryAutoDetect() bool {
	k, err := registry.OpenKey(registry.CURRENT_USER, connectionsKey, registry.QUERY_VALUE)
	if err != nil {
		return false
	}
	defer k.Close()
	blob, _, err := k.GetBinaryValue("DefaultConnectionSettings")
	if err != nil {
		return false
	}
	return connectionSettingsAutoDetect(blob)
}

func connectionSettingsAutoDetect(blob []byte) bool {
	return len(blob) > 8 && blob[8]&autoDetectFlag != 0
}

var _ Reader = (*winhttpReader)(nil)
