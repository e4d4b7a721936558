//go:build windows

package platform

import (
	"errors"
	"unsafe"

	"golang.org/x/sys/windows"
)

// WinHTTP access types.
const (
	winhttpAccessTypeDefaultProxy = 0
	winhttpAccessTypeNoProxy      = 1
	winhttpAccessTypeNamedProxy   = 3
)

// WinHTTP auto-detect flags.
const (
	winhttpAutoDetectTypeDHCP = 0x1
	winhttpAutoDetectTypeDNSA = 0x2
)

var (
	modkernel32    = windows.NewLazySystemDLL("kernel32.dll")
	procGlobalFree = modkernel32.NewProc("GlobalFree")

	modwinhttp                                = windows.NewLazySystemDLL("winhttp.dll")
	procWinHttpGetIEProxyConfigForCurrentUser = modwinhttp.NewProc("WinHttpGetIEProxyConfigForCurrentUser")
	procWinHttpGetDefaultProxyConfiguration   = modwinhttp.NewProc("WinHttpGetDefaultProxyConfiguration")
	procWinHttpDetectAutoProxyConfigUrl       = modwinhttp.NewProc("WinHttpDetectAutoProxyConfigUrl")
)

// ieProxyConfig mirrors WINHTTP_CURRENT_USER_IE_PROXY_CONFIG.
type ieProxyConfig struct {
	fAutoDetect       int32
	lpszAutoConfigUrl *uint16
	lpszProxy         *uint16
	lpszProxyBypass   *uint16
}

// proxyInfo mirrors WINHTTP_PROXY_INFO.
type proxyInfo struct {
	dwAccessType    uint32
	lpszProxy       *uint16
	lpszProxyBypass *uint16
}

// callError converts the last error of a failed call into a NativeCallError.
func callError(op string, err error) error {
	var errno windows.Errno
	if errors.As(err, &errno) {
		return &NativeCallError{Op: op, Code: uint32(errno)}
	}
	return &NativeCallError{Op: op}
}

// takeString converts a WinHTTP-allocated string and releases it.
func takeString(p *uint16) string {
	if p == nil {
		return ""
	}
	s := windows.UTF16PtrToString(p)
	_, _, _ = procGlobalFree.Call(uintptr(unsafe.Pointer(p))) // best-effort cleanup
	return s
}

// getIEProxyConfig calls WinHttpGetIEProxyConfigForCurrentUser.
func getIEProxyConfig() (*Settings, error) {
	const op = "WinHttpGetIEProxyConfigForCurrentUser"
	if err := procWinHttpGetIEProxyConfigForCurrentUser.Find(); err != nil {
		return nil, ErrNotSupported
	}
	var cfg ieProxyConfig
	r, _, err := procWinHttpGetIEProxyConfigForCurrentUser.Call(uintptr(unsafe.Pointer(&cfg)))
	if r == 0 {
		return nil, callError(op, err)
	}

	s := &Settings{
		AutoDetect:    cfg.fAutoDetect != 0,
		AutoConfigURL: takeString(cfg.lpszAutoConfigUrl),
		Proxy:         takeString(cfg.lpszProxy),
		Bypass:        takeString(cfg.lpszProxyBypass),
		Source:        winhttpName,
	}
	switch {
	case s.AutoConfigURL != "" || s.AutoDetect:
		s.AccessType = AccessAuto
	case s.Proxy != "":
		s.AccessType = AccessNamed
	default:
		s.AccessType = AccessDirect
	}
	return s, nil
}

// getDefaultProxyConfig calls WinHttpGetDefaultProxyConfiguration, which
// reports the machine-wide setting made with "netsh winhttp set proxy".
func getDefaultProxyConfig() (*Settings, error) {
	const op = "WinHttpGetDefaultProxyConfiguration"
	if err := procWinHttpGetDefaultProxyConfiguration.Find(); err != nil {
		return nil, ErrNotSupported
	}
	var info proxyInfo
	r, _, err := procWinHttpGetDefaultProxyConfiguration.Call(uintptr(unsafe.Pointer(&info)))
	if r == 0 {
		return nil, callError(op, err)
	}

	s := &Settings{
		Proxy:  takeString(info.lpszProxy),
		Bypass: takeString(info.lpszProxyBypass),
		Source: winhttpName,
	}
	if info.dwAccessType == winhttpAccessTypeNamedProxy && s.Proxy != "" {
		s.AccessType = AccessNamed
	}
	return s, nil
}

// detectAutoProxyConfigURL calls WinHttpDetectAutoProxyConfigUrl with DHCP
// and DNS discovery. The call blocks for as long as discovery takes.
func detectAutoProxyConfigURL() (string, error) {
	const op = "WinHttpDetectAutoProxyConfigUrl"
	if err := procWinHttpDetectAutoProxyConfigUrl.Find(); err != nil {
		return "", ErrNotSupported
	}
	var url *uint16
	r, _, err := procWinHttpDetectAutoProxyConfigUrl.Call(
		uintptr(winhttpAutoDetectTypeDHCP|winhttpAutoDetectTypeDNSA),
		uintptr(unsafe.Pointer(&url)),
	)
	if r == 0 {
		return "", callError(op, err)
	}
	return takeString(url), nil
}
