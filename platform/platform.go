package platform

import (
	"context"
	"errors"
	"fmt"
)

// AccessType is the kind of connection the operating system is configured for.
type AccessType uint8

const (
	// AccessDirect means no proxy is configured.
	AccessDirect AccessType = iota

	// AccessNamed means one or more named proxies are configured in
	// Settings.Proxy.
	AccessNamed

	// AccessAuto means the proxy comes from a PAC file, either at
	// Settings.AutoConfigURL or discovered through WPAD.
	AccessAuto
)

// String returns the access type name.
func (a AccessType) String() string {
	switch a {
	case AccessDirect:
		return "direct"
	case AccessNamed:
		return "named"
	case AccessAuto:
		return "auto"
	default:
		return fmt.Sprintf("AccessType(%d)", uint8(a))
	}
}

// Settings is a snapshot of the operating system's proxy configuration.
type Settings struct {
	// AccessType selects which of the remaining fields are meaningful.
	AccessType AccessType

	// Proxy is either "host:port" (one proxy for every scheme) or a list of
	// "scheme=host:port" entries separated by ';'.
	Proxy string

	// Bypass lists hosts that must not be proxied, separated by ';' or ','.
	// The "<local>" token stands for all local addresses.
	Bypass string

	// AutoConfigURL is the location of the PAC file.
	AutoConfigURL string

	// AutoDetect requests WPAD discovery of the PAC file location.
	AutoDetect bool

	// Source names the reader that produced the settings.
	Source string
}

// Reader reads the operating system's proxy settings.
type Reader interface {
	// Name returns a short identifier for the settings source
	// (e.g., "gsettings", "scutil", "winhttp").
	Name() string

	// Available reports whether the source can be queried on this system.
	Available() bool

	// Read returns the current settings. It returns ErrNotSupported when
	// the source is not available.
	Read(ctx context.Context) (*Settings, error)

	// DetectAutoConfigURL runs WPAD discovery and returns the PAC file URL.
	DetectAutoConfigURL(ctx context.Context) (string, error)
}

var (
	// ErrNotSupported is returned when no settings source exists on this
	// operating system.
	ErrNotSupported = errors.New("platform: proxy settings not supported on this system")

	// ErrNativeCall is wrapped by every NativeCallError.
	ErrNativeCall = errors.New("platform: native call failed")
)

// errAutoProxyDetectionFailed is the WinHTTP code returned when WPAD finds
// nothing. It is the normal outcome on networks without WPAD.
const errAutoProxyDetectionFailed = 12180

// NativeCallError reports a failed operating system call.
type NativeCallError struct {
	Op   string
	Code uint32
}

func (e *NativeCallError) Error() string {
	return fmt.Sprintf("platform: %s failed with code %d", e.Op, e.Code)
}

// Unwrap returns ErrNativeCall.
func (e *NativeCallError) Unwrap() error { return ErrNativeCall }

// Expected reports whether the failure is a normal outcome that callers
// should not log as a problem.
func (e *NativeCallError) Expected() bool {
	return e.Code == errAutoProxyDetectionFailed
}

// IsExpected reports whether err is a NativeCallError with an expected code.
func IsExpected(err error) bool {
	var nce *NativeCallError
	return errors.As(err, &nce) && nce.Expected()
}

// Detect returns the Reader for the current OS.
// On windows: WinHTTP and the Internet Settings registry key.
// On darwin: the scutil --proxy dictionary.
// On linux: GNOME gsettings.
// On other OS: a reader that always reports ErrNotSupported.
func Detect() Reader {
	return detectReader()
}
