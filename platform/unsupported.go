package platform

import "context"

// unsupportedName is the name returned by the unsupported reader.
const unsupportedName = "unsupported"

// unsupportedReader is returned on operating systems without a settings source.
type unsupportedReader struct{}

func (r *unsupportedReader) Name() string { return unsupportedName }

func (r *unsupportedReader) Available() bool { return false }

func (r *unsupportedReader) Read(_ context.Context) (*Settings, error) {
	return nil, ErrNotSupported
}

func (r *unsupportedReader) DetectAutoConfigURL(_ context.Context) (string, error) {
	return "", ErrNotSupported
}

// NewUnsupportedReader returns a Reader that always reports as unavailable.
// This is useful for testing and for systems without native settings.
func NewUnsupportedReader() Reader {
	return &unsupportedReader{}
}

// StaticReader is a Reader that returns fixed settings. It is used in tests
// and to replay settings captured elsewhere.
type StaticReader struct {
	Settings Settings

	// AutoConfigURL is returned by DetectAutoConfigURL. An empty value
	// makes detection fail with an expected NativeCallError.
	AutoConfigURL string
}

// Name returns "static".
func (r *StaticReader) Name() string { return "static" }

// Available returns true.
func (r *StaticReader) Available() bool { return true }

// Read returns a copy of r.Settings.
func (r *StaticReader) Read(ctx context.Context) (*Settings, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.Settings
	if s.Source == "" {
		s.Source = r.Name()
	}
	return &s, nil
}

// DetectAutoConfigURL returns r.AutoConfigURL.
func (r *StaticReader) DetectAutoConfigURL(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if r.AutoConfigURL == "" {
		return "", &NativeCallError{Op: "DetectAutoConfigURL", Code: errAutoProxyDetectionFailed}
	}
	return r.AutoConfigURL, nil
}

// Compile-time checks.
var (
	_ Reader = (*unsupportedReader)(nil)
	_ Reader = (*StaticReader)(nil)
)
