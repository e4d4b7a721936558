//go:build !darwin && !linux && !windows

package platform

// detectReader returns an unsupported reader for unrecognized operating systems.
func detectReader() Reader {
	return &unsupportedReader{}
}
