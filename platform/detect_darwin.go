//go:build darwin

package platform

// detectReader returns the scutil reader.
func detectReader() Reader {
	return &ScutilReader{}
}
