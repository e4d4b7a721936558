//go:build linux

package platform

// detectReader returns the GNOME gsettings reader. KDE settings are read
// from kioslaverc by the "kde" strategy instead.
func detectReader() Reader {
	return &GSettingsReader{}
}
