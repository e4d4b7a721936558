// Package platform reads the operating system's proxy settings.
// Most users should use the top-level proxysearch package, whose "native"
// strategy selects the appropriate Reader automatically. Import this
// package directly only to inspect the raw settings or to supply a custom
// Reader.
//
// The parsers for the gsettings and scutil output formats are OS
// independent; only the code that runs the tools or calls WinHTTP is built
// per operating system.
package platform
