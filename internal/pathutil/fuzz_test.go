package pathutil

import (
	"path/filepath"
	"testing"
)

// FuzzJoinWithinBoundary checks that an accepted path always stays inside
// the base directory, whatever the relative input.
func FuzzJoinWithinBoundary(f *testing.F) {
	seeds := []string{
		"abc.default",
		"../x",
		"a/../../b",
		"",
		".",
		"..",
		"/etc/passwd",
		"a\x00b",
		"Profiles/xyz.default-release",
	}
	for _, s := range seeds {
		f.Add(s)
	}

	base := f.TempDir()
	absBase, err := filepath.Abs(base)
	if err != nil {
		f.Fatal(err)
	}
	f.Fuzz(func(t *testing.T, rel string) {
		got, err := JoinWithinBoundary(base, rel)
		if err != nil {
			return
		}
		if IsOutsideBoundary(absBase, got) {
			t.Fatalf("JoinWithinBoundary(%q) = %q escapes %q", rel, got, absBase)
		}
	})
}
