package envutil

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestGetEnv(t *testing.T) {
	env := []string{"A=1", "HTTP_PROXY=http://a:1", "EMPTY=", "A=2", "NOEQ"}
	tests := []struct {
		key    string
		want   string
		wantOK bool
	}{
		{"A", "2", true},
		{"HTTP_PROXY", "http://a:1", true},
		{"EMPTY", "", true},
		{"http_proxy", "", false},
		{"NOEQ", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := GetEnv(env, tt.key)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("GetEnv(%q) = (%q, %v), want (%q, %v)", tt.key, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestLookup(t *testing.T) {
	env := []string{"http_proxy=  ", "HTTP_PROXY= http://upper:2 ", "https_proxy=http://lower:3"}
	tests := []struct {
		name    string
		keys    []string
		want    string
		wantKey string
		wantOK  bool
	}{
		{"blank value skipped", []string{"http_proxy", "HTTP_PROXY"}, "http://upper:2", "HTTP_PROXY", true},
		{"first key wins", []string{"https_proxy", "HTTP_PROXY"}, "http://lower:3", "https_proxy", true},
		{"none set", []string{"ftp_proxy", "FTP_PROXY"}, "", "", false},
		{"no keys", nil, "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, key, ok := Lookup(env, tt.keys...)
			if got != tt.want || key != tt.wantKey || ok != tt.wantOK {
				t.Errorf("Lookup(%v) = (%q, %q, %v), want (%q, %q, %v)", tt.keys, got, key, ok, tt.want, tt.wantKey, tt.wantOK)
			}
		})
	}
}

func TestSetEnv(t *testing.T) {
	tests := []struct {
		name  string
		env   []string
		key   string
		value string
		want  []string
	}{
		{"set new variable", []string{"A=1"}, "B", "2", []string{"A=1", "B=2"}},
		{"replace existing variable", []string{"A=1", "B=2"}, "A", "99", []string{"A=99", "B=2"}},
		{"set on nil slice", nil, "X", "y", []string{"X=y"}},
		{"value with equals sign", nil, "URL", "http://host?a=1&b=2", []string{"URL=http://host?a=1&b=2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SetEnv(tt.env, tt.key, tt.value)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("SetEnv() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMergeEnv(t *testing.T) {
	tests := []struct {
		name       string
		base, more []string
		want       []string
	}{
		{
			name: "override keeps base position",
			base: []string{"A=1", "B=2", "C=3"},
			more: []string{"B=20"},
			want: []string{"A=1", "B=20", "C=3"},
		},
		{
			name: "new keys appended in order",
			base: []string{"A=1"},
			more: []string{"Z=26", "Y=25"},
			want: []string{"A=1", "Z=26", "Y=25"},
		},
		{
			name: "last override wins",
			base: []string{"A=1"},
			more: []string{"A=2", "A=3"},
			want: []string{"A=3"},
		},
		{
			name: "duplicate base keys collapse",
			base: []string{"A=1", "A=2"},
			more: []string{"A=9"},
			want: []string{"A=9"},
		},
		{
			name: "nil inputs",
			want: []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeEnv(tt.base, tt.more)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("MergeEnv() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMergeEnvDoesNotModifyBase(t *testing.T) {
	base := []string{"A=1", "B=2"}
	_ = MergeEnv(base, []string{"A=9"})
	if diff := cmp.Diff([]string{"A=1", "B=2"}, base); diff != "" {
		t.Errorf("base modified (-want +got):\n%s", diff)
	}
}
