package bypass

import "testing"

func TestLocalFilter(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"http://localhost/", true},
		{"http://LOCALHOST:8080/", true},
		{"http://intranet/", true},
		{"http://127.0.0.1/", true},
		{"http://127.8.9.10/", true},
		{"http://169.254.1.1/", true},
		{"http://0.0.0.0/", true},
		{"http://[::1]/", true},
		{"http://[::]/", true},
		{"http://[fe80::1%25eth0]/", true},
		{"http://[::ffff:127.0.0.1]/", true},
		{"http://123.45.55.6/", false},
		{"http://www.example.com/", false},
		{"http://[2001:db8::1]/", false},
		{"mailto:user@example.com", false},
	}
	var f LocalFilter
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := f.Accept(mustURL(t, tt.url)); got != tt.want {
				t.Errorf("LocalFilter.Accept(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
	if f.Accept(nil) {
		t.Error("LocalFilter.Accept(nil) = true, want false")
	}
}

func TestFilter_LocalToken(t *testing.T) {
	f := ParseSep("<local>;*.example.com", ";", WithResolver(nil))
	if !f.Accept(mustURL(t, "http://localhost/")) {
		t.Error("Accept(localhost) = false, want true")
	}
	if f.Accept(mustURL(t, "http://123.45.55.6/")) {
		t.Error("Accept(123.45.55.6) = true, want false")
	}
}
