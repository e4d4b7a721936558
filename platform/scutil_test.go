package platform

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const scutilManual = `<dictionary> {
  ExceptionsList : <array> {
    0 : *.local
    1 : 169.254/16
  }
  ExcludeSimpleHostnames : 1
  FTPPassive : 1
  HTTPEnable : 1
  HTTPPort : 8080
  HTTPProxy : proxy.example
  HTTPSEnable : 1
  HTTPSPort : 8443
  HTTPSProxy : secure.example
  SOCKSEnable : 0
  SOCKSPort : 1080
  SOCKSProxy : socks.example
  ProxyAutoConfigEnable : 0
  __SCOPED__ : <dictionary> {
    en0 : <dictionary> {
      HTTPEnable : 0
    }
  }
}
`

func TestParseScutil(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Settings
	}{
		{
			name: "manual",
			in:   scutilManual,
			want: Settings{
				AccessType: AccessNamed,
				Proxy:      "http=proxy.example:8080;https=secure.example:8443",
				Bypass:     "*.local,169.254/16,<local>",
				Source:     "scutil",
			},
		},
		{
			name: "pac wins over named",
			in: `<dictionary> {
  HTTPEnable : 1
  HTTPPort : 8080
  HTTPProxy : proxy.example
  ProxyAutoConfigEnable : 1
  ProxyAutoConfigURLString : http://pac.example/proxy.pac
}`,
			want: Settings{AccessType: AccessAuto, AutoConfigURL: "http://pac.example/proxy.pac", Source: "scutil"},
		},
		{
			name: "wpad",
			in: `<dictionary> {
  ProxyAutoDiscoveryEnable : 1
}`,
			want: Settings{AccessType: AccessAuto, AutoDetect: true, Source: "scutil"},
		},
		{
			name: "direct",
			in: `<dictionary> {
  FTPPassive : 1
  HTTPEnable : 0
}`,
			want: Settings{AccessType: AccessDirect, Source: "scutil"},
		},
		{
			name: "pac enabled without url",
			in: `<dictionary> {
  ProxyAutoConfigEnable : 1
}`,
			want: Settings{AccessType: AccessDirect, Source: "scutil"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseScutil([]byte(tt.in))
			if err != nil {
				t.Fatalf("parseScutil() error: %v", err)
			}
			if diff := cmp.Diff(tt.want, *got); diff != "" {
				t.Errorf("parseScutil() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseScutilDictSkipsNested(t *testing.T) {
	d, err := parseScutilDict([]byte(scutilManual))
	if err != nil {
		t.Fatalf("parseScutilDict() error: %v", err)
	}
	if d.values["HTTPEnable"] != "1" {
		t.Errorf("HTTPEnable = %q, nested scope leaked into top level", d.values["HTTPEnable"])
	}
	if _, ok := d.values["en0"]; ok {
		t.Error("nested dictionary key recorded at top level")
	}
	if diff := cmp.Diff([]string{"*.local", "169.254/16"}, d.arrays["ExceptionsList"]); diff != "" {
		t.Errorf("ExceptionsList mismatch (-want +got):\n%s", diff)
	}
}

func TestScutilReader(t *testing.T) {
	calls := stubTools(t, map[string]string{"scutil": scutilManual}, nil)
	r := &ScutilReader{}
	s, err := r.Read(context.Background())
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if s.AccessType != AccessNamed {
		t.Errorf("AccessType = %v, want named", s.AccessType)
	}
	if diff := cmp.Diff([]string{"[scutil --proxy]"}, *calls); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
	if _, err := r.DetectAutoConfigURL(context.Background()); !errors.Is(err, ErrNotSupported) {
		t.Errorf("DetectAutoConfigURL() error = %v, want ErrNotSupported", err)
	}
}

func TestScutilReaderMissingTool(t *testing.T) {
	stubTools(t, map[string]string{}, nil)
	if _, err := (&ScutilReader{}).Read(context.Background()); !errors.Is(err, ErrNotSupported) {
		t.Fatalf("Read() error = %v, want ErrNotSupported", err)
	}
}

func FuzzParseScutil(f *testing.F) {
	f.Add(scutilManual)
	f.Add("}}}{{{")
	f.Add("<dictionary> {\n  A : <array> {\n")
	f.Fuzz(func(t *testing.T, in string) {
		if _, err := parseScutil([]byte(in)); err != nil {
			t.Skip()
		}
	})
}
