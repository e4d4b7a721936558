package proxysearch

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zhangyunhao116/proxysearch/internal/envutil"
	"github.com/zhangyunhao116/proxysearch/internal/pathutil"
)

// FileConfig is the YAML configuration file layout:
//
//	strategies: [manual, native, env]
//	disabled: [browser]
//	env: ["HTTP_PROXY=http://proxy:3128"]
//	manual:
//	  proxies:
//	    http: proxy.corp:3128
//	    socks: socks5://gw.corp:1080
//	  bypass: "*.corp, 10.0.0.0/8, <local>"
//	pac:
//	  url: http://wpad.corp/wpad.dat
//	  timeout: 3s
//	firefox:
//	  profiles_dir: ~/.mozilla/firefox
//	kde:
//	  config_paths: [~/.config/kioslaverc]
type FileConfig struct {
	Strategies []string          `yaml:"strategies"`
	Disabled   []string          `yaml:"disabled"`
	Env        []string          `yaml:"env"`
	Manual     *FileManualConfig `yaml:"manual"`
	PAC        FilePACConfig     `yaml:"pac"`
	Firefox    struct {
		ProfilesDir string `yaml:"profiles_dir"`
	} `yaml:"firefox"`
	KDE struct {
		ConfigPaths []string `yaml:"config_paths"`
	} `yaml:"kde"`
}

// FileManualConfig is the "manual" section of a FileConfig.
type FileManualConfig struct {
	Proxies map[string]string `yaml:"proxies"`
	Bypass  string            `yaml:"bypass"`
}

// FilePACConfig is the "pac" section of a FileConfig.
type FilePACConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// LoadFile reads and parses a YAML configuration file.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("proxysearch: reading config: %w", err)
	}
	fc, err := ParseFileConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return fc, nil
}

// ParseFileConfig parses YAML configuration data. Unknown keys are rejected.
// Empty data yields an empty FileConfig.
func ParseFileConfig(data []byte) (*FileConfig, error) {
	fc := &FileConfig{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(fc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrConfigInvalid, err)
	}
	return fc, nil
}

// Apply copies the settings present in f onto cfg. Env entries are merged
// over cfg.Env; "~" in paths expands to cfg.HomeDir.
func (f *FileConfig) Apply(cfg *Config) {
	if f == nil || cfg == nil {
		return
	}
	if f.Strategies != nil {
		cfg.Strategies = append([]string(nil), f.Strategies...)
	}
	if len(f.Disabled) > 0 {
		cfg.Disabled = append(cfg.Disabled, f.Disabled...)
	}
	if len(f.Env) > 0 {
		cfg.Env = envutil.MergeEnv(cfg.Env, f.Env)
	}
	if f.Manual != nil {
		m := &ManualConfig{Bypass: f.Manual.Bypass, Proxies: make(map[string]string, len(f.Manual.Proxies))}
		for k, v := range f.Manual.Proxies {
			m.Proxies[k] = v
		}
		cfg.Manual = m
	}
	if f.PAC.URL != "" {
		cfg.PACURL = f.PAC.URL
	}
	if f.PAC.Timeout != 0 {
		cfg.PACTimeout = f.PAC.Timeout
	}
	if f.Firefox.ProfilesDir != "" {
		cfg.FirefoxProfilesDir = pathutil.ExpandHome(f.Firefox.ProfilesDir, cfg.HomeDir)
	}
	if len(f.KDE.ConfigPaths) > 0 {
		cfg.KDEConfigPaths = make([]string, len(f.KDE.ConfigPaths))
		for i, p := range f.KDE.ConfigPaths {
			cfg.KDEConfigPaths[i] = pathutil.ExpandHome(p, cfg.HomeDir)
		}
	}
}
