// Package config reads and writes the minimal slice of .git/config this
// module's repository façade needs (initial branch, author identity),
// INI-backed with github.com/go-ini/ini as the teacher candidate Nivl-git-go uses
// for the same file. go-git's own gcfg-based config DSL is out of scope
// (spec.md non-goal: "Configuration file parsing").
package config

import (
	"bytes"

	"github.com/chr33s/git/storage"
	ini "github.com/go-ini/ini"
)

// Config holds the handful of settings the repository façade consults.
type Config struct {
	InitialBranch string
	UserName      string
	UserEmail     string
}

// Default returns the zero-value config with Git's conventional defaults.
func Default() Config {
	return Config{InitialBranch: "main"}
}

const path = "config"

// Load reads .git/config, if present, layering it over Default().
func Load(fs storage.Storage) (Config, error) {
	cfg := Default()
	exists, err := fs.Exists(path)
	if err != nil {
		return cfg, err
	}
	if !exists {
		return cfg, nil
	}
	raw, err := fs.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	f, err := ini.Load(raw)
	if err != nil {
		return cfg, err
	}
	if s := f.Section("init").Key("defaultBranch").String(); s != "" {
		cfg.InitialBranch = s
	}
	cfg.UserName = f.Section("user").Key("name").String()
	cfg.UserEmail = f.Section("user").Key("email").String()
	return cfg, nil
}

// Save writes cfg to .git/config in INI form.
func Save(fs storage.Storage, cfg Config) error {
	f := ini.Empty()
	if cfg.InitialBranch != "" {
		f.Section("init").Key("defaultBranch").SetValue(cfg.InitialBranch)
	}
	if cfg.UserName != "" {
		f.Section("user").Key("name").SetValue(cfg.UserName)
	}
	if cfg.UserEmail != "" {
		f.Section("user").Key("email").SetValue(cfg.UserEmail)
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return err
	}
	return fs.WriteFile(path, buf.Bytes())
}
