// Package config implements the resource-file half of spec.md §6: parsing
// `.cpmrc`, applying the directive-specific validation the original
// dotconf callbacks performed, and merging CLI overrides on top.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/hbrueckner/cpm/internal/cpmerr"
)

// Config is the fully resolved, immutable-after-startup configuration
// spec.md §9 describes as "a pair of context structs threaded through
// each component; the session controller owns both" -- this is the
// persistent half, Runtime being the session's own mutable state
// (readonly, data_changed) rather than anything loaded from disk.
type Config struct {
	AskToQuit          bool `toml:"AskToQuit"`
	CrackLibCheck      bool `toml:"CrackLibCheck"`
	CreateBackup       bool `toml:"CreateBackup"`
	KeepPassphrase     bool `toml:"KeepPassphrase"`
	MatchCaseSensitive bool `toml:"MatchCaseSensitive"`
	TemplateLock       bool `toml:"TemplateLock"`

	Compression    int `toml:"Compression"`
	InfoboxHeight  int `toml:"InfoboxHeight"`
	PasswordLength int `toml:"PasswordLength"`

	DatabaseFile     string `toml:"DatabaseFile"`
	EncryptionKey    string `toml:"EncryptionKey"`
	HideCharacter    string `toml:"HideCharacter"`
	PasswordAlphabet string `toml:"PasswordAlphabet"`
	SearchType       string `toml:"SearchType"`

	SearchPattern []string `toml:"SearchPattern"`
	TemplateName  []string `toml:"TemplateName"`
}

// Default mirrors the original dotconf callbacks' fallback values for
// directives a resource file never overrides.
func Default() Config {
	return Config{
		CreateBackup:       true,
		MatchCaseSensitive: false,
		Compression:        bestCompression,
		InfoboxHeight:      10,
		PasswordLength:     8,
		HideCharacter:      "*",
	}
}

const (
	noCompression   = 0
	bestCompression = 9
)

// SearchOrder is the resource-file lookup order of spec.md §6:
// ~/.cpmrc, then /etc/cpm/cpmrc, then /etc/cpmrc.
func SearchOrder(home string) []string {
	return []string{
		filepath.Join(home, ".cpmrc"),
		"/etc/cpm/cpmrc",
		"/etc/cpmrc",
	}
}

// Load reads the first existing file in SearchOrder(home), or returns
// Default() unchanged if none exist. An explicit override path (-c/--config)
// should be passed to LoadFile directly instead.
func Load(home string) (Config, error) {
	for _, path := range SearchOrder(home) {
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return Default(), nil
}

// LoadFile parses path as TOML into a Config seeded with Default(),
// rejecting unknown directives -- spec.md §6: "Unknown directives are
// rejected".
func LoadFile(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, cpmerr.WrapKindErrorf(cpmerr.KindConfig, err, "config: failed to parse %s", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, cpmerr.KindErrorf(cpmerr.KindConfig, "config: unknown directive %q in %s", undecoded[0].String(), path)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// validate applies the per-directive constraints the original dotconf
// callbacks enforced inline.
func (c *Config) validate() error {
	if c.Compression < noCompression || c.Compression > bestCompression {
		c.Compression = bestCompression
	}
	if c.InfoboxHeight < 5 {
		c.InfoboxHeight = 5
	} else if c.InfoboxHeight > 25 {
		c.InfoboxHeight = 25
	}
	if c.PasswordLength != 0 && c.PasswordLength < 5 {
		return cpmerr.KindErrorf(cpmerr.KindConfig, "PasswordLength must be at least 5")
	}
	if c.PasswordLength == 0 {
		c.PasswordLength = 8
	}
	return nil
}

// Overrides carries the CLI flag values of spec.md §6 that take
// precedence over the resource file when present. A zero value for any
// field means "not given on the command line".
type Overrides struct {
	DatabaseFile  string
	EncryptionKey string
	NoEncryption  bool
	ReadOnly      bool
	IgnoreCase    *bool
	Regex         bool
	Regular       bool
	DebugLevel    int
}

// Apply merges o onto cfg, CLI taking precedence, matching spec.md §6's
// "--key ... replaces config defaults" behaviour. Only DatabaseFile,
// EncryptionKey and IgnoreCase are merged; the other Overrides fields
// are not copied into the Config.
func (cfg Config) Apply(o Overrides) Config {
	if o.DatabaseFile != "" {
		cfg.DatabaseFile = o.DatabaseFile
	}
	if o.EncryptionKey != "" {
		cfg.EncryptionKey = o.EncryptionKey
	}
	if o.IgnoreCase != nil {
		cfg.MatchCaseSensitive = !*o.IgnoreCase
	}
	return cfg
}

// String implements a stable dump for --configtest.
func (c Config) String() string {
	return fmt.Sprintf(
		"AskToQuit=%v CrackLibCheck=%v CreateBackup=%v KeepPassphrase=%v "+
			"MatchCaseSensitive=%v TemplateLock=%v Compression=%d InfoboxHeight=%d "+
			"PasswordLength=%d DatabaseFile=%q EncryptionKey=%q HideCharacter=%q "+
			"PasswordAlphabet=%q SearchType=%q SearchPattern=%v TemplateName=%v",
		c.AskToQuit, c.CrackLibCheck, c.CreateBackup, c.KeepPassphrase,
		c.MatchCaseSensitive, c.TemplateLock, c.Compression, c.InfoboxHeight,
		c.PasswordLength, c.DatabaseFile, c.EncryptionKey, c.HideCharacter,
		c.PasswordAlphabet, c.SearchType, c.SearchPattern, c.TemplateName,
	)
}
