package project

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

// Manifest is a loaded flowlower.toml.
type Manifest struct {
	Path   string
	Root   string
	Config Config
	// Set holds the dotted keys the file defines, e.g. "lower.strict".
	Set map[string]bool
}

type Config struct {
	Lower  LowerConfig  `toml:"lower"`
	Output OutputConfig `toml:"output"`
}

type LowerConfig struct {
	Strict        bool   `toml:"strict"`
	KeepAccessors bool   `toml:"keep-accessors"`
	Jobs          int    `toml:"jobs"`
	Backup        string `toml:"backup"`
}

type OutputConfig struct {
	// Format is "dump" (printer syntax), "toml" (unit files) or "none".
	Format string `toml:"format"`
	Dir    string `toml:"dir"`
}

// OutputFormats lists the accepted [output].format values.
var OutputFormats = []string{"dump", "toml", "none"}

// LoadManifest finds and loads the manifest above startDir. ok is false when
// there is none.
func LoadManifest(startDir string) (*Manifest, bool, error) {
	path, ok, err := FindManifest(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	m, err := LoadManifestFile(path)
	if err != nil {
		return nil, true, err
	}
	return m, true, nil
}

// LoadManifestFile decodes and validates one manifest.
func LoadManifestFile(path string) (*Manifest, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %s", path, undecoded[0])
	}
	if meta.IsDefined("lower", "jobs") && cfg.Lower.Jobs < 0 {
		return nil, fmt.Errorf("%s: [lower].jobs must not be negative", path)
	}
	if meta.IsDefined("output", "format") {
		cfg.Output.Format = strings.ToLower(strings.TrimSpace(cfg.Output.Format))
		if !slices.Contains(OutputFormats, cfg.Output.Format) {
			return nil, fmt.Errorf("%s: [output].format must be one of %s", path, strings.Join(OutputFormats, "|"))
		}
	}

	root := filepath.Dir(path)
	set := make(map[string]bool)
	for _, k := range meta.Keys() {
		set[k.String()] = true
	}
	if cfg.Lower.Backup != "" && !filepath.IsAbs(cfg.Lower.Backup) {
		cfg.Lower.Backup = filepath.Join(root, cfg.Lower.Backup)
	}
	if cfg.Output.Dir != "" && !filepath.IsAbs(cfg.Output.Dir) {
		cfg.Output.Dir = filepath.Join(root, cfg.Output.Dir)
	}
	return &Manifest{Path: path, Root: root, Config: cfg, Set: set}, nil
}
