package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mu/common"
	"mu/logging"
	"mu/mods"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml"
)

// Config is the runtime configuration
type Config struct {
	// Root is the directory the configuration was loaded from
	Root string

	// ModulePath is the ordered module search path
	ModulePath []string

	CompileOnDemand bool
	CompileDocs     bool
	DebugArchive    bool

	LogLevel string

	// GCThreshold is the number of live blocks that triggers a collection at
	// the next safe point (0 selects the collector's default)
	GCThreshold int

	// ResolutionCache is the size of the overload resolution cache (0 selects
	// the default)
	ResolutionCache int
}

// tomlConfig is the configuration file as it is encoded in TOML
type tomlConfig struct {
	ModulePath      []string `toml:"module-path,omitempty"`
	CompileOnDemand bool     `toml:"compile-on-demand"`
	CompileDocs     bool     `toml:"compile-docs"`
	DebugArchive    bool     `toml:"debug-archive"`
	LogLevel        string   `toml:"log-level,omitempty"`
	GCThreshold     int      `toml:"gc-threshold"`
	ResolutionCache int      `toml:"resolution-cache"`
}

// Default returns the configuration used when dir holds no configuration
// file: only dir itself is searched for modules
func Default(dir string) *Config {
	return &Config{
		Root:       dir,
		ModulePath: []string{dir},
		LogLevel:   "warning",
	}
}

// Load reads the configuration of the runtime rooted at dir.  A `.env` file
// in dir is loaded into the environment first (existing variables win).  The
// configuration file is optional.  `MU_MODULE_PATH` entries are searched
// before the configured path and `$MU_PATH/lib` after it.
func Load(dir string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env: %s", err.Error())
	}

	cfg := Default(dir)

	buff, err := os.ReadFile(filepath.Join(dir, common.ConfigFileName))
	if err == nil {
		if err := cfg.decode(buff); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	if envPath := os.Getenv(common.ModulePathEnv); envPath != "" {
		cfg.ModulePath = append(common.SplitPathList(envPath), cfg.ModulePath...)
	}

	if muPath := strings.TrimSpace(os.Getenv(common.MuPathEnv)); muPath != "" {
		common.MuPath = muPath
	}

	if common.MuPath != "" {
		cfg.ModulePath = append(cfg.ModulePath, filepath.Join(common.MuPath, "lib"))
	}

	cfg.ModulePath = dedup(cfg.ModulePath)
	return cfg, nil
}

// decode applies the content of a configuration file
func (c *Config) decode(buff []byte) error {
	tc := &tomlConfig{}
	if err := toml.Unmarshal(buff, tc); err != nil {
		return fmt.Errorf("error parsing %s: %s", common.ConfigFileName, err.Error())
	}

	if tc.GCThreshold < 0 {
		return fmt.Errorf("gc-threshold must not be negative")
	}

	if tc.ResolutionCache < 0 {
		return fmt.Errorf("resolution-cache must not be negative")
	}

	// relative entries are relative to the configuration directory
	if tc.ModulePath != nil {
		c.ModulePath = c.ModulePath[:0]
		for _, p := range tc.ModulePath {
			if !filepath.IsAbs(p) {
				p = filepath.Join(c.Root, p)
			}
			c.ModulePath = append(c.ModulePath, p)
		}
	}

	c.CompileOnDemand = tc.CompileOnDemand
	c.CompileDocs = tc.CompileDocs
	c.DebugArchive = tc.DebugArchive
	c.GCThreshold = tc.GCThreshold
	c.ResolutionCache = tc.ResolutionCache

	if tc.LogLevel != "" {
		if validLogLevel(tc.LogLevel) {
			c.LogLevel = tc.LogLevel
		} else {
			logging.LogConfigError("Configuration", fmt.Sprintf("unknown log level `%s`", tc.LogLevel))
		}
	}

	return nil
}

func validLogLevel(level string) bool {
	switch level {
	case "silent", "error", "warn", "warning", "verbose":
		return true
	}

	return false
}

func dedup(paths []string) []string {
	seen := make(map[string]struct{})
	out := paths[:0]
	for _, p := range paths {
		p = filepath.Clean(p)
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}

	return out
}

// LoaderOptions returns the module loader settings of the configuration
func (c *Config) LoaderOptions() mods.Options {
	return mods.Options{
		Path:            c.ModulePath,
		CompileOnDemand: c.CompileOnDemand,
		CompileDocs:     c.CompileDocs,
		DebugArchive:    c.DebugArchive,
	}
}
