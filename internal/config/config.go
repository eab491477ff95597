// Package config loads structctl.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"voxelforge.ai/internal/sim/ids"
)

type Config struct {
	CatalogDir string `yaml:"catalog_dir"`
	DataDir    string `yaml:"data_dir"`
	AirBlock   string `yaml:"air_block"`
	Seed       int64  `yaml:"seed"`

	// WorldFile and LibraryDB default to files under DataDir.
	WorldFile string `yaml:"world_file"`
	LibraryDB string `yaml:"library_db"`

	Limits Limits `yaml:"limits"`
	Log    Log    `yaml:"log"`
}

type Limits struct {
	// MaxVolume caps the cell count of captured, generated and stored
	// snapshots. 0 disables the check.
	MaxVolume int `yaml:"max_volume"`
}

type Log struct {
	GenerateLog bool `yaml:"generate_log"`
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("structctl.yaml: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("structctl.yaml: %w", err)
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		CatalogDir: "./configs",
		DataDir:    "./data",
		AirBlock:   "core:air",
		Seed:       1337,
		Limits:     Limits{MaxVolume: 1 << 20},
		Log:        Log{GenerateLog: true},
	}
}

func (c *Config) Normalize() {
	c.CatalogDir = strings.TrimSpace(c.CatalogDir)
	c.DataDir = strings.TrimSpace(c.DataDir)
	c.AirBlock = strings.TrimSpace(c.AirBlock)
	if c.CatalogDir == "" {
		c.CatalogDir = "./configs"
	}
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.AirBlock == "" {
		c.AirBlock = "core:air"
	}
	if strings.TrimSpace(c.WorldFile) == "" {
		c.WorldFile = filepath.Join(c.DataDir, "world.grid.zst")
	}
	if strings.TrimSpace(c.LibraryDB) == "" {
		c.LibraryDB = filepath.Join(c.DataDir, "library.sqlite")
	}
}

func (c Config) Validate() error {
	if _, err := ids.ParseResourceID(c.AirBlock); err != nil {
		return fmt.Errorf("air_block: %w", err)
	}
	if c.Limits.MaxVolume < 0 {
		return fmt.Errorf("limits.max_volume must be >= 0")
	}
	return nil
}

// CheckVolume reports whether n cells fit within the configured limit.
func (c Config) CheckVolume(n int) error {
	if c.Limits.MaxVolume > 0 && n > c.Limits.MaxVolume {
		return fmt.Errorf("volume %d exceeds limits.max_volume %d", n, c.Limits.MaxVolume)
	}
	return nil
}
