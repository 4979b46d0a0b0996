package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// HashAlgorithm selects the content digest used to compare files
type HashAlgorithm string

const (
	HashSHA256 HashAlgorithm = "sha256"
	HashXXH3   HashAlgorithm = "xxh3"
)

// Config represents the complete treepack configuration
type Config struct {
	Compare CompareConfig `yaml:"compare"`
	Install InstallConfig `yaml:"install"`
	Publish PublishConfig `yaml:"publish"`
}

// CompareConfig configures the tree comparison and packaging
type CompareConfig struct {
	ExcludeDirs     []string      `yaml:"exclude_dirs"`
	ExcludePatterns []string      `yaml:"exclude_patterns"`
	IgnoreFile      string        `yaml:"ignore_file"`
	OutputDir       string        `yaml:"output_dir"`
	ArchiveA        string        `yaml:"archive_a"`
	ArchiveB        string        `yaml:"archive_b"`
	Hash            HashAlgorithm `yaml:"hash"`
	Workers         int           `yaml:"workers"`
}

// InstallConfig configures the conversion package installer
type InstallConfig struct {
	Sources           []SourceConfig `yaml:"sources"`
	ManualDownloadURL string         `yaml:"manual_download_url"`
	CacheDir          string         `yaml:"cache_dir"`
	PackageName       string         `yaml:"package_name"`
	RequiredEntry     string         `yaml:"required_entry"`
	TargetFiles       []string       `yaml:"target_files"`
	TargetDirs        []string       `yaml:"target_dirs"`
	Launch            string         `yaml:"launch"`
	FilenameEncoding  string         `yaml:"filename_encoding"`
	Timeout           time.Duration  `yaml:"timeout"`
	Retries           int            `yaml:"retries"`
}

// SourceConfig names one download mirror for the conversion package
type SourceConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// PublishConfig configures uploading archives to S3-compatible storage
type PublishConfig struct {
	Endpoint      string `yaml:"endpoint"`
	Bucket        string `yaml:"bucket"`
	Prefix        string `yaml:"prefix"`
	Region        string `yaml:"region"`
	Secure        *bool  `yaml:"secure"`
	AccessKeyFile string `yaml:"access_key_file"`
	SecretKeyFile string `yaml:"secret_key_file"`
}

// Default returns the built-in configuration. It mirrors the exclusion lists
// and download mirrors the tool has always shipped with.
func Default() *Config {
	cfg := &Config{
		Compare: CompareConfig{
			ExcludeDirs: []string{
				"profile", "replays", "updates", "GameCheck", "Reports",
				"crashes", "l10n_installer", "screenshot", "res_mods", "l10n",
			},
			ExcludePatterns: []string{"*.tmp", "*.log", "exclude_file.txt"},
		},
		Install: InstallConfig{
			Sources: []SourceConfig{
				{Name: "gitee", URL: "https://gitee.com/localized-korabli/Korabli-Steam2LGC/raw/main/packages/lgc.zip"},
				{Name: "github", URL: "https://github.com/LocalizedKorabli/Korabli-Steam2LGC/raw/main/packages/lgc.zip"},
			},
			ManualDownloadURL: "https://tapio.lanzn.com/b0nym5huh",
			TargetFiles:       []string{"Korabli.exe"},
			TargetDirs:        []string{"bin"},
			Launch:            "lgc_api.exe",
			Retries:           5,
		},
	}
	cfg.applyDefaults()
	return cfg
}

// DefaultPath returns the default config file location
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "treepack", "config.yaml")
}

// Load reads and parses the configuration file on top of the defaults
func Load(path string) (*Config, error) {
	// Expand environment variables in path
	path = os.ExpandEnv(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.expandEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// expandEnv expands environment variables in path-like string fields
func (c *Config) expandEnv() {
	c.Compare.IgnoreFile = os.ExpandEnv(c.Compare.IgnoreFile)
	c.Compare.OutputDir = os.ExpandEnv(c.Compare.OutputDir)
	c.Install.CacheDir = os.ExpandEnv(c.Install.CacheDir)
	c.Publish.Endpoint = os.ExpandEnv(c.Publish.Endpoint)
	c.Publish.Bucket = os.ExpandEnv(c.Publish.Bucket)
	c.Publish.AccessKeyFile = os.ExpandEnv(c.Publish.AccessKeyFile)
	c.Publish.SecretKeyFile = os.ExpandEnv(c.Publish.SecretKeyFile)
	for i := range c.Install.Sources {
		c.Install.Sources[i].URL = os.ExpandEnv(c.Install.Sources[i].URL)
	}
}

// applyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) applyDefaults() {
	if c.Compare.OutputDir == "" {
		c.Compare.OutputDir = "output"
	}
	if c.Compare.ArchiveA == "" {
		c.Compare.ArchiveA = "a.zip"
	}
	if c.Compare.ArchiveB == "" {
		c.Compare.ArchiveB = "b.zip"
	}
	if c.Compare.Hash == "" {
		c.Compare.Hash = HashSHA256
	}
	if c.Install.CacheDir == "" {
		c.Install.CacheDir = filepath.Join(xdg.CacheHome, "treepack")
	}
	if c.Install.PackageName == "" {
		c.Install.PackageName = "lgc.zip"
	}
	if c.Install.RequiredEntry == "" {
		c.Install.RequiredEntry = "lgc_api.exe"
	}
	if c.Install.FilenameEncoding == "" {
		c.Install.FilenameEncoding = "GBK"
	}
	if c.Install.Timeout == 0 {
		c.Install.Timeout = 5000 * time.Second
	}
	if c.Publish.Secure == nil {
		secure := true
		c.Publish.Secure = &secure
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	switch c.Compare.Hash {
	case HashSHA256, HashXXH3:
		// valid
	default:
		return fmt.Errorf("invalid compare.hash: %s (must be sha256 or xxh3)", c.Compare.Hash)
	}
	if c.Compare.Workers < 0 {
		return fmt.Errorf("compare.workers must not be negative: %d", c.Compare.Workers)
	}
	if c.Compare.ArchiveA == c.Compare.ArchiveB {
		return fmt.Errorf("compare.archive_a and compare.archive_b must differ: %s", c.Compare.ArchiveA)
	}
	for _, name := range []string{c.Compare.ArchiveA, c.Compare.ArchiveB} {
		if strings.ContainsAny(name, `/\`) {
			return fmt.Errorf("archive name must be a plain file name: %s", name)
		}
	}

	for i, src := range c.Install.Sources {
		if src.URL == "" {
			return fmt.Errorf("install.sources[%d].url is required", i)
		}
		if !strings.HasPrefix(src.URL, "https://") && !strings.HasPrefix(src.URL, "http://") {
			return fmt.Errorf("install.sources[%d].url must be an http(s) URL: %s", i, src.URL)
		}
	}
	if c.Install.Retries < 0 {
		return fmt.Errorf("install.retries must not be negative: %d", c.Install.Retries)
	}
	if c.Install.Timeout < 0 {
		return fmt.Errorf("install.timeout must not be negative: %s", c.Install.Timeout)
	}

	if c.PublishEnabled() {
		if c.Publish.Bucket == "" {
			return fmt.Errorf("publish.bucket is required when publish.endpoint is set")
		}
		if c.Publish.AccessKeyFile == "" || c.Publish.SecretKeyFile == "" {
			return fmt.Errorf("publish.access_key_file and publish.secret_key_file are required when publish.endpoint is set")
		}
	}

	return nil
}

// ArchivePathA returns where the archive for the first tree is written
func (c *Config) ArchivePathA() string {
	return filepath.Join(c.Compare.OutputDir, c.Compare.ArchiveA)
}

// ArchivePathB returns where the archive for the second tree is written
func (c *Config) ArchivePathB() string {
	return filepath.Join(c.Compare.OutputDir, c.Compare.ArchiveB)
}

// PackagePath returns where a downloaded conversion package is stored
func (c *Config) PackagePath() string {
	return filepath.Join(c.Install.CacheDir, c.Install.PackageName)
}

// PublishEnabled reports whether archive publishing is configured
func (c *Config) PublishEnabled() bool {
	return c.Publish.Endpoint != ""
}
