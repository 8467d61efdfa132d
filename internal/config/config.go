package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Project struct {
		Root        string `yaml:"root"`
		ArtifactDir string `yaml:"artifact_dir"`
	} `yaml:"project"`
	Toolchain struct {
		Bin        string   `yaml:"bin"`
		BuildArgs  []string `yaml:"build_args"`
		Structured bool     `yaml:"structured"`
		KeepWork   bool     `yaml:"keep_work"`
	} `yaml:"toolchain"`
	DB struct {
		Path string `yaml:"path"`
	} `yaml:"db"`
}

// Defaults returns the configuration used when no config file exists.
func Defaults() *Config {
	cfg := &Config{}
	cfg.Project.Root = "."
	cfg.Project.ArtifactDir = ".hookweave"
	cfg.Toolchain.Bin = "go"
	cfg.Toolchain.KeepWork = true
	cfg.DB.Path = "hookweave.db"
	return cfg
}

func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := Defaults()

	// 2. Load YAML config. A missing file is fine: defaults apply.
	file, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	// 3. Override with Environment Variables if present
	if bin := os.Getenv("HOOKWEAVE_TOOLCHAIN"); bin != "" {
		cfg.Toolchain.Bin = bin
	}
	if dir := os.Getenv("HOOKWEAVE_ARTIFACT_DIR"); dir != "" {
		cfg.Project.ArtifactDir = dir
	}
	if root := os.Getenv("HOOKWEAVE_ROOT"); root != "" {
		cfg.Project.Root = root
	}
	if db := os.Getenv("HOOKWEAVE_DB"); db != "" {
		cfg.DB.Path = db
	}
	if args := os.Getenv("HOOKWEAVE_BUILD_ARGS"); args != "" {
		cfg.Toolchain.BuildArgs = strings.Fields(args)
	}

	return cfg, nil
}
