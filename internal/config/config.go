package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Git     GitConfig     `yaml:"git"`
	Jobs    JobsConfig    `yaml:"jobs"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type StorageConfig struct {
	Path string `yaml:"path"` // data root holding settings.json and users/
}

type GitConfig struct {
	Binary string `yaml:"binary"` // git executable used for pack services
}

type JobsConfig struct {
	Workers int `yaml:"workers"` // concurrent blocking git/disk operations
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) ValidateServe() error {
	if c == nil {
		return fmt.Errorf("config is required")
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path must be configured")
	}
	if c.Git.Binary == "" {
		return fmt.Errorf("git.binary must be configured")
	}
	return nil
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Path: "data",
		},
		Git: GitConfig{
			Binary: "git",
		},
		Jobs: JobsConfig{
			Workers: 4,
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("GITDEN_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("GITDEN_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
	if v := os.Getenv("GITDEN_DATA_DIR"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("GITDEN_GIT_BINARY"); v != "" {
		cfg.Git.Binary = v
	}
	if v := os.Getenv("GITDEN_JOB_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Jobs.Workers = n
		}
	}
}
