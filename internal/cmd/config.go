package main

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds the optional file-based configuration. Every field has an
// environment override so the file can be omitted entirely.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	NATS struct {
		URL string `yaml:"url"`
	} `yaml:"nats"`
	Uploads struct {
		Dir       string `yaml:"dir"`
		URLPrefix string `yaml:"url_prefix"`
	} `yaml:"uploads"`
}

func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Environment takes precedence over the file
	config.Server.Port = getEnv("PORT", config.Server.Port)
	config.NATS.URL = getEnv("NATS_URL", config.NATS.URL)
	config.Uploads.Dir = getEnv("UPLOADS_DIR", config.Uploads.Dir)

	return config, nil
}

func defaultConfig() *Config {
	c := &Config{}
	c.Server.Port = "8080"
	c.NATS.URL = "nats://localhost:4222"
	c.Uploads.Dir = "uploads"
	c.Uploads.URLPrefix = "/media"
	return c
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
