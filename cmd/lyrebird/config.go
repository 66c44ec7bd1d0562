package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/natefinch/atomic"

	"github.com/CTAG07/Lyrebird/pkg/markov"
)

// ServerConfig holds the settings for the HTTP API server.
type ServerConfig struct {
	Addr         string `json:"addr"`
	LogLevel     string `json:"log_level"`
	DatabasePath string `json:"database_path"`
}

// GenerationConfig holds the default sentence generation parameters. Command
// line flags override these per invocation.
type GenerationConfig struct {
	NgramSize int `json:"ngram_size"`
	Words     int `json:"words"`
	MinWords  int `json:"min_words"`
	Attempts  int `json:"max_attempts"`
}

// Config is the top-level configuration struct that aggregates all other configs.
type Config struct {
	Server     *ServerConfig     `json:"server_config"`
	Generation *GenerationConfig `json:"generation_config"`
}

// DefaultConfig creates a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: &ServerConfig{
			Addr:         "127.0.0.1:7280",
			LogLevel:     "info",
			DatabasePath: "./lyrebird.db",
		},
		Generation: &GenerationConfig{
			NgramSize: markov.DefaultOrder,
			Words:     markov.DefaultWords,
			MinWords:  markov.DefaultMinWords,
			Attempts:  markov.DefaultAttempts,
		},
	}
}

// LoadConfig reads the configuration from a JSON file at the given path.
// If the file doesn't exist, it creates one with default values.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		// If the file doesn't exist, create it with the default config.
		if os.IsNotExist(err) {
			var data []byte
			data, err = json.MarshalIndent(config, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// Log a warning instead of failing, as the tool can still run with defaults.
				fmt.Printf("warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		// For other errors (e.g., permission denied), return the error.
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err = json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}
