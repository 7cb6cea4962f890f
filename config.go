package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds everything the server and board client need at startup.
type Config struct {
	Port           string
	DatabasePath   string
	StaticDir      string
	GeminiAPIKey   string
	GeminiModel    string
	RequestTimeout time.Duration
	ServerURL      string
}

// LoadConfig reads an optional voicetracker.yaml from the working directory
// and VOICETRACKER_* environment variables, falling back to defaults.
// GEMINI_API_KEY is also honored unprefixed since that is what the Gemini
// docs tell people to export.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("voicetracker")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("VOICETRACKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", "3001")
	v.SetDefault("database.path", "./voicetracker.db")
	v.SetDefault("static.dir", "./web")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("gemini.timeout", "30s")
	v.SetDefault("server.url", "http://localhost:3001")

	v.BindEnv("gemini.api_key", "VOICETRACKER_GEMINI_API_KEY", "GEMINI_API_KEY")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading voicetracker.yaml: %w", err)
		}
	}

	timeout := v.GetDuration("gemini.timeout")
	if timeout <= 0 {
		return nil, fmt.Errorf("gemini.timeout must be positive, got %q", v.GetString("gemini.timeout"))
	}

	return &Config{
		Port:           v.GetString("port"),
		DatabasePath:   v.GetString("database.path"),
		StaticDir:      v.GetString("static.dir"),
		GeminiAPIKey:   v.GetString("gemini.api_key"),
		GeminiModel:    v.GetString("gemini.model"),
		RequestTimeout: timeout,
		ServerURL:      v.GetString("server.url"),
	}, nil
}
