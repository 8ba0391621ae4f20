package analysis

import (
	"fmt"
	"time"

	"menu-scorecard/internal/common/config"
)

// Config holds the model endpoint settings.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
	// DemoDelay simulates model latency for the credential-less demo analyzer.
	DemoDelay time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		BaseURL:     config.DefaultGenAIBaseURL,
		Model:       config.DefaultGenAIModel,
		Temperature: 0.2,
		Timeout:     60 * time.Second,
	}
}

// ConfigFrom maps the application configuration onto the analysis settings.
func ConfigFrom(cfg *config.Config) *Config {
	c := DefaultConfig()
	c.APIKey = cfg.APIs.GenAI.APIKey
	if cfg.APIs.GenAI.BaseURL != "" {
		c.BaseURL = cfg.APIs.GenAI.BaseURL
	}
	if cfg.APIs.GenAI.Model != "" {
		c.Model = cfg.APIs.GenAI.Model
	}
	if cfg.APIs.GenAI.Temperature > 0 {
		c.Temperature = cfg.APIs.GenAI.Temperature
	}
	if cfg.APIs.GenAI.Timeout > 0 {
		c.Timeout = config.GetDuration(cfg.APIs.GenAI.Timeout)
	}
	return c
}

func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL is required")
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	return nil
}
