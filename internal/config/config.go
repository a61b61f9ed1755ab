package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	AppConfig     *AppConfig
	AIConfig      *AIConfig
	BrowserConfig *BrowserConfig
	AgentConfig   *AgentConfig
}

type AppConfig struct {
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

type AIConfig struct {
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	Model   string `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`
	BaseURL string `envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com/v1beta"`
}

type BrowserConfig struct {
	Headless  bool   `envconfig:"BROWSER_HEADLESS" default:"false"`
	Timeout   int    `envconfig:"BROWSER_TIMEOUT" default:"30000"`
	UserAgent string `envconfig:"BROWSER_USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"`
}

type AgentConfig struct {
	MaxSteps    int    `envconfig:"AGENT_MAX_STEPS" default:"10"`
	ResultsFile string `envconfig:"AGENT_RESULTS_FILE" default:"agent_results.json"`
}

func GetConfig() (*Config, error) {
	_ = godotenv.Load()

	var conf Config

	if err := envconfig.Process("", &conf); err != nil {
		return nil, fmt.Errorf("read config from env vars: %w", err)
	}

	return &conf, nil
}
