package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v6"
)

type LLMProvider string

const (
	ProviderOpenAI LLMProvider = "openai"
	ProviderYandex LLMProvider = "yandex"
)

type Platform string

const (
	PlatformDiscord  Platform = "discord"
	PlatformTelegram Platform = "telegram"
)

type StateBackend string

const (
	StateJSON   StateBackend = "json"
	StateSQLite StateBackend = "sqlite"
)

// MaxDeleteWindow is the largest page the messaging platforms hand out in one fetch.
const MaxDeleteWindow = 100

type Config struct {
	Platform         Platform `env:"PLATFORM" envDefault:"discord"`
	DiscordToken     string   `env:"DISCORD_TOKEN"`
	TelegramBotToken string   `env:"TELEGRAM_BOT_TOKEN"`
	ActivityStatus   string   `env:"ACTIVITY_STATUS" envDefault:"The self splinters"`

	// LLM settings
	LLMProvider      LLMProvider `env:"LLM_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey     string      `env:"OPENAI_API_KEY" envDefault:"ollama"`
	OpenAIBaseURL    string      `env:"OPENAI_BASE_URL" envDefault:"http://localhost:11434/v1"`
	Model            string      `env:"LLM_MODEL" envDefault:"llama3.1:latest"`
	EvaluatorModel   string      `env:"EVALUATOR_MODEL" envDefault:"gemma3:4b"`
	YandexOAuthToken string      `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID   string      `env:"YANDEX_FOLDER_ID"`

	// OpenRouter (optional)
	OpenRouterReferrer string `env:"OPENROUTER_REFERRER"`
	OpenRouterTitle    string `env:"OPENROUTER_TITLE"`

	// Prompts
	SystemPromptPath string `env:"SYSTEM_PROMPT_PATH" envDefault:"prompts/system_prompt.txt"`
	EvaluatorPrompt  string `env:"EVALUATOR_PROMPT" envDefault:"Decide if you want to reply to this conversation. Answer only with a Yes or a No."`

	// Storage
	StateBackend    StateBackend `env:"STATE_BACKEND" envDefault:"json"`
	StateFilePath   string       `env:"STATE_FILE_PATH" envDefault:"data/chat_history.json"`
	StateDBPath     string       `env:"STATE_DB_PATH" envDefault:"data/chat_history.db"`
	StrictStateLoad bool         `env:"STRICT_STATE_LOAD" envDefault:"true"`
	LogFilePath     string       `env:"LOG_FILE_PATH" envDefault:"logs/log.jsonl"`

	// Operators
	OperatorsFilePath string   `env:"OPERATORS_FILE_PATH" envDefault:"data/operators.json"`
	Operators         []string `env:"OPERATORS" envSeparator:":"`

	// Delivery and background work
	AttachmentThreshold int    `env:"ATTACHMENT_THRESHOLD" envDefault:"2000"`
	DeleteWindow        int    `env:"DELETE_WINDOW" envDefault:"100"`
	TaskWorkers         int    `env:"TASK_WORKERS" envDefault:"2"`
	PersistSchedule     string `env:"PERSIST_SCHEDULE" envDefault:"@every 5m"`
	ReportSchedule      string `env:"REPORT_SCHEDULE" envDefault:"0 21 * * *"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
}

// New parses the environment into a Config and validates it for serving.
func New() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.validatePlatform(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load is New without the platform credential checks, for offline tools.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validateLocal(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := c.validateLocal(); err != nil {
		return err
	}
	return c.validatePlatform()
}

func (c *Config) validatePlatform() error {
	switch c.Platform {
	case PlatformDiscord:
		if c.DiscordToken == "" {
			return fmt.Errorf("DISCORD_TOKEN is required for platform %s", c.Platform)
		}
	case PlatformTelegram:
		if c.TelegramBotToken == "" {
			return fmt.Errorf("TELEGRAM_BOT_TOKEN is required for platform %s", c.Platform)
		}
	}
	return nil
}

func (c *Config) validateLocal() error {
	c.Platform = Platform(strings.ToLower(strings.TrimSpace(string(c.Platform))))
	switch c.Platform {
	case PlatformDiscord, PlatformTelegram:
	default:
		return fmt.Errorf("unknown platform: %s", c.Platform)
	}

	switch c.StateBackend {
	case StateJSON, StateSQLite:
	default:
		return fmt.Errorf("unknown state backend: %s", c.StateBackend)
	}

	if c.AttachmentThreshold <= 0 {
		return fmt.Errorf("ATTACHMENT_THRESHOLD must be positive, got %d", c.AttachmentThreshold)
	}
	if c.DeleteWindow <= 0 || c.DeleteWindow > MaxDeleteWindow {
		c.DeleteWindow = MaxDeleteWindow
	}
	if c.TaskWorkers <= 0 {
		c.TaskWorkers = 1
	}
	return nil
}
