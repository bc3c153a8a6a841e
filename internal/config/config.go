package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v6"
)

type LLMProvider string

const (
	ProviderOpenAI LLMProvider = "openai"
	ProviderYandex LLMProvider = "yandex"
)

type Config struct {
	ListenPort int `env:"LISTEN_PORT" envDefault:"8787"`

	// LLM settings
	LLMProvider      LLMProvider `env:"LLM_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey     string      `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string      `env:"OPENAI_BASE_URL"`
	OpenAIModel      string      `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	YandexOAuthToken string      `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID   string      `env:"YANDEX_FOLDER_ID"`

	// OpenRouter (optional)
	OpenRouterReferrer string `env:"OPENROUTER_REFERRER"`
	OpenRouterTitle    string `env:"OPENROUTER_TITLE"`

	// Auth
	TokenSecret string        `env:"TOKEN_SECRET,required"`
	TokenTTL    time.Duration `env:"TOKEN_TTL" envDefault:"24h"`

	// Storage
	UsersFilePath   string `env:"USERS_FILE_PATH" envDefault:"data/users.json"`
	JournalFilePath string `env:"JOURNAL_FILE_PATH" envDefault:"data/journal.jsonl"`

	// Bootstrap users as username:secret pairs, seeded into the store on
	// startup so a fresh deployment can log in.
	BootstrapUsers []string `env:"BOOTSTRAP_USERS" envSeparator:","`

	// Sessions
	DefaultLanguage string        `env:"DEFAULT_LANGUAGE" envDefault:"en"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"45s"`

	// Scheduler
	DigestHourUTC int `env:"DIGEST_HOUR_UTC" envDefault:"21"`
}

func New() *Config {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	return cfg
}
