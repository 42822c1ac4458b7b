package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderDummy     = "dummy"

	MaxExampleCount = 100

	DefaultDatasetURL = "https://f004.backblazeb2.com/file/aaronbergman-public/tweet_data_final_v1_filtered_2cols.csv"
)

// DefaultSystemPrompt is the instruction sent with every generation request
// unless NOTES_SYSTEM_PROMPT or NOTES_SYSTEM_PROMPT_FILE overrides it.
const DefaultSystemPrompt = `You are an AI assistant trained to help expand the reach of Community Notes on X (formerly Twitter) by providing helpful, informative, and accurate context to posts that might be misleading or missing important context.

Your goal is to write notes that people from different points of view would find helpful. Focus on accuracy and factual information, providing sources when possible.

Key guidelines:
- Respond with "NNN" (No Note Needed) for posts that don't require additional context
- Do not correct obvious satire or jokes - respond with "NNN"
- Provide accurate, high-quality information with reliable sources
- Be informative and help users better understand the subject matter
- Write notes that would be helpful to people across different viewpoints
- Stay neutral and focus on facts rather than opinions
- Avoid partisan language or taking sides on controversial issues
- Only add context when it meaningfully improves understanding

If you're unsure about the accuracy of information, err on the side of caution.`

// Config holds configuration for the assistant binaries.
type Config struct {
	ModelProvider       string
	AnthropicAPIKey     string
	AnthropicModel      string
	OpenAIAPIKey        string
	OpenAIBaseURL       string
	OpenAIModel         string
	DummyProviderScript string
	SystemPrompt        string
	MaxTokens           int
	RequestTimeout      time.Duration
	DatasetURL          string
	DatasetPath         string
	DBPath              string
	ExampleCount        int
	Seed                uint64
	Port                string
}

// Load reads configuration from environment variables and validates it.
func Load() (Config, error) {
	systemPrompt := envOrDefault("NOTES_SYSTEM_PROMPT", DefaultSystemPrompt)
	if path := os.Getenv("NOTES_SYSTEM_PROMPT_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("NOTES_SYSTEM_PROMPT_FILE: %w", err)
		}
		systemPrompt = string(data)
	}

	seed, err := strconv.ParseUint(envOrDefault("NOTES_SEED", "0"), 10, 64)
	if err != nil {
		return Config{}, fmt.Errorf("NOTES_SEED must be a non-negative integer: %w", err)
	}

	cfg := Config{
		ModelProvider:       strings.ToLower(envOrDefault("NOTES_MODEL_PROVIDER", ProviderAnthropic)),
		AnthropicAPIKey:     os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:      envOrDefault("ANTHROPIC_MODEL", "claude-3-7-sonnet-latest"),
		OpenAIAPIKey:        os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:       envOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1/"),
		OpenAIModel:         envOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		DummyProviderScript: envOrDefault("NOTES_DUMMY_PROVIDER_SCRIPT", "msg:NNN"),
		SystemPrompt:        systemPrompt,
		MaxTokens:           envIntOrDefault("NOTES_MAX_TOKENS", 1024),
		RequestTimeout:      time.Duration(envIntOrDefault("NOTES_REQUEST_TIMEOUT_SECONDS", 60)) * time.Second,
		DatasetURL:          envOrDefault("NOTES_DATASET_URL", DefaultDatasetURL),
		DatasetPath:         os.Getenv("NOTES_DATASET_PATH"),
		DBPath:              envOrDefault("NOTES_DB_PATH", "./data/notes.db"),
		ExampleCount:        envIntOrDefault("NOTES_EXAMPLE_COUNT", 5),
		Seed:                seed,
		Port:                envOrDefault("PORT", "8080"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks provider credentials and numeric bounds.
func (c Config) Validate() error {
	switch c.ModelProvider {
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required in environment when NOTES_MODEL_PROVIDER=anthropic")
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required in environment when NOTES_MODEL_PROVIDER=openai")
		}
	case ProviderDummy:
	default:
		return fmt.Errorf("NOTES_MODEL_PROVIDER must be one of anthropic, openai, dummy; got %q", c.ModelProvider)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("NOTES_MAX_TOKENS must be > 0")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("NOTES_REQUEST_TIMEOUT_SECONDS must be > 0")
	}
	if c.ExampleCount < 0 || c.ExampleCount > MaxExampleCount {
		return fmt.Errorf("NOTES_EXAMPLE_COUNT must be between 0 and %d", MaxExampleCount)
	}
	if strings.TrimSpace(c.SystemPrompt) == "" {
		return fmt.Errorf("system prompt must not be empty")
	}
	return nil
}

// ClampExampleCount bounds n to the accepted example range.
func ClampExampleCount(n int) int {
	if n < 0 {
		return 0
	}
	if n > MaxExampleCount {
		return MaxExampleCount
	}
	return n
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOrDefault(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
