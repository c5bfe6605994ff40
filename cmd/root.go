package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"math"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/resume-fit/internal/ai/gemini"
	"github.com/spigell/resume-fit/internal/ai/ollama"
	"github.com/spigell/resume-fit/internal/ai/openai"
	"github.com/spigell/resume-fit/internal/cache"
	"github.com/spigell/resume-fit/internal/secrets"
	"github.com/spigell/resume-fit/internal/workflow"
)

const (
	app = "resume-fit"

	cacheBackendFile = "file"
	cacheBackendS3   = "s3"
)

var errUnknownBackend = errors.New("unknown AI_BACKEND")

type Config struct {
	AI      *AIConfig      `mapstructure:"ai"`
	Prompts *PromptsConfig `mapstructure:"prompts"`
	Gaps    *GapsConfig    `mapstructure:"gaps"`
	Batch   *BatchConfig   `mapstructure:"batch"`
	Cache   *CacheConfig   `mapstructure:"cache"`
}

type AIConfig struct {
	Backend        string        `mapstructure:"backend"`
	RequestTimeout time.Duration `mapstructure:"request-timeout"`
	MaxLogLength   int           `mapstructure:"max-log-length"`
	OpenAI         *OpenAIConfig `mapstructure:"openai"`
	Ollama         *OllamaConfig `mapstructure:"ollama"`
	Gemini         *GeminiConfig `mapstructure:"gemini"`
}

type OpenAIConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	BaseURL    string `mapstructure:"base-url"`
	Model      string `mapstructure:"model"`
}

type OllamaConfig struct {
	Host  string `mapstructure:"host"`
	Model string `mapstructure:"model"`
}

type GeminiConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
}

type PromptsConfig struct {
	File string `mapstructure:"file"`
}

type GapsConfig struct {
	Threshold float64 `mapstructure:"threshold"`
}

type BatchConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

type CacheConfig struct {
	Enabled bool           `mapstructure:"enabled"`
	Backend string         `mapstructure:"backend"`
	Dir     string         `mapstructure:"dir"`
	S3      cache.S3Config `mapstructure:"s3"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "resume-fit scores a resume against job postings with an LLM and suggests improvements",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

var envBindings = map[string]string{
	"ai.backend":             "AI_BACKEND",
	"ai.openai.api-key":      "OPENAI_API_KEY",
	"ai.openai.api-key-file": "OPENAI_API_KEY_FILE",
	"ai.openai.base-url":     "OPENAI_BASE_URL",
	"ai.ollama.host":         "OLLAMA_HOST",
	"ai.gemini.api-key":      "GEMINI_API_KEY",
	"ai.gemini.api-key-file": "GEMINI_API_KEY_FILE",
}

func init() {
	if err := bindEnv(viper.GetViper()); err != nil {
		log.Fatal(err)
	}

	setDefaults(viper.GetViper())

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is resume-fit.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().Bool("json", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func bindEnv(v *viper.Viper) error {
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("binding %s environment variable: %w", env, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ai.backend", openai.Provider)
	v.SetDefault("ai.request-timeout", workflow.DefaultRequestTimeout)
	v.SetDefault("ai.max-log-length", 200)
	v.SetDefault("ai.openai.model", openai.DefaultModel)
	v.SetDefault("ai.ollama.host", ollama.DefaultHost)
	v.SetDefault("ai.ollama.model", ollama.DefaultModel)
	v.SetDefault("ai.gemini.model", gemini.DefaultModel)
	v.SetDefault("gaps.threshold", workflow.DefaultGapThreshold)
	v.SetDefault("batch.concurrency", workflow.DefaultConcurrency)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.backend", cacheBackendFile)
	v.SetDefault("cache.dir", cache.DefaultDir)
}

func initConfig() {
	// .env is optional; variables already set in the environment win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config == nil {
		return nil, errors.New("empty configuration")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate normalizes the configuration and resolves the credentials of the
// selected backend.
func (c *Config) Validate() error {
	if c.AI == nil {
		return errors.New("ai configuration is required")
	}
	if c.AI.OpenAI == nil {
		c.AI.OpenAI = &OpenAIConfig{}
	}
	if c.AI.Ollama == nil {
		c.AI.Ollama = &OllamaConfig{}
	}
	if c.AI.Gemini == nil {
		c.AI.Gemini = &GeminiConfig{}
	}
	if c.Prompts == nil {
		c.Prompts = &PromptsConfig{}
	}
	if c.Gaps == nil {
		c.Gaps = &GapsConfig{}
	}
	if c.Batch == nil {
		c.Batch = &BatchConfig{}
	}
	if c.Cache == nil {
		c.Cache = &CacheConfig{}
	}

	c.AI.Backend = strings.ToLower(strings.TrimSpace(c.AI.Backend))
	switch c.AI.Backend {
	case openai.Provider:
		key, err := secrets.Load(secrets.Source{
			Name:  "openai api key",
			Value: c.AI.OpenAI.APIKey,
			File:  c.AI.OpenAI.APIKeyFile,
			Hint:  "set OPENAI_API_KEY or OPENAI_API_KEY_FILE",
		})
		if err != nil {
			return err
		}
		c.AI.OpenAI.APIKey = key
	case gemini.Provider:
		key, err := secrets.Load(secrets.Source{
			Name:  "gemini api key",
			Value: c.AI.Gemini.APIKey,
			File:  c.AI.Gemini.APIKeyFile,
			Hint:  "set GEMINI_API_KEY or GEMINI_API_KEY_FILE",
		})
		if err != nil {
			return err
		}
		c.AI.Gemini.APIKey = key
	case ollama.Provider:
	default:
		return fmt.Errorf("%w: %q, must be one of %s, %s, %s",
			errUnknownBackend, c.AI.Backend, openai.Provider, ollama.Provider, gemini.Provider)
	}

	if c.AI.RequestTimeout < 0 {
		return fmt.Errorf("ai.request-timeout must not be negative")
	}
	if c.Gaps.Threshold < 0 || math.IsNaN(c.Gaps.Threshold) {
		return fmt.Errorf("gaps.threshold must not be negative")
	}
	if c.Batch.Concurrency < 0 {
		return fmt.Errorf("batch.concurrency must not be negative")
	}

	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	if c.Cache.Enabled {
		switch c.Cache.Backend {
		case "", cacheBackendFile:
			c.Cache.Backend = cacheBackendFile
		case cacheBackendS3:
			if strings.TrimSpace(c.Cache.S3.Bucket) == "" {
				return errors.New("cache.s3.bucket is required for the s3 cache backend")
			}
		default:
			return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
		}
	}

	return nil
}

// workflowConfig maps the relevant settings onto the workflow services.
func (c *Config) workflowConfig() workflow.Config {
	return workflow.Config{
		RequestTimeout: c.AI.RequestTimeout,
		GapThreshold:   c.Gaps.Threshold,
		Concurrency:    c.Batch.Concurrency,
	}
}
