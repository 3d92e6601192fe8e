package cmd

import (
	"errors"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "skillmap"
)

type Config struct {
	Repository string            `mapstructure:"repository"`
	Store      string            `mapstructure:"store"`
	Embeddings *EmbeddingsConfig `mapstructure:"embeddings"`
	Scoring    *ScoringConfig    `mapstructure:"scoring"`
	AI         *AIConfig         `mapstructure:"ai"`
}

type EmbeddingsConfig struct {
	Provider  string `mapstructure:"provider"`
	Model     string `mapstructure:"model"`
	BaseURL   string `mapstructure:"base-url"`
	APIKey    string `mapstructure:"api-key"`
	BatchSize int    `mapstructure:"batch-size"`
	Workers   int    `mapstructure:"workers"`
}

type ScoringConfig struct {
	MissingThreshold *float64 `mapstructure:"missing-threshold"`
	JobPolicy        string   `mapstructure:"job-policy"`
	TopJobs          int      `mapstructure:"top-jobs"`
}

type AIConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	EnrichMinWords int           `mapstructure:"enrich-min-words"`
	Cache          bool          `mapstructure:"cache"`
	Gemini         *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "skillmap maps free-text skill descriptions onto a competency taxonomy and ranks matching jobs",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("repository", "SKILLMAP_REPOSITORY"); err != nil {
		log.Fatalf("binding SKILLMAP_REPOSITORY environment variable: %v", err)
	}
	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	viper.SetDefault("repository", "data/repository.json")
	viper.SetDefault("store", "models_cache/skillmap")
	viper.SetDefault("embeddings.provider", "openai")
	viper.SetDefault("embeddings.batch-size", 32)
	viper.SetDefault("scoring.top-jobs", 3)
	viper.SetDefault("ai.cache", true)

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is skillmap.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Config is needed only for analyze and encode.
	if analyzeCmd.CalledAs() == "" && encodeCmd.CalledAs() == "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		// Without an explicit file the defaults are good enough.
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config.Embeddings == nil {
		config.Embeddings = &EmbeddingsConfig{}
	}
	if config.Scoring == nil {
		config.Scoring = &ScoringConfig{}
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.AI.Gemini == nil {
		config.AI.Gemini = &GeminiConfig{}
	}

	return config, nil
}
