package config

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds the application configuration. Every game constant has a
// default and can be overridden through the environment or a .env file.
type Config struct {
	Addr           string `mapstructure:"ADDR"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`

	MaxRounds         int           `mapstructure:"MAX_ROUNDS"`
	RoundTime         time.Duration `mapstructure:"ROUND_TIME"`
	NextRoundDelay    time.Duration `mapstructure:"NEXT_ROUND_DELAY"`
	EmptyRoomGrace    time.Duration `mapstructure:"EMPTY_ROOM_GRACE"`
	DefaultTheme      string        `mapstructure:"DEFAULT_THEME"`
	DefaultDifficulty string        `mapstructure:"DEFAULT_DIFFICULTY"`
	DefaultNumPrompts int           `mapstructure:"DEFAULT_NUM_PROMPTS"`

	CohereAPIKey      string        `mapstructure:"COHERE_API_KEY"`
	CohereModel       string        `mapstructure:"COHERE_MODEL"`
	CohereURL         string        `mapstructure:"COHERE_URL"`
	GenerationTimeout time.Duration `mapstructure:"GENERATION_TIMEOUT"`
}

// Load reads configuration from a .env file and the environment.
func Load() (*Config, error) {
	viper.AddConfigPath(".")
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	viper.SetDefault("ADDR", ":5000")
	viper.SetDefault("ALLOWED_ORIGINS", "")
	viper.SetDefault("MAX_ROUNDS", 15)
	viper.SetDefault("ROUND_TIME", 10*time.Second)
	viper.SetDefault("NEXT_ROUND_DELAY", 2*time.Second)
	viper.SetDefault("EMPTY_ROOM_GRACE", 10*time.Second)
	viper.SetDefault("DEFAULT_THEME", "general")
	viper.SetDefault("DEFAULT_DIFFICULTY", "easy")
	viper.SetDefault("DEFAULT_NUM_PROMPTS", 10)
	viper.SetDefault("COHERE_MODEL", "command-a-03-2025")
	viper.SetDefault("COHERE_URL", "")
	viper.SetDefault("GENERATION_TIMEOUT", 30*time.Second)

	if err := viper.ReadInConfig(); err != nil {
		log.Warn().Msg(".env file not found, loading from environment variables")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Origins splits the comma-separated allowed origins list.
func (c *Config) Origins() []string {
	if c.AllowedOrigins == "" {
		return nil
	}
	parts := strings.Split(c.AllowedOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
