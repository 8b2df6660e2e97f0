package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	SQLite   SQLiteConfig
	Redis    RedisConfig
	AI       AIConfig
	Matching MatchingConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	TTLSec   int
}

type AIConfig struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	TimeoutSec  int
}

// MatchingConfig carries the tunable matcher and coverage constants. The
// defaults mirror the confidence bands the review UI displays and should be
// recalibrated against real library data.
type MatchingConfig struct {
	ScoreThreshold        float64
	KeywordWeight         float64
	NameWeight            float64
	CategoryWeight        float64
	ControlCoverageScore  float64
	ControlCoverageCount  int
	SupportCoverageScore  float64
	SupportCoverageCount  int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/buildsafe")

	viper.SetEnvPrefix("BUILDSAFE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 30)
	viper.SetDefault("server.bodyLimit", 1048576)

	viper.SetDefault("sqlite.path", "./data/buildsafe.db")

	viper.SetDefault("redis.enabled", true)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.ttlSec", 300)

	viper.SetDefault("ai.model", "gpt-4")
	viper.SetDefault("ai.temperature", 0.3)
	viper.SetDefault("ai.maxTokens", 1024)
	viper.SetDefault("ai.timeoutSec", 8)

	viper.SetDefault("matching.scoreThreshold", 0.15)
	viper.SetDefault("matching.keywordWeight", 0.6)
	viper.SetDefault("matching.nameWeight", 0.3)
	viper.SetDefault("matching.categoryWeight", 0.1)
	viper.SetDefault("matching.controlCoverageScore", 0.4)
	viper.SetDefault("matching.controlCoverageCount", 2)
	viper.SetDefault("matching.supportCoverageScore", 0.25)
	viper.SetDefault("matching.supportCoverageCount", 1)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
