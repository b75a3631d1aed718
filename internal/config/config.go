package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env         string `mapstructure:"ENV"`
	Port        string `mapstructure:"PORT"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	CORSAllowed string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	AdminKey    string `mapstructure:"ADMIN_KEY"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	HelpdeskBaseURL string `mapstructure:"HELPDESK_BASE_URL"`
	HelpdeskAPIKey  string `mapstructure:"HELPDESK_API_KEY"`

	RateLimitOverall int           `mapstructure:"RATE_LIMIT_OVERALL"`
	RateLimitTickets int           `mapstructure:"RATE_LIMIT_TICKETS"`
	RetryMaxAttempts int           `mapstructure:"RETRY_MAX_ATTEMPTS"`
	RetryBaseDelay   time.Duration `mapstructure:"RETRY_BASE_DELAY"`

	// Which department's agents appear on scorecards; deployment-specific.
	ScoringDepartment string `mapstructure:"SCORING_DEPARTMENT"`
	// Comma-separated override for the account-lifecycle exclusion list.
	ExcludedKeywords string `mapstructure:"EXCLUDED_KEYWORDS"`
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("RATE_LIMIT_OVERALL", 100)
	v.SetDefault("RATE_LIMIT_TICKETS", 70)
	v.SetDefault("RETRY_MAX_ATTEMPTS", 3)
	v.SetDefault("RETRY_BASE_DELAY", "5s")
	v.SetDefault("SCORING_DEPARTMENT", "IT")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// KeywordList splits the configured exclusion override. Empty when unset;
// the service then falls back to its built-in vocabulary.
func (c Config) KeywordList() []string {
	if strings.TrimSpace(c.ExcludedKeywords) == "" {
		return nil
	}
	parts := strings.Split(c.ExcludedKeywords, ",")
	keywords := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			keywords = append(keywords, p)
		}
	}
	return keywords
}
