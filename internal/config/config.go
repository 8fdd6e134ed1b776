package config

import (
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	sslModeDisable = "disable"
	sslModeRequire = "require"
)

type (
	Config struct {
		Host          string `mapstructure:"HOST"`
		Port          string `mapstructure:"PORT"`
		DBHost        string `mapstructure:"DB_HOST"`
		DBPort        string `mapstructure:"DB_PORT"`
		DBUser        string `mapstructure:"DB_USER"`
		DBPassword    string `mapstructure:"DB_PASSWORD"`
		DBName        string `mapstructure:"DB_NAME"`
		DBSSLMode     string `mapstructure:"DB_SSL_MODE"`
		JWTSecret     string `mapstructure:"JWT_SECRET"`
		TokenTTLHours int    `mapstructure:"TOKEN_TTL_HOURS"`
		CORSOrigin    string `mapstructure:"CORS_ORIGIN"`
	}
)

func NewConfig() (*Config, error) {
	viper.SetEnvPrefix("BIBLIOTECA")

	viper.SetDefault("HOST", "0.0.0.0")
	viper.SetDefault("PORT", "1323")
	viper.SetDefault("DB_HOST", "0.0.0.0")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "db")
	viper.SetDefault("DB_SSL_MODE", sslModeDisable)
	viper.SetDefault("JWT_SECRET", "")
	viper.SetDefault("TOKEN_TTL_HOURS", 24)
	viper.SetDefault("CORS_ORIGIN", "*")

	envs := []string{
		"HOST", "PORT",
		"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSL_MODE",
		"JWT_SECRET", "TOKEN_TTL_HOURS", "CORS_ORIGIN",
	}
	for _, key := range envs {
		if err := viper.BindEnv(key); err != nil {
			return nil, err
		}
	}

	cfg := Config{}
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	sslValid := false
	for _, validValue := range []string{sslModeDisable, sslModeRequire} {
		if cfg.DBSSLMode == validValue {
			sslValid = true
			break
		}
	}
	if !sslValid {
		return errors.Errorf("DB SSL mode is invalid: %s", cfg.DBSSLMode)
	}

	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	if cfg.TokenTTLHours <= 0 {
		return errors.Errorf("token TTL is invalid: %d", cfg.TokenTTLHours)
	}

	return nil
}
