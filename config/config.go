package config

import (
	"fmt"
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	Database struct {
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
	} `mapstructure:"database"`
	Redis struct {
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		Password string `mapstructure:"password"`
	} `mapstructure:"redis"`
	Server struct {
		Port string `mapstructure:"port"`
	} `mapstructure:"server"`
	JWT JWTConfig `mapstructure:"jwt"`
}

// JWTConfig holds the token signing settings. It is passed explicitly into
// the token issuer and validator at construction time; nothing reads it from
// the global config after startup.
type JWTConfig struct {
	Issuer                     string `mapstructure:"issuer"`
	Audience                   string `mapstructure:"audience"`
	SigningKey                 string `mapstructure:"signing_key"`
	AccessTokenLifetimeMinutes int    `mapstructure:"access_token_lifetime_minutes"`
	RefreshTokenLifetimeDays   int    `mapstructure:"refresh_token_lifetime_days"`
}

// Validate reports a configuration error for a missing or weak signing
// setup. A weak key is a deployment defect: the caller is expected to treat
// this as fatal rather than run insecurely.
func (c JWTConfig) Validate() error {
	if c.Issuer == "" {
		return fmt.Errorf("jwt issuer is not configured")
	}
	if c.Audience == "" {
		return fmt.Errorf("jwt audience is not configured")
	}
	if c.SigningKey == "" {
		return fmt.Errorf("jwt signing key is not configured")
	}
	if len(c.SigningKey) < 32 {
		return fmt.Errorf("jwt signing key must be at least 32 characters long")
	}
	return nil
}

var AppConfig Config

func LoadConfig(path string) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yml")

	viper.SetDefault("jwt.access_token_lifetime_minutes", 15)
	viper.SetDefault("jwt.refresh_token_lifetime_days", 7)

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file, %s", err)
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}
}
