// Package config loads typed configuration from environment variables.
//
// Struct fields are bound with github.com/caarlos0/env/v11 tags; a .env file in
// the working directory is loaded through github.com/joho/godotenv before the
// first parse and never overrides variables that are already set. Each type is
// parsed once and cached. Types implementing Validator are checked after parsing.
//
//	type Config struct {
//		Env   string `env:"APP_ENV" envDefault:"development"`
//		Admin string `env:"ADMIN_TOKEN,required"`
//	}
//
//	var cfg Config
//	config.MustLoad(&cfg)
package config
