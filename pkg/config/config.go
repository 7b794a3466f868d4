/*
Package config loads and validates process configuration from a .env
file and/or the environment, using cleanenv for parsing and
go-playground/validator for struct-tag validation.
*/
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
)

// Load reads cfg's `env`-tagged fields from .env (if present) or the
// process environment, then validates the populated struct.
func Load[T any](cfg *T) error {
	if err := cleanenv.ReadConfig(".env", cfg); err != nil {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return fmt.Errorf("failed to read env config: %w", err)
		}
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	return nil
}
