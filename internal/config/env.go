package config

import (
	"errors"

	"github.com/joho/godotenv"
)

// loadEnvFile loads environment variables from the first of .env/.env.local
// that parses. Existing process environment variables are not overwritten.
func loadEnvFile() error {
	for _, envPath := range []string{".env", ".env.local"} {
		if err := godotenv.Load(envPath); err == nil {
			return nil
		}
	}
	return errors.New("no .env file found")
}
