// Package auth sources the site credentials used for login.
package auth

import (
	"errors"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	usernameVar = "CDP_USERNAME"
	passwordVar = "CDP_PASSWORD"
)

// ErrMissingCredentials indicates one or both credential variables are unset.
// This is a fatal precondition: no browser or folder work can proceed.
var ErrMissingCredentials = errors.New("credentials not found: set " + usernameVar + " and " + passwordVar + " in the environment or a .env file")

// Credentials holds the login identity for the target site.
type Credentials struct {
	Username string
	Password string
}

// Load retrieves credentials from the environment, first loading the .env
// file at envPath if it exists (empty envPath tries the default locations).
// Environment variables already set take precedence over the .env file.
func Load(envPath string) (Credentials, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			log.Debug().Err(err).Str("path", envPath).Msg("No .env file loaded")
		}
	} else {
		// Ignore errors: a missing .env file is fine when the variables
		// are already exported.
		_ = godotenv.Load()
	}

	creds := Credentials{
		Username: os.Getenv(usernameVar),
		Password: os.Getenv(passwordVar),
	}

	if creds.Username == "" || creds.Password == "" {
		log.Error().Msg("Missing credentials")
		return Credentials{}, ErrMissingCredentials
	}

	log.Debug().Str("username", creds.Username).Msg("Credentials loaded")
	return creds, nil
}
