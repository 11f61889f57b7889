package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/ginjaninja78/ledger-sql-migration/internal/types"
	"github.com/subosito/gotenv"
)

// Environment variable names read from the process or the dot-env file.
const (
	EnvDatabaseURL = "DESTINATION_DB_URL"
	EnvAPIKey      = "DESTINATION_API_KEY"
)

// Destination holds the credentials for read-only access to the destination
// database. The emitter never reads it.
type Destination struct {
	// DatabaseURL is a Postgres connection string.
	DatabaseURL string

	// APIKey is used as the password when DatabaseURL carries none.
	APIKey string
}

// LoadDestination reads the destination credentials. Process environment
// variables win over values from envFile; a missing envFile is not an error.
func LoadDestination(envFile string) (*Destination, error) {
	fileEnv := gotenv.Env{}
	if envFile != "" {
		env, err := gotenv.Read(envFile)
		switch {
		case err == nil:
			fileEnv = env
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, types.NewIOFailure("read env file", envFile, err)
		}
	}

	lookup := func(key string) string {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return strings.TrimSpace(fileEnv[key])
	}

	dest := &Destination{
		DatabaseURL: lookup(EnvDatabaseURL),
		APIKey:      lookup(EnvAPIKey),
	}
	if dest.DatabaseURL == "" {
		return nil, &types.ConfigError{Field: EnvDatabaseURL, Message: "is not set in the environment or " + envFile}
	}
	return dest, nil
}
