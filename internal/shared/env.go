package shared

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Credentials holds the secrets for both services, read from the environment.
type Credentials struct {
	SpotifyClientID     string `envconfig:"SPOTIFY_APP_ID"`
	SpotifyClientSecret string `envconfig:"SPOTIFY_APP_SECRET"`
	BandcampUsername    string `envconfig:"BANDCAMP_USERNAME"`
	BandcampToken       string `envconfig:"BANDCAMP_TOKEN"`
}

// LoadCredentials reads [Credentials] from the process environment.
//
// When envFile is non-empty and exists, its variables are loaded first without overriding variables already set.
func LoadCredentials(envFile string) (*Credentials, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: failed to load %s: %v", ErrInvalidConfig, envFile, err)
		}
	}

	var creds Credentials
	if err := envconfig.Process("", &creds); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return &creds, nil
}

// RequireSpotify fails when either Spotify variable is unset.
func (c *Credentials) RequireSpotify() error {
	return requireVars(map[string]string{
		"SPOTIFY_APP_ID":     c.SpotifyClientID,
		"SPOTIFY_APP_SECRET": c.SpotifyClientSecret,
	})
}

// RequireBandcamp fails when either Bandcamp variable is unset.
func (c *Credentials) RequireBandcamp() error {
	return requireVars(map[string]string{
		"BANDCAMP_USERNAME": c.BandcampUsername,
		"BANDCAMP_TOKEN":    c.BandcampToken,
	})
}

func requireVars(vars map[string]string) error {
	var missing []string
	for _, name := range []string{"SPOTIFY_APP_ID", "SPOTIFY_APP_SECRET", "BANDCAMP_USERNAME", "BANDCAMP_TOKEN"} {
		if value, ok := vars[name]; ok && strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: set %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return nil
}
