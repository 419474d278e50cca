package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
)

// Config is the complete, immutable process configuration. It is built once
// by Load and passed by value to the components that need a section of it.
type Config struct {
	Server    Server
	Log       Log
	OIDC      OIDC
	Session   Session
	Kube      Kube
	RateLimit RateLimit
}

// Load reads the configuration from the environment. Variables found in the
// optional dotenv files seed the environment without overriding it.
func Load(dotenvFiles ...string) (Config, error) {
	if len(dotenvFiles) == 0 {
		dotenvFiles = []string{".env"}
	}
	for _, f := range dotenvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("[config Load] %s: %w", f, err)
		}
	}

	c := Config{
		Server: loadServer(),
		Log:    loadLog(),
		Kube:   loadKube(),
	}

	var err error
	if c.OIDC, err = loadOIDC(); err != nil {
		return Config{}, fmt.Errorf("[config Load] %w", err)
	}
	if c.Session, err = loadSession(); err != nil {
		return Config{}, fmt.Errorf("[config Load] %w", err)
	}
	if c.RateLimit, err = loadRateLimit(); err != nil {
		return Config{}, fmt.Errorf("[config Load] %w", err)
	}
	return c, nil
}

func (c Config) Validate() error {
	if err := c.OIDC.Validate(); err != nil {
		return err
	}
	if err := c.Session.Validate(); err != nil {
		return err
	}
	return c.RateLimit.Validate()
}
