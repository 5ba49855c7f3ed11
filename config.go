package cfddns

import (
	"errors"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v8"
)

// Config identifies the Cloudflare account and the name to keep up to date.
type Config struct {
	AuthEmail string `env:"CF_AUTH_EMAIL"`
	AuthKey   string `env:"CF_API_TOKEN"`
	Domain    string `env:"CF_DOMAIN"`
}

// ConfigFromEnv reads CF_AUTH_EMAIL, CF_API_TOKEN and CF_DOMAIN.
// Unset variables are left empty so other sources can fill them; call Validate afterwards.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("error reading configuration from environment: %w", err)
	}
	return cfg, nil
}

// Validate reports every missing or malformed value.
func (c Config) Validate() error {
	var errs []error
	if c.AuthEmail == "" {
		errs = append(errs, errors.New("auth email cannot be empty (CF_AUTH_EMAIL)"))
	}
	if c.AuthKey == "" {
		errs = append(errs, errors.New("API key cannot be empty (CF_API_TOKEN or key file)"))
	}
	switch {
	case c.Domain == "":
		errs = append(errs, errors.New("domain cannot be empty (CF_DOMAIN or -d)"))
	case !strings.Contains(strings.TrimSuffix(c.Domain, "."), "."):
		errs = append(errs, fmt.Errorf("domain %q must have at least one dot", c.Domain))
	}
	return errors.Join(errs...)
}

// String hides the API key.
func (c Config) String() string {
	return fmt.Sprintf("{AuthEmail:%s AuthKey:<redacted> Domain:%s}", c.AuthEmail, c.Domain)
}
