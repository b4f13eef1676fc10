package remote

import (
	"fmt"
	"net/url"
	"strings"
)

// PublicOwner is the owner used when no signed-in identity is known, so that
// anonymous installs can share one remote database.
const PublicOwner = "00000000-0000-0000-0000-000000000000"

// Config locates and authenticates against a remote database. It is the
// value persisted under the remote_config key and the content of a session
// file.
type Config struct {
	Endpoint   string `json:"endpoint" toml:"endpoint" yaml:"endpoint"`
	Credential string `json:"credential" toml:"credential" yaml:"credential"`
	Owner      string `json:"owner,omitempty" toml:"owner" yaml:"owner,omitempty"`
}

// Validate checks that the endpoint is a supported URL and that network
// endpoints carry a credential.
func (c Config) Validate() error {
	endpoint := strings.TrimSpace(c.Endpoint)
	if endpoint == "" {
		return fmt.Errorf("%w: endpoint is required", ErrInvalidConfig)
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("%w: endpoint %q: %v", ErrInvalidConfig, endpoint, err)
	}

	switch u.Scheme {
	case "file":
		return nil
	case "libsql", "https", "http", "wss", "ws":
		if u.Host == "" {
			return fmt.Errorf("%w: endpoint %q has no host", ErrInvalidConfig, endpoint)
		}
		if strings.TrimSpace(c.Credential) == "" {
			return fmt.Errorf("%w: credential is required for %s endpoints", ErrInvalidConfig, u.Scheme)
		}
		return nil
	default:
		return fmt.Errorf("%w: unsupported endpoint scheme %q", ErrInvalidConfig, u.Scheme)
	}
}

// OwnerOrPublic returns the configured owner or PublicOwner.
func (c Config) OwnerOrPublic() string {
	if strings.TrimSpace(c.Owner) == "" {
		return PublicOwner
	}
	return c.Owner
}

// DSN returns the database/sql driver name and data source for the endpoint.
// file: endpoints use the embedded SQLite driver; everything else goes
// through libSQL with the credential as auth token.
func (c Config) DSN() (driver, dsn string, err error) {
	if err := c.Validate(); err != nil {
		return "", "", err
	}

	endpoint := strings.TrimSpace(c.Endpoint)
	u, _ := url.Parse(endpoint)
	if u.Scheme == "file" {
		return "sqlite3", endpoint, nil
	}

	q := u.Query()
	q.Set("authToken", c.Credential)
	u.RawQuery = q.Encode()
	return "libsql", u.String(), nil
}

// Redacted returns the endpoint with any credential removed, for logs.
func (c Config) Redacted() string {
	u, err := url.Parse(strings.TrimSpace(c.Endpoint))
	if err != nil {
		return "<invalid endpoint>"
	}
	u.User = nil
	u.RawQuery = ""
	return u.String()
}
