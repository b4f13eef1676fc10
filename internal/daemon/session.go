package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/haven-app/haven/internal/remote"
)

// Session is the signed-in state written by whatever performs sign-in. A
// missing file or an empty endpoint means signed out.
//
//	endpoint   = "libsql://family.turso.io"
//	credential = "..."
//	owner      = "3f0c..."
type Session struct {
	Endpoint   string `toml:"endpoint"`
	Credential string `toml:"credential"`
	Owner      string `toml:"owner"`
}

// SignedIn reports whether the session names a remote.
func (s Session) SignedIn() bool {
	return strings.TrimSpace(s.Endpoint) != ""
}

// Config converts the session to a remote config.
func (s Session) Config() remote.Config {
	return remote.Config{
		Endpoint:   strings.TrimSpace(s.Endpoint),
		Credential: strings.TrimSpace(s.Credential),
		Owner:      strings.TrimSpace(s.Owner),
	}
}

// ReadSession parses the session file. A missing file is a signed-out
// session, not an error.
func ReadSession(path string) (Session, error) {
	var s Session
	if _, err := toml.DecodeFile(path, &s); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Session{}, nil
		}
		return Session{}, fmt.Errorf("failed to parse session file %s: %w", path, err)
	}
	return s, nil
}

// WriteSession writes s to path, replacing any previous session.
func WriteSession(path string, s Session) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(s); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return os.Rename(tmp, path)
}
