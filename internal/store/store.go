// Package store persists the bridge identity and credential as a single JSON document.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dokzlo13/huebackup/internal/logging"
)

// Configuration is the stored bridge configuration.
// Address is set once discovery succeeded, UserName once registration succeeded.
type Configuration struct {
	Address        string         `json:"ipAddress"`
	Name           *string        `json:"name"`
	AdditionalInfo map[string]any `json:"additionalInfo"`
	UserName       *string        `json:"userName"`
}

// HasAddress reports whether a bridge address is known.
func (c *Configuration) HasAddress() bool {
	return c != nil && c.Address != ""
}

// HasCredential reports whether a registered user name is known.
func (c *Configuration) HasCredential() bool {
	return c != nil && c.UserName != nil && *c.UserName != ""
}

// Credential returns the user name or "".
func (c *Configuration) Credential() string {
	if !c.HasCredential() {
		return ""
	}
	return *c.UserName
}

// MergeIdentity copies a discovered bridge into the configuration.
// The credential is left untouched.
func (c *Configuration) MergeIdentity(address, name string, info map[string]any) {
	c.Address = address
	if name != "" {
		c.Name = &name
	} else {
		c.Name = nil
	}
	c.AdditionalInfo = info
}

// SetCredential records the registered user name.
func (c *Configuration) SetCredential(userName string) {
	c.UserName = &userName
}

// CorruptError is returned when the stored file exists but cannot be parsed.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("stored configuration %s is not valid JSON (check it with a JSON validator and fix or remove it by hand): %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error {
	return e.Err
}

// Store reads and writes the configuration file.
type Store struct {
	path string
	log  logging.Logger
}

// New creates a store backed by path.
func New(path string) *Store {
	return &Store{
		path: path,
		log:  logging.Named("store"),
	}
}

// Load reads the configuration. A missing file yields an empty configuration.
func (s *Store) Load() (*Configuration, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.log.Debug().Str("path", s.path).Msg("No stored configuration, starting empty")
		return &Configuration{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read stored configuration: %w", err)
	}

	var cfg Configuration
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &CorruptError{Path: s.path, Err: err}
	}

	s.log.Debug().
		Str("path", s.path).
		Str("address", cfg.Address).
		Bool("credential", cfg.HasCredential()).
		Msg("Loaded stored configuration")

	return &cfg, nil
}

// Save writes the whole configuration, creating the directory when needed.
func (s *Store) Save(cfg *Configuration) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create configuration directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}

	if err := os.WriteFile(s.path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}

	s.log.Debug().Str("path", s.path).Msg("Stored configuration saved")
	return nil
}
