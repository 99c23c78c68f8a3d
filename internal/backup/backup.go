// Package backup writes snapshots of the bridge configuration to disk.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dokzlo13/huebackup/internal/hue"
	"github.com/dokzlo13/huebackup/internal/logging"
	"github.com/dokzlo13/huebackup/internal/store"
)

const (
	// FolderLayout names artifact folders; it sorts lexicographically by time.
	FolderLayout = "2006-01-02_15-04-05.000"
	// FileName is the snapshot file inside an artifact folder.
	FileName = "config.json"
)

// Fetcher reads the full configuration of one bridge.
type Fetcher interface {
	FullConfig(ctx context.Context) (json.RawMessage, error)
	Close() error
}

// FetcherFactory creates a Fetcher for a bridge address and user name.
type FetcherFactory func(address, userName string) Fetcher

// Writer creates backup artifacts under a root directory.
type Writer struct {
	root       string
	newFetcher FetcherFactory
	now        func() time.Time
	log        logging.Logger
}

// New creates a writer fetching through the Hue v1 API.
func New(root string, timeout time.Duration) *Writer {
	return NewWithFetcher(root, func(address, userName string) Fetcher {
		return hue.NewClient(address, userName, timeout)
	})
}

// NewWithFetcher creates a writer with a custom fetcher factory.
func NewWithFetcher(root string, factory FetcherFactory) *Writer {
	return &Writer{
		root:       root,
		newFetcher: factory,
		now:        time.Now,
		log:        logging.Named("backup"),
	}
}

// FolderName returns the artifact folder name for t (UTC, millisecond resolution).
func FolderName(t time.Time) string {
	return t.UTC().Format(FolderLayout)
}

// CreateBackup fetches the bridge configuration and writes it into a new
// timestamped folder. It returns the path of the written file.
func (w *Writer) CreateBackup(ctx context.Context, cfg *store.Configuration) (string, error) {
	dir := filepath.Join(w.root, FolderName(w.now()))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	fetcher := w.newFetcher(cfg.Address, cfg.Credential())
	defer fetcher.Close()

	raw, err := fetcher.FullConfig(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to fetch bridge configuration: %w", err)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		return "", fmt.Errorf("failed to format bridge configuration: %w", err)
	}
	pretty.WriteByte('\n')

	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, pretty.Bytes(), 0o600); err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}

	w.log.Info().Str("path", path).Msg("Backup written")
	return path, nil
}
