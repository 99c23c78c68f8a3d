package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/huebackup/internal/bootstrap"
	"github.com/dokzlo13/huebackup/internal/config"
	"github.com/dokzlo13/huebackup/internal/hue"
	"github.com/dokzlo13/huebackup/internal/ledger"
	"github.com/dokzlo13/huebackup/internal/logging"
	"github.com/dokzlo13/huebackup/internal/prompt"
	"github.com/dokzlo13/huebackup/internal/store"
)

func TestSummary(t *testing.T) {
	corrupt := &store.CorruptError{Path: "/home/op/.huebackup/config.json", Err: errors.New("invalid character")}

	assert.Contains(t, Summary(fmt.Errorf("load: %w", corrupt)), "/home/op/.huebackup/config.json")
	assert.Equal(t, "Interrupted", Summary(context.Canceled))
	assert.Equal(t, "Backup failed", Summary(errors.New("disk full")))
	assert.Equal(t, "Registration with the bridge failed",
		Summary(fmt.Errorf("%w: connection refused", hue.ErrRegistration)))
	assert.Contains(t, Summary(fmt.Errorf("failed to load settings: %w", config.ErrInvalidSettings)), "settings file")
}

func TestNew_WiresHistory(t *testing.T) {
	paths := config.GetPaths(t.TempDir())

	a, err := New(config.Default(), paths, prompt.New(strings.NewReader("\n"), &bytes.Buffer{}))
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.db)
	require.NotNil(t, a.ledger)
	assert.NotEmpty(t, a.recorder.RunID())
	_, statErr := os.Stat(paths.History)
	assert.NoError(t, statErr)
}

func TestNew_HistoryDisabled(t *testing.T) {
	disabled := false
	cfg := config.Default()
	cfg.History.Enabled = &disabled

	a, err := New(cfg, config.GetPaths(t.TempDir()), prompt.New(strings.NewReader(""), &bytes.Buffer{}))
	require.NoError(t, err)
	assert.Nil(t, a.db)
	assert.Nil(t, a.recorder)
	assert.NoError(t, a.Close())
}

func TestRun_CorruptConfigRecordsNothing(t *testing.T) {
	var buf bytes.Buffer
	logging.Setup(logging.Options{JSON: true, Verbose: true, Out: &buf})
	defer logging.Setup(logging.Options{Out: io.Discard})

	paths := config.GetPaths(t.TempDir())
	require.NoError(t, os.MkdirAll(paths.Home, 0o755))
	require.NoError(t, os.WriteFile(paths.Bridge, []byte("{"), 0o600))

	a, err := New(config.Default(), paths, prompt.New(strings.NewReader(""), &bytes.Buffer{}))
	require.NoError(t, err)
	defer a.Close()

	result, err := a.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, bootstrap.StateNoConfig, result.State)

	entries, err := ledger.New(a.db.DB).GetByRun(a.recorder.RunID())
	require.NoError(t, err)
	assert.Empty(t, entries)

	var recorded map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var doc map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &doc))
		if doc["message"] == "Run recorded" {
			recorded = doc
		}
	}
	require.NotNil(t, recorded)
	assert.Equal(t, a.recorder.RunID(), recorded["run_id"])
	assert.Empty(t, recorded["events"])

	_, statErr := os.Stat(paths.Backups)
	assert.True(t, os.IsNotExist(statErr))
}
