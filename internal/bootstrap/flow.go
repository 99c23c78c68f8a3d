// Package bootstrap drives a run from the stored configuration to a finished backup.
//
// A run moves through NoConfig → HaveAddress → HaveCredential and ends either
// with a backup or Abandoned. Abandoning is not an error: it happens when no bridge
// could be discovered or the link button was not pressed, and the operator is
// expected to fix the situation and run the tool again.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/dokzlo13/huebackup/internal/discovery"
	"github.com/dokzlo13/huebackup/internal/hue"
	"github.com/dokzlo13/huebackup/internal/ledger"
	"github.com/dokzlo13/huebackup/internal/logging"
	"github.com/dokzlo13/huebackup/internal/store"
)

// State is a step of the bootstrap state machine.
type State int

const (
	StateNoConfig State = iota
	StateHaveAddress
	StateHaveCredential
	StateAbandoned
)

func (s State) String() string {
	switch s {
	case StateNoConfig:
		return "no_config"
	case StateHaveAddress:
		return "have_address"
	case StateHaveCredential:
		return "have_credential"
	case StateAbandoned:
		return "abandoned"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// LinkButtonPrompt is shown before registering with the bridge.
const LinkButtonPrompt = "Press the link button on your Hue bridge, then press Enter to continue..."

// ConfigStore loads and saves the stored configuration.
type ConfigStore interface {
	Load() (*store.Configuration, error)
	Save(cfg *store.Configuration) error
}

// Discoverer finds the bridge.
type Discoverer interface {
	Discover(ctx context.Context) (*discovery.Identity, error)
}

// Prompter waits for the operator.
type Prompter interface {
	Confirm(message string) error
}

// Registrar obtains a user name from the bridge.
type Registrar interface {
	CreateUser(ctx context.Context, address, deviceType string) (string, error)
}

// BackupWriter writes the snapshot.
type BackupWriter interface {
	CreateBackup(ctx context.Context, cfg *store.Configuration) (string, error)
}

// Recorder keeps the run history.
type Recorder interface {
	Record(eventType ledger.EventType, payload map[string]any) error
}

// Deps are the collaborators of a Flow. Recorder is optional.
type Deps struct {
	Store      ConfigStore
	Discoverer Discoverer
	Prompter   Prompter
	Registrar  Registrar
	Backup     BackupWriter
	Recorder   Recorder
	DeviceType string
}

// Result describes how a run ended.
type Result struct {
	State      State
	BackupPath string
	Reason     string
}

// Flow is one bootstrap run.
type Flow struct {
	deps Deps
	log  logging.Logger
}

// New creates a flow.
func New(deps Deps) *Flow {
	return &Flow{
		deps: deps,
		log:  logging.Named("bootstrap"),
	}
}

// Run executes the flow. Errors returned are fatal for the process; graceful
// endings are reported through Result.State == StateAbandoned.
func (f *Flow) Run(ctx context.Context) (Result, error) {
	cfg, err := f.deps.Store.Load()
	if err != nil {
		return Result{State: StateNoConfig}, err
	}

	state := stateOf(cfg)
	f.log.Debug().Stringer("state", state).Msg("Loaded stored configuration")

	if state == StateNoConfig {
		found, err := f.discover(ctx, cfg)
		if err != nil {
			return Result{State: StateNoConfig}, err
		}
		if !found {
			return f.abandon("no bridge found"), nil
		}
		// A credential kept from an earlier registration is reused
		state = stateOf(cfg)
	}

	if state == StateHaveAddress {
		registered, err := f.register(ctx, cfg)
		if err != nil {
			return Result{State: StateHaveAddress}, err
		}
		if !registered {
			return f.abandon("link button not pressed"), nil
		}
		state = StateHaveCredential
	}

	path, err := f.deps.Backup.CreateBackup(ctx, cfg)
	if err != nil {
		return Result{State: state}, err
	}
	f.record(ledger.EventBackupCreated, map[string]any{"path": path, "address": cfg.Address})

	return Result{State: state, BackupPath: path}, nil
}

func stateOf(cfg *store.Configuration) State {
	switch {
	case !cfg.HasAddress():
		return StateNoConfig
	case !cfg.HasCredential():
		return StateHaveAddress
	default:
		return StateHaveCredential
	}
}

// discover returns false when no bridge was found.
func (f *Flow) discover(ctx context.Context, cfg *store.Configuration) (bool, error) {
	identity, err := f.deps.Discoverer.Discover(ctx)
	if errors.Is(err, discovery.ErrNotFound) {
		f.record(ledger.EventDiscoveryFailed, map[string]any{"error": err.Error()})
		return false, nil
	}
	if err != nil {
		return false, err
	}

	cfg.MergeIdentity(identity.Address, identity.Name, identity.Metadata)
	if err := f.deps.Store.Save(cfg); err != nil {
		return false, err
	}

	f.log.Info().Str("address", cfg.Address).Msg("Saved discovered bridge")
	f.record(ledger.EventDiscoverySucceeded, map[string]any{"address": identity.Address, "name": identity.Name})
	return true, nil
}

// register returns false when the link button was not pressed.
func (f *Flow) register(ctx context.Context, cfg *store.Configuration) (bool, error) {
	if err := f.deps.Prompter.Confirm(LinkButtonPrompt); err != nil {
		return false, err
	}

	userName, err := f.deps.Registrar.CreateUser(ctx, cfg.Address, f.deps.DeviceType)
	if errors.Is(err, hue.ErrLinkButtonNotPressed) {
		f.log.Warn().Msg("The link button was not pressed. Press it and run huebackup again")
		f.log.Debug().Err(err).Msg("Registration refused")
		f.record(ledger.EventRegistrationPending, map[string]any{"address": cfg.Address})
		return false, nil
	}
	if err != nil {
		return false, err
	}

	cfg.SetCredential(userName)
	if err := f.deps.Store.Save(cfg); err != nil {
		return false, err
	}

	f.log.Info().Str("address", cfg.Address).Msg("Registered with bridge")
	f.record(ledger.EventRegistrationSucceeded, map[string]any{"address": cfg.Address, "device_type": f.deps.DeviceType})
	return true, nil
}

func (f *Flow) abandon(reason string) Result {
	f.log.Info().Str("reason", reason).Msg("No backup created")
	return Result{State: StateAbandoned, Reason: reason}
}

func (f *Flow) record(eventType ledger.EventType, payload map[string]any) {
	if f.deps.Recorder == nil {
		return
	}
	if err := f.deps.Recorder.Record(eventType, payload); err != nil {
		f.log.Warn().Err(err).Str("event", string(eventType)).Msg("Failed to record run history")
	}
}
