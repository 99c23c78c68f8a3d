package hue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/amimof/huego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceType(t *testing.T) {
	assert.Equal(t, "huebackup#workstation", DeviceType("huebackup", "workstation"))

	long := DeviceType(strings.Repeat("a", 30), strings.Repeat("b", 30))
	assert.Equal(t, strings.Repeat("a", 20)+"#"+strings.Repeat("b", 19), long)
}

func TestHostDeviceType(t *testing.T) {
	got := HostDeviceType("huebackup")
	assert.True(t, strings.HasPrefix(got, "huebackup#"), got)
	assert.Greater(t, len(got), len("huebackup#"))
}

func TestRegistrar_CreateUser(t *testing.T) {
	var gotAddress, gotDevice string
	r := &Registrar{createUser: func(_ context.Context, address, deviceType string) (string, error) {
		gotAddress, gotDevice = address, deviceType
		return "abc123", nil
	}}

	user, err := r.CreateUser(context.Background(), "10.0.0.5", "huebackup#host")
	require.NoError(t, err)
	assert.Equal(t, "abc123", user)
	assert.Equal(t, "10.0.0.5", gotAddress)
	assert.Equal(t, "huebackup#host", gotDevice)
}

func TestRegistrar_LinkButtonNotPressed(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"api error type", &huego.APIError{Type: 101, Address: "", Description: "link button not pressed"}},
		{"description only", errors.New(`ERROR 101 [/]: "link button not pressed"`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Registrar{createUser: func(context.Context, string, string) (string, error) { return "", tt.err }}
			_, err := r.CreateUser(context.Background(), "10.0.0.5", "huebackup#host")
			assert.ErrorIs(t, err, ErrLinkButtonNotPressed)
		})
	}
}

func TestRegistrar_OtherErrors(t *testing.T) {
	boom := errors.New("connection refused")
	r := &Registrar{createUser: func(context.Context, string, string) (string, error) { return "", boom }}

	_, err := r.CreateUser(context.Background(), "10.0.0.5", "huebackup#host")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, ErrRegistration)
	assert.NotErrorIs(t, err, ErrLinkButtonNotPressed)

	r = &Registrar{createUser: func(context.Context, string, string) (string, error) { return "", nil }}
	_, err = r.CreateUser(context.Background(), "10.0.0.5", "huebackup#host")
	assert.ErrorIs(t, err, ErrRegistration)
}

func TestRegistrar_CancelledContext(t *testing.T) {
	var seen context.Context
	r := &Registrar{createUser: func(ctx context.Context, _, _ string) (string, error) {
		seen = ctx
		<-ctx.Done()
		return "", fmt.Errorf("Post \"http://10.0.0.5/api\": %w", ctx.Err())
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.CreateUser(ctx, "10.0.0.5", "huebackup#host")
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrRegistration)
	assert.Equal(t, ctx, seen)
}
