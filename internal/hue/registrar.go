package hue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/amimof/huego"
)

// Hue v1 API error types
const (
	ErrorTypeUnauthorizedUser      = 1
	ErrorTypeLinkButtonNotPressed  = 101
	maxDeviceTypeApp               = 20
	maxDeviceTypeDevice            = 19
	linkButtonNotPressedDescriptor = "link button not pressed"
)

// ErrLinkButtonNotPressed is returned by CreateUser while the bridge is not in pairing mode.
var ErrLinkButtonNotPressed = errors.New("link button not pressed")

// ErrRegistration wraps every other failure of the pairing request.
var ErrRegistration = errors.New("failed to register with bridge")

// DeviceType builds the "<app>#<device>" identifier the bridge stores for a user.
// Both parts are truncated to the lengths the bridge accepts.
func DeviceType(appName, deviceName string) string {
	return truncate(appName, maxDeviceTypeApp) + "#" + truncate(deviceName, maxDeviceTypeDevice)
}

// HostDeviceType returns DeviceType for the local machine name.
func HostDeviceType(appName string) string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return DeviceType(appName, host)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// Registrar creates users on a bridge through its pairing endpoint.
type Registrar struct {
	// createUser is replaceable in tests
	createUser func(ctx context.Context, address, deviceType string) (string, error)
}

// NewRegistrar creates a registrar backed by huego.
func NewRegistrar() *Registrar {
	return &Registrar{
		createUser: func(ctx context.Context, address, deviceType string) (string, error) {
			return huego.New(address, "").CreateUserContext(ctx, deviceType)
		},
	}
}

// CreateUser registers deviceType on the bridge at address and returns the user name.
// Returns an error wrapping ErrLinkButtonNotPressed when the link button was not pressed.
func (r *Registrar) CreateUser(ctx context.Context, address, deviceType string) (string, error) {
	user, err := r.createUser(ctx, address, deviceType)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", classifyRegistrationError(err)
	}
	if user == "" {
		return "", fmt.Errorf("%w: bridge returned an empty user name", ErrRegistration)
	}
	return user, nil
}

func classifyRegistrationError(err error) error {
	var apiErr *huego.APIError
	if errors.As(err, &apiErr) && apiErr.Type == ErrorTypeLinkButtonNotPressed {
		return fmt.Errorf("%w: %s", ErrLinkButtonNotPressed, apiErr.Description)
	}
	if strings.Contains(strings.ToLower(err.Error()), linkButtonNotPressedDescriptor) {
		return fmt.Errorf("%w: %v", ErrLinkButtonNotPressed, err)
	}
	return fmt.Errorf("%w: %w", ErrRegistration, err)
}
