package yubikey

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/systmms/agevault/internal/config"
	averrors "github.com/systmms/agevault/internal/errors"
)

// mockPIN is the fixed PIN the mock accepts, matching the factory
// default PIN of a PIV applet.
const mockPIN = "123456"

// MockManager simulates the Guard contract in memory. Wrapped keys are
// opaque handles into an internal table, so a round trip reproduces the
// original key and a malformed blob fails the same way a hardware
// rejection does.
type MockManager struct {
	cfg     config.Config
	present bool

	mu      sync.Mutex
	wrapped map[string]string
}

// NewMockManager creates a simulated guard. present controls whether
// the fake device is "inserted".
func NewMockManager(cfg config.Config, present bool) *MockManager {
	return &MockManager{
		cfg:     cfg,
		present: present,
		wrapped: make(map[string]string),
	}
}

// Available implements Guard.
func (m *MockManager) Available(context.Context) bool {
	return m.cfg.YubiKeyEnabled && m.present
}

// WrapKey implements Guard.
func (m *MockManager) WrapKey(_ context.Context, privateKey string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := fmt.Sprintf("mock-key-%d", len(m.wrapped))
	m.wrapped[id] = privateKey
	return []byte("MOCK:" + id), nil
}

// UnwrapKey implements Guard.
func (m *MockManager) UnwrapKey(_ context.Context, wrapped []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := strings.CutPrefix(string(wrapped), "MOCK:")
	if ok {
		if key, found := m.wrapped[id]; found {
			return key, nil
		}
	}
	return "", averrors.HardwareError{
		Op:      "unwrap-key",
		Message: "mock key not found",
	}
}

// VerifyPIN implements Guard.
func (m *MockManager) VerifyPIN(_ context.Context, pin string) bool {
	return pin == mockPIN
}

// ChangePIN implements Guard.
func (m *MockManager) ChangePIN(_ context.Context, oldPIN, newPIN string) bool {
	return oldPIN == mockPIN && len(newPIN) >= 6
}
