// Package testutil provides testing utilities for agevault.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockCommandExecutor provides a configurable mock for testing
// subprocess-backed components. It implements pkgexec.CommandExecutor.
type MockCommandExecutor struct {
	mu sync.Mutex

	// Responses maps command patterns to their mock responses.
	// Key format: "command arg1 arg2" (space-separated command and args)
	Responses map[string]MockResponse

	// DefaultResponse is used when no matching pattern is found.
	DefaultResponse *MockResponse

	// RecordedCalls stores all calls made to Execute for verification.
	RecordedCalls []RecordedCall

	// StrictMode causes Execute to fail if no matching response is found.
	StrictMode bool
}

// MockResponse defines the expected output for a mocked command.
type MockResponse struct {
	Stdout []byte
	Stderr []byte
	Err    error
}

// RecordedCall stores information about a command execution.
type RecordedCall struct {
	Command string
	Args    []string
	Input   []byte
}

// NewMockCommandExecutor creates a new mock executor with empty responses.
func NewMockCommandExecutor() *MockCommandExecutor {
	return &MockCommandExecutor{
		Responses:     make(map[string]MockResponse),
		RecordedCalls: make([]RecordedCall, 0),
	}
}

// Execute returns the mocked response for the given command.
func (m *MockCommandExecutor) Execute(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	return m.respond(name, args, nil)
}

// ExecuteWithInput returns the mocked response and records stdin input.
func (m *MockCommandExecutor) ExecuteWithInput(ctx context.Context, input []byte, name string, args ...string) ([]byte, []byte, error) {
	return m.respond(name, args, input)
}

func (m *MockCommandExecutor) respond(name string, args []string, input []byte) ([]byte, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.RecordedCalls = append(m.RecordedCalls, RecordedCall{
		Command: name,
		Args:    args,
		Input:   input,
	})

	key := buildKey(name, args)

	if resp, ok := m.Responses[key]; ok {
		return resp.Stdout, resp.Stderr, resp.Err
	}

	// Prefix matching allows responses for "ykman piv" to cover any
	// ykman piv subcommand.
	for pattern, resp := range m.Responses {
		if strings.HasPrefix(key, pattern) {
			return resp.Stdout, resp.Stderr, resp.Err
		}
	}

	if m.DefaultResponse != nil {
		return m.DefaultResponse.Stdout, m.DefaultResponse.Stderr, m.DefaultResponse.Err
	}

	if m.StrictMode {
		return nil, nil, fmt.Errorf("mock: no response configured for command: %s", key)
	}

	return []byte{}, []byte{}, nil
}

func buildKey(name string, args []string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}

// AddResponse registers a mock response for a specific command pattern.
func (m *MockCommandExecutor) AddResponse(commandPattern string, response MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses[commandPattern] = response
}

// AddSuccessResponse adds a successful response with the given stdout.
func (m *MockCommandExecutor) AddSuccessResponse(commandPattern string, stdout string) {
	m.AddResponse(commandPattern, MockResponse{
		Stdout: []byte(stdout),
		Stderr: []byte{},
		Err:    nil,
	})
}

// AddErrorResponse adds an error response for a command pattern.
func (m *MockCommandExecutor) AddErrorResponse(commandPattern string, errMsg string, exitCode int) {
	m.AddResponse(commandPattern, MockResponse{
		Stdout: []byte{},
		Stderr: []byte(errMsg),
		Err:    fmt.Errorf("exit status %d: %s", exitCode, errMsg),
	})
}

// GetCalls returns all recorded calls matching the given command name.
func (m *MockCommandExecutor) GetCalls(commandName string) []RecordedCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matches []RecordedCall
	for _, call := range m.RecordedCalls {
		if call.Command == commandName {
			matches = append(matches, call)
		}
	}
	return matches
}

// CallCount returns the number of times Execute was called.
func (m *MockCommandExecutor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.RecordedCalls)
}

// Reset clears all recorded calls and responses.
func (m *MockCommandExecutor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses = make(map[string]MockResponse)
	m.RecordedCalls = make([]RecordedCall, 0)
	m.DefaultResponse = nil
}

// AssertCalled verifies that a specific command was called at least once.
func (m *MockCommandExecutor) AssertCalled(t interface{ Error(args ...interface{}) }, commandName string) bool {
	calls := m.GetCalls(commandName)
	if len(calls) == 0 {
		t.Error("expected command", commandName, "to be called, but it was not")
		return false
	}
	return true
}

// AssertNotCalled verifies that a specific command was never called.
func (m *MockCommandExecutor) AssertNotCalled(t interface{ Error(args ...interface{}) }, commandName string) bool {
	calls := m.GetCalls(commandName)
	if len(calls) > 0 {
		t.Error("expected command", commandName, "to not be called, but it was called", len(calls), "times")
		return false
	}
	return true
}

// AssertCallCount verifies the exact number of times a command was called.
func (m *MockCommandExecutor) AssertCallCount(t interface{ Error(args ...interface{}) }, commandName string, expected int) bool {
	calls := m.GetCalls(commandName)
	if len(calls) != expected {
		t.Error("expected command", commandName, "to be called", expected, "times, but was called", len(calls), "times")
		return false
	}
	return true
}

// AgeMockResponses provides pre-configured responses for the age CLI.
type AgeMockResponses struct{}

// Version returns a mock response for age --version.
func (AgeMockResponses) Version() MockResponse {
	return MockResponse{Stdout: []byte("v1.2.1\n")}
}

// KeygenStderr returns the stderr age-keygen prints when writing a key file.
// The public key line is what callers parse.
func (AgeMockResponses) KeygenStderr(publicKey string) MockResponse {
	return MockResponse{
		Stderr: []byte("Public key: " + publicKey + "\n"),
	}
}

// DecryptFailure returns a mock response for a failed age -d invocation.
func (AgeMockResponses) DecryptFailure() MockResponse {
	return MockResponse{
		Stderr: []byte("age: error: no identity matched any of the recipients\n"),
		Err:    fmt.Errorf("exit status 1"),
	}
}

// YkmanMockResponses provides pre-configured responses for ykman.
type YkmanMockResponses struct{}

// Version returns a mock response for ykman --version.
func (YkmanMockResponses) Version() MockResponse {
	return MockResponse{Stdout: []byte("YubiKey Manager (ykman) version: 5.5.1\n")}
}

// Info returns a mock response for ykman info with a device present.
func (YkmanMockResponses) Info() MockResponse {
	return MockResponse{
		Stdout: []byte(`Device type: YubiKey 5 NFC
Serial number: 12345678
Firmware version: 5.4.3
Form factor: Keychain (USB-A)
Enabled USB interfaces: OTP, FIDO, CCID
`),
	}
}

// NoDevice returns a mock response for ykman info with no device.
func (YkmanMockResponses) NoDevice() MockResponse {
	return MockResponse{
		Stderr: []byte("ERROR: No YubiKey detected!\n"),
		Err:    fmt.Errorf("exit status 1"),
	}
}

// PIVInfo returns a mock response for ykman piv info.
func (YkmanMockResponses) PIVInfo() MockResponse {
	return MockResponse{
		Stdout: []byte(`PIV version: 5.4.3
PIN tries remaining: 3/3
Management key algorithm: TDES
CHUID: No data available
`),
	}
}

// PluginMockResponses provides pre-configured responses for age-plugin-yubikey.
type PluginMockResponses struct{}

// Version returns a mock response for age-plugin-yubikey --version.
func (PluginMockResponses) Version() MockResponse {
	return MockResponse{Stdout: []byte("age-plugin-yubikey 0.5.0\n")}
}

// List returns a mock recipient listing for the given slot.
func (PluginMockResponses) List(recipient string) MockResponse {
	return MockResponse{
		Stdout: []byte("#       Serial: 12345678, Slot: 1\n#         Name: age identity\n#      Created: 2025-01-01\n# PIN policy: Once\n# Touch policy: Always\n" + recipient + "\n"),
	}
}

// Identity returns a mock identity listing for the given slot.
func (PluginMockResponses) Identity(identity string) MockResponse {
	return MockResponse{
		Stdout: []byte("#       Serial: 12345678, Slot: 1\n" + identity + "\n"),
	}
}
