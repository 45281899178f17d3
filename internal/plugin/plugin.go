// Package plugin dispatches named commands against credential-backed
// integrations.
//
// Plugins are registered explicitly by name at startup; there is no
// directory scanning or runtime discovery. A plugin is instantiated
// only when the decrypted secrets document carries a section under its
// name, and it receives exactly that section, never the whole
// document.
package plugin

import (
	"fmt"
	"sort"
	"strings"

	averrors "github.com/systmms/agevault/internal/errors"
)

// Arg describes one positional argument of a plugin command.
type Arg struct {
	Name     string
	Help     string
	Required bool
}

// Command is a named operation a plugin exposes through the CLI.
type Command struct {
	Name        string
	Description string
	Args        []Arg
	Run         func(args []string) (string, error)
}

// Plugin is one credential-backed integration.
type Plugin interface {
	Name() string
	Description() string
	Commands() []Command
}

// Constructor builds a plugin from its section of the decrypted
// secrets document. It should fail when required credentials are
// missing rather than at first use.
type Constructor func(secrets map[string]interface{}) (Plugin, error)

// Registry maps plugin names to constructors. Registration happens at
// startup from an explicit list.
type Registry struct {
	constructors map[string]Constructor
}

// NewRegistry creates a registry with the built-in plugins registered.
func NewRegistry() *Registry {
	r := &Registry{constructors: make(map[string]Constructor)}
	r.Register("env", NewEnvPlugin)
	return r
}

// Register adds a constructor under the given name, replacing any
// previous registration.
func (r *Registry) Register(name string, c Constructor) {
	r.constructors[name] = c
}

// Names returns the registered plugin names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Manager holds the plugins instantiated for one secrets document.
type Manager struct {
	plugins map[string]Plugin
}

// NewManager instantiates every registered plugin that has a section
// in the secrets document. A section without a registered plugin is
// ignored; a constructor failure aborts, since it means credentials
// are present but unusable.
func NewManager(registry *Registry, secrets map[string]map[string]interface{}) (*Manager, error) {
	m := &Manager{plugins: make(map[string]Plugin)}

	for name, ctor := range registry.constructors {
		section, ok := secrets[name]
		if !ok {
			continue
		}
		p, err := ctor(section)
		if err != nil {
			return nil, averrors.UserError{
				Message:    fmt.Sprintf("Plugin '%s' failed to initialize", name),
				Details:    err.Error(),
				Suggestion: "Check the plugin's section in your secrets file",
				Err:        err,
			}
		}
		m.plugins[p.Name()] = p
	}

	return m, nil
}

// Plugins returns the loaded plugin names, sorted.
func (m *Manager) Plugins() []string {
	names := make([]string, 0, len(m.plugins))
	for name := range m.plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns a loaded plugin by name.
func (m *Manager) Get(name string) (Plugin, bool) {
	p, ok := m.plugins[name]
	return p, ok
}

// CommandNames returns every dispatchable "plugin.command" string.
func (m *Manager) CommandNames() []string {
	var names []string
	for pname, p := range m.plugins {
		for _, cmd := range p.Commands() {
			names = append(names, pname+"."+cmd.Name)
		}
	}
	sort.Strings(names)
	return names
}

// Dispatch runs "plugin.command" with the given arguments.
func (m *Manager) Dispatch(full string, args []string) (string, error) {
	pluginName, commandName, ok := strings.Cut(full, ".")
	if !ok {
		return "", averrors.UserError{
			Message:    fmt.Sprintf("Invalid command '%s'", full),
			Suggestion: "Use the form plugin.command, e.g. env.names",
		}
	}

	p, ok := m.plugins[pluginName]
	if !ok {
		return "", averrors.UserError{
			Message:    fmt.Sprintf("Plugin '%s' is not loaded", pluginName),
			Suggestion: "Add its credentials to your secrets file, then check 'agevault plugins list'",
		}
	}

	for _, cmd := range p.Commands() {
		if cmd.Name != commandName {
			continue
		}
		required := 0
		for _, a := range cmd.Args {
			if a.Required {
				required++
			}
		}
		if len(args) < required {
			return "", averrors.UserError{
				Message:    fmt.Sprintf("'%s' needs at least %d argument(s)", full, required),
				Suggestion: describeArgs(cmd),
			}
		}
		return cmd.Run(args)
	}

	return "", averrors.UserError{
		Message:    fmt.Sprintf("Plugin '%s' has no command '%s'", pluginName, commandName),
		Suggestion: "Run 'agevault plugins commands' to list available commands",
	}
}

func describeArgs(cmd Command) string {
	parts := make([]string, 0, len(cmd.Args))
	for _, a := range cmd.Args {
		if a.Required {
			parts = append(parts, "<"+a.Name+">")
		} else {
			parts = append(parts, "["+a.Name+"]")
		}
	}
	return cmd.Name + " " + strings.Join(parts, " ")
}
