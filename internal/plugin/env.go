package plugin

import (
	"fmt"
	"sort"
	"strings"
)

// EnvPlugin exposes a credential section as environment-variable
// assignments, for wiring secrets into tools that read configuration
// from the environment. Values only leave the vault when the user
// explicitly asks for the export form.
type EnvPlugin struct {
	secrets map[string]interface{}
}

// NewEnvPlugin constructs the env plugin. Any non-empty section is
// acceptable; there are no required fields.
func NewEnvPlugin(secrets map[string]interface{}) (Plugin, error) {
	if len(secrets) == 0 {
		return nil, fmt.Errorf("env section is empty")
	}
	return &EnvPlugin{secrets: secrets}, nil
}

func (p *EnvPlugin) Name() string { return "env" }

func (p *EnvPlugin) Description() string {
	return "Expose vault credentials as environment variable assignments"
}

func (p *EnvPlugin) Commands() []Command {
	return []Command{
		{
			Name:        "names",
			Description: "List credential names without revealing values",
			Run:         func([]string) (string, error) { return p.names(), nil },
		},
		{
			Name:        "export",
			Description: "Print shell export lines (eval in a transient shell only)",
			Run:         func([]string) (string, error) { return p.export(), nil },
		},
	}
}

func (p *EnvPlugin) sortedKeys() []string {
	keys := make([]string, 0, len(p.secrets))
	for k := range p.secrets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (p *EnvPlugin) names() string {
	return strings.Join(p.sortedKeys(), "\n")
}

func (p *EnvPlugin) export() string {
	var b strings.Builder
	for _, k := range p.sortedKeys() {
		value := fmt.Sprintf("%v", p.secrets[k])
		fmt.Fprintf(&b, "export %s=%s\n", envName(k), shellQuote(value))
	}
	return strings.TrimRight(b.String(), "\n")
}

func envName(key string) string {
	name := strings.ToUpper(key)
	return strings.Map(func(r rune) rune {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, name)
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
