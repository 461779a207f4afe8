package format

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// sessionAll is the config token selecting every session key.
const sessionAll = "ALL"

// SessionKeys selects which session values are included in a dump: none,
// a fixed list of keys, or all of them.
type SessionKeys struct {
	All  bool
	Keys []string
}

// AllSessionKeys selects every key.
func AllSessionKeys() SessionKeys { return SessionKeys{All: true} }

// Enabled reports whether any session data should be dumped.
func (k SessionKeys) Enabled() bool { return k.All || len(k.Keys) > 0 }

// Select picks the configured keys out of session. Missing keys are skipped.
func (k SessionKeys) Select(session map[string]any) map[string]any {
	if !k.Enabled() || len(session) == 0 {
		return nil
	}
	if k.All {
		return session
	}
	out := make(map[string]any, len(k.Keys))
	for _, key := range k.Keys {
		if v, ok := session[key]; ok {
			out[key] = v
		}
	}
	return out
}

// UnmarshalYAML accepts the scalar "ALL" or a sequence of keys.
func (k *SessionKeys) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		switch {
		case strings.EqualFold(strings.TrimSpace(s), sessionAll):
			*k = AllSessionKeys()
		case strings.TrimSpace(s) == "":
			*k = SessionKeys{}
		default:
			*k = SessionKeys{Keys: []string{s}}
		}
		return nil
	case yaml.SequenceNode:
		var keys []string
		if err := node.Decode(&keys); err != nil {
			return err
		}
		*k = SessionKeys{Keys: keys}
		return nil
	default:
		return fmt.Errorf("line %d: session keys must be %q or a list", node.Line, sessionAll)
	}
}

// MarshalYAML is the inverse of UnmarshalYAML.
func (k SessionKeys) MarshalYAML() (any, error) {
	if k.All {
		return sessionAll, nil
	}
	return k.Keys, nil
}
