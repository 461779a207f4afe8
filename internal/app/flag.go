package app

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Flag is a boolean that config files and environment variables may spell
// as a YAML bool or as a word ("on", "yes", "1", ...).
type Flag bool

// ParseFlag parses the word forms accepted for Flag.
func ParseFlag(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "on", "yes", "y":
		return true, nil
	case "", "0", "false", "off", "no", "n":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", s)
	}
}

// UnmarshalYAML accepts both bool and string scalars.
func (f *Flag) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a boolean", node.Line)
	}
	v, err := ParseFlag(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*f = Flag(v)
	return nil
}
