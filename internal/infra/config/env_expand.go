package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// envExpander substitutes ${VAR} and ${VAR:-fallback} inside YAML string
// scalars and remembers which variables were unset.
type envExpander struct {
	lookup  func(string) (string, bool)
	missing map[string]struct{}
}

func expandConfigEnv(raw []byte) (string, []string, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return "", nil, fmt.Errorf("parse config: %w", err)
	}

	expander := &envExpander{lookup: os.LookupEnv, missing: make(map[string]struct{})}
	expander.walk(&root)

	out, err := yaml.Marshal(&root)
	if err != nil {
		return "", nil, fmt.Errorf("encode expanded config: %w", err)
	}
	return string(out), expander.missingNames(), nil
}

func (e *envExpander) walk(node *yaml.Node) {
	if node == nil {
		return
	}
	switch node.Kind {
	case yaml.MappingNode:
		// keys stay literal
		for i := 1; i < len(node.Content); i += 2 {
			e.walk(node.Content[i])
		}
	case yaml.DocumentNode, yaml.SequenceNode:
		for _, child := range node.Content {
			e.walk(child)
		}
	case yaml.AliasNode:
		e.walk(node.Alias)
	case yaml.ScalarNode:
		e.scalar(node)
	}
}

func (e *envExpander) scalar(node *yaml.Node) {
	if node.Tag != "" && node.Tag != "!!str" {
		return
	}
	if !strings.Contains(node.Value, "$") {
		return
	}
	expanded := os.Expand(node.Value, e.resolve)
	if expanded == node.Value {
		return
	}
	node.Value = expanded
	if node.Style != 0 {
		// quoted in the source, so it stays a string
		node.Tag = "!!str"
		return
	}
	node.Tag = retag(expanded)
}

func (e *envExpander) resolve(key string) string {
	name, fallback, hasFallback := strings.Cut(key, ":-")
	if value, ok := e.lookup(name); ok && (value != "" || !hasFallback) {
		return value
	}
	if hasFallback {
		return fallback
	}
	e.missing[name] = struct{}{}
	return ""
}

func (e *envExpander) missingNames() []string {
	if len(e.missing) == 0 {
		return nil
	}
	names := make([]string, 0, len(e.missing))
	for name := range e.missing {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// retag lets an unquoted substitution such as port: ${PORT} decode as the
// type its value spells.
func retag(value string) string {
	if strings.TrimSpace(value) == "" {
		return "!!str"
	}
	var probe yaml.Node
	if err := yaml.Unmarshal([]byte(value), &probe); err != nil || len(probe.Content) != 1 {
		return "!!str"
	}
	scalar := probe.Content[0]
	if scalar.Kind != yaml.ScalarNode {
		return "!!str"
	}
	switch tag := scalar.ShortTag(); tag {
	case "!!int", "!!float", "!!bool", "!!null":
		return tag
	default:
		return "!!str"
	}
}
