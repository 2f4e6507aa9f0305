// Package assets embeds the default configuration and guardrail rules
// shipped with the binary.
package assets

import (
	_ "embed"
)

// DefaultConfigYAML contains the embedded default configuration.
//
//go:embed defaults/config.yaml
var DefaultConfigYAML []byte

// DefaultGuardrailYAML contains the embedded default guardrail rules.
//
//go:embed defaults/guardrail.yaml
var DefaultGuardrailYAML []byte

// GuardrailFileName is the name the rules are exported under in the data dir.
const GuardrailFileName = "guardrail.yaml"
