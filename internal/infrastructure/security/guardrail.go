package security

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/doeshing/cligent-go/assets"
	"github.com/doeshing/cligent-go/internal/domain"
	"github.com/doeshing/cligent-go/internal/pkg/filesystem"
	"github.com/doeshing/cligent-go/internal/ports"
)

// Guardrail implements the SafetyClassifier port. Rules are data; a command
// matching any rule is DANGEROUS regardless of rule order.
type Guardrail struct {
	patterns []compiledPattern
	source   string
}

type compiledPattern struct {
	re   *regexp.Regexp
	rule DangerPattern
}

// DangerPattern describes a regex-based guardrail rule.
type DangerPattern struct {
	Pattern  string `yaml:"pattern"`
	Level    string `yaml:"level"`
	Category string `yaml:"category"`
	Message  string `yaml:"message"`
}

// RulesFile is the YAML schema root.
type RulesFile struct {
	Rules struct {
		DangerPatterns []DangerPattern `yaml:"danger_patterns"`
	} `yaml:"rules"`
}

// NewGuardrail loads guardrail rules from path, or the embedded defaults
// when the file does not exist.
func NewGuardrail(path string) (*Guardrail, error) {
	rules, source, err := loadRules(path)
	if err != nil {
		return nil, err
	}
	g, err := NewGuardrailFromRules(rules.Rules.DangerPatterns)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	g.source = source
	return g, nil
}

// NewGuardrailFromRules compiles an explicit rule list.
func NewGuardrailFromRules(rules []DangerPattern) (*Guardrail, error) {
	compiled := make([]compiledPattern, 0, len(rules))
	for _, rule := range rules {
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, &domain.ConfigError{Field: "guardrail pattern " + rule.Pattern, Reason: err.Error()}
		}
		compiled = append(compiled, compiledPattern{re: re, rule: rule})
	}
	return &Guardrail{patterns: compiled, source: "inline"}, nil
}

// Classify implements ports.SafetyClassifier.
func (g *Guardrail) Classify(command string) domain.Assessment {
	assessment := domain.Assessment{Classification: domain.ClassSafe}
	command = strings.TrimSpace(command)
	if g == nil || command == "" {
		return assessment
	}
	for _, pattern := range g.patterns {
		if !pattern.re.MatchString(command) {
			continue
		}
		assessment.Classification = domain.ClassDangerous
		assessment.Reasons = append(assessment.Reasons, pattern.rule.describe())
		assessment.MatchedRules = append(assessment.MatchedRules, pattern.rule.Pattern)
	}
	return assessment
}

// Rules returns the loaded rules in file order.
func (g *Guardrail) Rules() []DangerPattern {
	rules := make([]DangerPattern, 0, len(g.patterns))
	for _, pattern := range g.patterns {
		rules = append(rules, pattern.rule)
	}
	return rules
}

// Source names where the rules came from: a file path or "embedded defaults".
func (g *Guardrail) Source() string {
	return g.source
}

func (r DangerPattern) describe() string {
	message := r.Message
	if message == "" {
		message = "matches " + r.Pattern
	}
	if r.Level == "" {
		return message
	}
	return fmt.Sprintf("%s (%s)", message, strings.ToLower(r.Level))
}

func loadRules(path string) (RulesFile, string, error) {
	var rules RulesFile
	source := "embedded defaults"
	data := assets.DefaultGuardrailYAML

	if path != "" {
		path = filesystem.ExpandPath(path)
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			data, source = raw, path
		case !errors.Is(err, fs.ErrNotExist):
			return RulesFile{}, "", fmt.Errorf("read guardrail rules: %w", err)
		}
	}

	if err := yaml.Unmarshal(data, &rules); err != nil {
		return RulesFile{}, "", &domain.ConfigError{Field: source, Reason: "invalid guardrail YAML: " + err.Error()}
	}
	if len(rules.Rules.DangerPatterns) == 0 {
		return RulesFile{}, "", &domain.ConfigError{Field: source, Reason: "no danger_patterns defined"}
	}
	return rules, source, nil
}

var _ ports.SafetyClassifier = (*Guardrail)(nil)
