// Package interpret turns raw AI replies into an explanation and an ordered
// list of proposed shell commands.
//
// Two reply shapes are understood. The preferred one is a JSON plan
// ({"type", "message", "run": [{"message", "command", "confirm"}]}), bare or
// inside a fenced block. Anything else is treated as prose: lines inside
// shell-flavoured fenced blocks become commands and the rest, with markdown
// stripped, becomes the explanation.
package interpret

import (
	"bufio"
	"encoding/json"
	"strings"

	"github.com/doeshing/cligent-go/internal/domain"
	"github.com/doeshing/cligent-go/internal/ports"
)

// Interpreter implements ports.ResponseInterpreter. It is stateless.
type Interpreter struct{}

// New returns an Interpreter.
func New() *Interpreter {
	return &Interpreter{}
}

var _ ports.ResponseInterpreter = (*Interpreter)(nil)

type planEnvelope struct {
	Type    string     `json:"type"`
	Message string     `json:"message"`
	Run     []planStep `json:"run"`
}

type planStep struct {
	Message string `json:"message"`
	Command string `json:"command"`
	Confirm bool   `json:"confirm"`
}

// Interpret extracts the explanation, commands and intent from raw.
// It fails with *domain.InterpretationError when nothing usable is found.
func (i *Interpreter) Interpret(raw string, mode domain.Mode) (domain.Interpretation, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return domain.Interpretation{}, &domain.InterpretationError{Reason: "empty reply"}
	}

	result, ok := parsePlan(text)
	if !ok {
		result = parseProse(text)
	}

	if result.Intent == "" {
		result.Intent = defaultIntent(mode)
	}
	if result.Explanation == "" && len(result.Commands) == 0 {
		return domain.Interpretation{}, &domain.InterpretationError{Reason: "reply contains no explanation or commands"}
	}
	return result, nil
}

func defaultIntent(mode domain.Mode) domain.Intent {
	if mode == domain.ModeAsk {
		return domain.IntentAnswer
	}
	return domain.IntentTask
}

// parsePlan reads the JSON plan envelope, bare or fenced.
func parsePlan(text string) (domain.Interpretation, bool) {
	candidate := jsonCandidate(text)
	if candidate == "" {
		return domain.Interpretation{}, false
	}

	var plan planEnvelope
	if err := json.Unmarshal([]byte(candidate), &plan); err != nil {
		return domain.Interpretation{}, false
	}
	if plan.Type == "" && plan.Message == "" && len(plan.Run) == 0 {
		return domain.Interpretation{}, false
	}

	result := domain.Interpretation{
		Explanation: StripMarkdown(plan.Message),
		Intent:      planIntent(plan.Type),
	}
	for _, step := range plan.Run {
		command := strings.TrimSpace(step.Command)
		if command == "" {
			continue
		}
		result.Commands = append(result.Commands, command)
		result.ConfirmHints = append(result.ConfirmHints, step.Confirm)
	}
	return result, true
}

func planIntent(value string) domain.Intent {
	if strings.EqualFold(strings.TrimSpace(value), "knowledge") {
		return domain.IntentAnswer
	}
	return domain.ParseIntent(value)
}

// jsonCandidate returns the text that might hold a JSON object: the text
// itself, or the body of its first fenced block when that body is an object.
func jsonCandidate(text string) string {
	if strings.HasPrefix(text, "{") {
		return text
	}
	for _, block := range fencedBlocks(text) {
		body := strings.TrimSpace(block.body)
		if strings.HasPrefix(body, "{") {
			return body
		}
	}
	return ""
}

type fencedBlock struct {
	lang string
	body string
}

// fencedBlocks scans text for ``` delimited blocks in order. An unclosed
// block runs to the end of the text.
func fencedBlocks(text string) []fencedBlock {
	var (
		blocks  []fencedBlock
		current *fencedBlock
		body    strings.Builder
	)

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			if current == nil {
				current = &fencedBlock{lang: strings.ToLower(strings.TrimSpace(strings.TrimPrefix(trimmed, "```")))}
				body.Reset()
				continue
			}
			current.body = body.String()
			blocks = append(blocks, *current)
			current = nil
			continue
		}
		if current != nil {
			body.WriteString(line)
			body.WriteByte('\n')
		}
	}
	if current != nil {
		current.body = body.String()
		blocks = append(blocks, *current)
	}
	return blocks
}

var executableLangs = map[string]bool{
	"":        true,
	"bash":    true,
	"sh":      true,
	"shell":   true,
	"zsh":     true,
	"console": true,
}

// parseProse collects commands from executable fenced blocks and keeps
// the remaining text, other blocks included, as the explanation.
func parseProse(text string) domain.Interpretation {
	result := domain.Interpretation{Explanation: StripMarkdown(withoutExecutableBlocks(text))}
	for _, block := range fencedBlocks(text) {
		if !executableLangs[block.lang] {
			continue
		}
		for _, line := range strings.Split(block.body, "\n") {
			command := commandLine(line)
			if command == "" {
				continue
			}
			result.Commands = append(result.Commands, command)
			result.ConfirmHints = append(result.ConfirmHints, false)
		}
	}
	return result
}

// withoutExecutableBlocks drops executable fenced blocks, fences included.
// Their lines are carried as commands instead.
func withoutExecutableBlocks(text string) string {
	var kept []string
	inBlock, dropping := false, false
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			if !inBlock {
				inBlock = true
				dropping = executableLangs[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(trimmed, "```")))]
			} else {
				inBlock = false
				if dropping {
					dropping = false
					continue
				}
			}
		}
		if !dropping {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func commandLine(line string) string {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return ""
	}
	if strings.HasPrefix(line, "$ ") {
		line = strings.TrimSpace(line[2:])
	}
	return line
}
