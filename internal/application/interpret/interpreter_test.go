package interpret

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/doeshing/cligent-go/internal/domain"
)

func TestInterpret(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		mode domain.Mode
		want domain.Interpretation
	}{
		{
			name: "json plan",
			raw:  `{"type":"task","message":"Listing **files**","run":[{"message":"list","command":"ls -la","confirm":false},{"command":"rm -rf build","confirm":true}]}`,
			mode: domain.ModeWork,
			want: domain.Interpretation{
				Explanation:  "Listing files",
				Commands:     []string{"ls -la", "rm -rf build"},
				Intent:       domain.IntentTask,
				ConfirmHints: []bool{false, true},
			},
		},
		{
			name: "fenced json plan",
			raw:  "```json\n{\"type\":\"query\",\"message\":\"Checking disk\",\"run\":[{\"command\":\"df -h\"}]}\n```",
			mode: domain.ModeWork,
			want: domain.Interpretation{
				Explanation:  "Checking disk",
				Commands:     []string{"df -h"},
				Intent:       domain.IntentQuery,
				ConfirmHints: []bool{false},
			},
		},
		{
			name: "json plan skips empty commands",
			raw:  `{"type":"task","message":"m","run":[{"command":"  "},{"command":"whoami"}]}`,
			mode: domain.ModeWork,
			want: domain.Interpretation{
				Explanation:  "m",
				Commands:     []string{"whoami"},
				Intent:       domain.IntentTask,
				ConfirmHints: []bool{false},
			},
		},
		{
			name: "knowledge type maps to answer",
			raw:  `{"type":"knowledge","message":"Go is a language."}`,
			mode: domain.ModeWork,
			want: domain.Interpretation{
				Explanation: "Go is a language.",
				Intent:      domain.IntentAnswer,
			},
		},
		{
			name: "prose with bash block",
			raw:  "Here is how:\n\n```bash\n# list\n$ ls -la\n\npwd\n```\nDone.",
			mode: domain.ModeWork,
			want: domain.Interpretation{
				Explanation:  "Here is how:\n\nDone.",
				Commands:     []string{"ls -la", "pwd"},
				Intent:       domain.IntentTask,
				ConfirmHints: []bool{false, false},
			},
		},
		{
			name: "multiple blocks keep order",
			raw:  "First:\n```sh\necho one\n```\nThen:\n```\necho two\n```\n```console\n$ echo three\n```",
			mode: domain.ModeWork,
			want: domain.Interpretation{
				Explanation:  "First:\nThen:",
				Commands:     []string{"echo one", "echo two", "echo three"},
				Intent:       domain.IntentTask,
				ConfirmHints: []bool{false, false, false},
			},
		},
		{
			name: "non shell block is not a command",
			raw:  "Run this:\n```python\nprint(1)\n```",
			mode: domain.ModeWork,
			want: domain.Interpretation{
				Explanation: "Run this:\nprint(1)",
				Intent:      domain.IntentTask,
			},
		},
		{
			name: "prose only in ask mode",
			raw:  "## Answer\nThe **kernel** schedules processes.",
			mode: domain.ModeAsk,
			want: domain.Interpretation{
				Explanation: "Answer\nThe kernel schedules processes.",
				Intent:      domain.IntentAnswer,
			},
		},
		{
			name: "config block and arithmetic survive in ask mode",
			raw:  "Add this to config.yaml:\n\n```yaml\nlog_level: debug\n```\n\nNote 2*3*4 = 24.",
			mode: domain.ModeAsk,
			want: domain.Interpretation{
				Explanation: "Add this to config.yaml:\n\nlog_level: debug\n\nNote 2*3*4 = 24.",
				Intent:      domain.IntentAnswer,
			},
		},
		{
			name: "broken json is treated as prose",
			raw:  "{not json",
			mode: domain.ModeWork,
			want: domain.Interpretation{
				Explanation: "{not json",
				Intent:      domain.IntentTask,
			},
		},
		{
			name: "prose mentioning a command is not a command",
			raw:  "You could run ls -la to see hidden files.",
			mode: domain.ModeWork,
			want: domain.Interpretation{
				Explanation: "You could run ls -la to see hidden files.",
				Intent:      domain.IntentTask,
			},
		},
	}

	interpreter := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := interpreter.Interpret(tt.raw, tt.mode)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Interpret() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestInterpret_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty", raw: ""},
		{name: "whitespace", raw: "  \n\t "},
		{name: "only an empty block", raw: "```python\n```"},
		{name: "empty plan message and run", raw: `{"type":"task","message":"","run":[]}`},
	}

	interpreter := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := interpreter.Interpret(tt.raw, domain.ModeWork)
			var interpErr *domain.InterpretationError
			if !errors.As(err, &interpErr) {
				t.Fatalf("expected InterpretationError, got %v", err)
			}
		})
	}
}

func TestInterpret_UnclosedFenceStillYieldsCommands(t *testing.T) {
	got, err := New().Interpret("Try:\n```bash\nuname -a\n", domain.ModeWork)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"uname -a"}, got.Commands); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
}
