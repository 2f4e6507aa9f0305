package interaction

import (
	"bytes"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/doeshing/cligent-go/internal/domain"
)

// maxPromptOutput caps each stream quoted back to the AI.
const maxPromptOutput = 4000

var promptFuncs = template.FuncMap{
	"clip": clip,
	"inc":  func(i int) int { return i + 1 },
	"exit": func(code *int) int {
		if code == nil {
			return 0
		}
		return *code
	},
}

var (
	workSystemTemplate = template.Must(template.New("work").Funcs(promptFuncs).Parse(`You are a SYSTEM AGENT working in the user's terminal.
System: {{.System}}
VERY IMPORTANT! You MUST respond in the same language as the user prompt.

Evaluate if the request is a QUESTION or a TASK.
- Question: the user wants information (at most 5 commands to gather it)
- Task: the user wants you to perform actions

If the user asks about our previous conversation, answer directly from the history without running commands:
{"type": "direct", "message": "Your direct answer"}

For QUESTION:
{"type": "query", "message": "What you WILL DO to answer (not the answer itself)", "run": [{"message": "Why this command runs", "command": "the command", "confirm": false}]}

For TASK:
{"type": "task", "message": "Brief summary of the plan", "run": [{"message": "What this step does", "command": "the command", "confirm": false}]}

IMPORTANT:
- 'message' describes what you WILL DO, not the result
- Use only non-interactive CLI commands, never TUI programs (no htop, nano, mc, vim)
- Set 'confirm' to true for dangerous or system-changing commands
- Respond ONLY with valid, properly escaped JSON`))

	askSystemTemplate = template.Must(template.New("ask").Funcs(promptFuncs).Parse(`You are a helpful AI assistant. The user is asking a question and wants a detailed, informative answer.
System context: {{.System}}
VERY IMPORTANT! You MUST respond in the same language as the user question.

Provide a comprehensive answer. Do not expect any command to be run for you.
Use this format:
{"type": "answer", "message": "Your detailed answer"}`))

	userTemplate = template.Must(template.New("user").Funcs(promptFuncs).Parse(`{{if .History}}For reference, this is our conversation history summarized. Do not interpret it as part of the current request.
Entries are in chronological order, 1 is oldest:
{{range $i, $t := .History}}{{inc $i}}) User: {{$t.UserInput}}
   Agent: {{if $t.Summary}}{{$t.Summary}}{{else}}No summary{{end}}
{{end}}
{{end}}User prompt: {{.Input}}`))

	fixTemplate = template.Must(template.New("fix").Funcs(promptFuncs).Parse(`Your mission: {{.Input}}

Planned commands to complete the mission:
{{range .Planned}}{{.}}
{{end}}
Current problem:
Command: {{.Failed.Command}}
Exit code: {{exit .Failed.ExitCode}}
STDOUT: {{if .Failed.Stdout}}{{clip .Failed.Stdout}}{{else}}(empty){{end}}
STDERR: {{if .Failed.Stderr}}{{clip .Failed.Stderr}}{{else}}(none){{end}}
{{if .Attempts}}
Previous failed attempts:
{{range .Attempts}}- Command: {{.Command}}
  Exit code: {{exit .ExitCode}}
  Error: {{clip .Stderr}}
{{end}}{{end}}
Analyze the error and provide commands that fix it. The planned commands after the
failed one run once your fix succeeds, so do not repeat them.
For dangerous commands, set 'confirm' to true.

Respond ONLY with valid JSON:
{"type": "issue", "message": "Brief explanation of the fix", "run": [{"message": "What this command does", "command": "the command", "confirm": false}]}`))

	answerTemplate = template.Must(template.New("answer").Funcs(promptFuncs).Parse(`User's question: {{.Input}}

You ran these commands and got these results:
{{range .Results}}
Command: {{.Command}}
STDOUT: {{if .Stdout}}{{clip .Stdout}}{{else}}(empty){{end}}
STDERR: {{if .Stderr}}{{clip .Stderr}}{{else}}(none){{end}}
{{end}}
Based on ALL the results above, answer the user's original question.
Be concise and direct, 2-4 sentences maximum, in plain text.
You MUST respond in the same language as the user's question.`))

	summaryTemplate = template.Must(template.New("summary").Funcs(promptFuncs).Parse(`Summarize this terminal session block in one line.

User: {{.Input}}
Agent: {{.Explanation}}
{{range .Results}}Command: {{.Command}} (exit {{exit .ExitCode}})
{{end}}{{if .Error}}Error: {{.Error}}
{{end}}
Reply with plain text only, in the same language as the user, at most {{.MaxWords}} words, covering what was done and the result.`))
)

// promptData feeds every prompt template.
type promptData struct {
	System      string
	Input       string
	History     []domain.Turn
	Planned     []string
	Failed      domain.CommandRecord
	Attempts    []domain.CommandRecord
	Results     []domain.CommandRecord
	Explanation string
	Error       string
	MaxWords    int
}

func systemPrompt(mode domain.Mode, snapshot domain.ContextSnapshot) string {
	tmpl := workSystemTemplate
	if mode == domain.ModeAsk {
		tmpl = askSystemTemplate
	}
	return render(tmpl, promptData{System: snapshot.Line()})
}

func userPrompt(input string, history []domain.Turn) string {
	return render(userTemplate, promptData{Input: input, History: history})
}

func fixPrompt(input string, planned []string, failed domain.CommandRecord, previous []domain.CommandRecord) string {
	if len(previous) > domain.MaxPreviousAttempts {
		previous = previous[len(previous)-domain.MaxPreviousAttempts:]
	}
	return render(fixTemplate, promptData{
		Input:    input,
		Planned:  planned,
		Failed:   failed,
		Attempts: previous,
	})
}

func answerPrompt(input string, results []domain.CommandRecord) string {
	return render(answerTemplate, promptData{Input: input, Results: results})
}

func summaryPrompt(turn domain.Turn) string {
	return render(summaryTemplate, promptData{
		Input:       turn.UserInput,
		Explanation: turn.Explanation,
		Results:     turn.Executed(),
		Error:       turn.Error,
		MaxWords:    domain.MaxSummaryWords,
	})
}

func render(tmpl *template.Template, data promptData) string {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		// Only a template typo gets here; prompts_test renders every template.
		return data.Input
	}
	return strings.TrimSpace(buf.String())
}

// clip cuts text to maxPromptOutput bytes without splitting a rune.
func clip(text string) string {
	text = strings.TrimSpace(text)
	if len(text) <= maxPromptOutput {
		return text
	}
	cut := maxPromptOutput
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "\n[... clipped]"
}

// clipWords keeps at most n words of the first non-empty line of text.
func clipWords(text string, n int) string {
	for _, line := range strings.Split(text, "\n") {
		words := strings.Fields(line)
		if len(words) == 0 {
			continue
		}
		if len(words) > n {
			words = words[:n]
		}
		return strings.Join(words, " ")
	}
	return ""
}
