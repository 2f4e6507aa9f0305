package interaction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/doeshing/cligent-go/internal/application/interpret"
	"github.com/doeshing/cligent-go/internal/domain"
	"github.com/doeshing/cligent-go/internal/ports"
)

// planReply renders a JSON plan the way providers are asked to answer.
func planReply(kind, message string, commands ...string) string {
	type step struct {
		Message string `json:"message"`
		Command string `json:"command"`
		Confirm bool   `json:"confirm"`
	}
	envelope := struct {
		Type    string `json:"type"`
		Message string `json:"message"`
		Run     []step `json:"run,omitempty"`
	}{Type: kind, Message: message}
	for _, command := range commands {
		envelope.Run = append(envelope.Run, step{Message: "step", Command: command})
	}
	data, _ := json.Marshal(envelope)
	return string(data)
}

// scriptedReply is one provider answer. block makes Send wait for cancellation.
type scriptedReply struct {
	text      string
	err       error
	block     bool
	interrupt bool
}

type fakeProvider struct {
	mu       sync.Mutex
	replies  []scriptedReply
	requests []ports.ProviderRequest
	display  *fakeDisplay
}

func (p *fakeProvider) Send(ctx context.Context, req ports.ProviderRequest) (string, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	if len(p.replies) == 0 {
		p.mu.Unlock()
		return "", &domain.ProviderError{Kind: domain.ProviderMalformed, Message: "no scripted reply"}
	}
	reply := p.replies[0]
	p.replies = p.replies[1:]
	p.mu.Unlock()

	if reply.interrupt {
		p.display.interrupt()
	}
	if reply.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return reply.text, reply.err
}

func (p *fakeProvider) prompts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, req := range p.requests {
		out = append(out, req.Prompt)
	}
	return out
}

// scriptedRun is one executor outcome.
type scriptedRun struct {
	result    domain.ExecutionResult
	err       error
	block     bool
	interrupt bool
}

type fakeExecutor struct {
	mu      sync.Mutex
	runs    map[string][]scriptedRun
	order   []string
	display *fakeDisplay
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{runs: map[string][]scriptedRun{}}
}

func (e *fakeExecutor) script(command string, runs ...scriptedRun) {
	e.runs[command] = append(e.runs[command], runs...)
}

func (e *fakeExecutor) Run(ctx context.Context, command string, _ ports.ExecOptions) (domain.ExecutionResult, error) {
	e.mu.Lock()
	e.order = append(e.order, command)
	var run scriptedRun
	if queued := e.runs[command]; len(queued) > 0 {
		run = queued[0]
		e.runs[command] = queued[1:]
	}
	e.mu.Unlock()

	if run.interrupt {
		e.display.interrupt()
	}
	if run.block {
		<-ctx.Done()
		return domain.ExecutionResult{ExitCode: -1}, ctx.Err()
	}
	return run.result, run.err
}

func (e *fakeExecutor) executed() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.order...)
}

// prefixClassifier flags commands starting with one of the prefixes.
type prefixClassifier []string

func (c prefixClassifier) Classify(command string) domain.Assessment {
	for _, prefix := range c {
		if strings.HasPrefix(command, prefix) {
			return domain.Assessment{
				Classification: domain.ClassDangerous,
				Reasons:        []string{"matches " + prefix},
			}
		}
	}
	return domain.Assessment{Classification: domain.ClassSafe}
}

type memHistory struct {
	mu     sync.Mutex
	turns  []domain.Turn
	failOn error
}

func (h *memHistory) Append(_ context.Context, turn domain.Turn) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failOn != nil {
		return h.failOn
	}
	h.turns = append(h.turns, turn)
	return nil
}

func (h *memHistory) List(context.Context) ([]domain.Turn, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]domain.Turn(nil), h.turns...), nil
}

func (h *memHistory) Delete(_ context.Context, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, turn := range h.turns {
		if turn.ID == id {
			h.turns = append(h.turns[:i], h.turns[i+1:]...)
			return nil
		}
	}
	return domain.ErrTurnNotFound
}

func (h *memHistory) Clear(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = nil
	return nil
}

type memConfig struct {
	mu    sync.Mutex
	cfg   domain.Config
	saves int
}

func (c *memConfig) Load(context.Context) (domain.Config, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg, nil
}

func (c *memConfig) Save(_ context.Context, cfg domain.Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
	c.saves++
	return nil
}

func (c *memConfig) Path() string { return "memory" }

type confirmEvent struct {
	command       string
	executedSoFar int
}

type fakeDisplay struct {
	mu         sync.Mutex
	interrupts chan struct{}
	answers    map[string]bool
	confirmErr error
	confirms   []confirmEvent
	states     []domain.LoopState
	messages   []string
	ticks      int
	browsed    int
	executor   *fakeExecutor
}

func newFakeDisplay() *fakeDisplay {
	return &fakeDisplay{
		interrupts: make(chan struct{}, 1),
		answers:    map[string]bool{},
	}
}

func (d *fakeDisplay) interrupt() {
	select {
	case d.interrupts <- struct{}{}:
	default:
	}
}

func (d *fakeDisplay) SetState(state domain.LoopState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.states = append(d.states, state)
}

func (d *fakeDisplay) Tick() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ticks++
}

func (d *fakeDisplay) ShowPlan(string, []domain.CommandRecord) {}
func (d *fakeDisplay) ShowResult(domain.CommandRecord)        {}
func (d *fakeDisplay) ShowTurn(domain.Turn)                   {}

func (d *fakeDisplay) ShowMessage(level domain.MessageLevel, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messages = append(d.messages, fmt.Sprintf("%s: %s", level, text))
}

func (d *fakeDisplay) Confirm(_ context.Context, record domain.CommandRecord) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	executed := 0
	if d.executor != nil {
		executed = len(d.executor.executed())
	}
	d.confirms = append(d.confirms, confirmEvent{command: record.Command, executedSoFar: executed})
	if d.confirmErr != nil {
		return false, d.confirmErr
	}
	return d.answers[record.Command], nil
}

func (d *fakeDisplay) Interrupts() <-chan struct{} { return d.interrupts }

func (d *fakeDisplay) BrowseHistory(context.Context, ports.SessionHistory) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.browsed++
	return nil
}

func (d *fakeDisplay) sawState(state domain.LoopState) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range d.states {
		if s == state {
			return true
		}
	}
	return false
}

func testConfig() domain.Config {
	return domain.Config{
		Providers: []domain.ProviderConfig{
			{
				ID: "claude", Kind: domain.ProviderKindAnthropic, Enabled: true, APIKey: "k",
				Models: []domain.ModelConfig{
					{ID: "claude-sonnet-4-20250514", Enabled: true, MaxTokens: 8192},
					{ID: "claude-3-5-haiku-20241022", Enabled: true, MaxTokens: 8192},
				},
			},
			{
				ID: "deepseek", Kind: domain.ProviderKindOpenAI, Enabled: true, APIKey: "k",
				Models: []domain.ModelConfig{{ID: "deepseek-chat", Enabled: true, MaxTokens: 8192}},
			},
		},
		Session: domain.SessionSettings{MaxRecursion: 10, ContextTurns: 50},
	}
}

type harness struct {
	loop     *Loop
	provider *fakeProvider
	executor *fakeExecutor
	history  *memHistory
	display  *fakeDisplay
	config   *memConfig
}

func newHarness(t *testing.T, cfg domain.Config, replies ...scriptedReply) *harness {
	t.Helper()
	display := newFakeDisplay()
	executor := newFakeExecutor()
	executor.display = display
	display.executor = executor
	provider := &fakeProvider{replies: replies, display: display}
	history := &memHistory{}
	config := &memConfig{cfg: cfg}

	ids := 0
	loop := &Loop{
		Config:      config,
		Provider:    provider,
		Interpreter: interpret.New(),
		Classifier:  prefixClassifier{"rm ", "sudo "},
		Executor:    executor,
		History:     history,
		Display:     display,
		Now:         func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) },
		NewID: func() string {
			ids++
			return fmt.Sprintf("turn-%d", ids)
		},
	}
	if err := loop.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return &harness{loop: loop, provider: provider, executor: executor, history: history, display: display, config: config}
}

func ok(stdout string) scriptedRun {
	return scriptedRun{result: domain.ExecutionResult{ExitCode: 0, Stdout: stdout}}
}

func exit(code int, stderr string) scriptedRun {
	return scriptedRun{result: domain.ExecutionResult{ExitCode: code, Stderr: stderr}}
}

var errBoom = errors.New("boom")
