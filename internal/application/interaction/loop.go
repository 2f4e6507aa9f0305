// Package interaction implements the interactive loop: one Turn per user
// input, from the AI request through confirmation, sequential execution and
// bounded automatic fixes, to a persisted terminal status.
package interaction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/doeshing/cligent-go/internal/application/interpret"
	"github.com/doeshing/cligent-go/internal/domain"
	"github.com/doeshing/cligent-go/internal/ports"
)

// startFailureExitCode is recorded when the shell could not be started.
const startFailureExitCode = 127

// Loop drives Turns. It is not safe for concurrent use: Turns are sequential.
type Loop struct {
	Config      ports.ConfigStore
	Provider    ports.ProviderClient
	Interpreter ports.ResponseInterpreter
	Classifier  ports.SafetyClassifier
	Executor    ports.CommandExecutor
	History     ports.SessionHistory
	Context     ports.ContextCollector
	Display     ports.Display
	Logger      ports.Logger

	// Now and NewID are replaced in tests.
	Now   func() time.Time
	NewID func() string

	cfg         domain.Config
	mode        domain.Mode
	selection   domain.Selection
	state       domain.LoopState
	initialized bool

	// providerFailed is set when the current Turn failed on a provider error.
	providerFailed bool
}

// Init loads the configuration and picks the active mode and selection.
// It returns domain.ErrNoProvider when no provider is usable.
func (l *Loop) Init(ctx context.Context) error {
	if l.Config == nil || l.Provider == nil || l.Interpreter == nil || l.Classifier == nil ||
		l.Executor == nil || l.History == nil || l.Display == nil {
		return errors.New("interaction.Loop dependencies not satisfied")
	}
	cfg, err := l.Config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	selection, err := cfg.ActiveSelection()
	if err != nil {
		return err
	}
	l.cfg = cfg
	l.mode = cfg.GetMode()
	l.selection = selection
	l.state = domain.StateIdle
	l.initialized = true
	return nil
}

// Mode returns the current mode.
func (l *Loop) Mode() domain.Mode { return l.mode }

// Selection returns the provider/model pair new Turns are sent to.
func (l *Loop) Selection() domain.Selection { return l.selection }

// State returns the loop's current phase.
func (l *Loop) State() domain.LoopState { return l.state }

// Submit runs one Turn to a terminal status, appends it to history and
// returns it. The error is non-nil only when the Turn could not be persisted.
func (l *Loop) Submit(ctx context.Context, input string) (domain.Turn, error) {
	if !l.initialized {
		if err := l.Init(ctx); err != nil {
			return domain.Turn{}, err
		}
	}
	l.drainInterrupts()
	l.providerFailed = false

	turn := domain.Turn{
		ID:         l.newID(),
		Timestamp:  l.now(),
		UserInput:  strings.TrimSpace(input),
		Mode:       l.mode,
		ProviderID: l.selection.ProviderID,
		ModelID:    l.selection.ModelID,
		Commands:   []domain.CommandRecord{},
		Status:     domain.TurnPending,
	}

	l.run(ctx, &turn)
	if !turn.Status.Terminal() {
		l.finish(&turn, domain.TurnFailed, "turn ended without a result")
	}
	l.summarize(ctx, &turn)
	l.setState(domain.StateIdle)

	l.info("turn finished", map[string]interface{}{
		"turn_id":  turn.ID,
		"status":   string(turn.Status),
		"depth":    turn.Depth,
		"commands": len(turn.Commands),
	})

	// Persist even when ctx is already cancelled: an aborted Turn is still recorded.
	if err := l.History.Append(context.WithoutCancel(ctx), turn); err != nil {
		l.Display.ShowMessage(domain.MessageError, fmt.Sprintf("could not save history: %v", err))
		return turn, fmt.Errorf("append history: %w", err)
	}
	l.Display.ShowTurn(turn)
	return turn, nil
}

func (l *Loop) run(ctx context.Context, turn *domain.Turn) {
	snapshot := domain.ContextSnapshot{}
	if l.Context != nil {
		var err error
		if snapshot, err = l.Context.Collect(ctx); err != nil {
			l.warn("collect context", map[string]interface{}{"error": err.Error()})
		}
	}

	var earlier []domain.Turn
	if turns, err := l.History.List(ctx); err != nil {
		l.warn("read history for context", map[string]interface{}{"error": err.Error()})
	} else {
		earlier = domain.RecentTurns(turns, l.cfg.GetContextTurns())
	}

	system := systemPrompt(turn.Mode, snapshot)
	prompt := userPrompt(turn.UserInput, earlier)
	maxRecursion := l.cfg.GetMaxRecursion()

	var planned []string
	var attempts []domain.CommandRecord
	// remaining holds planned commands cut off by a failure; they resume
	// once a fix batch succeeds.
	var remaining []domain.CommandRecord

	for {
		raw, err := l.ask(ctx, system, prompt, l.cfg.MaxTokens(turn.Selection()))
		if err != nil {
			l.fail(turn, err)
			return
		}
		if turn.AIText == "" {
			turn.AIText = raw
		} else {
			turn.AIText += "\n\n" + raw
		}

		l.setState(domain.StateInterpreting)
		plan, err := l.Interpreter.Interpret(raw, turn.Mode)
		if err != nil {
			var interpErr *domain.InterpretationError
			if turn.Depth > 0 || !errors.As(err, &interpErr) {
				l.finish(turn, domain.TurnFailed, fmt.Sprintf("could not interpret the reply: %v", err))
				return
			}
			// Nothing usable: keep the raw text as the explanation.
			turn.Explanation = interpret.StripMarkdown(raw)
			l.Display.ShowMessage(domain.MessageWarn, "The reply contained no plan; showing it as is.")
			l.Display.ShowPlan(turn.Explanation, nil)
			l.finish(turn, domain.TurnCompleted, "")
			return
		}

		records := l.classify(plan, turn.Depth)
		if turn.Depth == 0 {
			turn.Explanation = plan.Explanation
			turn.Intent = plan.Intent
			planned = plan.Commands
		}
		l.Display.ShowPlan(plan.Explanation, records)

		if turn.Mode == domain.ModeAsk {
			// Commands are shown, never confirmed or run.
			turn.Commands = append(turn.Commands, records...)
			turn.Answer = plan.Explanation
			l.finish(turn, domain.TurnCompleted, "")
			return
		}
		if len(records) == 0 {
			if turn.Depth > 0 {
				l.finish(turn, domain.TurnFailed, "the fix attempt proposed no commands")
				return
			}
			if plan.Intent == domain.IntentDirect || plan.Intent == domain.IntentAnswer {
				turn.Answer = plan.Explanation
			}
			l.finish(turn, domain.TurnCompleted, "")
			return
		}

		if err := l.confirmBatch(ctx, records); err != nil {
			l.fail(turn, err)
			return
		}

		outcome, err := l.executeBatch(ctx, turn, records)
		if err != nil {
			l.fail(turn, err)
			return
		}
		if outcome.failed == nil && turn.Depth > 0 && outcome.succeeded == 0 {
			last := attempts[len(attempts)-1]
			l.finish(turn, domain.TurnFailed, fmt.Sprintf("fix declined: %s exited with %d and was not fixed",
				last.Command, *last.ExitCode))
			return
		}
		if outcome.failed != nil && turn.Depth == 0 {
			remaining = outcome.rest
		}
		for outcome.failed == nil && len(remaining) > 0 {
			batch := remaining
			remaining = nil
			l.Display.ShowMessage(domain.MessageInfo, fmt.Sprintf("Issue resolved, continuing with %d remaining command(s).", len(batch)))
			if outcome, err = l.executeBatch(ctx, turn, batch); err != nil {
				l.fail(turn, err)
				return
			}
			if outcome.failed != nil {
				remaining = outcome.rest
			}
		}
		failed := outcome.failed
		if failed == nil {
			if turn.Intent == domain.IntentQuery {
				if err := l.answer(ctx, turn); err != nil && domain.IsCancellation(err) {
					l.fail(turn, err)
					return
				}
			}
			l.finish(turn, domain.TurnCompleted, "")
			return
		}

		if turn.Depth >= maxRecursion {
			l.finish(turn, domain.TurnFailed, fmt.Sprintf("giving up after %d fix attempts: %s exited with %d",
				maxRecursion, failed.Command, *failed.ExitCode))
			return
		}

		turn.TransitionStatus(domain.TurnFailed)
		turn.TransitionStatus(domain.TurnPending)
		turn.Depth++
		l.Display.ShowMessage(domain.MessageWarn, fmt.Sprintf("%s exited with %d, asking for a fix (attempt %d/%d)",
			failed.Command, *failed.ExitCode, turn.Depth, maxRecursion))

		prompt = fixPrompt(turn.UserInput, planned, *failed, attempts)
		attempts = append(attempts, *failed)
	}
}

// ask sends one prompt to the active selection while watching for interrupts.
func (l *Loop) ask(ctx context.Context, system, prompt string, maxTokens int) (string, error) {
	var reply string
	err := l.await(ctx, domain.StateAwaitingAI, func(ctx context.Context) error {
		text, err := l.Provider.Send(ctx, ports.ProviderRequest{
			Prompt:    prompt,
			System:    system,
			Selection: l.selection,
			MaxTokens: maxTokens,
		})
		if err != nil {
			return err
		}
		reply = text
		return nil
	})
	if err != nil {
		return "", err
	}
	return reply, nil
}

// classify builds the records of one batch. A confirm hint from the reply
// can only make a command more dangerous.
func (l *Loop) classify(plan domain.Interpretation, attempt int) []domain.CommandRecord {
	records := make([]domain.CommandRecord, 0, len(plan.Commands))
	for i, command := range plan.Commands {
		assessment := l.Classifier.Classify(command)
		if plan.Confirm(i) {
			assessment = assessment.Escalate("the assistant asked for confirmation")
		}
		records = append(records, domain.CommandRecord{
			Command:        command,
			Classification: assessment.Classification,
			Reasons:        assessment.Reasons,
			Attempt:        attempt,
		})
	}
	return records
}

// confirmBatch settles every record of the batch before any of them runs.
func (l *Loop) confirmBatch(ctx context.Context, records []domain.CommandRecord) error {
	l.setState(domain.StateAwaitingConfirmation)
	for i := range records {
		if records[i].Classification != domain.ClassDangerous {
			records[i].Confirmed = true
			continue
		}
		ok, err := l.Display.Confirm(ctx, records[i])
		if err != nil {
			if domain.IsCancellation(err) {
				return err
			}
			l.warn("confirmation failed, treating as denied", map[string]interface{}{"error": err.Error()})
			ok = false
		}
		records[i].Confirmed = ok
	}
	return nil
}

// batchOutcome is what executeBatch reports: the first failed record, the
// records after it that were not reached, and how many commands succeeded.
type batchOutcome struct {
	failed    *domain.CommandRecord
	rest      []domain.CommandRecord
	succeeded int
}

// executeBatch runs confirmed records in order and stops at the first
// failure. Denied records are kept without running.
func (l *Loop) executeBatch(ctx context.Context, turn *domain.Turn, records []domain.CommandRecord) (batchOutcome, error) {
	var outcome batchOutcome
	opts := ports.ExecOptions{
		Timeout:        l.cfg.GetCommandTimeout(),
		MaxOutputBytes: l.cfg.GetMaxOutputBytes(),
	}

	for i, record := range records {
		if !record.Confirmed {
			turn.Commands = append(turn.Commands, record)
			l.Display.ShowResult(record)
			continue
		}

		var result domain.ExecutionResult
		var runErr error
		completed := false
		err := l.await(ctx, domain.StateExecuting, func(ctx context.Context) error {
			result, runErr = l.Executor.Run(ctx, record.Command, opts)
			if runErr != nil && ctx.Err() != nil {
				return ctx.Err()
			}
			completed = true
			return nil
		})
		if completed {
			applyResult(&record, result, runErr)
			turn.Commands = append(turn.Commands, record)
			l.Display.ShowResult(record)
		}
		if err != nil {
			return outcome, err
		}

		l.debug("command executed", map[string]interface{}{
			"command":   record.Command,
			"exit_code": *record.ExitCode,
			"attempt":   record.Attempt,
		})
		if record.Failed() {
			failed := record
			outcome.failed = &failed
			outcome.rest = append([]domain.CommandRecord(nil), records[i+1:]...)
			return outcome, nil
		}
		outcome.succeeded++
	}
	return outcome, nil
}

func applyResult(record *domain.CommandRecord, result domain.ExecutionResult, runErr error) {
	var failure *domain.ExecutionFailure
	if runErr != nil && errors.As(runErr, &failure) {
		record.ExitCode = domain.IntPtr(startFailureExitCode)
		record.Stderr = failure.Error()
		return
	}
	if runErr != nil {
		record.ExitCode = domain.IntPtr(startFailureExitCode)
		record.Stderr = runErr.Error()
		return
	}
	record.ExitCode = domain.IntPtr(result.ExitCode)
	record.Stdout = result.Stdout
	record.Stderr = result.Stderr
	record.Truncated = result.Truncated
	record.DurationMS = result.DurationMS
}

// answer asks for a final answer over the results of a query. Only a
// cancellation is returned to the caller; other failures leave Answer empty.
func (l *Loop) answer(ctx context.Context, turn *domain.Turn) error {
	reply, err := l.ask(ctx, "", answerPrompt(turn.UserInput, turn.Executed()), l.cfg.MaxTokens(turn.Selection()))
	if err != nil {
		if !domain.IsCancellation(err) {
			l.Display.ShowMessage(domain.MessageWarn, fmt.Sprintf("could not get a final answer: %v", err))
		}
		return err
	}
	turn.Answer = interpret.StripMarkdown(reply)
	l.Display.ShowMessage(domain.MessageInfo, turn.Answer)
	return nil
}

// summarize stores a one-line summary for the context window. The AI is not
// asked after an abort or a provider failure; an interrupt during the summary
// call keeps the local summary and leaves the status alone.
func (l *Loop) summarize(ctx context.Context, turn *domain.Turn) {
	turn.Summary = localSummary(*turn)
	if !l.cfg.Session.Summarize || turn.Status == domain.TurnAborted || ctx.Err() != nil {
		return
	}
	if l.providerFailed {
		return
	}
	reply, err := l.ask(ctx, "", summaryPrompt(*turn), domain.SummaryMaxTokens)
	if err != nil {
		l.debug("summary failed", map[string]interface{}{"error": err.Error()})
		return
	}
	if summary := clipWords(interpret.StripMarkdown(reply), domain.MaxSummaryWords); summary != "" {
		turn.Summary = summary
	}
}

func localSummary(turn domain.Turn) string {
	text := clipWords(turn.Explanation, domain.MaxSummaryWords)
	if text == "" {
		text = clipWords(turn.Error, domain.MaxSummaryWords)
	}
	if text == "" {
		text = clipWords(turn.UserInput, domain.MaxSummaryWords)
	}
	switch turn.Status {
	case domain.TurnAborted:
		return "(aborted) " + text
	case domain.TurnFailed:
		return "(failed) " + text
	}
	return text
}

// fail ends the Turn for an error: ABORTED for a cancellation, FAILED
// otherwise with the error text kept verbatim.
func (l *Loop) fail(turn *domain.Turn, err error) {
	if domain.IsCancellation(err) {
		l.setState(domain.StateAborted)
		l.Display.ShowMessage(domain.MessageWarn, "Cancelled.")
		l.finish(turn, domain.TurnAborted, "")
		return
	}
	var providerErr *domain.ProviderError
	if errors.As(err, &providerErr) {
		l.providerFailed = true
	}
	if l.Logger != nil {
		l.Logger.Error("turn failed", err, map[string]interface{}{"turn_id": turn.ID})
	}
	l.finish(turn, domain.TurnFailed, err.Error())
}

func (l *Loop) finish(turn *domain.Turn, status domain.TurnStatus, message string) {
	if !turn.TransitionStatus(status) {
		return
	}
	turn.Error = message
	switch status {
	case domain.TurnFailed:
		l.Display.ShowMessage(domain.MessageError, message)
	case domain.TurnCompleted:
		if executed := len(turn.Executed()); executed > 0 {
			l.Display.ShowMessage(domain.MessageSuccess, fmt.Sprintf("Done: %d command(s) ran.", executed))
		}
	}
}

func (l *Loop) setState(state domain.LoopState) {
	if l.state == state {
		return
	}
	l.state = state
	l.Display.SetState(state)
}

func (l *Loop) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

func (l *Loop) newID() string {
	if l.NewID != nil {
		return l.NewID()
	}
	return uuid.NewString()
}

func (l *Loop) info(msg string, fields map[string]interface{}) {
	if l.Logger != nil {
		l.Logger.Info(msg, fields)
	}
}

func (l *Loop) warn(msg string, fields map[string]interface{}) {
	if l.Logger != nil {
		l.Logger.Warn(msg, fields)
	}
}

func (l *Loop) debug(msg string, fields map[string]interface{}) {
	if l.Logger != nil {
		l.Logger.Debug(msg, fields)
	}
}
