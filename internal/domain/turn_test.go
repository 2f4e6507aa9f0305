package domain_test

import (
	"testing"

	"github.com/doeshing/cligent-go/internal/domain"
)

func TestTurn_TransitionStatus(t *testing.T) {
	tests := []struct {
		from domain.TurnStatus
		to   domain.TurnStatus
		want bool
	}{
		{domain.TurnPending, domain.TurnCompleted, true},
		{domain.TurnPending, domain.TurnFailed, true},
		{domain.TurnPending, domain.TurnAborted, true},
		{domain.TurnFailed, domain.TurnPending, true},
		{domain.TurnFailed, domain.TurnCompleted, false},
		{domain.TurnCompleted, domain.TurnPending, false},
		{domain.TurnCompleted, domain.TurnFailed, false},
		{domain.TurnAborted, domain.TurnPending, false},
		{domain.TurnAborted, domain.TurnCompleted, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			turn := domain.Turn{Status: tt.from}
			if got := turn.TransitionStatus(tt.to); got != tt.want {
				t.Fatalf("TransitionStatus(%s) = %v, want %v", tt.to, got, tt.want)
			}
			if tt.want && turn.Status != tt.to {
				t.Errorf("status not updated: %s", turn.Status)
			}
			if !tt.want && turn.Status != tt.from {
				t.Errorf("status changed on invalid transition: %s", turn.Status)
			}
		})
	}
}

func TestCommandRecord_RanAndFailed(t *testing.T) {
	denied := domain.CommandRecord{Command: "rm -rf /tmp/x"}
	if denied.Ran() || denied.Failed() {
		t.Error("denied command must not count as run")
	}

	ok := domain.CommandRecord{Command: "ls", ExitCode: domain.IntPtr(0)}
	if !ok.Ran() || ok.Failed() {
		t.Error("zero exit should be run and not failed")
	}

	bad := domain.CommandRecord{Command: "false", ExitCode: domain.IntPtr(1)}
	if !bad.Failed() {
		t.Error("non-zero exit should be failed")
	}

	turn := domain.Turn{Commands: []domain.CommandRecord{denied, ok, bad}}
	if len(turn.Executed()) != 2 {
		t.Errorf("expected 2 executed records, got %d", len(turn.Executed()))
	}
}

func TestAssessment_EscalateNeverDowngrades(t *testing.T) {
	safe := domain.Assessment{Classification: domain.ClassSafe}
	escalated := safe.Escalate("assistant requested confirmation")
	if !escalated.Dangerous() {
		t.Fatal("expected escalation to DANGEROUS")
	}
	if safe.Dangerous() {
		t.Fatal("escalate must not mutate the receiver")
	}
	if len(escalated.Reasons) != 1 {
		t.Errorf("expected one reason, got %v", escalated.Reasons)
	}
}

func TestParseModeAndIntent(t *testing.T) {
	if domain.ParseMode("ask") != domain.ModeAsk || domain.ParseMode("bogus") != domain.ModeWork {
		t.Error("ParseMode mismatch")
	}
	if domain.ModeWork.Toggle() != domain.ModeAsk || domain.ModeAsk.Toggle() != domain.ModeWork {
		t.Error("Toggle mismatch")
	}
	if domain.ParseIntent(" Query ") != domain.IntentQuery || domain.ParseIntent("weird") != "" {
		t.Error("ParseIntent mismatch")
	}
}

func TestContextSnapshot_Line(t *testing.T) {
	line := domain.ContextSnapshot{OS: "Linux", Kernel: "6.1", User: "dev"}.Line()
	want := "OS: Linux | Kernel: 6.1 | Distro: unknown | User: dev"
	if line != want {
		t.Errorf("got %q, want %q", line, want)
	}
}

func TestRecentTurns(t *testing.T) {
	turns := []domain.Turn{{ID: "1"}, {ID: "2"}, {ID: "3"}}
	if got := domain.RecentTurns(turns, 2); len(got) != 2 || got[0].ID != "2" {
		t.Errorf("RecentTurns(2) = %+v", got)
	}
	if got := domain.RecentTurns(turns, 10); len(got) != 3 {
		t.Errorf("RecentTurns(10) = %d turns", len(got))
	}
	if got := domain.RecentTurns(turns, 0); len(got) != 3 {
		t.Errorf("RecentTurns(0) = %d turns", len(got))
	}
}
