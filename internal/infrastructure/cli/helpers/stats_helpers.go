package helpers

import (
	"sort"
	"strings"

	"github.com/doeshing/cligent-go/internal/domain"
)

// CommandStatistic represents usage statistics for a command
type CommandStatistic struct {
	Command string
	Count   int
}

// TurnStatistics summarises a slice of Turns.
type TurnStatistics struct {
	Turns       int
	ByStatus    map[domain.TurnStatus]int
	ByModel     map[string]int
	Executed    int
	Successful  int
	Dangerous   int
	Declined    int
	FixAttempts int
	CommandFreq map[string]int
}

// AnalyzeTurns counts statuses, models and command outcomes across turns.
func AnalyzeTurns(turns []domain.Turn) TurnStatistics {
	stats := TurnStatistics{
		Turns:       len(turns),
		ByStatus:    make(map[domain.TurnStatus]int),
		ByModel:     make(map[string]int),
		CommandFreq: make(map[string]int),
	}
	for _, turn := range turns {
		stats.ByStatus[turn.Status]++
		stats.ByModel[turn.Selection().String()]++
		stats.FixAttempts += turn.Depth
		for _, record := range turn.Commands {
			if record.Classification == domain.ClassDangerous {
				stats.Dangerous++
				if !record.Confirmed {
					stats.Declined++
				}
			}
			if !record.Ran() {
				continue
			}
			stats.Executed++
			if !record.Failed() {
				stats.Successful++
			}
			stats.CommandFreq[record.Command]++
		}
	}
	return stats
}

// CalculateTopCommands returns the top N most frequently used commands
// If limit is 0 or negative, returns all commands
func CalculateTopCommands(commandFrequency map[string]int, limit int) []CommandStatistic {
	stats := make([]CommandStatistic, 0, len(commandFrequency))
	for cmd, count := range commandFrequency {
		stats = append(stats, CommandStatistic{Command: cmd, Count: count})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count == stats[j].Count {
			return stats[i].Command < stats[j].Command
		}
		return stats[i].Count > stats[j].Count
	})

	if limit > 0 && len(stats) > limit {
		return stats[:limit]
	}
	return stats
}

// CalculateSuccessRate calculates the success rate as a percentage
func CalculateSuccessRate(successfulCount int, executedCount int) float64 {
	if executedCount == 0 {
		return 0.0
	}
	return float64(successfulCount) / float64(executedCount) * 100.0
}

// undoHints maps a command prefix to advice on reverting it.
var undoHints = []struct {
	prefix string
	hint   string
}{
	{"git ", "Use `git status`, `git reflog`, or `git restore` to inspect and undo git changes."},
	{"kubectl ", "Use `kubectl rollout undo` or `kubectl get events` to recover from cluster issues."},
	{"rm ", "Restore files via backups or `git checkout -- <path>` if tracked."},
	{"docker ", "Use `docker ps -a` and `docker logs` to review container history before repeating."},
}

// DeriveUndoHints generates undo hints for the commands that ran in turns.
// Returns a sorted list of unique hints
func DeriveUndoHints(turns []domain.Turn) []string {
	seen := make(map[string]bool)
	for _, turn := range turns {
		for _, record := range turn.Executed() {
			command := strings.ToLower(strings.TrimSpace(record.Command))
			for _, candidate := range undoHints {
				if strings.HasPrefix(command, candidate.prefix) {
					seen[candidate.hint] = true
				}
			}
		}
	}

	hints := make([]string, 0, len(seen))
	for hint := range seen {
		hints = append(hints, hint)
	}
	sort.Strings(hints)
	return hints
}
