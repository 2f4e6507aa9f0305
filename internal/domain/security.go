package domain

// Classification is the safety verdict for a command.
type Classification string

const (
	ClassSafe      Classification = "SAFE"
	ClassDangerous Classification = "DANGEROUS"
)

// Assessment aggregates the classifier's verdict with the rules that fired.
type Assessment struct {
	Classification Classification
	Reasons        []string
	MatchedRules   []string
}

// Dangerous reports whether the command needs an explicit confirmation.
func (a Assessment) Dangerous() bool {
	return a.Classification == ClassDangerous
}

// Escalate marks the assessment dangerous with an extra reason. An
// assessment can only move from SAFE to DANGEROUS, never back.
func (a Assessment) Escalate(reason string) Assessment {
	a.Classification = ClassDangerous
	if reason != "" {
		a.Reasons = append(append([]string(nil), a.Reasons...), reason)
	}
	return a
}

// Interpretation is what the response interpreter extracts from raw AI text.
type Interpretation struct {
	Explanation  string
	Commands     []string
	Intent       Intent
	ConfirmHints []bool
}

// Confirm reports whether the reply itself asked for command i to be confirmed.
func (i Interpretation) Confirm(index int) bool {
	return index < len(i.ConfirmHints) && i.ConfirmHints[index]
}
