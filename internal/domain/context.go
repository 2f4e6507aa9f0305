package domain

import "strings"

// ContextSnapshot holds environment data injected into prompts.
type ContextSnapshot struct {
	OS         string
	Kernel     string
	Distro     string
	User       string
	Shell      string
	WorkingDir string
}

// Line renders the snapshot as the single line placed in system prompts.
func (s ContextSnapshot) Line() string {
	parts := []string{
		"OS: " + orUnknown(s.OS),
		"Kernel: " + orUnknown(s.Kernel),
		"Distro: " + orUnknown(s.Distro),
		"User: " + orUnknown(s.User),
	}
	if s.Shell != "" {
		parts = append(parts, "Shell: "+s.Shell)
	}
	if s.WorkingDir != "" {
		parts = append(parts, "CWD: "+s.WorkingDir)
	}
	return strings.Join(parts, " | ")
}

func orUnknown(value string) string {
	if strings.TrimSpace(value) == "" {
		return "unknown"
	}
	return value
}
