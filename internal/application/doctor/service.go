package doctor

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	appconfig "github.com/doeshing/cligent-go/internal/application/config"
	"github.com/doeshing/cligent-go/internal/domain"
	"github.com/doeshing/cligent-go/internal/ports"
)

// Service runs environment diagnostics.
type Service struct {
	ConfigProvider   ports.ConfigProvider
	Classifier       ports.SafetyClassifier
	ContextCollector ports.ContextCollector
	History          ports.SessionHistory
	// Shell is the interpreter commands run with.
	Shell string
}

// Run executes checks and returns a report.
func (s *Service) Run(ctx context.Context) (domain.HealthReport, error) {
	var checks []domain.HealthCheck

	cfg, err := s.ConfigProvider.Load(ctx)
	if err != nil {
		checks = append(checks, fail("Config file", fmt.Sprintf("load failed: %v", err)))
		return domain.HealthReport{Checks: checks}, err
	}
	if err := appconfig.Validate(cfg); err != nil {
		checks = append(checks, fail("Config file", strings.ReplaceAll(err.Error(), "\n", "; ")))
	} else {
		checks = append(checks, ok("Config file", fmt.Sprintf("format version %s", cfg.ConfigFormatVersion)))
	}

	checks = append(checks, providerChecks(cfg)...)
	checks = append(checks, s.guardrailCheck())

	if s.History != nil {
		if turns, err := s.History.List(ctx); err != nil {
			checks = append(checks, fail("History", err.Error()))
		} else {
			checks = append(checks, ok("History", fmt.Sprintf("%d turns recorded", len(turns))))
		}
	}

	if s.ContextCollector != nil {
		if snapshot, err := s.ContextCollector.Collect(ctx); err == nil {
			checks = append(checks, ok("System context", snapshot.Line()))
		} else {
			checks = append(checks, warn("System context", err.Error()))
		}
	}

	if s.Shell != "" {
		if path, err := exec.LookPath(s.Shell); err != nil {
			checks = append(checks, fail("Shell", fmt.Sprintf("%s not found", s.Shell)))
		} else {
			checks = append(checks, ok("Shell", path))
		}
	}

	return domain.HealthReport{Checks: checks}, nil
}

func providerChecks(cfg domain.Config) []domain.HealthCheck {
	var checks []domain.HealthCheck
	for _, provider := range cfg.Providers {
		name := "Provider " + provider.ID
		switch {
		case !provider.Enabled:
			continue
		case provider.ResolveAPIKey() == "":
			details := "API key missing"
			if provider.APIKeyEnv != "" {
				details = fmt.Sprintf("set %s or api_key", provider.APIKeyEnv)
			}
			checks = append(checks, warn(name, details))
		case len(provider.EnabledModels()) == 0:
			checks = append(checks, warn(name, "no enabled models"))
		default:
			checks = append(checks, ok(name, fmt.Sprintf("%s, %d models", provider.Kind, len(provider.EnabledModels()))))
		}
	}

	if sel, err := cfg.ActiveSelection(); err != nil {
		checks = append(checks, fail("Active model", err.Error()))
	} else {
		checks = append(checks, ok("Active model", sel.String()))
	}
	return checks
}

// guardrailCheck makes sure the rules still separate an obviously
// destructive command from a harmless one.
func (s *Service) guardrailCheck() domain.HealthCheck {
	if s.Classifier == nil {
		return warn("Guardrail", "classifier not initialized")
	}
	if !s.Classifier.Classify("rm -rf /").Dangerous() {
		return fail("Guardrail", "rules do not flag 'rm -rf /'")
	}
	if s.Classifier.Classify("ls").Dangerous() {
		return fail("Guardrail", "rules flag 'ls' as dangerous")
	}
	details := "rules loaded"
	if src, ok := s.Classifier.(interface{ Source() string }); ok {
		details = "rules loaded from " + src.Source()
	}
	return ok("Guardrail", details)
}

func ok(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthOK, Details: details}
}

func warn(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthWarn, Details: details}
}

func fail(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthError, Details: details}
}
