package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doeshing/cligent-go/internal/app"
	"github.com/doeshing/cligent-go/internal/domain"
	"github.com/doeshing/cligent-go/internal/infrastructure/security"
)

// NewGuardrailCommand creates the guardrail command. Classification itself
// cannot be switched off; these subcommands only inspect it.
func NewGuardrailCommand(container *app.Container) *cobra.Command {
	guardrailCmd := &cobra.Command{
		Use:   "guardrail",
		Short: "Inspect the command safety rules",
	}

	guardrailCmd.AddCommand(
		newGuardrailRulesCommand(container),
		newGuardrailCheckCommand(container),
	)

	return guardrailCmd
}

// newGuardrailRulesCommand lists the loaded rules
func newGuardrailRulesCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the danger patterns in effect",
		RunE: func(cmd *cobra.Command, args []string) error {
			guardrail, err := guardrailOf(container)
			if err != nil {
				return err
			}
			showGuardrailRules(cmd.OutOrStdout(), guardrail)
			return nil
		},
	}
}

// newGuardrailCheckCommand classifies a command without running it
func newGuardrailCheckCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "check <command...>",
		Short: "Classify a command as SAFE or DANGEROUS",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			guardrail, err := guardrailOf(container)
			if err != nil {
				return err
			}
			showAssessment(cmd.OutOrStdout(), guardrail.Classify(strings.Join(args, " ")))
			return nil
		},
	}
}

func guardrailOf(container *app.Container) (*security.Guardrail, error) {
	if container.Guardrail == nil {
		return nil, errors.New(ErrGuardrailUnavailable)
	}
	return container.Guardrail, nil
}

// showGuardrailRules prints each rule with its category
func showGuardrailRules(out io.Writer, guardrail *security.Guardrail) {
	fmt.Fprintf(out, "Rules file: %s\n", guardrail.Source())
	for _, rule := range guardrail.Rules() {
		fmt.Fprintf(out, "  [%s] %-12s %s\n", rule.Level, rule.Category, rule.Pattern)
		if rule.Message != "" {
			fmt.Fprintf(out, "        %s\n", rule.Message)
		}
	}
}

// showAssessment prints a classification and the reasons behind it
func showAssessment(out io.Writer, assessment domain.Assessment) {
	fmt.Fprintln(out, assessment.Classification)
	for _, reason := range assessment.Reasons {
		fmt.Fprintf(out, "  - %s\n", reason)
	}
}
