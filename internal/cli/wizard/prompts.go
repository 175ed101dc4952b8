// Package wizard provides interactive prompts for CLI commands.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"

	"github.com/andywolf/csv2issues/internal/pipeline"
)

// ConfirmRun shows the run plan and asks whether to create the issues.
func ConfirmRun(plan pipeline.Plan) (bool, error) {
	var confirmed bool

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Ready to create issues").
				Description(DescribePlan(plan)),

			huh.NewConfirm().
				Title("Create labels and issues now?").
				Affirmative("Create").
				Negative("Cancel").
				Value(&confirmed),
		),
	)

	if err := form.Run(); err != nil {
		return false, fmt.Errorf("prompt cancelled: %w", err)
	}

	return confirmed, nil
}

// DescribePlan renders plan for the confirmation note.
func DescribePlan(plan pipeline.Plan) string {
	desc := fmt.Sprintf("Repository: %s\nCSV file: %s\nIssues: %d", plan.Repository, plan.CSVFile, plan.Issues)
	if skipped := plan.Rows - plan.Issues; skipped > 0 {
		desc += fmt.Sprintf(" (%d rows without a title will be skipped)", skipped)
	}
	return desc
}

// Confirmer gates a run on an interactive prompt. It approves without
// asking when Yes is set or stdin is not a terminal.
type Confirmer struct {
	Yes bool

	// Interactive reports whether a prompt can be shown. Defaults to a
	// terminal check on stdin.
	Interactive func() bool

	// Prompt asks the question. Defaults to ConfirmRun.
	Prompt func(pipeline.Plan) (bool, error)
}

// Confirm implements pipeline.Confirmer.
func (c *Confirmer) Confirm(ctx context.Context, plan pipeline.Plan) (bool, error) {
	if c.Yes {
		return true, nil
	}

	interactive := c.Interactive
	if interactive == nil {
		interactive = StdinIsTerminal
	}
	if !interactive() {
		return true, nil
	}

	if err := ctx.Err(); err != nil {
		return false, err
	}

	prompt := c.Prompt
	if prompt == nil {
		prompt = ConfirmRun
	}
	ok, err := prompt(plan)
	if errors.Is(err, huh.ErrUserAborted) {
		// Ctrl+C at the prompt is a decline.
		return false, nil
	}
	return ok, err
}

// StdinIsTerminal reports whether stdin is a character device.
func StdinIsTerminal() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
