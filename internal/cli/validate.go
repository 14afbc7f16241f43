package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/formtree/internal/compiler"
)

// FormSummary describes one valid form.
type FormSummary struct {
	Name  string   `json:"name"`
	Owner string   `json:"owner"`
	Rules []string `json:"rules"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                      `json:"valid"`
	Forms  []FormSummary             `json:"forms,omitempty"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <schema-dir>",
		Short: "Validate form declarations",
		Long: `Validate the CUE form declarations in a schema directory.

Checks declaration shape, duplicate keys, overlapping addresses and
collection names. Every error is reported, not just the first.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, schemaDir string, cmd *cobra.Command) error {
	formatter := newFormatter(cmd, opts)

	loadResult, loadErrors := compiler.LoadDir(schemaDir, compiler.LoadModeCollectAll)

	// Directory not found, no files, CUE syntax errors.
	if loadResult == nil && len(loadErrors) > 0 {
		code, msg := loadErrorCode(loadErrors[0])
		return outputValidateError(formatter, code, msg, nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, schemaDir)

	var validationErrors []compiler.ValidationError
	for _, err := range loadErrors {
		var loadErr *compiler.LoadError
		if errors.As(err, &loadErr) {
			line := 0
			if loadErr.Pos.IsValid() {
				line = loadErr.Pos.Line()
			}
			validationErrors = append(validationErrors, compiler.ValidationError{
				Field:   "form",
				Message: loadErr.Message,
				Code:    loadErr.Code,
				Line:    line,
			})
			continue
		}
		validationErrors = append(validationErrors, compiler.ValidationError{
			Field:   "form",
			Message: err.Error(),
			Code:    compiler.ErrCodeGeneric,
		})
	}

	if len(validationErrors) == 0 && len(loadResult.Forms) == 0 {
		validationErrors = append(validationErrors, compiler.ValidationError{
			Field:   "form",
			Message: "no forms found in schema",
			Code:    compiler.ErrCodeGeneric,
		})
	}

	if len(validationErrors) > 0 {
		return outputValidationErrors(formatter, validationErrors)
	}

	summaries := make([]FormSummary, 0, len(loadResult.Forms))
	for _, form := range loadResult.Forms {
		formatter.VerboseLog("Validated form: %s", form.Name)
		rules, err := form.RuleKeys()
		if err != nil {
			return outputValidateError(formatter, compiler.ErrCodeGeneric, err.Error(), nil)
		}
		summaries = append(summaries, FormSummary{Name: form.Name, Owner: form.Owner, Rules: rules})
	}

	return outputValidateSuccess(formatter, summaries)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, forms []FormSummary) error {
	if formatter.JSON() {
		return formatter.Success(ValidationResult{Valid: true, Forms: forms})
	}

	fmt.Fprintln(formatter.Writer, "✓ All forms valid")
	if formatter.Verbose {
		for _, f := range forms {
			fmt.Fprintf(formatter.Writer, "  %s (%s): %d rule key(s)\n", f.Name, f.Owner, len(f.Rules))
		}
	}
	return nil
}

// outputValidateError outputs a single validation error.
func outputValidateError(formatter *OutputFormatter, code, message string, details interface{}) error {
	_ = formatter.Error(code, message, details)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.JSON() {
		response := CLIResponse{
			Status: "error",
			Data: ValidationResult{
				Valid:  false,
				Errors: errs,
			},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", err.Code, err.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
