package cli

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/formtree/internal/engine"
	"github.com/roach88/formtree/internal/field"
	"github.com/roach88/formtree/internal/input"
	"github.com/roach88/formtree/internal/ir"
)

// SubmitOptions holds flags for the submit command.
type SubmitOptions struct {
	FormOptions
	Data   string   // JSON file, or "-" for stdin
	Fields []string // key=value pairs in bracket or dotted notation
}

// SubmitResult is the submit command's output payload.
type SubmitResult struct {
	Record      string            `json:"record"`
	Data        ir.Object         `json:"data"`
	Collections map[string]string `json:"collections,omitempty"`
	Added       []string          `json:"added,omitempty"`
	Removed     []string          `json:"removed,omitempty"`
	CleanupErr  string            `json:"cleanup_error,omitempty"`
}

// NewSubmitCommand creates the submit command.
func NewSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SubmitOptions{FormOptions: FormOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit data for a form and save the record",
		Long: `Apply a submission to a form, save the record and run its attachment
actions.

The submission is either a nested JSON object (--data, "-" reads stdin) or
a list of --field key=value pairs in bracket or dotted notation. A group
missing from the submission loses all of its items.

Examples:
  formtree submit --schema ./schema --form article --db ./forms.db --data article.json
  formtree submit --schema ./schema --form article --db ./forms.db --record 0192... \
    --field 'title=Trip' --field 'gallery[m1][caption]=Beach'`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(opts, cmd)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVar(&opts.Data, "data", "", `submission as a JSON file ("-" for stdin)`)
	cmd.Flags().StringArrayVar(&opts.Fields, "field", nil, "submitted key=value pair (repeatable)")
	cmd.MarkFlagsMutuallyExclusive("data", "field")

	return cmd
}

func runSubmit(opts *SubmitOptions, cmd *cobra.Command) error {
	formatter := newFormatter(cmd, opts.RootOptions)

	submitted, err := readSubmission(opts, cmd.InOrStdin())
	if err != nil {
		_ = formatter.Error(ErrCodeInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid submission", err)
	}

	ws, err := openWorkspace(&opts.FormOptions, formatter, opts.Logger(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	defer ws.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	ref := ir.RecordRef{Type: ws.form.Owner, ID: opts.Record}
	result, err := ws.engine.Submit(ctx, ws.form, ref, submitted)
	if err != nil {
		return formatter.Reject("submission failed", err)
	}

	out := toSubmitResult(result)
	if formatter.JSON() {
		return formatter.Success(out)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Saved %s\n", out.Record)
	for _, id := range out.Added {
		fmt.Fprintf(w, "  + %s\n", id)
	}
	for _, id := range out.Removed {
		fmt.Fprintf(w, "  - %s\n", id)
	}
	if out.CleanupErr != "" {
		fmt.Fprintf(w, "  cleanup failed: %s\n", out.CleanupErr)
	}
	return nil
}

// readSubmission parses --data or --field into nested record data.
func readSubmission(opts *SubmitOptions, stdin io.Reader) (ir.Object, error) {
	switch {
	case opts.Data == "-":
		return input.ParseJSON(stdin)
	case opts.Data != "":
		f, err := os.Open(opts.Data)
		if err != nil {
			return nil, fmt.Errorf("open submission: %w", err)
		}
		defer f.Close()
		return input.ParseJSON(f)
	case len(opts.Fields) > 0:
		values := url.Values{}
		for _, pair := range opts.Fields {
			key, value, ok := strings.Cut(pair, "=")
			if !ok || key == "" {
				return nil, fmt.Errorf("invalid --field %q: want key=value", pair)
			}
			values.Add(key, value)
		}
		return input.ParseValues(values)
	default:
		return nil, fmt.Errorf("one of --data or --field is required")
	}
}

func toSubmitResult(r *engine.Result) SubmitResult {
	out := SubmitResult{
		Record:      r.Record.String(),
		Data:        r.Data,
		Collections: r.Collections,
	}
	for _, ch := range r.Changes {
		for _, id := range ch.Added {
			out.Added = append(out.Added, field.Join(ch.Address, id))
		}
		for _, it := range ch.Removed {
			out.Removed = append(out.Removed, field.Join(ch.Address, it.ID))
		}
	}
	sort.Strings(out.Added)
	sort.Strings(out.Removed)
	if r.CleanupErr != nil {
		out.CleanupErr = r.CleanupErr.Error()
	}
	return out
}
