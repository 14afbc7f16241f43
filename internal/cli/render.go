package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/formtree/internal/engine"
	"github.com/roach88/formtree/internal/ir"
)

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FormOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Bind a form to a record and print its fields",
		Long: `Bind a form to a stored record, or to a new one, and print every field
with its address, its rule key, its collection and its current value.

Each repeating group also prints its template item.

Example:
  formtree render --schema ./schema --form article --db ./forms.db --record 0192...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(opts, cmd)
		},
	}

	opts.register(cmd)
	return cmd
}

func runRender(opts *FormOptions, cmd *cobra.Command) error {
	formatter := newFormatter(cmd, opts.RootOptions)

	ws, err := openWorkspace(opts, formatter, opts.Logger(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	defer ws.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	bound, err := ws.engine.Bind(ctx, ws.form, ir.RecordRef{Type: ws.form.Owner, ID: opts.Record})
	if err != nil {
		return formatter.Reject("failed to bind form", err)
	}

	if formatter.JSON() {
		return formatter.Success(bound)
	}
	printBound(formatter.Writer, bound)
	return nil
}

// printBound writes the bound form as an indented outline.
func printBound(w io.Writer, b *engine.BoundForm) {
	fmt.Fprintf(w, "%s %s\n", b.Form, b.Record)
	printLevel(w, b.Fields, b.Groups, 1)
}

func printLevel(w io.Writer, fields []engine.BoundField, groups []engine.BoundGroup, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, f := range fields {
		fmt.Fprintf(w, "%s%s", indent, f.Address)
		if f.Attachment {
			fmt.Fprintf(w, " [%s: %d]", f.Collection, len(f.Attachments))
		} else if f.Value != nil {
			if data, err := ir.MarshalCanonical(f.Value); err == nil {
				fmt.Fprintf(w, " = %s", data)
			}
		}
		fmt.Fprintln(w)
	}
	for _, g := range groups {
		fmt.Fprintf(w, "%s%s (%d item(s))\n", indent, g.Address, len(g.Items))
		for _, it := range g.Items {
			fmt.Fprintf(w, "%s  #%d %s\n", indent, it.Index, it.ID)
			printLevel(w, it.Fields, it.Groups, depth+2)
		}
	}
}
