package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/formtree/internal/ir"
	"github.com/roach88/formtree/internal/store"
)

// UploadOptions holds flags for the upload command.
type UploadOptions struct {
	*RootOptions
	Database string
}

// NewUploadCommand creates the upload command.
func NewUploadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UploadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "upload <name>...",
		Short: "Register pending attachments",
		Long: `Register one pending attachment per name and print the new ids.

Pending attachments have no owner. A later submit attaches them by id
to the record and collection of the field they are submitted for.

Example:
  formtree upload --db ./forms.db beach.png sunset.png`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpload(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runUpload(opts *UploadOptions, names []string, cmd *cobra.Command) error {
	formatter := newFormatter(cmd, opts.RootOptions)
	logger := opts.Logger(cmd.ErrOrStderr())

	st, err := store.Open(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	created := make([]ir.Attachment, 0, len(names))
	for _, name := range names {
		a, err := st.CreatePending(ctx, name)
		if err != nil {
			_ = formatter.Error(ErrCodeDatabase, err.Error(), map[string]string{"name": name})
			return WrapExitError(ExitCommandError, "failed to register upload", err)
		}
		logger.Debug("pending attachment created", "id", a.ID, "name", name)
		created = append(created, a)
	}

	if formatter.JSON() {
		return formatter.Success(created)
	}
	for _, a := range created {
		fmt.Fprintf(formatter.Writer, "%s\t%s\n", a.ID, a.Name)
	}
	return nil
}
