package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/formtree/internal/compiler"
	"github.com/roach88/formtree/internal/engine"
	"github.com/roach88/formtree/internal/store"
)

// Error codes for command-level failures that carry no code of their own.
const (
	ErrCodeUnknownForm = "E020"
	ErrCodeDatabase    = "E021"
	ErrCodeInput       = "E022"
	ErrCodeRecord      = "E023"
)

// FormOptions holds the flags shared by commands that act on one form.
type FormOptions struct {
	*RootOptions
	Schema   string
	Form     string
	Database string
	Record   string
	// Collection overrides the collection of undeclared root attachment fields.
	Collection string
}

func (o *FormOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Schema, "schema", "", "directory of the CUE schema package (required)")
	cmd.Flags().StringVar(&o.Form, "form", "", "form name (required)")
	cmd.Flags().StringVar(&o.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&o.Record, "record", "", "record id; empty for a new record")
	cmd.Flags().StringVar(&o.Collection, "default-collection", "", "collection for root attachment fields without one")
	_ = cmd.MarkFlagRequired("schema")
	_ = cmd.MarkFlagRequired("form")
	_ = cmd.MarkFlagRequired("db")
}

// workspace is a compiled form plus an open store and an engine over it.
type workspace struct {
	form   *engine.Form
	store  *store.Store
	engine *engine.Engine
}

func (w *workspace) Close() error {
	return w.store.Close()
}

// openWorkspace loads the schema, picks the form and opens the database.
// Failures are reported through formatter and returned as exit errors.
func openWorkspace(opts *FormOptions, formatter *OutputFormatter, logger *slog.Logger) (*workspace, error) {
	loaded, errs := compiler.LoadDir(opts.Schema, compiler.LoadModeFailFast)
	if len(errs) > 0 {
		code, msg := loadErrorCode(errs[0])
		_ = formatter.Error(code, msg, nil)
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, msg))
	}
	formatter.VerboseLog("Loaded %d form(s) from %d CUE file(s)", len(loaded.Forms), loaded.FileCount)

	form, ok := loaded.Form(opts.Form)
	if !ok {
		msg := fmt.Sprintf("form %q not found in %s", opts.Form, opts.Schema)
		_ = formatter.Error(ErrCodeUnknownForm, msg, nil)
		return nil, NewExitError(ExitCommandError, msg)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	logger.Debug("database ready", "path", opts.Database)

	engOpts := []engine.EngineOption{engine.WithLogger(logger)}
	if opts.Collection != "" {
		engOpts = append(engOpts, engine.WithDefaultCollection(opts.Collection))
	}
	return &workspace{
		form:   form,
		store:  st,
		engine: engine.New(st, st, engOpts...),
	}, nil
}

// loadErrorCode returns the code and message to report for a load error.
func loadErrorCode(err error) (string, string) {
	var loadErr *compiler.LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	return compiler.ErrCodeGeneric, err.Error()
}
