package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/execdef/internal/deffile"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Dataset bool // validate dataset documents instead of execution documents
}

// ValidationIssue is one invalid document.
type ValidationIssue struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <path>...",
		Short: "Validate execution or dataset documents",
		Long: `Validate execution documents without executing them.

Each path is a YAML or CUE document or a directory searched for them.
Documents are decoded and built into definitions, so unknown local
identifiers, duplicate identifiers and malformed filters are reported
with the location that caused them. All documents are checked before
reporting.

Examples:
  execdef validate ./queries
  execdef validate ./by_region.yaml ./by_date.cue
  execdef validate --dataset ./sales.yaml --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Dataset, "dataset", false, "validate dataset documents")

	return cmd
}

func runValidate(opts *ValidateOptions, paths []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	var (
		count int
		errs  []error
	)
	if opts.Dataset {
		count, errs = validateDatasets(paths)
	} else {
		cfg, err := opts.Config()
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load config", err)
		}
		var docs []LoadedDocument
		docs, errs = LoadDocuments(paths, cfg.Workspace, LoadModeCollectAll)
		count = len(docs) + len(errs)
	}

	if len(errs) == 1 && isPathError(errs[0]) {
		return formatter.Fail(ExitCommandError, "nothing to validate", errs[0])
	}
	if len(errs) > 0 {
		return outputValidationErrors(formatter, toIssues(errs))
	}

	formatter.VerboseLog("Validated %d document(s)", count)
	if opts.Format == "json" {
		return formatter.Success(map[string]any{"valid": true, "documents": count})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\u2713 All documents valid (%d)\n", count)
	return nil
}

// validateDatasets checks that every dataset converts to a store dataset
// and that its insights build.
func validateDatasets(paths []string) (int, []error) {
	var files []string
	for _, p := range paths {
		found, err := FindDocumentFiles(p)
		if err != nil {
			return 0, []error{&LoadError{Path: p, Code: ErrorCode(err), Err: err}}
		}
		files = append(files, found...)
	}

	var errs []error
	for _, file := range files {
		if err := validateDataset(file); err != nil {
			errs = append(errs, &LoadError{Path: file, Code: ErrorCode(err), Err: err})
		}
	}
	return len(files), errs
}

func validateDataset(path string) error {
	doc, err := deffile.LoadDataset(path)
	if err != nil {
		return err
	}
	if _, err := doc.StoreDataset(time.Time{}); err != nil {
		return err
	}
	_, err = doc.InsightRecords()
	return err
}

// isPathError reports whether err means there was nothing to read.
func isPathError(err error) bool {
	return errors.Is(err, errNoFiles) || errors.Is(err, fs.ErrNotExist)
}

func toIssues(errs []error) []ValidationIssue {
	issues := make([]ValidationIssue, 0, len(errs))
	for _, err := range errs {
		var le *LoadError
		if errors.As(err, &le) {
			issues = append(issues, ValidationIssue{Path: le.Path, Code: le.Code, Message: le.Err.Error()})
			continue
		}
		issues = append(issues, ValidationIssue{Code: ErrorCode(err), Message: err.Error()})
	}
	return issues
}

// outputValidationErrors reports every issue and fails with ExitFailure.
func outputValidationErrors(formatter *OutputFormatter, issues []ValidationIssue) error {
	if formatter.Format == "json" {
		if err := json.NewEncoder(formatter.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    issues[0].Code,
				Message: fmt.Sprintf("%d document(s) invalid", len(issues)),
				Details: issues,
			},
		}); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(formatter.Writer, "\u2717 Validation failed (%d error(s))\n", len(issues))
		for _, issue := range issues {
			fmt.Fprintf(formatter.Writer, "  %s [%s]: %s\n", issue.Path, issue.Code, issue.Message)
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed: %d document(s) invalid", len(issues)))
}
