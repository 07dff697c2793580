package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/execdef/internal/ir"
	"github.com/roach88/execdef/internal/model"
)

// FingerprintOptions holds flags for the fingerprint command.
type FingerprintOptions struct {
	*RootOptions
	Key bool // also print the fixed-size execution key
}

// FingerprintResult is the JSON payload of the fingerprint command.
type FingerprintResult struct {
	Path        string `json:"path"`
	Workspace   string `json:"workspace"`
	Fingerprint string `json:"fingerprint"`
	Key         string `json:"key,omitempty"`
}

// NewFingerprintCommand creates the fingerprint command.
func NewFingerprintCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FingerprintOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fingerprint <document>",
		Short: "Print the fingerprint of a definition",
		Long: `Print the canonical fingerprint of an execution definition.

Definitions that differ only in the order of bucket items or in
presentation share a fingerprint. Insight references are fingerprinted
after resolution; use execute for those.

Examples:
  execdef fingerprint ./by_region.yaml
  execdef fingerprint ./by_region.cue --key
  execdef fingerprint ./by_region.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFingerprint(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Key, "key", false, "also print the execution key")

	return cmd
}

func runFingerprint(opts *FingerprintOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := opts.Config()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	docs, errs := LoadDocuments([]string{path}, cfg.Workspace, LoadModeFailFast)
	if len(errs) > 0 {
		return formatter.Fail(ExitFailure, "failed to load document", errs[0])
	}
	if len(docs) != 1 {
		return formatter.Fail(ExitCommandError, "fingerprint needs one document", fmt.Errorf("%s holds %d documents", path, len(docs)))
	}

	resolved, ok := docs[0].Preparation.(model.Resolved)
	if !ok {
		return formatter.Fail(ExitFailure, "cannot fingerprint document",
			errors.New("insight references are fingerprinted after resolution"))
	}

	def := resolved.Definition
	result := FingerprintResult{
		Path:        path,
		Workspace:   def.Workspace(),
		Fingerprint: model.Fingerprint(def),
	}
	if opts.Key {
		result.Key = ir.ExecutionKey(result.Workspace, result.Fingerprint)
	}
	formatter.VerboseLog("Fingerprinted %s in workspace %s", path, result.Workspace)

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, result.Fingerprint)
	if opts.Key {
		fmt.Fprintf(w, "key: %s\n", result.Key)
	}
	return nil
}
