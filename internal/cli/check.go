package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"

	"github.com/benjaminschreck/go-stache/internal/logging"
)

type checkOptions struct {
	dataOptions

	golden  string
	update  bool
	context int
}

func newCheckCommand() *cobra.Command {
	opts := &checkOptions{}

	cmd := &cobra.Command{
		Use:   "check <template>",
		Short: "Compare a rendering with a golden file",
		Long: `Check renders a template and compares the result with a golden file.

On a mismatch a unified diff is printed and the command exits with
status 3. Use --update to rewrite the golden file instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), cmd, args[0], opts)
		},
	}

	registerDataFlags(cmd, &opts.dataOptions)

	f := cmd.Flags()
	f.StringVar(&opts.golden, "golden", "", "golden file holding the expected output (required)")
	f.BoolVar(&opts.update, "update", false, "write the rendering to the golden file")
	f.IntVar(&opts.context, "context", 3, "lines of context in the diff")

	return cmd
}

func runCheck(ctx context.Context, cmd *cobra.Command, path string, opts *checkOptions) error {
	if opts.golden == "" {
		return usageError("--golden is required")
	}

	got, err := renderFile(ctx, cmd, path, &opts.dataOptions)
	if err != nil {
		return err
	}

	logger := logging.FromContext(ctx).WithField("golden", opts.golden)

	if opts.update {
		if err := os.WriteFile(opts.golden, []byte(got), 0o644); err != nil { //nolint:gosec // golden files are fixtures
			return fmt.Errorf("writing golden file: %w", err)
		}
		logger.Info("golden file updated")
		return nil
	}

	want, err := os.ReadFile(opts.golden)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return usageError("golden file %s does not exist (use --update to create it)", opts.golden)
		}
		return fmt.Errorf("reading golden file: %w", err)
	}

	diff, err := UnifiedDiff(string(want), got, opts.golden, path, opts.context)
	if err != nil {
		return err
	}

	if diff == "" {
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s matches %s\n", path, opts.golden)
		return err
	}

	if _, err := fmt.Fprint(cmd.OutOrStdout(), diff); err != nil {
		return err
	}
	return &ExitError{Code: ExitMismatch, Err: fmt.Errorf("rendering of %s differs from %s", path, opts.golden)}
}

// UnifiedDiff returns the unified diff turning want into got, or "" when
// they are equal.
func UnifiedDiff(want, got, wantLabel, gotLabel string, contextLines int) (string, error) {
	if want == got {
		return "", nil
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        splitLines(want),
		B:        splitLines(got),
		FromFile: wantLabel,
		ToFile:   gotLabel,
		Context:  contextLines,
	})
	if err != nil {
		return "", fmt.Errorf("computing diff: %w", err)
	}

	return diff, nil
}

// splitLines keeps the trailing newlines difflib expects.
func splitLines(s string) []string {
	if s == "" {
		return []string{""}
	}

	return strings.SplitAfter(s, "\n")
}
