package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/apex/log"
	"github.com/spf13/cobra"

	"github.com/benjaminschreck/go-stache/internal/data"
	"github.com/benjaminschreck/go-stache/internal/logging"
	"github.com/benjaminschreck/go-stache/internal/watch"
)

// dataOptions are the data source flags shared by render and check.
type dataOptions struct {
	files  []string
	values []string
}

func registerDataFlags(cmd *cobra.Command, opts *dataOptions) {
	f := cmd.Flags()
	f.StringArrayVarP(&opts.files, "data", "d", nil, "JSON or YAML data file, - for stdin (repeatable, last wins)")
	f.StringArrayVar(&opts.values, "set", nil, "set a data value (key.path=value, repeatable)")
}

func (o *dataOptions) load(stdin io.Reader) (map[string]interface{}, error) {
	return data.Load(data.Options{
		Files:  o.files,
		Values: o.values,
		Stdin:  stdin,
	})
}

type renderOptions struct {
	dataOptions

	output   string
	watch    bool
	debounce time.Duration
}

func newRenderCommand() *cobra.Command {
	opts := &renderOptions{}

	cmd := &cobra.Command{
		Use:   "render <template>",
		Short: "Render a template with data",
		Long: `Render parses a template file and renders it against data loaded
from JSON or YAML files and --set overrides.

With --watch the template is rendered again whenever the template or
one of its data files changes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd.Context(), cmd, args[0], opts)
		},
	}

	registerDataFlags(cmd, &opts.dataOptions)

	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", "", "output file path (default: stdout)")
	f.BoolVarP(&opts.watch, "watch", "w", false, "re-render when the template or data changes")
	f.DurationVar(&opts.debounce, "debounce", 300*time.Millisecond, "debounce interval for --watch")

	return cmd
}

func runRender(ctx context.Context, cmd *cobra.Command, path string, opts *renderOptions) error {
	if !opts.watch {
		return renderOnce(ctx, cmd, path, opts)
	}

	files := []string{path}
	for _, f := range opts.files {
		if f == data.Stdin {
			return usageError("--watch cannot read data from stdin")
		}
		files = append(files, f)
	}

	watchOpts := watch.DefaultOptions()
	watchOpts.Files = files
	watchOpts.Debounce = opts.debounce
	watchOpts.Logger = logging.FromContext(ctx)
	watchOpts.Out = cmd.ErrOrStderr()

	return watch.Run(ctx, watchOpts, func(runCtx context.Context) error {
		// The cached parse is stale once the file changed.
		engineFromContext(runCtx).ClearCache()
		return renderOnce(runCtx, cmd, path, opts)
	})
}

func renderOnce(ctx context.Context, cmd *cobra.Command, path string, opts *renderOptions) error {
	out, err := renderFile(ctx, cmd, path, &opts.dataOptions)
	if err != nil {
		return err
	}

	if opts.output == "" {
		_, err = io.WriteString(cmd.OutOrStdout(), out)
		return err
	}

	if err := os.WriteFile(opts.output, []byte(out), 0o644); err != nil { //nolint:gosec // rendered output is not secret
		return fmt.Errorf("writing output: %w", err)
	}

	logging.FromContext(ctx).WithFields(log.Fields{
		"template": path,
		"output":   opts.output,
		"bytes":    len(out),
	}).Info("rendered")

	return nil
}

// renderFile loads the data and renders the template at path.
func renderFile(ctx context.Context, cmd *cobra.Command, path string, opts *dataOptions) (string, error) {
	values, err := opts.load(cmd.InOrStdin())
	if err != nil {
		return "", &ExitError{Code: ExitUsage, Err: err}
	}

	tmpl, err := engineFromContext(ctx).ParseFile(path)
	if err != nil {
		return "", &ExitError{Code: ExitRender, Err: err}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, values); err != nil {
		return "", &ExitError{Code: ExitRender, Err: fmt.Errorf("rendering %s: %w", path, err)}
	}

	logging.FromContext(ctx).WithField("template", path).Debug("template rendered")

	return buf.String(), nil
}
