package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjaminschreck/go-stache/internal/version"
	"github.com/benjaminschreck/go-stache/pkg/stache"
)

// executeCommand runs the CLI with args and stdin, capturing stdout and stderr.
func executeCommand(stdin string, args ...string) (stdout, stderr string, err error) {
	cmd := NewRootCommand()
	outBuf := new(bytes.Buffer)
	errBuf := new(bytes.Buffer)
	cmd.SetOut(outBuf)
	cmd.SetErr(errBuf)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err = cmd.Execute()

	return outBuf.String(), errBuf.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))

	return p
}

func requireExitCode(t *testing.T, err error, code int) {
	t.Helper()

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, code, exitErr.Code)
}

func TestRootCommand_Help(t *testing.T) {
	stdout, _, err := executeCommand("", "--help")
	require.NoError(t, err)

	for _, sub := range []string{"render", "check", "filters", "version"} {
		assert.Contains(t, stdout, sub, "help should mention %q subcommand", sub)
	}

	for _, flag := range []string{"--config", "--log-level", "--log-format", "--quiet", "--strict", "--sprig"} {
		assert.Contains(t, stdout, flag, "help should mention %q flag", flag)
	}
}

func TestRootCommand_UnknownFlag(t *testing.T) {
	_, stderr, err := executeCommand("", "--nonexistent")
	requireExitCode(t, err, ExitUsage)
	assert.Empty(t, stderr, "cobra should not print errors itself")
}

func TestRootCommand_InvalidConfig(t *testing.T) {
	_, _, err := executeCommand("", "--config", "/nonexistent/stache.yaml", "filters")
	requireExitCode(t, err, ExitUsage)

	_, _, err = executeCommand("", "--log-level", "loud", "filters")
	requireExitCode(t, err, ExitUsage)
}

func TestExitError(t *testing.T) {
	inner := errors.New("boom")
	err := &ExitError{Code: 3, Err: inner}
	assert.Equal(t, "boom", err.Error())
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "exit code 2", (&ExitError{Code: 2}).Error())
}

func TestRenderCommand(t *testing.T) {
	dir := t.TempDir()
	tmpl := writeFile(t, dir, "page.tmpl", "Hello {{capitalized(user.name)}}, you have {{comma(count)}} {{#items}}[{{.}}]{{/items}}\n")
	dataFile := writeFile(t, dir, "data.yaml", "user:\n  name: ada\ncount: 1200\nitems: [a, b]\n")

	stdout, _, err := executeCommand("", "render", tmpl, "-d", dataFile)
	require.NoError(t, err)
	assert.Equal(t, "Hello Ada, you have 1,200 [a][b]\n", stdout)
}

func TestRenderCommand_SetAndStdin(t *testing.T) {
	dir := t.TempDir()
	tmpl := writeFile(t, dir, "page.tmpl", "{{uppercase(name)}} {{team}}")

	stdout, _, err := executeCommand(`{"name": "ada", "team": "core"}`,
		"render", tmpl, "-d", "-", "--set", "team=platform")
	require.NoError(t, err)
	assert.Equal(t, "ADA platform", stdout)
}

func TestRenderCommand_OutputFile(t *testing.T) {
	dir := t.TempDir()
	tmpl := writeFile(t, dir, "page.tmpl", "{{x}}")
	out := filepath.Join(dir, "out.txt")

	stdout, _, err := executeCommand("", "render", tmpl, "--set", "x=<b>", "-o", out)
	require.NoError(t, err)
	assert.Empty(t, stdout)

	written, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "&lt;b&gt;", string(written))
}

func TestRenderCommand_Errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("unknown filter", func(t *testing.T) {
		tmpl := writeFile(t, dir, "unknown.tmpl", "{{nope(x)}}")
		_, _, err := executeCommand("", "render", tmpl)
		requireExitCode(t, err, ExitRender)
		assert.ErrorIs(t, err, stache.ErrUnknownFilter)
	})

	t.Run("strict undefined variable", func(t *testing.T) {
		tmpl := writeFile(t, dir, "strict.tmpl", "{{missing}}")
		_, _, err := executeCommand("", "--strict", "render", tmpl)
		requireExitCode(t, err, ExitRender)
		assert.ErrorIs(t, err, stache.ErrUndefinedVariable)

		stdout, _, err := executeCommand("", "render", tmpl)
		require.NoError(t, err)
		assert.Empty(t, stdout)
	})

	t.Run("syntax error", func(t *testing.T) {
		tmpl := writeFile(t, dir, "broken.tmpl", "{{#a}}")
		_, _, err := executeCommand("", "render", tmpl)
		requireExitCode(t, err, ExitRender)
		assert.True(t, stache.IsTemplateError(err))
	})

	t.Run("missing template", func(t *testing.T) {
		_, _, err := executeCommand("", "render", filepath.Join(dir, "absent.tmpl"))
		requireExitCode(t, err, ExitRender)
	})

	t.Run("bad data", func(t *testing.T) {
		tmpl := writeFile(t, dir, "ok.tmpl", "{{x}}")
		_, _, err := executeCommand("", "render", tmpl, "--set", "novalue")
		requireExitCode(t, err, ExitUsage)
	})

	t.Run("watch with stdin", func(t *testing.T) {
		tmpl := writeFile(t, dir, "watch.tmpl", "{{x}}")
		_, _, err := executeCommand("", "render", tmpl, "-d", "-", "--watch")
		requireExitCode(t, err, ExitUsage)
	})
}

func TestRenderCommand_Sprig(t *testing.T) {
	dir := t.TempDir()
	tmpl := writeFile(t, dir, "page.tmpl", "{{snakecase(name)}}")

	_, _, err := executeCommand("", "render", tmpl, "--set", "name=HelloWorld")
	assert.ErrorIs(t, err, stache.ErrUnknownFilter)

	stdout, _, err := executeCommand("", "--sprig", "render", tmpl, "--set", "name=HelloWorld")
	require.NoError(t, err)
	assert.Equal(t, "hello_world", stdout)
}

func TestCheckCommand(t *testing.T) {
	dir := t.TempDir()
	tmpl := writeFile(t, dir, "page.tmpl", "a\n{{x}}\nc\n")
	golden := writeFile(t, dir, "page.golden", "a\nb\nc\n")

	stdout, _, err := executeCommand("", "check", tmpl, "--set", "x=b", "--golden", golden)
	require.NoError(t, err)
	assert.Contains(t, stdout, "matches")

	stdout, _, err = executeCommand("", "check", tmpl, "--set", "x=B", "--golden", golden)
	requireExitCode(t, err, ExitMismatch)
	assert.Contains(t, stdout, "--- "+golden)
	assert.Contains(t, stdout, "+++ "+tmpl)
	assert.Contains(t, stdout, "-b\n")
	assert.Contains(t, stdout, "+B\n")
}

func TestCheckCommand_Update(t *testing.T) {
	dir := t.TempDir()
	tmpl := writeFile(t, dir, "page.tmpl", "{{x}}")
	golden := filepath.Join(dir, "page.golden")

	_, _, err := executeCommand("", "check", tmpl, "--set", "x=1", "--golden", golden)
	requireExitCode(t, err, ExitUsage)

	_, _, err = executeCommand("", "check", tmpl, "--set", "x=1", "--golden", golden, "--update")
	require.NoError(t, err)

	written, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Equal(t, "1", string(written))

	_, _, err = executeCommand("", "check", tmpl, "--set", "x=1", "--golden", golden)
	require.NoError(t, err)
}

func TestCheckCommand_RequiresGolden(t *testing.T) {
	tmpl := writeFile(t, t.TempDir(), "page.tmpl", "x")
	_, _, err := executeCommand("", "check", tmpl)
	requireExitCode(t, err, ExitUsage)
}

func TestUnifiedDiff(t *testing.T) {
	diff, err := UnifiedDiff("same\n", "same\n", "want", "got", 3)
	require.NoError(t, err)
	assert.Empty(t, diff)

	diff, err = UnifiedDiff("", "new\n", "want", "got", 3)
	require.NoError(t, err)
	assert.Contains(t, diff, "+new")
}

func TestFiltersCommand(t *testing.T) {
	stdout, _, err := executeCommand("", "filters")
	require.NoError(t, err)
	assert.Regexp(t, `(?m)^uppercase\s+string$`, stdout)
	assert.Regexp(t, `(?m)^join\s+variadic$`, stdout)
	assert.Regexp(t, `(?m)^isEmpty\s+value$`, stdout)
	assert.NotContains(t, stdout, "snakecase")

	stdout, _, err = executeCommand("", "--sprig", "filters", "--json")
	require.NoError(t, err)

	var entries []filterEntry
	require.NoError(t, json.Unmarshal([]byte(stdout), &entries))
	assert.Contains(t, entries, filterEntry{Name: "snakecase", Kind: "variadic"})
	assert.Contains(t, entries, filterEntry{Name: "uppercase", Kind: "string"})
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := executeCommand("", "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "stache dev")

	stdout, _, err = executeCommand("", "version", "--json")
	require.NoError(t, err)

	var info version.Info
	require.NoError(t, json.Unmarshal([]byte(stdout), &info))
	assert.Equal(t, "dev", info.Version)

	_, _, err = executeCommand("", "version", "extra")
	require.Error(t, err)
}
