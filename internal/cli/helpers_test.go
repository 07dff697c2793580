package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/execdef/internal/backend/sqlbackend"
	"github.com/roach88/execdef/internal/testutil"
)

const missingInsightYAML = `workspace: ws1
insight:
  ref: {identifier: insight.missing, type: insight}
`

const savedInsightYAML = `workspace: ws1
insight:
  ref: {identifier: insight.sales, type: insight}
  filters:
    - negativeAttributeFilter:
        displayForm: {identifier: label.region, type: displayForm}
        notIn: [North]
`

const danglingSortYAML = `workspace: ws1
buckets:
  - localIdentifier: view
    items:
      - attribute: {localIdentifier: a1, displayForm: {identifier: label.region, type: displayForm}}
sortBy:
  - attributeSortItem: {attributeIdentifier: a9, direction: asc}
`

// writeFile writes content to dir/name and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs cmd with args and returns its standard output.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// loadSales loads the sales dataset into a fresh database and returns the
// database path.
func loadSales(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	dataset := writeFile(t, dir, "sales.yaml", testutil.SalesDatasetYAML)
	db := filepath.Join(dir, "execdef.db")

	cmd := NewLoadCommand(&RootOptions{Format: "text"})
	_, err := execute(cmd, "--db", db, dataset)
	require.NoError(t, err)
	return db
}

// newTestExecute returns an execute command with sequential result ids and
// a fixed clock.
func newTestExecute(format string) *cobra.Command {
	return newTestExecuteWithIDs(format, testutil.NewSequenceGenerator("result"))
}

// newTestExecuteWithIDs is newTestExecute with a shared id generator, for
// databases executed against by more than one command.
func newTestExecuteWithIDs(format string, ids sqlbackend.IDGenerator) *cobra.Command {
	opts := &ExecuteOptions{
		RootOptions: &RootOptions{Format: format},
		IDGenerator: ids,
		Now:         func() time.Time { return testutil.SalesDataset("ws1").LoadedAt },
	}
	return newExecuteCommand(opts)
}
