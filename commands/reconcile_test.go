package commands_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"budgetledger/commands"
	"budgetledger/config"
	"budgetledger/services"
	"budgetledger/testhelpers"
)

func runReconcile(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := commands.NewReconcileCommand(config.Default(), zap.NewNop())
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeSampleWorkbook(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "estimate.xlsx")
	xlsx := testhelpers.BuildEstimateWorkbook(t, "内訳", testhelpers.SampleEstimateRows())
	require.NoError(t, os.WriteFile(path, xlsx, 0o644))
	return path
}

func TestReconcileCommand_FullResult(t *testing.T) {
	out, err := runReconcile(t, writeSampleWorkbook(t))
	require.NoError(t, err)

	var res services.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Len(t, res.Rows, 5)
	assert.Equal(t, []string{"内訳"}, res.Sheets)
	assert.Equal(t, 645000.0, res.Summary.GrandTotal)
	assert.Equal(t, 1, res.Stats.EmptyRows)
}

func TestReconcileCommand_SummaryOnly(t *testing.T) {
	out, err := runReconcile(t, writeSampleWorkbook(t), "--summary-only")
	require.NoError(t, err)

	var flat map[string]float64
	require.NoError(t, json.Unmarshal([]byte(out), &flat))
	assert.Equal(t, 500000.0, flat["subcontract"])
	assert.Equal(t, 75000.0, flat["labor"])
	assert.Equal(t, 30000.0, flat["material"])
	assert.Equal(t, 40000.0, flat["machine"])
	assert.Equal(t, 0.0, flat["expense"])
	assert.Equal(t, 645000.0, flat["grand_total"])
}

func TestReconcileCommand_Table(t *testing.T) {
	out, err := runReconcile(t, writeSampleWorkbook(t), "--table")
	require.NoError(t, err)

	assert.Contains(t, out, "UNIT PRICE")
	assert.Contains(t, out, "¥30,000*", "derived amount is marked")
	assert.Contains(t, out, "¥250,000*", "derived unit price is marked")
	assert.Contains(t, out, "3*", "derived quantity is marked")
	assert.Contains(t, out, "合計")
	assert.Contains(t, out, "¥645,000")
	assert.Contains(t, out, "外注費")
}

func TestReconcileCommand_TableAndSummaryExclusive(t *testing.T) {
	_, err := runReconcile(t, writeSampleWorkbook(t), "--table", "--summary-only")
	assert.Error(t, err)
}

func TestReconcileCommand_Errors(t *testing.T) {
	_, err := runReconcile(t)
	assert.Error(t, err, "file argument is required")

	_, err = runReconcile(t, filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(bad, []byte("x"), 0o644))
	_, err = runReconcile(t, bad)
	var invalid *services.InvalidInputError
	assert.True(t, errors.As(err, &invalid), "got %v", err)
}
