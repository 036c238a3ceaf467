package report_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalnine/crossrun/internal/report"
	"github.com/signalnine/crossrun/internal/result"
)

func sampleOutcomes() []result.Outcome {
	return []result.Outcome{
		result.Pass("loop.mbt", "llvm", 0),
		result.Pass("loop.mbt", "riscv64", 0),
		result.Fail("bad.mbt", "llvm", result.CompileError, "error: unexpected token", 0),
		result.Fail("bad.mbt", "riscv64", result.CompileError, "error: unexpected token", 0),
		result.Pass("x.mbt", "llvm", 0),
		result.Fail("x.mbt", "riscv64", result.MissingAnswerFile, "", 0),
	}
}

func aggregate(t *testing.T, outcomes []result.Outcome) *report.Report {
	t.Helper()
	agg := report.NewAggregator()
	for _, o := range outcomes {
		require.NoError(t, agg.Record(o))
	}
	return agg.Finalize()
}

func TestFinalize(t *testing.T) {
	r := aggregate(t, sampleOutcomes())
	assert.False(t, r.Passed)
	assert.Equal(t, 1, r.ExitCode())
	assert.Len(t, r.Outcomes, 6)
	assert.Equal(t, []report.Failure{
		{Sample: "bad.mbt", Backend: "llvm", Reason: result.CompileError, Diagnostic: "error: unexpected token"},
		{Sample: "bad.mbt", Backend: "riscv64", Reason: result.CompileError, Diagnostic: "error: unexpected token"},
		{Sample: "x.mbt", Backend: "riscv64", Reason: result.MissingAnswerFile},
	}, r.Failures)
	require.Len(t, r.Backends, 2)
	assert.Equal(t, "llvm", r.Backends[0].Backend)
	assert.Equal(t, 3, r.Backends[0].Samples)
	assert.Equal(t, 2, r.Backends[0].Passed)
}

func TestFinalizeAllPassed(t *testing.T) {
	r := aggregate(t, []result.Outcome{result.Pass("loop.mbt", "llvm", 0)})
	assert.True(t, r.Passed)
	assert.Equal(t, 0, r.ExitCode())
}

func TestFinalizeEmpty(t *testing.T) {
	assert.True(t, report.NewAggregator().Finalize().Passed, "empty run should pass")
}

func TestRecordDuplicate(t *testing.T) {
	agg := report.NewAggregator()
	require.NoError(t, agg.Record(result.Pass("loop.mbt", "llvm", 0)))
	assert.Error(t, agg.Record(result.Fail("loop.mbt", "llvm", result.RunError, "", 0)))
	assert.NoError(t, agg.Record(result.Pass("loop.mbt", "aarch64", 0)))
	assert.Equal(t, 2, agg.Len())
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.Write(aggregate(t, sampleOutcomes()), "table", &buf))
	for _, want := range []string{"llvm", "riscv64", "Some Tests Failed", "bad.mbt [llvm]: compile error", "x.mbt [riscv64]: no answer file"} {
		assert.Contains(t, buf.String(), want)
	}
}

func TestWriteTableAllPassed(t *testing.T) {
	var buf bytes.Buffer
	r := aggregate(t, []result.Outcome{result.Pass("loop.mbt", "llvm", 0)})
	require.NoError(t, report.Write(r, "table", &buf))
	assert.Contains(t, buf.String(), "All Tests Passed")
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.Write(aggregate(t, sampleOutcomes()), "markdown", &buf))
	assert.Contains(t, buf.String(), "| bad.mbt | llvm | CompileError |")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.Write(aggregate(t, sampleOutcomes()), "json", &buf))
	var decoded struct {
		Passed   bool             `json:"passed"`
		Failures []report.Failure `json:"failures"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.False(t, decoded.Passed)
	assert.Len(t, decoded.Failures, 3)
}

func TestWriteUnknownFormat(t *testing.T) {
	assert.Error(t, report.Write(report.NewAggregator().Finalize(), "xml", &bytes.Buffer{}))
}

func TestCheckFormat(t *testing.T) {
	for _, f := range []string{"table", "markdown", "json", ""} {
		assert.NoError(t, report.CheckFormat(f), "CheckFormat(%q)", f)
	}
	assert.Error(t, report.CheckFormat("html"))
}
