package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/reqcheck/internal/models"
	"github.com/harrison/reqcheck/internal/report"
	"github.com/harrison/reqcheck/internal/rules"
)

const (
	testTTZ = "Раздел 1. Общие\n2.2.1. Напряжение питания не менее 5 В.\n"
	testKD  = "Описание изделия. Согласно п. 2.2.1 ТЗ: обеспечивается напряжение не менее 10 В. Прочие сведения.\n"
)

type workspace struct {
	dir    string
	config string
	ttz    string
	kd     string
	db     string
}

func newWorkspace(t *testing.T) workspace {
	t.Helper()
	dir := t.TempDir()
	ws := workspace{
		dir:    dir,
		config: filepath.Join(dir, "config.yaml"),
		ttz:    filepath.Join(dir, "ttz.txt"),
		kd:     filepath.Join(dir, "kd.txt"),
		db:     filepath.Join(dir, "history", "comparisons.db"),
	}

	cfg := fmt.Sprintf("log_level: error\nlog_dir: %s\nmin_text_chars: 1\nhistory:\n  db_path: %s\n  user_name: Тестировщик\n",
		filepath.Join(dir, "logs"), ws.db)
	require.NoError(t, os.WriteFile(ws.config, []byte(cfg), 0644))
	require.NoError(t, os.WriteFile(ws.ttz, []byte(testTTZ), 0644))
	require.NoError(t, os.WriteFile(ws.kd, []byte(testKD), 0644))
	return ws
}

func (ws workspace) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append(args, "--config", ws.config))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

var savedID = regexp.MustCompile(`Saved comparison (\S+)`)

func (ws workspace) save(t *testing.T) string {
	t.Helper()
	out, _, err := ws.run(t, "compare", ws.ttz, ws.kd, "--save")
	require.NoError(t, err)
	m := savedID.FindStringSubmatch(out)
	require.NotNil(t, m, "no saved id in output:\n%s", out)
	return m[1]
}

func TestCompareCommand(t *testing.T) {
	ws := newWorkspace(t)

	out, stderr, err := ws.run(t, "compare", ws.ttz, ws.kd, "--evidence")
	require.NoError(t, err)

	assert.Contains(t, out, "TTZ-2.2.1")
	assert.Contains(t, out, "Total: 1  Found: 1  OK: 1  Partial: 0  Not found: 0")
	assert.Contains(t, out, "Evidence:")
	assert.Contains(t, stderr, "Read 2 documents")
	assert.NotContains(t, out, "Saved comparison")

	_, err = os.Stat(filepath.Join(ws.dir, "logs", "latest.log"))
	assert.NoError(t, err, "run log should be written to log_dir")
}

func TestCompareWritesReports(t *testing.T) {
	ws := newWorkspace(t)
	jsonPath := filepath.Join(ws.dir, "out", "result.json")
	mdPath := filepath.Join(ws.dir, "result.md")
	csvPath := filepath.Join(ws.dir, "result.csv")

	out, _, err := ws.run(t, "compare", ws.ttz, ws.kd, "--json", jsonPath, "--md", mdPath, "--csv", csvPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+jsonPath)

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var rep report.Report
	require.NoError(t, json.Unmarshal(data, &rep))
	assert.Equal(t, "ttz.txt", rep.TTZFile)
	require.Len(t, rep.Rows, 1)
	assert.Equal(t, models.StatusOK, rep.Rows[0].Status)

	md, err := os.ReadFile(mdPath)
	require.NoError(t, err)
	assert.Contains(t, string(md), "TTZ-2.2.1")

	csvData, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(csvData), strings.Join(report.CSVHeader, ",")))
}

func TestCompareMissingFile(t *testing.T) {
	ws := newWorkspace(t)

	_, _, err := ws.run(t, "compare", filepath.Join(ws.dir, "missing.docx"), ws.kd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read document")
}

func TestCompareRejectsInvalidFlags(t *testing.T) {
	ws := newWorkspace(t)

	_, _, err := ws.run(t, "compare", ws.ttz, ws.kd, "--log-level", "verbose")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")

	_, _, err = ws.run(t, "compare", ws.ttz)
	require.Error(t, err)
}

func TestCompareWarnsWithoutRequirements(t *testing.T) {
	ws := newWorkspace(t)
	require.NoError(t, os.WriteFile(ws.ttz, []byte("Просто текст без пунктов."), 0644))

	out, stderr, err := ws.run(t, "compare", ws.ttz, ws.kd)
	require.NoError(t, err)
	assert.Contains(t, stderr, "No requirements recognised")
	assert.Contains(t, out, "No requirements to compare")
}

func TestParseCommand(t *testing.T) {
	ws := newWorkspace(t)

	out, _, err := ws.run(t, "parse", ws.ttz)
	require.NoError(t, err)
	assert.Contains(t, out, "TTZ-2.2.1")
	assert.Contains(t, out, ">= 5 в")
	assert.Contains(t, out, "1 requirements")

	out, _, err = ws.run(t, "parse", ws.ttz, "--json")
	require.NoError(t, err)
	var reqs []models.Requirement
	require.NoError(t, json.Unmarshal([]byte(out), &reqs))
	require.Len(t, reqs, 1)
	assert.Equal(t, models.KindNumeric, reqs[0].Kind)
}

func TestHistoryLifecycle(t *testing.T) {
	ws := newWorkspace(t)

	out, _, err := ws.run(t, "history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No saved comparisons")

	id := ws.save(t)

	out, _, err = ws.run(t, "history", "list")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "Тестировщик")

	out, _, err = ws.run(t, "history", "show", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Comparison "+id)
	assert.Contains(t, out, "TTZ:  ttz.txt (plain_decode)")
	assert.Contains(t, out, "TTZ-2.2.1")

	out, _, err = ws.run(t, "history", "show", id, "--json")
	require.NoError(t, err)
	var rep report.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, id, rep.ID)

	_, _, err = ws.run(t, "history", "comment", id, "Проверено", "вручную", "--user", "Рецензент")
	require.NoError(t, err)
	out, _, err = ws.run(t, "history", "comments", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Рецензент: Проверено вручную")

	exportPath := filepath.Join(ws.dir, "export.csv")
	_, _, err = ws.run(t, "history", "export", "--out", exportPath)
	require.NoError(t, err)
	data, err := os.ReadFile(exportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), id)

	out, _, err = ws.run(t, "history", "clean", "--days", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 0 comparisons older than 1 days")
}

func TestHistoryUnknownID(t *testing.T) {
	ws := newWorkspace(t)
	ws.save(t)

	for _, args := range [][]string{
		{"history", "show", "missing"},
		{"history", "comments", "missing"},
		{"history", "comment", "missing", "text"},
	} {
		_, _, err := ws.run(t, args...)
		require.Error(t, err, "%v", args)
		assert.Contains(t, err.Error(), "comparison missing not found")
	}
}

func TestHistoryCleanRequiresPositiveDays(t *testing.T) {
	ws := newWorkspace(t)

	_, _, err := ws.run(t, "history", "clean", "--days", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--days must be > 0")
}

func TestRulesCommands(t *testing.T) {
	ws := newWorkspace(t)

	out, _, err := ws.run(t, "rules", "dump")
	require.NoError(t, err)
	assert.Equal(t, string(rules.DefaultYAML()), out)

	good := filepath.Join(ws.dir, "rules.yaml")
	require.NoError(t, os.WriteFile(good, rules.DefaultYAML(), 0644))
	out, _, err = ws.run(t, "rules", "check", good)
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")

	bad := filepath.Join(ws.dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("patterns:\n  numbered: \"(\"\n"), 0644))
	_, _, err = ws.run(t, "rules", "check", bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid ruleset")
}
