package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contract-risk-eval/internal/analysis"
	"contract-risk-eval/internal/match"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const lease = "Bail d'habitation. Article 3: remboursement de la caution sous 5 mois."

func TestAnalyzeCommand(t *testing.T) {
	path := writeFile(t, "bail.txt", lease)
	dbPath := filepath.Join(t.TempDir(), "reports.db")

	out, err := runCLI(t, "analyze", path, "--save", dbPath)
	require.NoError(t, err)

	var report analysis.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 90, report.Score.Total)
	assert.Equal(t, "A", report.Score.Grade)
	assert.False(t, report.AIEnabled)

	out, err = runCLI(t, "stats", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "housing-refund-delay")
}

func TestAnalyzeCommandWithoutAPIKeyUsesRules(t *testing.T) {
	for _, key := range []string{"HUGGINGFACE_API_KEY", "HF_API_KEY", "CONTRACT_RISK_AI_API_KEY"} {
		t.Setenv(key, "")
	}
	path := writeFile(t, "bail.txt", lease)

	out, err := runCLI(t, "analyze", path, "--ai")
	require.NoError(t, err)

	var report analysis.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 90, report.Score.Total)
	assert.Equal(t, "A", report.Score.Grade)
	assert.False(t, report.AIEnabled)
}

func TestAnalyzeCommandRejects(t *testing.T) {
	path := writeFile(t, "note.txt", "trop court")

	_, err := runCLI(t, "analyze", path)
	require.Error(t, err)
	assert.ErrorIs(t, err, analysis.ErrTooShort)
}

func TestAnalyzeCommandWithPack(t *testing.T) {
	pack := writeFile(t, "pack.yaml", `
categories:
  - name: employment
    aliases: [travail]
    rules:
      - id: employment-trial
        severity: medium
        title: Période d'essai longue
        patterns:
          - "période d'essai.*(6|8|12) mois"
`)
	path := writeFile(t, "cdi.txt", "Contrat de travail. Article 2: la période d'essai est fixée à 8 mois entre les parties.")

	out, err := runCLI(t, "analyze", path, "--type", "travail", "--rules", pack)
	require.NoError(t, err)
	var report analysis.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "employment", report.ContractType)
	assert.Equal(t, 95, report.Score.Total)
}

func TestCheckCommand(t *testing.T) {
	out, err := runCLI(t, "check", writeFile(t, "bail.txt", lease))
	require.NoError(t, err)
	var verdict match.Relevance
	require.NoError(t, json.Unmarshal([]byte(out), &verdict))
	assert.True(t, verdict.Valid)

	_, err = runCLI(t, "check", writeFile(t, "recette.txt", strings.Repeat("farine sucre beurre ", 5)))
	assert.Error(t, err)
}

func TestRulesCommand(t *testing.T) {
	out, err := runCLI(t, "rules", "--type", "baux")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[1], "housing-refund-delay")
	assert.Contains(t, lines[2], "critical")
}

func TestReadTextFileRejectsBinary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob.txt")
	require.NoError(t, os.WriteFile(path, []byte{0xff, 0xfe, 0x00}, 0o644))
	_, err := readTextFile(path)
	assert.Error(t, err)
}
