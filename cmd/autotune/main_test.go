package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/autotune/selection"
)

// writeFixtures は CSV と設定ファイルを一時ディレクトリに書き出す
func writeFixtures(t *testing.T) (csvPath, cfgPath string) {
	t.Helper()
	dir := t.TempDir()

	var sb strings.Builder
	sb.WriteString("row_id,sqft,noise,color,price\n")
	colors := []string{"red", "green", "blue"}
	for i := 0; i < 30; i++ {
		sqft := 1000 + float64(i)*20.5
		noise := math.Sin(float64(i) * 1.7)
		price := sqft*3 + float64(i%3)*50
		fmt.Fprintf(&sb, "r%03d,%.1f,%.4f,%s,%.1f\n", i, sqft, noise, colors[i%3], price)
	}
	csvPath = filepath.Join(dir, "houses.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(sb.String()), 0o644))

	cfg := "log_level: error\nfamilies: [ridge, linear_regression]\ncandidates: 2\nimportance:\n  trees: 5\n  max_depth: 4\n"
	cfgPath = filepath.Join(dir, "autotune.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	return csvPath, cfgPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestValidateCommand(t *testing.T) {
	csvPath, cfgPath := writeFixtures(t)

	out, err := execute(t, "validate", csvPath, "--config", cfgPath, "-t", "price", "-f", "sqft,row_id")
	require.NoError(t, err)

	var res selection.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.False(t, res.Valid)
	assert.Equal(t, "price", res.SuggestedTarget)
	assert.NotContains(t, res.SuggestedFeatures, "row_id")
}

func TestRankCommand(t *testing.T) {
	csvPath, cfgPath := writeFixtures(t)

	out, err := execute(t, "rank", csvPath, "--config", cfgPath, "-t", "price")
	require.NoError(t, err)

	var ranking struct {
		Target string `json:"target"`
		Scores []struct {
			Feature string `json:"feature"`
		} `json:"scores"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &ranking))
	assert.Equal(t, "price", ranking.Target)
	require.NotEmpty(t, ranking.Scores)
	assert.Equal(t, "sqft", ranking.Scores[0].Feature)

	_, err = execute(t, "rank", csvPath, "--config", cfgPath)
	assert.Error(t, err)
}

func TestTuneCommandYAML(t *testing.T) {
	csvPath, cfgPath := writeFixtures(t)

	out, err := execute(t, "tune", csvPath, "--config", cfgPath, "-t", "price", "-f", "sqft,color",
		"--family", "ridge", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "model_family: ridge")
	assert.Contains(t, out, "status: DONE")

	_, err = execute(t, "tune", csvPath, "--config", cfgPath, "-t", "price", "--family", "xgboost")
	assert.Error(t, err)
}

func TestRunCommand(t *testing.T) {
	csvPath, cfgPath := writeFixtures(t)

	out, err := execute(t, "run", csvPath, "--config", cfgPath, "-t", "price", "-f", "sqft,noise,color")
	require.NoError(t, err)

	var decision struct {
		RunID   string `json:"run_id"`
		Results []struct {
			Family string `json:"model_family"`
			Status string `json:"status"`
		} `json:"results"`
		Report struct {
			BestOverall int `json:"best_overall"`
		} `json:"report"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decision))
	assert.NotEmpty(t, decision.RunID)
	require.Len(t, decision.Results, 2)
	assert.Equal(t, "ridge", decision.Results[0].Family)
	assert.Equal(t, "linear_regression", decision.Results[1].Family)
	assert.GreaterOrEqual(t, decision.Report.BestOverall, 0)

	summary, err := execute(t, "run", csvPath, "--config", cfgPath, "-t", "price", "-f", "sqft,noise,color", "--summary")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(summary, "Best model: "))
}

func TestCommandErrors(t *testing.T) {
	csvPath, cfgPath := writeFixtures(t)

	_, err := execute(t, "run", csvPath, "--config", cfgPath, "-o", "xml")
	assert.Error(t, err)

	_, err = execute(t, "run", filepath.Join(t.TempDir(), "missing.csv"), "--config", cfgPath)
	assert.Error(t, err)

	_, err = execute(t, "validate", csvPath, "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
