package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"cpi-server/models"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("IMAGERY_MODE", "mock")
	t.Setenv("REDIS_ADDRESS", "")
	t.Setenv("PLOTS_GEOJSON_PATH", filepath.Join("..", "resources", "cpi.geojson"))
	t.Setenv("IMAGERY_FIXTURE_PATH", filepath.Join("..", "resources", "imagery_fixture.json"))
	t.Setenv("REDUCE_BACKOFF_MS", "1")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestComputeCommand_BBox(t *testing.T) {
	out, err := runCLI(t, "compute",
		"--xmin", "-100", "--xmax", "-99.99", "--ymin", "40", "--ymax", "40.01",
		"--begin", "2018-01-01", "--end", "2018-03-01")
	require.NoError(t, err)

	var result models.CpiResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 2, result.Count)
	assert.Equal(t, "2018-01-01", result.Results[0].Date)
}

func TestComputeCommand_PlotID(t *testing.T) {
	out, err := runCLI(t, "compute", "--id", "1", "--begin", "2018-01-01", "--end", "2018-01-31")
	require.NoError(t, err)

	var result models.CpiResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 1, result.Count)

	computePlotID = ""
}

func TestComputeCommand_PartialBBox(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	bbox := bboxFlags{}
	bbox.register(cmd)
	require.NoError(t, cmd.Flags().Set("xmin", "-100"))

	_, err := bbox.resolve(cmd)

	assert.True(t, errors.Is(err, models.ErrInvalidInput))
}

func TestVersionCommand(t *testing.T) {
	_, err := runCLI(t, "version")

	assert.NoError(t, err)
}
