package cmd

import (
	"errors"
	"testing"

	"cpi-server/models"
	services "cpi-server/service"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseNearby(t *testing.T, args ...string) (*nearbyRequest, error) {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	nearby := nearbyFlags{}
	nearby.register(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return nearby.resolve(cmd)
}

func TestNearbyFlags_Resolve(t *testing.T) {
	// Act
	req, err := parseNearby(t, "--lat", "40.005", "--lon", "-99.995", "--buffer", "50",
		"--tag", "landuse=farmland", "--tag", "name=Farm.*", "--strict=false")

	// Assert
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.Equal(t, 40.005, req.Lat)
	assert.Equal(t, -99.995, req.Lon)
	assert.Equal(t, 50.0, req.Buffer)
	assert.Equal(t, map[string]string{"landuse": "farmland", "name": "Farm.*"}, req.Options.SearchPairs)
	assert.False(t, req.Options.Strict)
	assert.Equal(t, services.DEFAULT_NEARBY_TIMEOUT_SECONDS, req.Options.TimeoutSeconds)
}

func TestNearbyFlags_Defaults(t *testing.T) {
	req, err := parseNearby(t, "--lat", "40", "--lon", "-100")

	require.NoError(t, err)
	require.NotNil(t, req)
	assert.Equal(t, float64(services.DEFAULT_NEARBY_BUFFER_METERS), req.Buffer)
	assert.True(t, req.Options.Strict)
	assert.Empty(t, req.Options.SearchPairs)
}

func TestNearbyFlags_Invalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"lat without lon", []string{"--lat", "40"}},
		{"tag without point", []string{"--tag", "landuse=farmland"}},
		{"strict without point", []string{"--strict"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := parseNearby(t, test.args...)
			if !errors.Is(err, models.ErrInvalidInput) {
				t.Errorf("Expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestNearbyFlags_NoPoint(t *testing.T) {
	req, err := parseNearby(t)

	assert.NoError(t, err)
	assert.Nil(t, req)
}
