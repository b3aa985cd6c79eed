package services

import (
	"errors"
	"testing"

	"cpi-server/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEpochMillisToDate(t *testing.T) {
	tests := []struct {
		ms   int64
		want string
	}{
		{1514764800000, "2018-01-01"},
		{1514764800000 - 1, "2017-12-31"},
		{1517443200000, "2018-02-01"},
		{1519862399999, "2018-02-28"},
		{0, "1970-01-01"},
	}
	for _, tt := range tests {
		if got := EpochMillisToDate(tt.ms); got != tt.want {
			t.Errorf("EpochMillisToDate(%d) = %s, want %s", tt.ms, got, tt.want)
		}
	}
}

func TestNormalize_BothSides(t *testing.T) {
	inner := models.RegionStats{Area: 10, Mean: models.Float64(0.5), StdDev: models.Float64(0.1)}
	outer := models.RegionStats{Area: 5, Mean: models.Float64(0.2), StdDev: models.Float64(0.3)}

	record, err := Normalize(models.RawResult{ImageID: "a", Timestamp: 1514764800000, Inner: &inner, Outer: &outer})

	require.NoError(t, err)
	assert.Equal(t, "2018-01-01", record.Date)
	assert.Equal(t, inner, record.Inner)
	assert.Equal(t, outer, record.Outer)
}

func TestNormalize_MissingSideBecomesEmpty(t *testing.T) {
	inner := models.RegionStats{Area: 10, Mean: models.Float64(0.5), StdDev: models.Float64(0.1)}

	record, err := Normalize(models.RawResult{ImageID: "a", Timestamp: 1514764800000, Inner: &inner})

	require.NoError(t, err)
	assert.Equal(t, 0.0, record.Outer.Area)
	assert.Nil(t, record.Outer.Mean)
	assert.Nil(t, record.Outer.StdDev)
}

func TestNormalize_BothSidesMissing(t *testing.T) {
	_, err := Normalize(models.RawResult{ImageID: "a", Timestamp: 1514764800000})

	assert.True(t, errors.Is(err, models.ErrMalformedObservation))
}

func TestNormalizeAll_PreservesOrderAndFailsFast(t *testing.T) {
	s := models.EmptyRegionStats(1)
	raws := []models.RawResult{
		{ImageID: "a", Timestamp: 1514764800000, Inner: &s, Outer: &s},
		{ImageID: "b", Timestamp: 1517443200000, Inner: &s, Outer: &s},
	}

	records, err := NormalizeAll(raws)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "2018-01-01", records[0].Date)
	assert.Equal(t, "2018-02-01", records[1].Date)

	raws = append(raws, models.RawResult{ImageID: "c"})
	_, err = NormalizeAll(raws)
	assert.True(t, errors.Is(err, models.ErrMalformedObservation))
}

func TestNormalizeAll_Empty(t *testing.T) {
	records, err := NormalizeAll(nil)

	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}
