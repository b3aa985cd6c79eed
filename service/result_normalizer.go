package services

import (
	"fmt"
	"time"

	"cpi-server/config"
	"cpi-server/models"
)

// Normalize maps one raw result to a dated record. The date is the UTC
// calendar day of the image timestamp. A side missing entirely becomes area 0
// with null statistics; both sides missing is a malformed observation.
func Normalize(raw models.RawResult) (models.CpiRecord, error) {
	if raw.Inner == nil && raw.Outer == nil {
		return models.CpiRecord{}, fmt.Errorf("%w: image %s has no inner or outer stats",
			models.ErrMalformedObservation, raw.ImageID)
	}

	record := models.CpiRecord{
		Date:  EpochMillisToDate(raw.Timestamp),
		Inner: models.EmptyRegionStats(0),
		Outer: models.EmptyRegionStats(0),
	}
	if raw.Inner != nil {
		record.Inner = *raw.Inner
	}
	if raw.Outer != nil {
		record.Outer = *raw.Outer
	}
	return record, nil
}

// NormalizeAll maps raws 1:1 in order.
func NormalizeAll(raws []models.RawResult) ([]models.CpiRecord, error) {
	records := make([]models.CpiRecord, 0, len(raws))
	for _, raw := range raws {
		record, err := Normalize(raw)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func EpochMillisToDate(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(config.DATE_LAYOUT)
}
