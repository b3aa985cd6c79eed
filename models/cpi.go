package models

// ImageObservation is one image of a temporal collection, as listed by the
// imagery service. Timestamp is epoch milliseconds (system:time_start).
type ImageObservation struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"system:time_start"`
}

// RegionStats holds the reduction of one band over one region.
// Nil Mean/StdDev means the region had no valid pixels for that image.
type RegionStats struct {
	Area   float64  `json:"area"`
	Mean   *float64 `json:"mean"`
	StdDev *float64 `json:"stdev"`
}

// EmptyRegionStats is an area-only result with no pixel statistics.
func EmptyRegionStats(area float64) RegionStats {
	return RegionStats{Area: area}
}

// HasPixels reports whether both statistics are present.
func (s RegionStats) HasPixels() bool {
	return s.Mean != nil && s.StdDev != nil
}

// RawResult is the per-image output of the aggregator before normalization.
type RawResult struct {
	ImageID   string
	Timestamp int64
	Inner     *RegionStats
	Outer     *RegionStats
}

// CpiRecord is one normalized observation of the time series.
type CpiRecord struct {
	Date  string      `json:"date"`
	Inner RegionStats `json:"inner"`
	Outer RegionStats `json:"outer"`
}

// CpiResult is the final payload. Count always equals len(Results).
type CpiResult struct {
	Begin   string      `json:"begin"`
	End     string      `json:"end"`
	Count   int         `json:"count"`
	Results []CpiRecord `json:"results"`
}

// NewCpiResult wraps records, keeping Count honest and Results non-null.
func NewCpiResult(begin, end string, records []CpiRecord) *CpiResult {
	if records == nil {
		records = []CpiRecord{}
	}
	return &CpiResult{
		Begin:   begin,
		End:     end,
		Count:   len(records),
		Results: records,
	}
}

// ErrorResponse is the body written on any request-level failure.
type ErrorResponse struct {
	Message string `json:"message"`
	Details string `json:"details"`
}

func NewErrorResponse(err error) ErrorResponse {
	return ErrorResponse{Message: "error", Details: err.Error()}
}

// Float64 returns a pointer to v, for building optional statistics.
func Float64(v float64) *float64 {
	return &v
}
