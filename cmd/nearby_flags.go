package cmd

import (
	"fmt"

	"cpi-server/models"
	services "cpi-server/service"

	"github.com/spf13/cobra"
)

// nearbyFlags binds --lat --lon --buffer --tag --strict to a command.
type nearbyFlags struct {
	lat, lon float64
	buffer   float64
	tags     map[string]string
	strict   bool
}

// nearbyRequest is a resolved point-and-radius harvest.
type nearbyRequest struct {
	Lat, Lon float64
	Buffer   float64
	Options  services.NearbyOptions
}

func (f *nearbyFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.lat, "lat", 0, "search point latitude")
	cmd.Flags().Float64Var(&f.lon, "lon", 0, "search point longitude")
	cmd.Flags().Float64Var(&f.buffer, "buffer", services.DEFAULT_NEARBY_BUFFER_METERS, "search radius in metres around --lat/--lon")
	cmd.Flags().StringToStringVar(&f.tags, "tag", map[string]string{}, "tag filter key=regex, repeatable")
	cmd.Flags().BoolVar(&f.strict, "strict", true, "keep only ways whose bounds contain the point")
}

// resolve returns nil when neither --lat nor --lon was given. The options are
// built fresh from the defaults on every call.
func (f *nearbyFlags) resolve(cmd *cobra.Command) (*nearbyRequest, error) {
	latSet, lonSet := cmd.Flags().Changed("lat"), cmd.Flags().Changed("lon")
	if !latSet && !lonSet {
		for _, name := range []string{"buffer", "tag", "strict"} {
			if cmd.Flags().Changed(name) {
				return nil, fmt.Errorf("%w: --%s needs --lat and --lon", models.ErrInvalidInput, name)
			}
		}
		return nil, nil
	}
	if latSet != lonSet {
		return nil, fmt.Errorf("%w: --lat and --lon go together", models.ErrInvalidInput)
	}

	opts := services.DefaultNearbyOptions()
	for k, v := range f.tags {
		opts.SearchPairs[k] = v
	}
	opts.Strict = f.strict
	return &nearbyRequest{Lat: f.lat, Lon: f.lon, Buffer: f.buffer, Options: opts}, nil
}
