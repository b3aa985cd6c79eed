package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"cpi-server/di"
	"cpi-server/logging"
	"cpi-server/models"
	services "cpi-server/service"
	"cpi-server/util"

	"github.com/paulmach/orb/geojson"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	harvestBBox    bboxFlags
	harvestNearby  nearbyFlags
	harvestPlotID  string
	harvestOptions = services.DefaultHarvestOptions()
	harvestOut     string
)

// harvestCmd extracts closed OSM ways around a field as GeoJSON.
var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Extract tagged OSM polygons around a field or a point as GeoJSON",
	Long: `Query the Overpass API for closed ways inside a bounding box and write the
ones carrying a tag value (water by default) as a GeoJSON FeatureCollection.

With --lat and --lon the query instead selects the ways within --buffer metres
of the point whose tags match every --tag key=regex pair. --strict (on by
default) keeps only the ways whose bounds contain the point.

Examples:
  cpi-server harvest --xmin -100 --xmax -99.99 --ymin 40 --ymax 40.01
  cpi-server harvest --id 2 --tag-value farmland --clip --out farmland.geojson
  cpi-server harvest --lat 40.005 --lon -99.995 --buffer 50 --tag landuse=farmland`,
	Args: cobra.NoArgs,
	RunE: runHarvest,
}

func init() {
	harvestBBox.register(harvestCmd)
	harvestNearby.register(harvestCmd)
	harvestCmd.Flags().StringVar(&harvestPlotID, "id", "", "catalog plot id (wins over the bbox flags)")
	harvestCmd.Flags().StringVar(&harvestOptions.GeoType, "geotype", services.DEFAULT_HARVEST_GEOTYPE, "Overpass element type")
	harvestCmd.Flags().IntVar(&harvestOptions.TimeoutSeconds, "timeout", services.DEFAULT_HARVEST_TIMEOUT_SECONDS, "Overpass query timeout in seconds")
	harvestCmd.Flags().StringVar(&harvestOptions.TagValue, "tag-value", services.DEFAULT_HARVEST_TAG_VALUE, "keep ways with any tag of this value (empty keeps all)")
	harvestCmd.Flags().BoolVar(&harvestOptions.ClipToBounds, "clip", false, "clamp coordinates to the bounding box")
	harvestCmd.Flags().StringVarP(&harvestOut, "out", "o", "", "write GeoJSON to this file instead of stdout")
}

func runHarvest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	container, err := di.NewContainer(ctx, cfg)
	if err != nil {
		return err
	}

	nearby, err := harvestNearby.resolve(cmd)
	if err != nil {
		return err
	}
	bbox, err := harvestBBox.resolve(cmd)
	if err != nil {
		return err
	}
	if nearby != nil {
		if bbox != nil || harvestPlotID != "" {
			return fmt.Errorf("%w: --lat/--lon cannot be combined with --id or a bounding box", models.ErrInvalidInput)
		}
		nearby.Options.GeoType = harvestOptions.GeoType
		if cmd.Flags().Changed("timeout") {
			nearby.Options.TimeoutSeconds = harvestOptions.TimeoutSeconds
		}
		fc, err := container.HarvestService.HarvestNearby(ctx, nearby.Lat, nearby.Lon, nearby.Buffer, nearby.Options)
		if err != nil {
			return err
		}
		return writeHarvest(cmd, fc)
	}
	if harvestPlotID != "" {
		plot, err := container.PlotService.GetPlot(harvestPlotID)
		if err != nil {
			return err
		}
		bbox = &plot.Bounds
	}
	if bbox == nil {
		return fmt.Errorf("%w: provide --id or a bounding box", models.ErrInvalidInput)
	}

	fc, err := container.HarvestService.Harvest(ctx, *bbox, harvestOptions)
	if err != nil {
		return err
	}
	return writeHarvest(cmd, fc)
}

func writeHarvest(cmd *cobra.Command, fc *geojson.FeatureCollection) error {
	if harvestOut != "" {
		if err := util.WriteJSON(harvestOut, fc); err != nil {
			return err
		}
		logging.Info("Wrote harvest", zap.String("path", harvestOut), zap.Int("features", len(fc.Features)))
		return nil
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(fc)
}
