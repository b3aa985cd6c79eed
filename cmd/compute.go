package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cpi-server/config"
	"cpi-server/di"
	"cpi-server/models"
	services "cpi-server/service"

	"github.com/spf13/cobra"
)

var (
	computeBBox       bboxFlags
	computePlotID     string
	computeBegin      string
	computeEnd        string
	computeCollection string
	computeBand       string
	computeScale      float64
)

// computeCmd runs one CPI computation and prints the result as JSON.
var computeCmd = &cobra.Command{
	Use:   "compute",
	Short: "Compute CPI for a bounding box or a catalog plot",
	Long: `Compute the inner/outer statistics time series and print it as JSON.

Examples:
  cpi-server compute --xmin -100 --xmax -99.99 --ymin 40 --ymax 40.01 --begin 2018-01-01 --end 2018-03-01
  cpi-server compute --id 1 --band EVI --scale 60`,
	Args: cobra.NoArgs,
	RunE: runCompute,
}

func init() {
	computeBBox.register(computeCmd)
	computeCmd.Flags().StringVar(&computePlotID, "id", "", "catalog plot id (wins over the bbox flags)")
	computeCmd.Flags().StringVar(&computeBegin, "begin", config.DEFAULT_BEGIN_DATE, "first day, YYYY-MM-DD")
	computeCmd.Flags().StringVar(&computeEnd, "end", "", "last day, YYYY-MM-DD (default today, UTC)")
	computeCmd.Flags().StringVar(&computeCollection, "collection", "", "imagery collection id")
	computeCmd.Flags().StringVar(&computeBand, "band", "", "band to reduce")
	computeCmd.Flags().Float64Var(&computeScale, "scale", 0, "reduction scale in meters")
}

func runCompute(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	if cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.RequestTimeout)
		defer cancel()
	}

	bbox, err := computeBBox.resolve(cmd)
	if err != nil {
		return err
	}
	if computePlotID == "" && bbox == nil {
		return fmt.Errorf("%w: provide --id or a bounding box", models.ErrInvalidInput)
	}

	container, err := di.NewContainer(ctx, cfg)
	if err != nil {
		return err
	}

	end := computeEnd
	if end == "" {
		end = time.Now().UTC().Format(config.DATE_LAYOUT)
	}
	req := services.CpiRequest{
		Begin:        computeBegin,
		End:          end,
		CollectionID: computeCollection,
		Band:         computeBand,
		Scale:        computeScale,
	}

	var result *models.CpiResult
	if computePlotID != "" {
		result, err = container.CpiService.ComputeCPIForPlot(ctx, computePlotID, req)
	} else {
		req.BBox = *bbox
		result, err = container.CpiService.ComputeCPI(ctx, req)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
