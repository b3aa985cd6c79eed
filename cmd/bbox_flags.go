package cmd

import (
	"fmt"

	"cpi-server/models"

	"github.com/spf13/cobra"
)

var bboxFlagNames = []string{"xmin", "xmax", "ymin", "ymax"}

// bboxFlags binds --xmin --xmax --ymin --ymax to a command.
type bboxFlags struct {
	bbox models.BoundingBox
}

func (f *bboxFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.bbox.XMin, "xmin", 0, "west longitude")
	cmd.Flags().Float64Var(&f.bbox.XMax, "xmax", 0, "east longitude")
	cmd.Flags().Float64Var(&f.bbox.YMin, "ymin", 0, "south latitude")
	cmd.Flags().Float64Var(&f.bbox.YMax, "ymax", 0, "north latitude")
}

// resolve returns the box when all four flags were given, and nil when none
// were.
func (f *bboxFlags) resolve(cmd *cobra.Command) (*models.BoundingBox, error) {
	set := 0
	for _, name := range bboxFlagNames {
		if cmd.Flags().Changed(name) {
			set++
		}
	}
	switch set {
	case 0:
		return nil, nil
	case len(bboxFlagNames):
		bbox := f.bbox
		return &bbox, nil
	default:
		return nil, fmt.Errorf("%w: --xmin, --xmax, --ymin and --ymax go together", models.ErrInvalidInput)
	}
}
