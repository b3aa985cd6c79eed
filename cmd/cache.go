package cmd

import (
	"context"
	"fmt"

	"cpi-server/di"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage cached CPI results",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var cacheFlushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Delete every cached CPI result",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		container, err := di.NewContainer(ctx, cfg)
		if err != nil {
			return err
		}
		n, err := container.RedisCpiDao.FlushCpiResults(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Flushed %d cached results\n", n)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheFlushCmd)
}
