package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/foodiepair/foodiepair-cli/internal/export"
)

var (
	exportPairID string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a pair's restaurant log to an XLSX workbook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		snap, err := st.Snapshot(cmd.Context(), exportPairID)
		if err != nil {
			return err
		}

		f, err := os.Create(exportOut)
		if err != nil {
			return eris.Wrapf(err, "create %s", exportOut)
		}
		if err := export.WriteXLSX(f, snap.Restaurants, snap.Ratings); err != nil {
			f.Close() //nolint:errcheck
			return err
		}
		if err := f.Close(); err != nil {
			return eris.Wrapf(err, "close %s", exportOut)
		}

		zap.L().Info("export complete",
			zap.String("pair_id", exportPairID),
			zap.Int("restaurants", len(snap.Restaurants)),
			zap.String("out", exportOut),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportPairID, "pair", "", "pair id (required)")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output .xlsx path (required)")
	_ = exportCmd.MarkFlagRequired("pair")
	_ = exportCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(exportCmd)
}
