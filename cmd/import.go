package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/foodiepair/foodiepair-cli/internal/export"
	"github.com/foodiepair/foodiepair-cli/internal/model"
	"github.com/foodiepair/foodiepair-cli/internal/store"
)

var (
	importFile   string
	importPairID string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load a YAML snapshot or an exported XLSX workbook into the database",
	Long:  "YAML snapshots carry a pair, restaurants and ratings. XLSX workbooks carry restaurants only and need --pair. Rows are upserted by id.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		snap, err := loadImport(importFile, importPairID)
		if err != nil {
			return err
		}

		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		res, err := st.Import(cmd.Context(), snap)
		if err != nil {
			return eris.Wrap(err, "import")
		}

		zap.L().Info("import complete",
			zap.String("file", importFile),
			zap.Int64("pairs", res.Pairs),
			zap.Int64("restaurants", res.Restaurants),
			zap.Int64("ratings", res.Ratings),
		)
		return printJSON(cmd.OutOrStdout(), res)
	},
}

func loadImport(path, pairID string) (*model.Snapshot, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		snap, err := store.LoadSnapshotFile(path)
		if err != nil {
			return nil, err
		}
		if pairID != "" {
			if snap.Pair == nil {
				snap.Pair = &model.Pair{}
			}
			snap.Pair.ID = pairID
			for i := range snap.Restaurants {
				snap.Restaurants[i].PairID = pairID
			}
		}
		return snap, nil
	case ".xlsx":
		if pairID == "" {
			return nil, eris.New("--pair is required for xlsx imports")
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "open %s", path)
		}
		defer f.Close() //nolint:errcheck

		restaurants, err := export.ReadXLSX(f, pairID)
		if err != nil {
			return nil, err
		}
		return &model.Snapshot{Pair: &model.Pair{ID: pairID}, Restaurants: restaurants}, nil
	default:
		return nil, eris.Errorf("unsupported import file %s: want .yaml, .yml or .xlsx", path)
	}
}

func init() {
	importCmd.Flags().StringVar(&importFile, "file", "", "path to a .yaml snapshot or .xlsx export (required)")
	importCmd.Flags().StringVar(&importPairID, "pair", "", "pair id to import into")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
