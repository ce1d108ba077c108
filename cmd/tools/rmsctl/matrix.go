package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/noah-isme/rms-pricing/internal/pricing"
	"github.com/noah-isme/rms-pricing/internal/rates"
	"github.com/noah-isme/rms-pricing/internal/store"
)

func init() {
	rootCmd.AddCommand(matrixCmd)
	matrixCmd.Flags().String("hotel", "", "Hotel id")
	matrixCmd.Flags().String("mode", string(pricing.MatrixNetToBar), "Matrix mode: net_to_bar or bar_to_net")
	matrixCmd.Flags().StringP("out", "o", "", "Write CSV to this file instead of stdout")
}

var matrixCmd = &cobra.Command{
	Use:   "matrix",
	Short: "Compute a hotel's pricing matrix and export it as CSV",
	Args:  cobra.NoArgs,
	RunE:  runMatrix,
}

func runMatrix(cmd *cobra.Command, _ []string) error {
	hotelID, _ := cmd.Flags().GetString("hotel")
	mode, _ := cmd.Flags().GetString("mode")
	out, _ := cmd.Flags().GetString("out")
	if hotelID == "" {
		return errors.New("--hotel is required")
	}

	ctx := cmd.Context()
	cfg, pool, err := openPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	log := logger()
	svc, err := rates.NewService(rates.ServiceConfig{
		Store:           store.NewRepository(pool),
		Builder:         pricing.NewBuilder(pricing.DefaultCatalog(), cfg.MatrixConcurrency),
		Logger:          log,
		DefaultRounding: cfg.DefaultRounding,
	})
	if err != nil {
		return err
	}
	result, err := svc.Matrix(ctx, hotelID, rates.MatrixInput{Mode: mode})
	if err != nil {
		return err
	}

	if out == "" {
		err = rates.WriteCSV(cmd.OutOrStdout(), result)
	} else {
		err = writeCSVFile(out, result)
	}
	if err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	if failed := result.Failed(); failed > 0 {
		log.Warn().Int("failed", failed).Int("cells", len(result.Matrix)).Msg("matrix has cells without a price")
	}
	return nil
}

// writeCSVFile writes result to path. A failed close is reported since it may
// lose buffered rows.
func writeCSVFile(path string, result *pricing.Result) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return rates.WriteCSV(f, result)
}
