package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/noah-isme/rms-pricing/internal/store"
)

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().StringP("file", "f", "", "Path to the TOML fixture")
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load hotels, room types, channels and promotions from a TOML fixture",
	Long: `Seed replaces the reference data of every hotel in the fixture. Hotels not
listed in the file are left untouched. Missing ids are generated and printed.`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

func runSeed(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("file")
	if path == "" {
		return errors.New("--file is required")
	}
	fixture, err := store.LoadFixture(path)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	_, pool, err := openPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	repo := store.NewRepository(pool)
	log := logger()
	for i := range fixture.Hotels {
		h := &fixture.Hotels[i]
		if err := repo.SaveHotel(ctx, h); err != nil {
			return err
		}
		log.Debug().Str("hotel_id", h.ID).Int("room_types", len(h.RoomTypes)).Int("channels", len(h.Channels)).Msg("hotel seeded")
		cmd.Printf("%s\t%s\n", h.ID, h.Name)
	}
	return nil
}
