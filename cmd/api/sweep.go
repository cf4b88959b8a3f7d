package main

import (
	"errors"
	"fmt"
	"time"

	"movie-meme-api/internal/database"
	"movie-meme-api/internal/maintenance"
	"movie-meme-api/internal/storage"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newSweepCommand(ctx *commandContext) *cobra.Command {
	var (
		dryRun bool
		minAge time.Duration
	)
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Remove uploaded files that no video record references",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			assets, err := storage.New(cfg.Storage.UploadDir)
			if err != nil {
				return err
			}
			catalog, err := database.Open(cfg.Storage.DatabaseURL)
			if err != nil {
				return err
			}
			defer catalog.Close()

			sweeper := maintenance.NewSweeper(assets, catalog, logger.Named("sweep"))
			report, err := sweeper.Sweep(cmd.Context(), maintenance.Options{MinAge: minAge, DryRun: dryRun})
			if errors.Is(err, maintenance.ErrLocked) {
				return fmt.Errorf("%w; try again later", err)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			verb := "Removed"
			if report.DryRun {
				verb = "Would remove"
			}
			for _, a := range report.Removed {
				fmt.Fprintf(out, "  %s (%s, modified %s)\n", a.Path, humanize.Bytes(uint64(a.Size)), humanize.Time(a.ModTime))
			}
			fmt.Fprintf(out, "%s %d of %d files (%s); %d referenced, %d too recent",
				verb, len(report.Removed), report.Scanned, humanize.Bytes(uint64(report.Bytes)),
				report.Referenced, report.TooYoung)
			if len(report.Failed) > 0 {
				fmt.Fprintf(out, ", %d failed", len(report.Failed))
			}
			fmt.Fprintln(out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would be removed without deleting")
	cmd.Flags().DurationVar(&minAge, "min-age", maintenance.DefaultMinAge, "Only remove files older than this")
	return cmd
}
