package main

import (
	"fmt"
	"io"

	"movie-meme-api/internal/database"
	"movie-meme-api/internal/models"

	"github.com/spf13/cobra"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var q database.Query
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the catalog as a table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			catalog, err := database.Open(cfg.Storage.DatabaseURL)
			if err != nil {
				return err
			}
			defer catalog.Close()

			videos, err := catalog.Search(cmd.Context(), q)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(videos) == 0 {
				fmt.Fprintln(out, "No videos found")
				return nil
			}
			printVideos(out, videos)
			return nil
		},
	}
	cmd.Flags().StringVarP(&q.Text, "query", "q", "", "Free-text search over title, movie and tags")
	cmd.Flags().StringVar(&q.Tag, "tag", "", "Exact tag match")
	cmd.Flags().StringVar(&q.Movie, "movie", "", "Case-insensitive movie name substring")
	return cmd
}

func printVideos(out io.Writer, videos []models.Video) {
	fmt.Fprintln(out, renderVideoTable(videos, shouldColorize(out)))
}
