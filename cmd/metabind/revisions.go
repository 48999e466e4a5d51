package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

type revisioned interface {
	Revisions(ctx context.Context, postID string, limit int) ([]string, error)
}

var revisionsLimit int

var revisionsCmd = &cobra.Command{
	Use:   "revisions <post>",
	Short: "List the recorded revisions of a post (versioned fs sites)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		site, err := openSite()
		if err != nil {
			fatal("Failed to open site", err)
		}
		defer site.Close()

		store, ok := site.Service.Store().(revisioned)
		if !ok {
			fatal("Cannot list revisions", errors.New("store does not keep revisions"))
		}
		revs, err := store.Revisions(context.Background(), args[0], revisionsLimit)
		if err != nil {
			fatal("Failed to list revisions", err)
		}
		for _, r := range revs {
			fmt.Println(r)
		}
	},
}

func init() {
	revisionsCmd.Flags().IntVarP(&revisionsLimit, "limit", "n", 20, "Maximum number of revisions")
	rootCmd.AddCommand(revisionsCmd)
}
