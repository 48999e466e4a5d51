package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/metabind/pkg/adapters/lifecycle"
	"github.com/aretw0/metabind/pkg/core"
)

var watchTypes []string

var watchCmd = &cobra.Command{
	Use:   "watch [pattern]",
	Short: "Print changes made to posts by other processes",
	Long: `Watch the site and print one line per changed post, meta key or block
placement. The optional pattern is a glob over post IDs, e.g. "book-*".`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		pattern := ""
		if len(args) == 1 {
			pattern = args[0]
		}

		site, err := openSite()
		if err != nil {
			fatal("Failed to open site", err)
		}
		defer site.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		events, err := site.Service.Watch(ctx, pattern)
		if err != nil {
			fatal("Failed to watch site", err)
		}

		types := make([]core.EventType, 0, len(watchTypes))
		for _, t := range watchTypes {
			types = append(types, core.EventType(t))
		}
		src := lifecycle.NewSource(events, types...)
		if err := src.Start(ctx); err != nil {
			fatal("Failed to start watcher", err)
		}

		slog.Info("watching", "path", cfg.Site.Path, "pattern", pattern)
		for e := range src.Events() {
			fmt.Println(e.String())
		}
	},
}

func init() {
	watchCmd.Flags().StringSliceVar(&watchTypes, "type", nil, "Only print these event types (CREATE, MODIFY, DELETE)")
	rootCmd.AddCommand(watchCmd)
}
