package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/metabind"
)

var (
	placePost string
	placeType string
	placeID   string
)

var placeCmd = &cobra.Command{
	Use:   "place",
	Short: "Place a block on a post",
	Long:  `Place a block of the given type on a post and print its instance ID.`,
	Run: func(cmd *cobra.Command, args []string) {
		if placePost == "" || placeType == "" {
			fmt.Fprintln(os.Stderr, "Error: --post and --type are required")
			_ = cmd.Usage()
			os.Exit(1)
		}

		site, err := openSite()
		if err != nil {
			fatal("Failed to open site", err)
		}
		defer site.Close()

		if _, err := site.Registry.Block(placeType); err != nil {
			fatal("Cannot place block", err)
		}

		ctx := metabind.WithChangeReason(context.Background(),
			metabind.FormatChangeReason(metabind.ChangePlace, placePost, "place "+placeType, ""))
		inst, err := site.Service.PlaceBlock(ctx, placePost, placeType, placeID)
		if err != nil {
			fatal("Failed to place block", err)
		}
		fmt.Println(inst.ID)
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <instance>",
	Short: "Remove a block placement and its attribute values",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		site, err := openSite()
		if err != nil {
			fatal("Failed to open site", err)
		}
		defer site.Close()

		ctx := metabind.WithChangeReason(context.Background(),
			metabind.FormatChangeReason(metabind.ChangeRemove, "", "remove "+args[0], ""))
		if err := site.Service.RemoveBlock(ctx, args[0]); err != nil {
			fatal("Failed to remove block", err)
		}
		fmt.Printf("Block '%s' removed.\n", args[0])
	},
}

func init() {
	placeCmd.Flags().StringVar(&placePost, "post", "", "Post ID")
	placeCmd.Flags().StringVar(&placeType, "type", "", "Block type")
	placeCmd.Flags().StringVar(&placeID, "id", "", "Instance ID (generated when empty)")
	rootCmd.AddCommand(placeCmd, removeCmd)
}
