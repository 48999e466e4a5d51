package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/metabind"
)

var (
	renderPost     string
	renderInstance string
	renderTitle    string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the blocks of a post to HTML",
	Run: func(cmd *cobra.Command, args []string) {
		if renderPost == "" {
			fmt.Fprintln(os.Stderr, "Error: --post is required")
			_ = cmd.Usage()
			os.Exit(1)
		}

		var extra []metabind.Option
		if renderTitle != "" {
			extra = append(extra, metabind.WithTitle(func(context.Context, string) string {
				return renderTitle
			}))
		}
		site, err := openSite(extra...)
		if err != nil {
			fatal("Failed to open site", err)
		}
		defer site.Close()

		ctx := context.Background()
		if renderInstance == "" {
			out, err := site.Renderer.Post(ctx, renderPost)
			if err != nil {
				fatal("Failed to render post", err)
			}
			fmt.Print(out)
			return
		}

		inst, err := site.Service.Store().Instance(ctx, renderInstance)
		if err != nil {
			fatal("Failed to load block", err)
		}
		if inst.PostID != renderPost {
			fatal("Failed to render block", fmt.Errorf("instance %s belongs to post %s", inst.ID, inst.PostID))
		}
		out, err := site.Renderer.Block(ctx, inst)
		if err != nil {
			fatal("Failed to render block", err)
		}
		fmt.Println(out)
	},
}

func init() {
	renderCmd.Flags().StringVar(&renderPost, "post", "", "Post ID")
	renderCmd.Flags().StringVar(&renderInstance, "instance", "", "Render only this block instance")
	renderCmd.Flags().StringVar(&renderTitle, "title", "", "Title used when a block has no title field value")
	rootCmd.AddCommand(renderCmd)
}
