package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema [block-type]",
	Short: "List block types or describe the fields of one",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		site, err := openSite()
		if err != nil {
			fatal("Failed to open site", err)
		}
		defer site.Close()

		if len(args) == 0 {
			for _, name := range site.Registry.Types() {
				b, _ := site.Registry.Block(name)
				fmt.Printf("%s\t%s\n", name, b.Title)
			}
			return
		}

		b, err := site.Registry.Block(args[0])
		if err != nil {
			fatal("Unknown block type", err)
		}
		renderer := b.Renderer
		if renderer == "" {
			renderer = "list"
		}
		fmt.Printf("%s (%s, rendered as %s)\n", b.Name, b.Title, renderer)
		for _, f := range b.Fields {
			line := fmt.Sprintf("  %-32s %-9s %-9s %s", f.Key, f.Storage, f.Type, f.Label)
			if f.Role != "" {
				line += fmt.Sprintf(" [%s]", f.Role)
			}
			if f.Default != nil {
				line += fmt.Sprintf(" (default %v)", f.Default)
			}
			fmt.Println(line)
		}
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
