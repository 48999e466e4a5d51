package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/metabind"
	"github.com/aretw0/metabind/pkg/binding"
	"github.com/aretw0/metabind/pkg/core"
)

var (
	fieldPost     string
	fieldInstance string
	fieldType     string
	fieldKey      string
	fieldValue    string
	fieldReason   string
)

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the value of one field, or of every field of a block as JSON",
	Run: func(cmd *cobra.Command, args []string) {
		requireFieldFlags(cmd, false)

		site, err := openSite()
		if err != nil {
			fatal("Failed to open site", err)
		}
		defer site.Close()

		ctx := context.Background()
		scope := core.Scope{PostID: fieldPost, InstanceID: fieldInstance}

		if fieldKey != "" {
			val, err := site.Router.Get(ctx, fieldType, scope, fieldKey)
			if err != nil {
				fatal("Failed to read field", err)
			}
			fmt.Println(val)
			return
		}

		form, err := site.Binder.Bind(ctx, fieldType, scope)
		if err != nil {
			fatal("Failed to read block", err)
		}
		defer form.Close()

		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(form.Values()); err != nil {
			fatal("Failed to encode JSON", err)
		}
	},
}

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Change a field the way an editor control does",
	Run: func(cmd *cobra.Command, args []string) {
		requireFieldFlags(cmd, true)

		site, err := openSite()
		if err != nil {
			fatal("Failed to open site", err)
		}
		defer site.Close()

		field, err := site.Registry.Field(fieldType, fieldKey)
		if err != nil {
			fatal("Unknown field", err)
		}
		value, err := field.Coerce(fieldValue)
		if err != nil {
			fatal("Invalid value", err)
		}

		reason := metabind.FormatChangeReason(metabind.ChangeEdit, fieldPost, "set "+fieldKey, "")
		if fieldReason != "" {
			reason = metabind.AppendFooter(fieldReason)
		}
		ctx := metabind.WithChangeReason(context.Background(), reason)
		scope := core.Scope{PostID: fieldPost, InstanceID: fieldInstance}

		value = binding.Normalize(field, value)
		if err := site.Router.Set(ctx, fieldType, scope, fieldKey, value); err != nil {
			fatal("Failed to save field", err)
		}
		fmt.Printf("%s = %v\n", fieldKey, value)
	},
}

func requireFieldFlags(cmd *cobra.Command, write bool) {
	missing := fieldPost == "" || fieldType == ""
	if write && fieldKey == "" {
		missing = true
	}
	if missing {
		fmt.Fprintln(os.Stderr, "Error: --post and --type are required (and --key for set)")
		_ = cmd.Usage()
		os.Exit(1)
	}
}

func init() {
	for _, c := range []*cobra.Command{getCmd, setCmd} {
		c.Flags().StringVar(&fieldPost, "post", "", "Post ID")
		c.Flags().StringVar(&fieldInstance, "instance", "", "Block instance ID (needed for attribute fields)")
		c.Flags().StringVar(&fieldType, "type", "", "Block type")
		c.Flags().StringVar(&fieldKey, "key", "", "Field key")
	}
	setCmd.Flags().StringVar(&fieldValue, "value", "", "New value")
	setCmd.Flags().StringVarP(&fieldReason, "message", "m", "", "Revision message (versioned sites)")
	rootCmd.AddCommand(getCmd, setCmd)
}
