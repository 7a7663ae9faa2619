package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/htmledit/domtag"
)

func newTagCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tag FILE",
		Short: "Tag a document and print {tagged_html, elements} as JSON (FILE may be -)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			markup, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			tagged, elements, err := domtag.TagAndExtract(markup)
			if err != nil {
				return err
			}
			if elements == nil {
				elements = []domtag.Element{}
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"tagged_html": tagged,
				"elements":    elements,
			})
		},
	}
}

func newPatchCmd() *cobra.Command {
	var (
		updatesPath string
		final       bool
	)
	cmd := &cobra.Command{
		Use:   "patch FILE",
		Short: "Apply a JSON list of updates to a tagged document and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			markup, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			var updates []domtag.Update
			if updatesPath != "" {
				data, err := os.ReadFile(updatesPath)
				if err != nil {
					return fmt.Errorf("read updates: %w", err)
				}
				if err := json.Unmarshal(data, &updates); err != nil {
					return fmt.Errorf("parse updates %s: %w", updatesPath, err)
				}
			}
			var out string
			if final && len(updates) == 0 {
				out, err = domtag.Strip(markup)
			} else {
				out, err = domtag.ApplyUpdates(markup, updates, final)
			}
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), out)
			return err
		},
	}
	cmd.Flags().StringVarP(&updatesPath, "updates", "u", "", "JSON file with [{id, content, attributes}]")
	cmd.Flags().BoolVar(&final, "final", false, "remove tracking ids from updated elements (all ids when there are no updates)")
	return cmd
}

func readInput(cmd *cobra.Command, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}
