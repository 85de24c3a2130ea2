package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/newthinker/zella/internal/app"
	"github.com/newthinker/zella/internal/auth"
	"github.com/newthinker/zella/internal/config"
	"github.com/newthinker/zella/internal/journal"
)

var importUser string

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import trades from a JSON or YAML file",
	Long:  "Each entry is validated like a form submission; rejected entries are listed and the rest are recorded.",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	importCmd.Flags().StringVar(&importUser, "user", "", "journal owner (required)")
	importCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(importCmd)
}

// readEntries decodes a list of entries, choosing YAML by file extension.
func readEntries(path string) ([]journal.Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var entries []journal.Entry
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &entries)
	default:
		err = jsonAPI.Unmarshal(data, &entries)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return entries, nil
}

func runImport(cmd *cobra.Command, args []string) error {
	entries, err := readEntries(args[0])
	if err != nil {
		return err
	}
	return withApp(cmd.Context(), func(a *app.App, cfg *config.Config, log *zap.Logger) error {
		res, err := a.Journal().Import(cmd.Context(), auth.Admin(), importUser, entries)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Imported %d of %d entries for %s\n", res.Imported, len(entries), importUser)
		for _, e := range res.Errors {
			fmt.Fprintf(out, "  entry %d: %s\n", e.Index, e.Message)
		}
		return nil
	})
}
