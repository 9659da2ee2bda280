// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-reader/internal/acquire"
	"github.com/pdiddy/paper-reader/internal/artifact"
	"github.com/pdiddy/paper-reader/internal/clean"
)

var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Parse one PDF or XML file with the structural parser",
	Long: `Parse sends a single file to the structural parser and writes the
structured document as JSON. With --narrative the metadata-free narrative
is written next to it in the cleaned directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().String("doi", "", "identifier recorded in the document (default: file name)")
	parseCmd.Flags().String("out", "", "output JSON path (default: parsed/{doi}.json)")
	parseCmd.Flags().Bool("narrative", false, "also write the stripped narrative to the cleaned directory")

	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	a, err := newApp(viper.GetViper(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	source := args[0]
	doi, _ := cmd.Flags().GetString("doi")
	if doi == "" {
		doi = strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	}
	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		out = acquire.ArtifactPath(a.cfg.Paths.Parsed, doi, ".json")
	}

	res := a.parser(a.cfg).Parse(context.Background(), source, out, doi)
	if res.OK() {
		fmt.Fprintf(os.Stdout, "%s -> %s (%s, %d pages)\n", source, out, res.Source.Format, res.Source.Pages)
	} else {
		fmt.Fprintf(os.Stdout, "%s -> %s placeholder (%s)\n", source, out, res.Reason)
	}

	if narrative, _ := cmd.Flags().GetBool("narrative"); narrative {
		path := acquire.ArtifactPath(a.cfg.Paths.Cleaned, doi, ".json")
		if err := artifact.SaveJSON(clean.Strip(res.Document), path); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "narrative -> %s\n", path)
	}
	return nil
}
