// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-reader/internal/server"
)

var runCmd = &cobra.Command{
	Use:   "run [identifiers...]",
	Short: "Run the full pipeline and write an xlsx export",
	Long: `Run takes each identifier through fetch, parse, metadata stripping,
and LLM extraction, then writes every data record to
extracted_YYYYMMDD_HHMMSS.xlsx in the exports directory.

Identifiers come from the arguments or, when none are given, from the
identifier list (--input, default data/input/doi.xlsx). A missing list is
an empty run. Stages that cannot reach their service write placeholder
output so the export is always produced.`,
	RunE: runPipeline,
}

func init() {
	runCmd.Flags().String("input", "", "identifier list: .xlsx with a doi column, or text with one per line")
	runCmd.Flags().Bool("llm-clean", false, "recover empty XML narratives with the LLM")
	_ = viper.BindPFlag("paths.identifiers", runCmd.Flags().Lookup("input"))
	_ = viper.BindPFlag("extract.llm_clean", runCmd.Flags().Lookup("llm-clean"))

	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	a, err := newApp(viper.GetViper(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	ids, err := a.identifiers(args)
	if err != nil {
		return err
	}

	_, err = a.runner(a.withOverrides(server.Overrides{}), os.Stdout, nil).Run(context.Background(), ids)
	return err
}
