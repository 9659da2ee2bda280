// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-reader/internal/acquire"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [identifiers...]",
	Short: "Download article XML without parsing or extraction",
	Long: `Fetch downloads each article from the content API into the parsed
directory as {identifier}.xml. Without an API key nothing is requested and
every article is reported as absent.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().String("out", "", "download directory (default: the parsed directory)")
	fetchCmd.Flags().Float64("rate", 0, "maximum requests per second (0 = unlimited)")
	_ = viper.BindPFlag("fetch.rate_limit", fetchCmd.Flags().Lookup("rate"))

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	a, err := newApp(viper.GetViper(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	ids, err := a.identifiers(args)
	if err != nil {
		return err
	}

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		out = a.cfg.Paths.Parsed
	}

	fetcher := acquire.NewFetcher(nil, a.cfg.Fetch, a.log)
	var fetched int
	for i, id := range ids {
		res := fetcher.Fetch(context.Background(), id, acquire.ArtifactPath(out, id, ".xml"))
		if res.OK() {
			fetched++
			fmt.Fprintf(os.Stdout, "[%d/%d] %s -> %s\n", i+1, len(ids), id, res.Path)
			continue
		}
		fmt.Fprintf(os.Stdout, "[%d/%d] %s absent (%s, %d attempts)\n", i+1, len(ids), id, res.Reason, res.Attempts)
	}
	fmt.Fprintf(os.Stdout, "\nfetched: %d, absent: %d\n", fetched, len(ids)-fetched)
	return nil
}
