// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/coursereq/internal/store"
	"github.com/pdiddy/coursereq/pkg/types"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Index extracted requisites in SQLite",
	Long: `Store ingests the per-course result files written by extract into a
SQLite index under --store-dir. Files unchanged since the last ingest are
skipped. With --status it only reports the most recent ingest run; with
--export it writes the index to export.yaml and export.json in --store-dir.`,
	RunE: runStore,
}

func openStore() (*store.Store, error) {
	return store.Open(types.StoreConfig{Dir: viper.GetString("store.dir")})
}

func runStore(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	if status, _ := cmd.Flags().GetBool("status"); status {
		run, ok, err := s.LastRun(ctx)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("no ingest runs recorded")
			return nil
		}
		fmt.Printf("run %s finished %s\n", run.ID, run.FinishedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("ingested: %d, updated: %d, skipped: %d, failed: %d\n",
			run.Ingested, run.Updated, run.Skipped, run.Failed)
		return nil
	}

	if export, _ := cmd.Flags().GetBool("export"); export {
		for _, write := range []func(context.Context) (string, error){s.ExportYAML, s.ExportJSON} {
			path, err := write(ctx)
			if err != nil {
				return err
			}
			fmt.Println("exported", path)
		}
		return nil
	}

	summary, err := s.Ingest(ctx, viper.GetString("store.results_dir"), os.Stdout)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d result file(s) failed to ingest", summary.Failed)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().String("store-dir", "index", "directory holding the SQLite index")
	viper.BindPFlag("store.dir", rootCmd.PersistentFlags().Lookup("store-dir"))

	storeCmd.Flags().String("results-dir", "requisites", "directory of per-course result files")
	storeCmd.Flags().Bool("status", false, "report the most recent ingest run")
	storeCmd.Flags().Bool("export", false, "export the index to YAML and JSON files")
	viper.BindPFlag("store.results_dir", storeCmd.Flags().Lookup("results-dir"))

	rootCmd.AddCommand(storeCmd)
}
