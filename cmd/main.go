package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	tripfinder "github.com/mnrtools/tripfinder"
	"github.com/mnrtools/tripfinder/config"
	"github.com/mnrtools/tripfinder/storage"
)

var rootCmd = &cobra.Command{
	Use:          "tripfinder",
	Short:        "Commuter rail trip finder",
	Long:         "Answers which trips run between two stations on a date, with live delays overlaid.",
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tripsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func openStorage(cfg *config.Config) (storage.Storage, error) {
	if cfg.Storage == "memory" {
		return storage.NewMemoryStorage(), nil
	}
	return storage.NewSQLiteStorage(storage.SQLiteConfig{
		OnDisk:    true,
		Directory: cfg.DataDir,
	})
}

func storeConfig(cfg *config.Config) tripfinder.StoreConfig {
	return tripfinder.StoreConfig{
		StaticURL:       cfg.StaticURL,
		Location:        cfg.Location,
		RefreshInterval: cfg.RefreshInterval,
	}
}
