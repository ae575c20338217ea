package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/blevesearch/bleve/v2"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"go-wallpaper-fetch/index"
	"go-wallpaper-fetch/internal/database"
	"go-wallpaper-fetch/internal/helpers"
)

// dbCmd represents the base command for database operations
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Interact with the download history database",
	Long:  `Perform operations like viewing or verifying entries in the download history database.`,
}

// dbListCmd lists recorded downloads
var dbListCmd = &cobra.Command{
	Use:   "list",
	Short: "List entries stored in the database",
	RunE:  runDbList,
}

// dbVerifyCmd checks database entries against the filesystem
var dbVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify database entries against the filesystem",
	Long: `Checks that every wallpaper recorded in the database still exists at its
recorded path, and optionally that its content hash still matches. Stale
entries can be pruned with --prune.`,
	RunE: runDbVerify,
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbListCmd)
	dbCmd.AddCommand(dbVerifyCmd)

	dbVerifyCmd.Flags().Bool("check-hash", false, "Also verify the content hash of each file.")
	dbVerifyCmd.Flags().Bool("prune", false, "Remove entries whose files are missing.")
}

func runDbList(cmd *cobra.Command, args []string) error {
	db, err := database.Open(globalConfig.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening database at %s: %w", globalConfig.DatabasePath, err)
	}
	defer db.Close()

	records, err := db.Records()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("Database is empty.")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Key\tSource\tQuery\tResolution\tDownloaded\tPath")
	fmt.Fprintln(tw, "---\t------\t-----\t----------\t----------\t----")
	for _, rec := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			rec.Key, rec.Source, rec.Query, rec.Resolution, rec.DownloadedAt, rec.Path)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	log.Infof("%d entries.", len(records))
	return nil
}

func runDbVerify(cmd *cobra.Command, args []string) error {
	checkHash, _ := cmd.Flags().GetBool("check-hash")
	prune, _ := cmd.Flags().GetBool("prune")

	db, err := database.Open(globalConfig.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening database at %s: %w", globalConfig.DatabasePath, err)
	}
	defer db.Close()

	records, err := db.Records()
	if err != nil {
		return err
	}

	// Pruning also drops the matching index entry so searches stop
	// returning files that no longer exist.
	var idx bleve.Index
	if prune {
		opened, idxErr := index.OpenOrCreateIndex(globalConfig.IndexPath)
		if idxErr != nil {
			log.WithError(idxErr).Debug("Index unavailable, pruning database only")
		} else {
			idx = opened
			defer opened.Close()
		}
	}

	var ok, missing, mismatched, pruned int
	for _, rec := range records {
		if _, statErr := os.Stat(rec.Path); statErr != nil {
			log.Warnf("Missing: %s (%s)", rec.Path, rec.Key)
			missing++
			if prune {
				if delErr := db.Delete([]byte(rec.Key)); delErr != nil {
					log.WithError(delErr).Warnf("Failed to prune %s", rec.Key)
				} else {
					pruned++
					if idx != nil {
						if idxDelErr := index.DeleteItem(idx, rec.Key); idxDelErr != nil {
							log.WithError(idxDelErr).Warnf("Failed to remove %s from index", rec.Key)
						}
					}
				}
			}
			continue
		}

		if checkHash && rec.BLAKE3 != "" {
			if !helpers.CheckBLAKE3(rec.Path, rec.BLAKE3) {
				log.Warnf("Hash mismatch: %s (%s)", rec.Path, rec.Key)
				mismatched++
				continue
			}
		}
		ok++
	}

	log.Infof("Verify complete: %d ok, %d missing, %d mismatched, %d pruned",
		ok, missing, mismatched, pruned)
	if missing > 0 || mismatched > 0 {
		return fmt.Errorf("%d database entries failed verification", missing+mismatched)
	}
	return nil
}
