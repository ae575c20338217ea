package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"go-wallpaper-fetch/index"
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search [QUERY]",
	Short: "Search the local wallpaper library",
	Long: `Searches the local full-text index of downloaded wallpapers. The query
uses Bleve query-string syntax, so field searches like '+source:unsplash'
or '+theme:nord' work alongside free text.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().Bool("paths-only", false, "Print matching file paths only.")
}

func runSearch(cmd *cobra.Command, args []string) error {
	pathsOnly, _ := cmd.Flags().GetBool("paths-only")

	idx, err := index.OpenOrCreateIndex(globalConfig.IndexPath)
	if err != nil {
		return fmt.Errorf("opening index at %s: %w", globalConfig.IndexPath, err)
	}
	defer idx.Close()

	results, err := index.SearchIndex(idx, args[0])
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	log.Debugf("Search for %q returned %d hit(s)", args[0], results.Total)
	if results.Total == 0 {
		fmt.Println("No matches.")
		return nil
	}

	if pathsOnly {
		for _, hit := range results.Hits {
			if p, ok := hit.Fields["filePath"].(string); ok {
				fmt.Println(p)
			}
		}
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSource\tQuery\tResolution\tTheme\tPath")
	fmt.Fprintln(tw, "--\t------\t-----\t----------\t-----\t----")
	for _, hit := range results.Hits {
		field := func(name string) string {
			if v, ok := hit.Fields[name].(string); ok {
				return v
			}
			return ""
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			hit.ID, field("source"), field("query"), field("resolution"),
			field("theme"), field("filePath"))
	}
	return tw.Flush()
}
