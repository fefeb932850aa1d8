package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"docsearch/config"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	rootDir := GetRootDir()

	dbPath := config.DBPath(rootDir)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return fmt.Errorf("no index found. Run 'docsearch index' first")
	}

	st, err := openStores(dbPath, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := st.index.Stats()
	if err != nil {
		return fmt.Errorf("read index stats: %w", err)
	}
	docs, err := st.docs.Count(cmd.Context(), nil)
	if err != nil {
		return fmt.Errorf("count documents: %w", err)
	}

	fmt.Printf("Documents stored:   %d\n", docs)
	fmt.Printf("Documents indexed:  %d\n", stats.DocCount)
	fmt.Printf("Average doc length: %.1f tokens\n", stats.AvgDocLen)
	if st.vectors != nil {
		n, err := st.vectors.Count()
		if err != nil {
			return fmt.Errorf("count vectors: %w", err)
		}
		fmt.Printf("Vectors stored:     %d (dimension %d)\n", n, st.vectors.Dimension())
	}
	return nil
}
