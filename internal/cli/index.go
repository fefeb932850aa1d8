package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"docsearch/config"
	"docsearch/internal/adapter/fs"
	"docsearch/internal/port"
	"docsearch/internal/usecase"
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index documents for retrieval",
	Long: `Index text files in the specified directory for later retrieval.
The index is stored in .docsearch/index.db within the target directory.

Examples:
  docsearch index .                 # Index current directory
  docsearch index /path/to/notes    # Index specific directory`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	path := GetRootDir()
	if len(args) > 0 {
		var err error
		path, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	cfg := GetConfig()

	if err := config.EnsureDataDir(path); err != nil {
		return fmt.Errorf("failed to create .docsearch directory: %w", err)
	}

	dbPath := config.DBPath(path)
	st, err := openStores(dbPath, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	var embedder port.Embedder
	if cfg.Embedding.Enabled {
		embedder, err = newEmbedder(cfg)
		if err != nil {
			return fmt.Errorf("failed to create embedder: %w", err)
		}
	}

	tokenizer := newTokenizer(cfg)
	walker := fs.NewWalker(cfg.Index.Includes, cfg.Index.Excludes)

	var vectors port.VectorIndex
	if st.vectors != nil {
		vectors = st.vectors
	}
	indexUC := usecase.NewIndexUseCase(st.docs, st.index, vectors, embedder, tokenizer, nil)

	fmt.Printf("Scanning %s...\n", path)

	bar := progressbar.NewOptions(-1,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Indexing[reset]"),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)

	result, err := indexUC.IngestDirectory(cmd.Context(), walker, path, func() {
		bar.Add(1)
	})
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}
	bar.Finish()

	fmt.Printf("\nIndexing complete:\n")
	fmt.Printf("  Files indexed: %d\n", result.FilesIndexed)
	fmt.Printf("  Files skipped: %d (unchanged)\n", result.FilesSkipped)
	fmt.Printf("  Files deleted: %d (removed)\n", result.FilesDeleted)

	if len(result.Errors) > 0 {
		fmt.Printf("\nWarnings:\n")
		for _, e := range result.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}

	fmt.Printf("\nIndex stored at: %s\n", dbPath)
	return nil
}
