package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"examgen/internal/app"
)

func newIngestCmd(env *commandEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file.pdf>...",
		Short: "Store and ingest PDF files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withRuntime(cmd, func(rt *Runtime) error {
				for _, path := range args {
					name, err := importFile(rt.Documents, path)
					if err != nil {
						return err
					}
					res, err := rt.Ingester.Ingest(cmd.Context(), name)
					if err != nil {
						return fmt.Errorf("ingest %s failed: %w", name, err)
					}
					printResult(cmd, res)
				}
				return nil
			})
		},
	}
}

func newBatchCmd(env *commandEnv) *cobra.Command {
	var force, merge bool

	cmd := &cobra.Command{
		Use:   "batch [dir]",
		Short: "Ingest every stored PDF that has no chunk artifact yet",
		Long: `Ingests every PDF in the document store, skipping documents that already
have a chunk artifact unless --force is given. When dir is provided its PDFs
are copied into the document store first.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withRuntime(cmd, func(rt *Runtime) error {
				if len(args) == 1 {
					if err := importDir(rt.Documents, args[0]); err != nil {
						return err
					}
				}
				names, err := rt.Documents.List()
				if err != nil {
					return err
				}

				var ingested, skipped, failed int
				for _, name := range names {
					if err := cmd.Context().Err(); err != nil {
						return err
					}
					if !force && rt.Artifacts.Exists(name) {
						skipped++
						continue
					}
					res, err := rt.Ingester.Ingest(cmd.Context(), name)
					if err != nil {
						failed++
						cmd.PrintErrf("%s: %v\n", name, err)
						continue
					}
					ingested++
					printResult(cmd, res)
				}
				cmd.Printf("ingested %d, skipped %d, failed %d\n", ingested, skipped, failed)

				if merge {
					n, err := rt.Artifacts.Merge()
					if err != nil {
						return err
					}
					cmd.Printf("merged %d chunks\n", n)
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d documents failed", failed, len(names))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "re-ingest documents that already have artifacts")
	cmd.Flags().BoolVar(&merge, "merge", false, "merge all artifacts into the combined corpus afterwards")
	return cmd
}

func newMergeCmd(env *commandEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "merge",
		Short: "Combine every chunk artifact into the merged corpus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return env.withRuntime(cmd, func(rt *Runtime) error {
				n, err := rt.Artifacts.Merge()
				if err != nil {
					return err
				}
				cmd.Printf("merged %d chunks\n", n)
				return nil
			})
		},
	}
}

func printResult(cmd *cobra.Command, res *app.IngestResult) {
	cmd.Printf("%s: %d chunks from %d pages (%d pages skipped, %d chunks dropped)\n",
		res.Document, res.ChunkCount, res.Pages, res.PagesSkipped, res.ChunksDropped)
}

func importFile(docs DocumentStore, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s failed: %w", path, err)
	}
	defer f.Close()

	name := filepath.Base(path)
	if err := docs.Save(name, f); err != nil {
		return "", fmt.Errorf("store %s failed: %w", name, err)
	}
	return name, nil
}

func importDir(docs DocumentStore, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read %s failed: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		if _, err := importFile(docs, filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}
