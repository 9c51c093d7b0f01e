package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"examgen/internal/app"
	"examgen/internal/model"
)

type DocumentStore interface {
	Save(name string, r io.Reader) error
	List() ([]string, error)
}

type ArtifactStore interface {
	Exists(document string) bool
	Merge() (int, error)
}

type Ingester interface {
	Ingest(ctx context.Context, document string) (*app.IngestResult, error)
}

type Retriever interface {
	Retrieve(ctx context.Context, document, query string, k int) ([]model.RetrievedChunk, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, document, instruction string) (*model.Question, error)
}

type Evaluator interface {
	Evaluate(ctx context.Context, q *model.Question, feedback *model.HumanFeedback) (*model.QualityEvaluation, error)
}

// Runtime is what the commands operate on. It needs no database.
type Runtime struct {
	Documents   DocumentStore
	Artifacts   ArtifactStore
	Ingester    Ingester
	Retriever   Retriever
	Synthesizer Synthesizer
	Evaluator   Evaluator
	TopK        int
}

// Opener builds a Runtime on first use; the returned func releases it.
type Opener func(ctx context.Context) (*Runtime, func() error, error)

// Migrator applies pending schema migrations and reports how many ran.
type Migrator func(ctx context.Context) (int, error)

type commandEnv struct {
	open    Opener
	migrate Migrator
}

func NewRootCommand(open Opener, migrate Migrator) *cobra.Command {
	env := &commandEnv{open: open, migrate: migrate}

	root := &cobra.Command{
		Use:           "examctl",
		Short:         "Build exam question corpora from PDF documents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newIngestCmd(env),
		newBatchCmd(env),
		newMergeCmd(env),
		newRetrieveCmd(env),
		newGenerateCmd(env),
		newEvaluateCmd(env),
		newMigrateCmd(env),
	)
	return root
}

// withRuntime opens the runtime for the duration of fn.
func (e *commandEnv) withRuntime(cmd *cobra.Command, fn func(rt *Runtime) error) (err error) {
	if e.open == nil {
		return errors.New("runtime not configured")
	}
	rt, release, err := e.open(cmd.Context())
	if err != nil {
		return fmt.Errorf("open runtime failed: %w", err)
	}
	defer func() {
		if release != nil {
			err = errors.Join(err, release())
		}
	}()
	return fn(rt)
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output failed: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
