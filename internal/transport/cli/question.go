package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"examgen/internal/app"
	"examgen/internal/model"
)

func newRetrieveCmd(env *commandEnv) *cobra.Command {
	var k int

	cmd := &cobra.Command{
		Use:   "retrieve <document> <query>",
		Short: "Show the chunks nearest to a query",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withRuntime(cmd, func(rt *Runtime) error {
				if k <= 0 {
					k = rt.TopK
				}
				chunks, err := rt.Retriever.Retrieve(cmd.Context(), args[0], args[1], k)
				if err != nil {
					return err
				}
				return printJSON(cmd, chunks)
			})
		},
	}
	cmd.Flags().IntVarP(&k, "top-k", "k", 0, "number of chunks (defaults to retrieval.top_k)")
	return cmd
}

func newGenerateCmd(env *commandEnv) *cobra.Command {
	var instruction string
	var evaluate bool

	cmd := &cobra.Command{
		Use:   "generate <document>",
		Short: "Generate a multiple-choice question from a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withRuntime(cmd, func(rt *Runtime) error {
				q, err := rt.Synthesizer.Synthesize(cmd.Context(), args[0], instruction)
				if err != nil {
					return err
				}
				if evaluate {
					eval, err := rt.Evaluator.Evaluate(cmd.Context(), q, nil)
					if err != nil {
						return err
					}
					q.Evaluation = eval
				}
				return printJSON(cmd, q)
			})
		},
	}
	cmd.Flags().StringVarP(&instruction, "instruction", "i", app.DefaultInstruction, "generation instruction")
	cmd.Flags().BoolVar(&evaluate, "evaluate", false, "grade the generated question")
	return cmd
}

func newEvaluateCmd(env *commandEnv) *cobra.Command {
	var rating int
	var comments string

	cmd := &cobra.Command{
		Use:   "evaluate <question.json|->",
		Short: "Grade a question read from a JSON file or stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := readQuestion(cmd, args[0])
			if err != nil {
				return err
			}
			var feedback *model.HumanFeedback
			if rating != 0 || comments != "" {
				feedback = &model.HumanFeedback{Rating: rating, Comments: comments}
			}
			return env.withRuntime(cmd, func(rt *Runtime) error {
				eval, err := rt.Evaluator.Evaluate(cmd.Context(), q, feedback)
				if err != nil {
					return err
				}
				return printJSON(cmd, eval)
			})
		},
	}
	cmd.Flags().IntVar(&rating, "rating", 0, "reviewer rating 1-5")
	cmd.Flags().StringVar(&comments, "comments", "", "reviewer comments")
	return cmd
}

func newMigrateCmd(env *commandEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if env.migrate == nil {
				return fmt.Errorf("migrations not configured")
			}
			n, err := env.migrate(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("applied %d migrations\n", n)
			return nil
		},
	}
}

func readQuestion(cmd *cobra.Command, path string) (*model.Question, error) {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s failed: %w", path, err)
		}
		defer f.Close()
		r = f
	}
	var q model.Question
	if err := json.NewDecoder(r).Decode(&q); err != nil {
		return nil, fmt.Errorf("decode question failed: %w", err)
	}
	return &q, nil
}
