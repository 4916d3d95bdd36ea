package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"quizmaster/internal/domain"
	"quizmaster/internal/importer"
	"quizmaster/internal/infra/postgres"
	infraredis "quizmaster/internal/infra/redis"

	"github.com/spf13/cobra"
)

// NewImportCmd validates quiz documents and stores the valid ones.
func NewImportCmd(configPath *string) *cobra.Command {
	var dir string
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "import <file...>",
		Short: "Validate quiz JSON files and store them in Postgres or the quiz directory",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := openRuntime(ctx, *configPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			if dir == "" {
				dir = rt.cfg.Quiz.Dir
			}
			var sink quizSink
			switch {
			case dryRun:
				sink = func(context.Context, domain.Quiz) error { return nil }
			case rt.db != nil:
				sink = postgres.NewQuizWriter(rt.db).Save
			case dir != "":
				sink = dirSink(dir)
			default:
				return errors.New("nowhere to import to: configure postgres.url or quiz.dir, or pass --dir or --dry-run")
			}
			if rt.redis != nil {
				cache := infraredis.NewQuizRepository(rt.redis, nil, 0)
				store := sink
				sink = func(ctx context.Context, quiz domain.Quiz) error {
					if err := store(ctx, quiz); err != nil {
						return err
					}
					return cache.Invalidate(ctx, quiz.ID)
				}
			}
			return importFiles(ctx, rt.importer, args, sink, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "directory to write normalized quiz files to (defaults to quiz.dir)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate only")
	return cmd
}

type quizSink func(ctx context.Context, quiz domain.Quiz) error

// importFiles reports every violated rule of every file before failing.
func importFiles(ctx context.Context, im *importer.Importer, paths []string, sink quizSink, out, errOut io.Writer) error {
	failed := 0
	for _, path := range paths {
		quiz, err := im.DecodeFile(path)
		if err != nil {
			failed++
			var violations domain.ValidationErrors
			if errors.As(err, &violations) {
				for _, v := range violations {
					fmt.Fprintf(errOut, "%s: %s: %s\n", path, v.Field, v.Message)
				}
				continue
			}
			fmt.Fprintf(errOut, "%s: %v\n", path, err)
			continue
		}
		if err := sink(ctx, quiz); err != nil {
			failed++
			fmt.Fprintf(errOut, "%s: %v\n", path, err)
			continue
		}
		fmt.Fprintf(out, "imported %s (%d questions) from %s\n", quiz.ID, len(quiz.Questions), path)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(paths))
	}
	return nil
}

func dirSink(dir string) quizSink {
	return func(_ context.Context, quiz domain.Quiz) error {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		data, err := json.MarshalIndent(quiz, "", "  ")
		if err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(dir, quiz.ID+".json"), data, 0o644)
	}
}
