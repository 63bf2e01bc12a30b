package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"repack/internal/compact"
	"repack/internal/config"
	"repack/internal/history"
	"repack/internal/logging"
)

func newCompactCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "compact <dataset> [output]",
		Short: "Remove blacklisted episodes and renumber survivors",
		Long: "compact deletes every episode on the dataset's blacklist and renumbers the\n" +
			"survivors onto a dense zero-based range, rewriting the metadata tables to\n" +
			"match. With an output path the dataset is copied first and the source is\n" +
			"left untouched; the output path must not already exist.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			datasetPath, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve dataset path: %w", err)
			}
			opts := compact.Options{DryRun: dryRun}
			if len(args) == 2 {
				if opts.TargetPath, err = config.ExpandPath(args[1]); err != nil {
					return fmt.Errorf("resolve output path: %w", err)
				}
			}

			var (
				journal *history.Store
				run     *history.Run
			)
			if !dryRun {
				if journal, err = ctx.openJournal(); err != nil {
					logger.Warn("run journal unavailable", logging.Error(err))
				} else if journal != nil {
					defer journal.Close()
					if run, err = journal.Begin(cmd.Context(), datasetPath, opts.TargetPath); err != nil {
						logger.Warn("failed to journal run start", logging.Error(err))
						run = nil
					}
				}
			}

			executor := compact.NewExecutor(logger, time.Duration(cfg.Compaction.LockTimeout)*time.Second)
			result, runErr := executor.Run(cmd.Context(), datasetPath, opts)

			if run != nil {
				outcome := history.Outcome{}
				if result != nil {
					outcome = history.Outcome{
						Deleted:       len(result.Deleted),
						AlreadyAbsent: len(result.AlreadyAbsent),
						Renamed:       result.RenamedShards + result.RenamedMedia,
						Remaining:     result.Remaining,
					}
				}
				if err := journal.Finish(cmd.Context(), run, outcome, runErr); err != nil {
					logger.Warn("failed to journal run outcome", logging.Error(err))
				}
			}
			if runErr != nil {
				return runErr
			}

			out := cmd.OutOrStdout()
			for _, line := range result.Lines() {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, result.Summary())
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report intended actions without deleting or renaming anything")
	return cmd
}
