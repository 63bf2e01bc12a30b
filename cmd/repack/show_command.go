package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"repack/internal/config"
	"repack/internal/dataset"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var listEpisodes bool

	cmd := &cobra.Command{
		Use:   "show <dataset>",
		Short: "Summarize a dataset's metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve dataset path: %w", err)
			}
			state, err := dataset.Load(root)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			rows := [][]string{
				{"Episodes", strconv.Itoa(len(state.Episodes))},
				{"Statistics records", strconv.Itoa(len(state.Stats))},
				{"Mapping entries", strconv.Itoa(len(state.Mapping))},
				{"Blacklisted", strconv.Itoa(len(state.Blacklist))},
			}
			if state.Info != nil {
				rows = append(rows,
					[]string{"Total frames", strconv.Itoa(state.Info.TotalFrames)},
				)
				for _, name := range sortedSplitNames(state.Info.Splits) {
					rows = append(rows, []string{"Split " + name, state.Info.Splits[name]})
				}
			}
			fmt.Fprintln(out, renderTable(out, []string{"Field", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))

			if blacklisted := state.BlacklistSorted(); len(blacklisted) > 0 {
				fmt.Fprintf(out, "Blacklist: %s\n", joinInts(blacklisted))
			}

			if listEpisodes {
				episodeRows := make([][]string, 0, len(state.Episodes))
				layout := dataset.NewLayout(root)
				for _, episode := range state.Episodes {
					marker := ""
					if _, listed := state.Blacklist[episode.EpisodeIndex]; listed {
						marker = "blacklisted"
					}
					shard := "missing"
					if dataset.Exists(layout.ShardPath(episode.EpisodeIndex)) {
						shard = "present"
					}
					episodeRows = append(episodeRows, []string{
						strconv.Itoa(episode.EpisodeIndex),
						strconv.Itoa(episode.Length),
						shard,
						marker,
					})
				}
				fmt.Fprintln(out, renderTable(
					out,
					[]string{"Index", "Length", "Shard", "Flags"},
					episodeRows,
					[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft},
				))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&listEpisodes, "episodes", false, "List every episode with its on-disk status")
	return cmd
}

func sortedSplitNames(splits map[string]string) []string {
	names := make([]string, 0, len(splits))
	for name := range splits {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func joinInts(values []int) string {
	parts := make([]string, 0, len(values))
	for _, value := range values {
		parts = append(parts, strconv.Itoa(value))
	}
	return strings.Join(parts, ", ")
}
