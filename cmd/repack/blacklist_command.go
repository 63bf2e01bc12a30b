package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"repack/internal/config"
	"repack/internal/dataset"
)

func newBlacklistCommand(ctx *commandContext) *cobra.Command {
	blacklistCmd := &cobra.Command{
		Use:   "blacklist",
		Short: "Manage a dataset's deletion blacklist",
	}

	blacklistCmd.AddCommand(newBlacklistListCommand())
	blacklistCmd.AddCommand(newBlacklistAddCommand())
	blacklistCmd.AddCommand(newBlacklistRemoveCommand())
	blacklistCmd.AddCommand(newBlacklistClearCommand())

	return blacklistCmd
}

func newBlacklistListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list <dataset>",
		Short: "Print the blacklisted episode indices",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, _, err := loadDatasetArg(args[0])
			if err != nil {
				return err
			}
			indices := state.BlacklistSorted()
			if len(indices) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Blacklist is empty.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), joinInts(indices))
			return nil
		},
	}
}

func newBlacklistAddCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add <dataset> <index>...",
		Short: "Add episode indices to the blacklist",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, root, err := loadDatasetArg(args[0])
			if err != nil {
				return err
			}
			indices, err := parseIndices(args[1:])
			if err != nil {
				return err
			}

			known := make(map[int]struct{}, len(state.Episodes))
			for _, episode := range state.Episodes {
				known[episode.EpisodeIndex] = struct{}{}
			}
			added := 0
			for _, index := range indices {
				if _, exists := known[index]; !exists {
					return fmt.Errorf("episode %d does not exist in the dataset", index)
				}
				if _, listed := state.Blacklist[index]; !listed {
					state.Blacklist[index] = struct{}{}
					added++
				}
			}
			if err := dataset.Save(root, state); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %d episodes; blacklist now holds %d.\n", added, len(state.Blacklist))
			return nil
		},
	}
}

func newBlacklistRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <dataset> <index>...",
		Short: "Remove episode indices from the blacklist",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, root, err := loadDatasetArg(args[0])
			if err != nil {
				return err
			}
			indices, err := parseIndices(args[1:])
			if err != nil {
				return err
			}
			removed := 0
			for _, index := range indices {
				if _, listed := state.Blacklist[index]; listed {
					delete(state.Blacklist, index)
					removed++
				}
			}
			if err := dataset.Save(root, state); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d episodes; blacklist now holds %d.\n", removed, len(state.Blacklist))
			return nil
		},
	}
}

func newBlacklistClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <dataset>",
		Short: "Empty the blacklist without deleting anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, root, err := loadDatasetArg(args[0])
			if err != nil {
				return err
			}
			cleared := len(state.Blacklist)
			state.Blacklist = map[int]struct{}{}
			if err := dataset.Save(root, state); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d blacklisted episodes.\n", cleared)
			return nil
		},
	}
}

func loadDatasetArg(arg string) (*dataset.State, string, error) {
	root, err := config.ExpandPath(arg)
	if err != nil {
		return nil, "", fmt.Errorf("resolve dataset path: %w", err)
	}
	state, err := dataset.Load(root)
	if err != nil {
		return nil, "", err
	}
	return state, root, nil
}

func parseIndices(args []string) ([]int, error) {
	indices := make([]int, 0, len(args))
	for _, arg := range args {
		index, err := strconv.Atoi(arg)
		if err != nil || index < 0 {
			return nil, fmt.Errorf("invalid episode index %q", arg)
		}
		indices = append(indices, index)
	}
	return indices, nil
}
