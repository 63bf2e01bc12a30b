package compact

import (
	"fmt"
	"sort"

	json "github.com/goccy/go-json"

	"repack/internal/dataset"
)

// Plan captures everything a compaction run will do, derived purely from
// metadata. Computing a plan twice from the same state yields the same plan.
type Plan struct {
	// Survivors holds the surviving episode records sorted ascending by
	// their original index.
	Survivors []dataset.EpisodeRecord
	// OldToNew maps each survivor's original index to its dense new index.
	OldToNew map[int]int
	// Removed is the set of episode indices slated for deletion.
	Removed map[int]struct{}
}

// NewPlan derives a compaction plan from the loaded metadata state. The
// survivor order is independent of load order: records are always sorted by
// original index, so survivors keep their relative order compacted onto
// [0, len(survivors)).
func NewPlan(state *dataset.State) *Plan {
	plan := &Plan{
		OldToNew: map[int]int{},
		Removed:  make(map[int]struct{}, len(state.Blacklist)),
	}
	for index := range state.Blacklist {
		plan.Removed[index] = struct{}{}
	}

	for _, episode := range state.Episodes {
		if _, removed := plan.Removed[episode.EpisodeIndex]; removed {
			continue
		}
		plan.Survivors = append(plan.Survivors, episode)
	}
	sort.Slice(plan.Survivors, func(i, j int) bool {
		return plan.Survivors[i].EpisodeIndex < plan.Survivors[j].EpisodeIndex
	})

	// An empty blacklist yields the identity plan: no deletions and no
	// renumbering, even when the existing index space has gaps.
	if len(plan.Removed) == 0 {
		for _, episode := range plan.Survivors {
			plan.OldToNew[episode.EpisodeIndex] = episode.EpisodeIndex
		}
		return plan
	}

	for position, episode := range plan.Survivors {
		plan.OldToNew[episode.EpisodeIndex] = position
	}
	return plan
}

// Identity reports whether the plan changes nothing: no removals and no
// renumbering.
func (p *Plan) Identity() bool {
	if len(p.Removed) > 0 {
		return false
	}
	for old, next := range p.OldToNew {
		if old != next {
			return false
		}
	}
	return true
}

// RemovedSorted returns the removed indices in ascending order.
func (p *Plan) RemovedSorted() []int {
	indices := make([]int, 0, len(p.Removed))
	for index := range p.Removed {
		indices = append(indices, index)
	}
	sort.Ints(indices)
	return indices
}

// Rename is one artifact renumbering step.
type Rename struct {
	Old int
	New int
}

// Renames returns the survivor renumberings whose index actually changes,
// ascending by original index. Renumbering only ever moves an index downward,
// so applying renames in this order never collides once deletions have been
// applied.
func (p *Plan) Renames() []Rename {
	var renames []Rename
	for _, episode := range p.Survivors {
		next := p.OldToNew[episode.EpisodeIndex]
		if next != episode.EpisodeIndex {
			renames = append(renames, Rename{Old: episode.EpisodeIndex, New: next})
		}
	}
	return renames
}

// Project builds the post-compaction metadata state: survivors renumbered,
// statistics and mapping entries carried through OldToNew, totals recomputed,
// and the blacklist emptied. Entries referring to neither a survivor nor a
// removed episode are stale and dropped. The input state is not modified.
func (p *Plan) Project(state *dataset.State) *dataset.State {
	next := &dataset.State{
		Blacklist: map[int]struct{}{},
		Mapping:   map[int]json.RawMessage{},
	}

	totalFrames := 0
	next.Episodes = make([]dataset.EpisodeRecord, 0, len(p.Survivors))
	for _, episode := range p.Survivors {
		renumbered := episode
		renumbered.EpisodeIndex = p.OldToNew[episode.EpisodeIndex]
		next.Episodes = append(next.Episodes, renumbered)
		totalFrames += episode.Length
	}

	for _, stat := range state.Stats {
		newIndex, survives := p.OldToNew[stat.EpisodeIndex]
		if !survives {
			continue
		}
		renumbered := stat
		renumbered.EpisodeIndex = newIndex
		next.Stats = append(next.Stats, renumbered)
	}
	sort.Slice(next.Stats, func(i, j int) bool {
		return next.Stats[i].EpisodeIndex < next.Stats[j].EpisodeIndex
	})

	for index, descriptor := range state.Mapping {
		newIndex, survives := p.OldToNew[index]
		if !survives {
			continue
		}
		next.Mapping[newIndex] = descriptor
	}

	if state.Info != nil {
		info := *state.Info
		info.TotalEpisodes = len(p.Survivors)
		info.TotalFrames = totalFrames
		if info.Splits != nil {
			info.Splits = make(map[string]string, len(state.Info.Splits))
			for name, bound := range state.Info.Splits {
				info.Splits[name] = bound
			}
		}
		// The train bound is only rewritten for a non-empty dataset; an
		// empty dataset has no meaningful split range and callers must
		// treat the stale value as undefined.
		if info.TotalEpisodes > 0 {
			if info.Splits == nil {
				info.Splits = map[string]string{}
			}
			info.Splits["train"] = fmt.Sprintf("0:%d", info.TotalEpisodes)
		}
		next.Info = &info
	}
	return next
}
