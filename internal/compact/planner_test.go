package compact_test

import (
	"reflect"
	"testing"

	json "github.com/goccy/go-json"

	"repack/internal/compact"
	"repack/internal/dataset"
)

func stateWithEpisodes(indices []int, blacklist []int) *dataset.State {
	state := &dataset.State{
		Blacklist: map[int]struct{}{},
		Mapping:   map[int]json.RawMessage{},
	}
	total := 0
	for _, index := range indices {
		state.Episodes = append(state.Episodes, dataset.EpisodeRecord{EpisodeIndex: index, Length: 10})
		state.Stats = append(state.Stats, dataset.StatRecord{EpisodeIndex: index, NumFrames: 10})
		state.Mapping[index] = json.RawMessage(`"vid"`)
		total += 10
	}
	for _, index := range blacklist {
		state.Blacklist[index] = struct{}{}
	}
	state.Info = &dataset.Info{
		TotalEpisodes: len(indices),
		TotalFrames:   total,
		Splits:        map[string]string{"train": "0:5"},
	}
	return state
}

func TestPlanScenario(t *testing.T) {
	// Episodes [0..4], blacklist {1,3} -> survivors [0,2,4] renumbered
	// {0:0, 2:1, 4:2}.
	state := stateWithEpisodes([]int{0, 1, 2, 3, 4}, []int{1, 3})
	plan := compact.NewPlan(state)

	if got := plan.RemovedSorted(); !reflect.DeepEqual(got, []int{1, 3}) {
		t.Fatalf("removed = %v", got)
	}
	want := map[int]int{0: 0, 2: 1, 4: 2}
	if !reflect.DeepEqual(plan.OldToNew, want) {
		t.Fatalf("oldToNew = %v, want %v", plan.OldToNew, want)
	}
	renames := plan.Renames()
	if len(renames) != 2 || renames[0] != (compact.Rename{Old: 2, New: 1}) || renames[1] != (compact.Rename{Old: 4, New: 2}) {
		t.Fatalf("renames = %v", renames)
	}
}

func TestPlanIsLoadOrderIndependent(t *testing.T) {
	shuffled := stateWithEpisodes([]int{4, 0, 3, 1, 2}, []int{1, 3})
	ordered := stateWithEpisodes([]int{0, 1, 2, 3, 4}, []int{1, 3})

	planA := compact.NewPlan(shuffled)
	planB := compact.NewPlan(ordered)
	if !reflect.DeepEqual(planA.OldToNew, planB.OldToNew) {
		t.Fatalf("load order changed the plan: %v vs %v", planA.OldToNew, planB.OldToNew)
	}
}

func TestPlanIdempotent(t *testing.T) {
	state := stateWithEpisodes([]int{0, 1, 2, 3, 4}, []int{0, 4})
	first := compact.NewPlan(state)
	second := compact.NewPlan(state)
	if !reflect.DeepEqual(first.OldToNew, second.OldToNew) {
		t.Fatalf("planning is not idempotent: %v vs %v", first.OldToNew, second.OldToNew)
	}
}

func TestPlanOrderPreservation(t *testing.T) {
	state := stateWithEpisodes([]int{0, 1, 2, 3, 4, 5, 6}, []int{0, 2, 5})
	plan := compact.NewPlan(state)

	previous := -1
	for _, episode := range plan.Survivors {
		next := plan.OldToNew[episode.EpisodeIndex]
		if next != previous+1 {
			t.Fatalf("new indices not dense: %v", plan.OldToNew)
		}
		previous = next
	}
}

func TestPlanEmptyBlacklistIsIdentityEvenWithGaps(t *testing.T) {
	state := stateWithEpisodes([]int{0, 2, 5}, nil)
	plan := compact.NewPlan(state)

	if !plan.Identity() {
		t.Fatalf("expected identity plan, got %v", plan.OldToNew)
	}
	if len(plan.Renames()) != 0 {
		t.Fatalf("identity plan should not rename: %v", plan.Renames())
	}
}

func TestProjectRenumbersAllTables(t *testing.T) {
	state := stateWithEpisodes([]int{0, 1, 2, 3, 4}, []int{1, 3})
	plan := compact.NewPlan(state)
	next := plan.Project(state)

	// Density: surviving indices are exactly {0, 1, 2}.
	for position, episode := range next.Episodes {
		if episode.EpisodeIndex != position {
			t.Fatalf("episodes not dense at %d: %+v", position, next.Episodes)
		}
	}
	if len(next.Episodes) != 3 || len(next.Stats) != 3 {
		t.Fatalf("unexpected table sizes: %d episodes, %d stats", len(next.Episodes), len(next.Stats))
	}

	// Mapping integrity: every key corresponds to a surviving new index.
	for index := range next.Mapping {
		if index < 0 || index >= len(next.Episodes) {
			t.Fatalf("mapping key %d outside surviving range", index)
		}
	}
	if len(next.Mapping) != 3 {
		t.Fatalf("unexpected mapping size: %d", len(next.Mapping))
	}

	// Conservation: totals recomputed over survivors only.
	if next.Info.TotalEpisodes != 3 || next.Info.TotalFrames != 30 {
		t.Fatalf("totals not recomputed: %+v", next.Info)
	}
	if next.Info.Splits["train"] != "0:3" {
		t.Fatalf("train split not updated: %q", next.Info.Splits["train"])
	}

	// Blacklist cleared.
	if len(next.Blacklist) != 0 {
		t.Fatalf("blacklist not cleared: %v", next.Blacklist)
	}

	// Input state untouched.
	if len(state.Episodes) != 5 || state.Info.TotalEpisodes != 5 {
		t.Fatal("Project mutated its input state")
	}
}

func TestProjectDropsStaleEntries(t *testing.T) {
	state := stateWithEpisodes([]int{0, 1, 2}, []int{1})
	// Orphaned entries referencing an episode that no longer exists.
	state.Stats = append(state.Stats, dataset.StatRecord{EpisodeIndex: 99, NumFrames: 5})
	state.Mapping[99] = json.RawMessage(`"stale"`)

	next := compact.NewPlan(state).Project(state)
	for _, stat := range next.Stats {
		if stat.EpisodeIndex > 1 {
			t.Fatalf("stale stat survived: %+v", next.Stats)
		}
	}
	if len(next.Mapping) != 2 {
		t.Fatalf("stale mapping entry survived: %v", next.Mapping)
	}
}

func TestProjectLeavesSplitBoundWhenEmpty(t *testing.T) {
	state := stateWithEpisodes([]int{0, 1}, []int{0, 1})
	plan := compact.NewPlan(state)
	next := plan.Project(state)

	if next.Info.TotalEpisodes != 0 {
		t.Fatalf("expected empty dataset, got %d episodes", next.Info.TotalEpisodes)
	}
	// The stale bound is deliberately left in place; callers treat it as
	// undefined for an empty dataset.
	if next.Info.Splits["train"] != "0:5" {
		t.Fatalf("split bound rewritten for empty dataset: %q", next.Info.Splits["train"])
	}
}

func TestProjectBlacklistOfMissingEpisodeStillPurged(t *testing.T) {
	state := stateWithEpisodes([]int{0, 1, 2}, []int{7})
	next := compact.NewPlan(state).Project(state)

	if len(next.Blacklist) != 0 {
		t.Fatalf("blacklist not cleared: %v", next.Blacklist)
	}
	if len(next.Episodes) != 3 {
		t.Fatalf("existing episodes should all survive: %d", len(next.Episodes))
	}
}
