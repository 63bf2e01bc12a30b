package dataset

import (
	"fmt"
	"sort"
	"strconv"

	json "github.com/goccy/go-json"
)

// EpisodeRecord is one entry of the episode list table. Fields other than
// the index and length are preserved verbatim so a rewrite never loses data
// recorded at ingestion time.
type EpisodeRecord struct {
	EpisodeIndex int
	Length       int
	Extra        map[string]json.RawMessage
}

// StatRecord is one entry of the per-episode statistics table.
type StatRecord struct {
	EpisodeIndex int
	NumFrames    int
	Extra        map[string]json.RawMessage
}

// Info is the dataset-level summary table.
type Info struct {
	TotalEpisodes int
	TotalFrames   int
	Splits        map[string]string
	Extra         map[string]json.RawMessage
}

// State is the in-memory aggregate of every metadata table plus the deletion
// blacklist. The compaction planner treats it as immutable input and builds a
// new State rather than mutating it.
type State struct {
	Blacklist map[int]struct{}
	Episodes  []EpisodeRecord
	Stats     []StatRecord
	Mapping   map[int]json.RawMessage
	Info      *Info
}

// BlacklistSorted returns the blacklisted indices in ascending order.
func (s *State) BlacklistSorted() []int {
	indices := make([]int, 0, len(s.Blacklist))
	for index := range s.Blacklist {
		indices = append(indices, index)
	}
	sort.Ints(indices)
	return indices
}

func (r EpisodeRecord) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(map[string]any{
		"episode_index": r.EpisodeIndex,
		"length":        r.Length,
	}, r.Extra)
}

func (r *EpisodeRecord) UnmarshalJSON(data []byte) error {
	fields, err := splitFields(data)
	if err != nil {
		return err
	}
	if r.EpisodeIndex, err = takeInt(fields, "episode_index"); err != nil {
		return err
	}
	if r.Length, err = takeInt(fields, "length"); err != nil {
		return err
	}
	r.Extra = fields
	return nil
}

func (r StatRecord) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(map[string]any{
		"episode_index": r.EpisodeIndex,
		"num_frames":    r.NumFrames,
	}, r.Extra)
}

func (r *StatRecord) UnmarshalJSON(data []byte) error {
	fields, err := splitFields(data)
	if err != nil {
		return err
	}
	if r.EpisodeIndex, err = takeInt(fields, "episode_index"); err != nil {
		return err
	}
	if r.NumFrames, err = takeInt(fields, "num_frames"); err != nil {
		return err
	}
	r.Extra = fields
	return nil
}

func (i Info) MarshalJSON() ([]byte, error) {
	known := map[string]any{
		"total_episodes": i.TotalEpisodes,
		"total_frames":   i.TotalFrames,
	}
	if i.Splits != nil {
		known["splits"] = i.Splits
	}
	return marshalWithExtra(known, i.Extra)
}

func (i *Info) UnmarshalJSON(data []byte) error {
	fields, err := splitFields(data)
	if err != nil {
		return err
	}
	if i.TotalEpisodes, err = takeInt(fields, "total_episodes"); err != nil {
		return err
	}
	if i.TotalFrames, err = takeInt(fields, "total_frames"); err != nil {
		return err
	}
	if raw, ok := fields["splits"]; ok {
		delete(fields, "splits")
		if err := json.Unmarshal(raw, &i.Splits); err != nil {
			return fmt.Errorf("decode splits: %w", err)
		}
	}
	i.Extra = fields
	return nil
}

// splitFields decodes a JSON object into its raw members.
func splitFields(data []byte) (map[string]json.RawMessage, error) {
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// takeInt removes key from fields and returns its integer value, tolerating
// an absent key as zero.
func takeInt(fields map[string]json.RawMessage, key string) (int, error) {
	raw, ok := fields[key]
	if !ok {
		return 0, nil
	}
	delete(fields, key)
	var value int
	if err := json.Unmarshal(raw, &value); err != nil {
		return 0, fmt.Errorf("decode %s: %w", key, err)
	}
	return value, nil
}

// marshalWithExtra emits the known fields followed by preserved unknown
// fields in sorted key order, so rewrites are byte-stable.
func marshalWithExtra(known map[string]any, extra map[string]json.RawMessage) ([]byte, error) {
	keys := make([]string, 0, len(known)+len(extra))
	for key := range known {
		keys = append(keys, key)
	}
	for key := range extra {
		if _, clash := known[key]; !clash {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	out := make([]byte, 0, 64)
	out = append(out, '{')
	for i, key := range keys {
		if i > 0 {
			out = append(out, ',')
		}
		out = strconv.AppendQuote(out, key)
		out = append(out, ':')
		if value, ok := known[key]; ok {
			encoded, err := json.Marshal(value)
			if err != nil {
				return nil, err
			}
			out = append(out, encoded...)
		} else {
			out = append(out, extra[key]...)
		}
	}
	out = append(out, '}')
	return out, nil
}
