package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	json "github.com/goccy/go-json"

	"repack/internal/dataset"
)

// Episode describes one seeded episode fixture.
type Episode struct {
	Index  int
	Length int
	// NoShard suppresses the primary shard file, NoMedia the media
	// directory. Metadata entries are written either way.
	NoShard bool
	NoMedia bool
}

// SeedDataset writes a complete dataset fixture under root: shards, media
// directories, and every metadata table. Mapping entries point each episode
// index at a synthetic media identifier.
func SeedDataset(t testing.TB, root string, episodes []Episode, blacklist []int) {
	t.Helper()

	layout := dataset.NewLayout(root)
	for _, dir := range []string{layout.DataDir(), layout.VideosDir(), layout.MetaDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	state := &dataset.State{
		Blacklist: map[int]struct{}{},
		Mapping:   map[int]json.RawMessage{},
	}
	totalFrames := 0
	for _, ep := range episodes {
		if !ep.NoShard {
			shard := layout.ShardPath(ep.Index)
			if err := os.WriteFile(shard, []byte(fmt.Sprintf("parquet-%d", ep.Index)), 0o644); err != nil {
				t.Fatalf("write shard %s: %v", shard, err)
			}
		}
		if !ep.NoMedia {
			mediaDir := layout.MediaDir(ep.Index)
			if err := os.MkdirAll(mediaDir, 0o755); err != nil {
				t.Fatalf("mkdir media %s: %v", mediaDir, err)
			}
			media := filepath.Join(mediaDir, "cam_front.mp4")
			if err := os.WriteFile(media, []byte(fmt.Sprintf("video-%d", ep.Index)), 0o644); err != nil {
				t.Fatalf("write media %s: %v", media, err)
			}
		}

		state.Episodes = append(state.Episodes, dataset.EpisodeRecord{
			EpisodeIndex: ep.Index,
			Length:       ep.Length,
			Extra: map[string]json.RawMessage{
				"tasks": json.RawMessage(`["demo task"]`),
			},
		})
		state.Stats = append(state.Stats, dataset.StatRecord{
			EpisodeIndex: ep.Index,
			NumFrames:    ep.Length,
		})
		state.Mapping[ep.Index] = json.RawMessage(strconv.Quote(fmt.Sprintf("vid_%06d", ep.Index)))
		totalFrames += ep.Length
	}
	for _, index := range blacklist {
		state.Blacklist[index] = struct{}{}
	}
	state.Info = &dataset.Info{
		TotalEpisodes: len(episodes),
		TotalFrames:   totalFrames,
		Splits:        map[string]string{"train": fmt.Sprintf("0:%d", len(episodes))},
		Extra: map[string]json.RawMessage{
			"codebase_version": json.RawMessage(`"v2.0"`),
			"fps":              json.RawMessage(`30`),
		},
	}

	if err := dataset.Save(root, state); err != nil {
		t.Fatalf("seed dataset metadata: %v", err)
	}
}

// SeedDefaultDataset seeds five episodes of 10 frames each (indices 0-4)
// with the provided blacklist and returns the dataset root.
func SeedDefaultDataset(t testing.TB, blacklist []int) string {
	t.Helper()

	root := filepath.Join(t.TempDir(), "dataset")
	episodes := make([]Episode, 0, 5)
	for i := 0; i < 5; i++ {
		episodes = append(episodes, Episode{Index: i, Length: 10})
	}
	SeedDataset(t, root, episodes, blacklist)
	return root
}
