package dataset

import (
	"fmt"
	"os"
	"path/filepath"
)

// Fixed directory names inside a dataset root.
const (
	DataDirName   = "data"
	VideosDirName = "videos"
	MetaDirName   = "meta"
)

// Metadata table file names under MetaDirName.
const (
	episodesFile  = "episodes.jsonl"
	statsFile     = "episodes_stats.jsonl"
	mappingFile   = "episode_mapping.json"
	infoFile      = "info.json"
	blacklistFile = "blacklist.json"
)

// ShardExtension is the file extension of primary episode shards.
const ShardExtension = ".parquet"

// Layout derives canonical artifact paths for a dataset root. It carries no
// mutable state.
type Layout struct {
	root string
}

// NewLayout returns a Layout rooted at the given dataset directory.
func NewLayout(root string) Layout {
	return Layout{root: root}
}

// Root returns the dataset root directory.
func (l Layout) Root() string { return l.root }

// DataDir returns the directory holding primary episode shards.
func (l Layout) DataDir() string { return filepath.Join(l.root, DataDirName) }

// VideosDir returns the directory holding per-episode media directories.
func (l Layout) VideosDir() string { return filepath.Join(l.root, VideosDirName) }

// MetaDir returns the directory holding the metadata tables.
func (l Layout) MetaDir() string { return filepath.Join(l.root, MetaDirName) }

// EpisodeName returns the canonical zero-padded stem for an episode index,
// e.g. "episode_000042".
func EpisodeName(index int) string {
	return fmt.Sprintf("episode_%06d", index)
}

// ShardPath returns the primary data shard path for an episode index.
func (l Layout) ShardPath(index int) string {
	return filepath.Join(l.DataDir(), EpisodeName(index)+ShardExtension)
}

// MediaDir returns the media directory path for an episode index.
func (l Layout) MediaDir(index int) string {
	return filepath.Join(l.VideosDir(), EpisodeName(index))
}

// EpisodesPath returns the episode list table path.
func (l Layout) EpisodesPath() string { return filepath.Join(l.MetaDir(), episodesFile) }

// StatsPath returns the per-episode statistics table path.
func (l Layout) StatsPath() string { return filepath.Join(l.MetaDir(), statsFile) }

// MappingPath returns the episode mapping table path.
func (l Layout) MappingPath() string { return filepath.Join(l.MetaDir(), mappingFile) }

// InfoPath returns the dataset info summary path.
func (l Layout) InfoPath() string { return filepath.Join(l.MetaDir(), infoFile) }

// BlacklistPath returns the deletion blacklist path.
func (l Layout) BlacklistPath() string { return filepath.Join(l.MetaDir(), blacklistFile) }

// Exists reports whether a path is present on disk.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
