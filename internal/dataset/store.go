package dataset

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// Load reads every metadata table from the dataset root into a State.
//
// The episode list, statistics, and info tables are required; the episode
// mapping and the blacklist are tolerated as absent and loaded as empty.
func Load(root string) (*State, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, root)
		}
		return nil, fmt.Errorf("stat dataset: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrNotFound, root)
	}

	layout := NewLayout(root)
	state := &State{
		Blacklist: map[int]struct{}{},
		Mapping:   map[int]json.RawMessage{},
	}

	if state.Episodes, err = readRecordLines[EpisodeRecord](layout.EpisodesPath()); err != nil {
		return nil, err
	}
	if state.Stats, err = readRecordLines[StatRecord](layout.StatsPath()); err != nil {
		return nil, err
	}
	if state.Info, err = readInfo(layout.InfoPath()); err != nil {
		return nil, err
	}
	if state.Mapping, err = readMapping(layout.MappingPath()); err != nil {
		return nil, err
	}
	if state.Blacklist, err = readBlacklist(layout.BlacklistPath()); err != nil {
		return nil, err
	}
	return state, nil
}

// Save overwrites the on-disk metadata tables with state, including the
// blacklist. Each table is written through a temp file rename so readers
// never observe a half-written table.
func Save(root string, state *State) error {
	layout := NewLayout(root)
	if err := os.MkdirAll(layout.MetaDir(), 0o755); err != nil {
		return fmt.Errorf("ensure meta directory: %w", err)
	}

	if err := writeRecordLines(layout.EpisodesPath(), state.Episodes); err != nil {
		return fmt.Errorf("write episodes: %w", err)
	}
	if err := writeRecordLines(layout.StatsPath(), state.Stats); err != nil {
		return fmt.Errorf("write stats: %w", err)
	}
	if err := writeMapping(layout.MappingPath(), state.Mapping); err != nil {
		return fmt.Errorf("write mapping: %w", err)
	}
	if state.Info != nil {
		data, err := json.Marshal(state.Info)
		if err != nil {
			return fmt.Errorf("encode info: %w", err)
		}
		if err := writeFileAtomic(layout.InfoPath(), append(data, '\n')); err != nil {
			return fmt.Errorf("write info: %w", err)
		}
	}
	if err := writeBlacklist(layout.BlacklistPath(), state.Blacklist); err != nil {
		return fmt.Errorf("write blacklist: %w", err)
	}
	return nil
}

func readRecordLines[T any](path string) ([]T, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMetadataMissing, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	var records []T
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var record T
		if err := json.Unmarshal([]byte(text), &record); err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %v", ErrMetadataMissing, path, line, err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return records, nil
}

func writeRecordLines[T any](path string, records []T) error {
	var buf bytes.Buffer
	for _, record := range records {
		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	return writeFileAtomic(path, buf.Bytes())
}

func readInfo(path string) (*Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMetadataMissing, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMetadataMissing, path, err)
	}
	return &info, nil
}

// readMapping loads the episode mapping, normalizing its stringified keys to
// integer indices at the boundary.
func readMapping(path string) (map[int]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[int]json.RawMessage{}, nil
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMetadataMissing, path, err)
	}
	mapping := make(map[int]json.RawMessage, len(raw))
	for key, value := range raw {
		index, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: non-integer episode key %q", ErrMetadataMissing, path, key)
		}
		mapping[index] = value
	}
	return mapping, nil
}

func writeMapping(path string, mapping map[int]json.RawMessage) error {
	indices := make([]int, 0, len(mapping))
	for index := range mapping {
		indices = append(indices, index)
	}
	sort.Ints(indices)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, index := range indices {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(strconv.Itoa(index)))
		buf.WriteByte(':')
		buf.Write(mapping[index])
	}
	buf.WriteString("}\n")
	return writeFileAtomic(path, buf.Bytes())
}

func readBlacklist(path string) (map[int]struct{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[int]struct{}{}, nil
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return map[int]struct{}{}, nil
	}
	var indices []int
	if err := json.Unmarshal(data, &indices); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMetadataMissing, path, err)
	}
	blacklist := make(map[int]struct{}, len(indices))
	for _, index := range indices {
		blacklist[index] = struct{}{}
	}
	return blacklist, nil
}

func writeBlacklist(path string, blacklist map[int]struct{}) error {
	indices := make([]int, 0, len(blacklist))
	for index := range blacklist {
		indices = append(indices, index)
	}
	sort.Ints(indices)
	data, err := json.Marshal(indices)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, append(data, '\n'))
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
