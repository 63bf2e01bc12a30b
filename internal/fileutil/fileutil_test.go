package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCopyFileVerified(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")

	if err := os.WriteFile(src, []byte("shard data"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := CopyFileVerified(src, dst, 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "shard data" {
		t.Fatalf("content mismatch: got %q", got)
	}
}

func TestCopyTree(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")

	if err := os.MkdirAll(filepath.Join(src, "data"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(src, "videos", "episode_000000"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "data", "episode_000000.parquet"), []byte("p0"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "videos", "episode_000000", "cam.mp4"), []byte("v0"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := CopyTree(src, dst); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(filepath.Join(dst, "data", "episode_000000.parquet"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "p0" {
		t.Fatalf("shard content mismatch: got %q", got)
	}
	if _, err := os.Stat(filepath.Join(dst, "videos", "episode_000000", "cam.mp4")); err != nil {
		t.Fatalf("media file missing in copy: %v", err)
	}
}

func TestCopyTreeRefusesExistingDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	for _, d := range []string{src, dst} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := CopyTree(src, dst); err == nil {
		t.Fatal("expected error for pre-existing destination")
	}
}
