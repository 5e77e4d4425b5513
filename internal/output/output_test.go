package output

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"  my flags.json ": "my_flags.json",
		"../../etc/passwd": "....etcpasswd",
		"héllo wörld":      "hllo_wrld",
		"":                 "output",
		"$$$":              "output",
		"..":               "output",
	}
	for in, want := range cases {
		if got := SanitizeFilename(in); got != want {
			t.Fatalf("SanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizePrefix(t *testing.T) {
	cases := map[string]string{
		"ctf":          "ctf",
		"my prefix":    "my_prefix",
		"a/b\\c.d":     "abcd",
		"..":           "output",
		"ok_name-2":    "ok_name-2",
		"   ":          "output",
		"rm -rf *; ls": "rm_-rf__ls",
	}
	for in, want := range cases {
		if got := SanitizePrefix(in); got != want {
			t.Fatalf("SanitizePrefix(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestImageName(t *testing.T) {
	at := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	if got := ImageName("../evil", at, 2); got != "evil_20250304-050607_2.png" {
		t.Fatalf("unexpected image name: %s", got)
	}
}

func TestTextName(t *testing.T) {
	at := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	if got := TextName("ctf", "flags", at, ""); got != "ctf_flags_20250304-050607.json" {
		t.Fatalf("unexpected text name: %s", got)
	}
}

func TestWriteFileCreatesParents(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteFile(filepath.Join(dir, "a", "b", "out.txt"), []byte("hello"))
	if err != nil {
		t.Fatalf("write file: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("unexpected content: %q", data)
	}
	if !filepath.IsAbs(path) {
		t.Fatalf("expected absolute path, got %s", path)
	}
}

func TestWriteImages(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "imgs")
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	paths, err := WriteImages(dir, "team red", [][]byte{[]byte("one"), []byte("two")}, at)
	if err != nil {
		t.Fatalf("write images: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 paths, got %d", len(paths))
	}
	if !strings.HasSuffix(paths[1], "team_red_20250102-030405_2.png") {
		t.Fatalf("unexpected second path: %s", paths[1])
	}
	data, err := os.ReadFile(paths[0])
	if err != nil || string(data) != "one" {
		t.Fatalf("unexpected first image: %q %v", data, err)
	}
}
