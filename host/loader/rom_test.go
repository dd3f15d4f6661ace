package loader

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

var testExtensions = []string{"gb", "gbc"}

func TestLoadROMRawFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "game.gb")
	want := []byte{0x01, 0x02, 0x03, 0x04}
	if err := os.WriteFile(path, want, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	data, name, err := LoadROM(path, testExtensions)
	if err != nil {
		t.Fatalf("LoadROM: %v", err)
	}
	if name != "game.gb" || !bytes.Equal(data, want) {
		t.Fatalf("got (%q, %v)", name, data)
	}
}

func TestLoadROMFromZIP(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "game.zip")

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	zw := zip.NewWriter(f)
	w, err := zw.Create("readme.txt")
	if err != nil {
		t.Fatalf("zip entry: %v", err)
	}
	w.Write([]byte("not a rom"))
	w, err = zw.Create("Pokemon.gbc")
	if err != nil {
		t.Fatalf("zip entry: %v", err)
	}
	want := []byte{0xAA, 0xBB, 0xCC}
	w.Write(want)
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	f.Close()

	data, name, err := LoadROM(path, testExtensions)
	if err != nil {
		t.Fatalf("LoadROM: %v", err)
	}
	if name != "Pokemon.gbc" || !bytes.Equal(data, want) {
		t.Fatalf("got (%q, %v)", name, data)
	}
}

func TestLoadROMZIPNoMatchingEntry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "game.zip")

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	zw := zip.NewWriter(f)
	w, _ := zw.Create("readme.txt")
	w.Write([]byte("nothing here"))
	zw.Close()
	f.Close()

	_, _, err = LoadROM(path, testExtensions)
	if err != ErrNoROMFile {
		t.Fatalf("got err=%v, want ErrNoROMFile", err)
	}
}

func TestLoadROMUnknownFormatFallsBackToRaw(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "game.xyz")
	if err := os.WriteFile(path, []byte("plain bytes, no magic, odd ext"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	// No magic bytes and an unrecognized extension falls back to raw,
	// since a deliberately-chosen file is trusted regardless of extension.
	data, _, err := LoadROM(path, testExtensions)
	if err != nil {
		t.Fatalf("LoadROM: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected raw passthrough data")
	}
}

func TestIsROMFileEmptyExtensionsMatchesAnything(t *testing.T) {
	if !isROMFile("whatever.bin", nil) {
		t.Fatalf("empty extensions list should match anything")
	}
}

func TestIsROMFileCaseInsensitive(t *testing.T) {
	if !isROMFile("Game.GB", []string{"gb"}) {
		t.Fatalf("extension match should be case-insensitive")
	}
}
