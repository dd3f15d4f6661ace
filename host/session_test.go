package host

import "testing"

func TestNewPlaybackSinkSelectsBackend(t *testing.T) {
	if newPlaybackSink("sdl3") == nil {
		t.Fatal("sdl3 backend returned nil sink")
	}
	if newPlaybackSink("oto") == nil {
		t.Fatal("oto backend returned nil sink")
	}
	if newPlaybackSink("") == nil {
		t.Fatal("empty backend should fall back to oto, got nil sink")
	}
}

func TestConsoleIDFromLibraryName(t *testing.T) {
	cases := map[string]uint32{
		"Gambatte":        4,
		"gearboy":         4,
		"Genesis Plus GX": 1,
		"mGBA":            5,
		"unknown core":    0,
	}
	for name, want := range cases {
		if got := consoleIDFromLibraryName(name); got != want {
			t.Fatalf("consoleIDFromLibraryName(%q) = %d, want %d", name, got, want)
		}
	}
}

func TestAchievementRegionTableGBC(t *testing.T) {
	regions := achievementRegionTable(4)
	if len(regions) != 1 || regions[0].VirtLen != 0x10000 {
		t.Fatalf("got %+v", regions)
	}
}

func TestAchievementRegionTableUnknownConsoleIsEmpty(t *testing.T) {
	if regions := achievementRegionTable(0); regions != nil {
		t.Fatalf("expected nil table for unknown console, got %+v", regions)
	}
}

func TestShadeFromRGB(t *testing.T) {
	sh := shadeFromRGB(0x1A2B3C)
	if sh.R != 0x1A || sh.G != 0x2B || sh.B != 0x3C {
		t.Fatalf("got %+v", sh)
	}
}
