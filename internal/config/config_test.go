package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lixenwraith/qrouter/internal/mask"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	if cfg.Effort != 10 {
		t.Errorf("Effort = %d, want 10", cfg.Effort)
	}
	if cfg.RipLimit != 10 {
		t.Errorf("RipLimit = %d, want 10", cfg.RipLimit)
	}
	if cfg.MaskMode != "auto" {
		t.Errorf("MaskMode = %q, want auto", cfg.MaskMode)
	}
	if cfg.VddName != "Vdd" || cfg.GndName != "GND" {
		t.Errorf("VddName/GndName = %q/%q, want Vdd/GND", cfg.VddName, cfg.GndName)
	}
	if cfg.Cost.Segment != 1 || cfg.Cost.Via != 10 {
		t.Errorf("Cost = %+v, want Segment=1 Via=10", cfg.Cost)
	}
}

func TestModeParsesEachForm(t *testing.T) {
	cases := []struct {
		in       string
		wantMode mask.Mode
		wantSlack byte
		wantOff  bool
	}{
		{"auto", mask.ModeAuto, 0, false},
		{"", mask.ModeAuto, 0, false},
		{"bbox", mask.ModeBbox, 0, false},
		{"none", mask.ModeAuto, 0, true},
		{"3", mask.ModeTrunk, 3, false},
	}
	for _, c := range cases {
		cfg := &Config{MaskMode: c.in}
		m, slack, disabled, err := cfg.Mode()
		if err != nil {
			t.Fatalf("Mode(%q) error = %v", c.in, err)
		}
		if m != c.wantMode || slack != c.wantSlack || disabled != c.wantOff {
			t.Errorf("Mode(%q) = (%v, %d, %v), want (%v, %d, %v)", c.in, m, slack, disabled, c.wantMode, c.wantSlack, c.wantOff)
		}
	}
}

func TestModeRejectsGarbage(t *testing.T) {
	cfg := &Config{MaskMode: "bogus"}
	if _, _, _, err := cfg.Mode(); err == nil {
		t.Error("Mode() with an unrecognized mode string should error")
	}
}

func TestLoadResolvesIncludes(t *testing.T) {
	dir := t.TempDir()
	base := `
include = ["costs.toml"]
effort = 20
vdd = "VDD"
`
	included := `
rip_limit = 25
gnd = "VSS"
`
	if err := os.WriteFile(filepath.Join(dir, "route.toml"), []byte(base), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "costs.toml"), []byte(included), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(filepath.Join(dir, "route.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Effort != 20 {
		t.Errorf("Effort = %d, want 20 (from root file)", cfg.Effort)
	}
	if cfg.RipLimit != 25 {
		t.Errorf("RipLimit = %d, want 25 (from included file)", cfg.RipLimit)
	}
	if cfg.VddName != "VDD" || cfg.GndName != "VSS" {
		t.Errorf("VddName/GndName = %q/%q, want VDD/VSS", cfg.VddName, cfg.GndName)
	}
}

func TestLoadDetectsCircularInclude(t *testing.T) {
	dir := t.TempDir()
	a := `include = ["b.toml"]`
	b := `include = ["a.toml"]`
	if err := os.WriteFile(filepath.Join(dir, "a.toml"), []byte(a), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.toml"), []byte(b), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(filepath.Join(dir, "a.toml")); err == nil {
		t.Error("Load() over a circular include chain should error")
	}
}
