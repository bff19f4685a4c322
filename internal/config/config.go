// Package config loads the router's own runtime parameters — the
// route.cfg-equivalent read by the "read_config" scripted command and by
// the start command's [-c cfg] flag — using the in-repo toml decoder
// extended with file-include resolution. Grounded on
// engine/fsm/file_loader.go's LoadConfigFromPath/loadAndResolve.
package config

import (
	"fmt"
	"os"
	"path"

	"github.com/lixenwraith/qrouter/internal/mask"
	"github.com/lixenwraith/qrouter/toml"
)

// Costs holds the per-move-kind weights the "cost" scripted command sets.
// Segment, Via, Block and Offset feed internal/search's step-cost model
// directly; Jog, Crossover and Conflict are accepted and round-tripped for
// command-surface compatibility but have no distinct cost path yet (the
// maze search doesn't separately distinguish a jog or crossover from a
// plain same-layer move, and a forced crossing is already priced by the
// frontier's conflict tier rather than a linear weight) and are reserved
// for a future search refinement.
type Costs struct {
	Segment   int
	Via       int
	Jog       int
	Crossover int
	Block     int
	Offset    int
	Conflict  int
}

// Config is the router's own runtime parameter set, distinct from the
// technology and placed-design files: verbosity, rip-up and effort limits,
// mask mode, via stack depth, cost weights, and the default power/ground
// net names. Struct tags match the toml key names a route.cfg-equivalent
// file would use.
type Config struct {
	Verbosity     int    `toml:"verbosity"`
	ForceRoutable bool   `toml:"force_routable"`
	Effort        int    `toml:"effort"`
	RipLimit      int    `toml:"rip_limit"`
	MaskMode      string `toml:"mask_mode"`
	ViaStack      int    `toml:"via_stack"`
	Resolution    int    `toml:"resolution"`
	VddName       string `toml:"vdd"`
	GndName       string `toml:"gnd"`
	Cost          Costs  `toml:"cost"`

	// Includes lists sibling config files this file pulled in, consumed
	// during loading and not otherwise part of the router's parameters.
	Includes []string `toml:"include"`
}

// Default returns the parameter set the router starts with absent any
// config file, matching qrouter.c's built-in defaults.
func Default() *Config {
	return &Config{
		Effort:   10,
		RipLimit: 10,
		MaskMode: "auto",
		ViaStack: 1,
		VddName:  "Vdd",
		GndName:  "GND",
		Cost: Costs{
			Segment: 1,
			Via:     10,
		},
	}
}

// Mode parses MaskMode's string form ("auto", "bbox", "none", or a decimal
// slack value) into a mask.Mode plus the slack it implies, mirroring the
// "mask auto|bbox|none|N" scripted-command argument. disabled reports
// "none": the caller should skip mask.Build entirely and search the whole
// grid unmasked.
func (c *Config) Mode() (m mask.Mode, slack byte, disabled bool, err error) {
	switch c.MaskMode {
	case "", "auto":
		return mask.ModeAuto, 0, false, nil
	case "bbox":
		return mask.ModeBbox, 0, false, nil
	case "none":
		return mask.ModeAuto, 0, true, nil
	default:
		var n int
		if _, serr := fmt.Sscanf(c.MaskMode, "%d", &n); serr != nil || n < 0 {
			return 0, 0, false, fmt.Errorf("config: invalid mask mode %q", c.MaskMode)
		}
		return mask.ModeTrunk, byte(n), false, nil
	}
}

// Load reads configPath and every config file it includes (recursively,
// relative to configPath's directory), merging them into one Config with
// the root file's keys taking precedence over an included file's. Circular
// includes are rejected. Grounded on file_loader.go's
// LoadConfigFromPath/loadAndResolve, generalized from its FSM-specific
// "regions" merge to a flat include list since the router's config has no
// analogous sub-table structure to merge field-by-field.
func Load(configPath string) (*Config, error) {
	dir := path.Dir(configPath)
	file := path.Base(configPath)

	visited := make(map[string]bool)
	merged, err := loadAndResolve(dir, file, visited)
	if err != nil {
		return nil, fmt.Errorf("config: failed to load %s: %w", configPath, err)
	}

	cfg := Default()
	if err := toml.Decode(merged, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to decode %s: %w", configPath, err)
	}
	return cfg, nil
}

// loadAndResolve parses one TOML file and folds in every file named by its
// top-level "include" array, included files first so the including file's
// own keys win on overlap.
func loadAndResolve(baseDir, filename string, visited map[string]bool) (map[string]any, error) {
	fullPath := path.Join(baseDir, filename)
	if visited[fullPath] {
		return nil, fmt.Errorf("circular include detected: %s", fullPath)
	}
	visited[fullPath] = true

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", fullPath, err)
	}

	parsed, err := toml.NewParser(data).Parse()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", fullPath, err)
	}

	includesRaw, hasIncludes := parsed["include"]
	if !hasIncludes {
		return parsed, nil
	}
	includes, ok := includesRaw.([]any)
	if !ok {
		return nil, fmt.Errorf("%s: include must be an array of file names", fullPath)
	}

	merged := make(map[string]any)
	for _, ref := range includes {
		name, ok := ref.(string)
		if !ok {
			return nil, fmt.Errorf("%s: include entries must be strings", fullPath)
		}
		included, err := loadAndResolve(baseDir, name, visited)
		if err != nil {
			return nil, err
		}
		for k, v := range included {
			merged[k] = v
		}
	}
	for k, v := range parsed {
		merged[k] = v
	}
	return merged, nil
}
