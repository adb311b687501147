package chess

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// AnalysisPreset bundles the engine configuration and search depth used
// for a review run. Searches are bounded by depth alone.
type AnalysisPreset struct {
	Name    string
	Threads int
	HashMB  int
	Depth   int
}

var defaultThreads = func() int {
	if runtime.NumCPU() >= 4 {
		return 2
	}
	return 1
}()

var DefaultPresets = map[string]AnalysisPreset{
	"quick": {
		Name:    "quick",
		Threads: 1,
		HashMB:  16,
		Depth:   8,
	},
	"standard": {
		Name:    "standard",
		Threads: defaultThreads,
		HashMB:  64,
		Depth:   12,
	},
	"deep": {
		Name:    "deep",
		Threads: defaultThreads,
		HashMB:  128,
		Depth:   18,
	},
}

func GetPreset(name string) (AnalysisPreset, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "", "default":
		name = "standard"
	case "fast":
		name = "quick"
	}
	if p, ok := DefaultPresets[name]; ok {
		return p, nil
	}
	return AnalysisPreset{}, fmt.Errorf("unknown analysis preset: %s", name)
}

func PresetNames() []string {
	names := make([]string, 0, len(DefaultPresets))
	for name := range DefaultPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func ValidatePreset(p AnalysisPreset) error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return fmt.Errorf("preset name required")
	case p.Threads <= 0:
		return fmt.Errorf("threads must be > 0: %d", p.Threads)
	case p.HashMB <= 0:
		return fmt.Errorf("hash size must be > 0: %d", p.HashMB)
	case p.Depth <= 0:
		return fmt.Errorf("preset %s: depth must be > 0: %d", p.Name, p.Depth)
	}
	return nil
}
