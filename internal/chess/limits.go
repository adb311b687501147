package chess

import (
	"github.com/park285/cheese-review/internal/chess/uci"
)

func optionsFromPreset(p AnalysisPreset) uci.Options {
	return uci.Options{
		Threads: p.Threads,
		HashMB:  p.HashMB,
	}
}

// limitsFor uses depth when positive and the preset depth otherwise.
func limitsFor(p AnalysisPreset, depth int) uci.Limits {
	if depth <= 0 {
		depth = p.Depth
	}
	return uci.Limits{Depth: depth}
}

// Fingerprint identifies the engine configuration for cache keys. Depth is
// keyed separately by the cache.
func Fingerprint(p AnalysisPreset) string {
	return "stockfish|" + optionsFromPreset(p).Key()
}
