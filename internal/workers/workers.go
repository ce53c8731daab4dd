package workers

import (
	"runtime"
)

// DefaultConversionLimit caps the automatic conversion slot count. ffmpeg
// spreads a single job over several threads, so more slots than this mostly
// adds memory pressure.
const DefaultConversionLimit = 8

// Count returns a worker count derived from GOMAXPROCS, which follows
// container CPU limits (Go 1.19+).
//
// The multiplier adjusts for task characteristics: 1.0 for CPU-bound work,
// less than 1.0 for tasks that are themselves multi-threaded. The limit caps
// the result; use 0 for no limit. The result is never below 1.
func Count(multiplier float64, limit int) int {
	available := runtime.GOMAXPROCS(0)

	workers := int(float64(available) * multiplier)

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}

// ForCPU returns one worker per available CPU, capped at limit.
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// ForConversions returns the number of concurrent ffmpeg processes to allow.
// A positive requested value (MAX_CONCURRENT_CONVERSIONS) is used as is;
// otherwise half the available CPUs are used, capped at
// DefaultConversionLimit.
func ForConversions(requested int) int {
	if requested > 0 {
		return requested
	}
	return Count(0.5, DefaultConversionLimit)
}
