package preflight

import (
	"sonaris/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// minFreeBytes is the free-space floor for the output directory. Decoded
// frames are small but a long recording multiplied across a batch is not.
const minFreeBytes = 256 << 20

// RunAll executes all preflight checks for a conversion run over the given
// input files.
func RunAll(cfg *config.Config, inputs []string) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckFreeSpace("Output free space", cfg.Paths.OutputDir, minFreeBytes),
	}
	for _, input := range inputs {
		results = append(results, CheckInputReadable(input))
	}
	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}
