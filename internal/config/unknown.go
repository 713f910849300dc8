package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/BurntSushi/toml"
)

// maxLevenshteinDistance is the maximum edit distance for "did you mean?"
// suggestions when unknown config keys are detected.
const maxLevenshteinDistance = 3

// knownKeys lists the valid keys of each config section.
var knownKeys = map[string][]string{
	"app":      {"client_id", "device_id", "redirect_uri", "user_agent"},
	"storage":  {"backend", "dsn", "path"},
	"logging":  {"log_format", "log_level", "request_logging"},
	"network":  {"requests_per_minute", "timeout"},
	"download": {"dir", "max_size", "parallel"},
}

// knownSections is the sorted list of section names, for deterministic
// suggestions when two candidates have the same edit distance.
var knownSections = func() []string {
	sections := make([]string, 0, len(knownKeys))
	for s := range knownKeys {
		sections = append(sections, s)
	}

	slices.Sort(sections)

	return sections
}()

// checkUnknownKeys inspects TOML metadata for undecoded keys and returns
// an error with "did you mean?" suggestions for each unknown key.
func checkUnknownKeys(md *toml.MetaData) error {
	var errs []error

	// An unknown table reports itself and each of its keys; report it once.
	seenSections := make(map[string]bool)

	for _, key := range md.Undecoded() {
		if _, known := knownKeys[key[0]]; !known {
			if seenSections[key[0]] {
				continue
			}

			seenSections[key[0]] = true
		}

		errs = append(errs, buildKeyError(key))
	}

	return errors.Join(errs...)
}

// buildKeyError describes one unknown key, suggesting the closest known
// section or key in the same section.
func buildKeyError(key toml.Key) error {
	section := key[0]

	keys, ok := knownKeys[section]
	if !ok {
		if suggestion := closestMatch(section, knownSections); suggestion != "" {
			return fmt.Errorf("unknown config section %q, did you mean %q?", section, suggestion)
		}

		return fmt.Errorf("unknown config key %q", key.String())
	}

	if len(key) < 2 { //nolint:mnd // section plus field
		return fmt.Errorf("unknown config key %q", key.String())
	}

	if suggestion := closestMatch(key[1], keys); suggestion != "" {
		return fmt.Errorf("unknown config key %q, did you mean %q?", key.String(), section+"."+suggestion)
	}

	return fmt.Errorf("unknown config key %q", key.String())
}

// closestMatch finds the closest known key by Levenshtein distance.
// Returns empty string if no match is within maxLevenshteinDistance.
func closestMatch(unknown string, known []string) string {
	best := ""
	bestDist := maxLevenshteinDistance + 1

	for _, k := range known {
		d := levenshtein(unknown, k)
		if d < bestDist {
			bestDist = d
			best = k
		}
	}

	if bestDist <= maxLevenshteinDistance {
		return best
	}

	return ""
}

// levenshtein computes the edit distance between two strings.
func levenshtein(a, b string) int {
	if a == "" {
		return len(b)
	}

	if b == "" {
		return len(a)
	}

	// Single-row optimization avoids allocating a full matrix.
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := range len(a) {
		curr[0] = i + 1

		for j := range len(b) {
			cost := 1
			if a[i] == b[j] {
				cost = 0
			}

			curr[j+1] = min(curr[j]+1, prev[j+1]+1, prev[j]+cost)
		}

		prev, curr = curr, prev
	}

	return prev[len(b)]
}
