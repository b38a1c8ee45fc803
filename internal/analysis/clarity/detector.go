package clarity

import (
	"sort"
	"strings"
)

// Check identifies a clarity criterion a message can fail.
type Check string

const (
	// Figurative: idioms, similes, and metaphors that can be read literally.
	Figurative Check = "figurative"
	// Vague: hedged or evasive phrasing where a specific answer is expected.
	Vague Check = "vague"
)

// Finding is one detected clarity problem with the phrase that triggered it.
type Finding struct {
	Check  Check
	Phrase string
}

var phraseBuckets = map[Check][]string{
	Figurative: {
		"break a leg", "piece of cake", "million bucks", "raining cats and dogs",
		"under the weather", "hit the sack", "spill the beans", "cold feet",
		"on cloud nine", "bite the bullet", "ball is in your court", "hang in there",
		"over the moon", "once in a blue moon", "cost an arm and a leg",
		"killing it", "swamped", "drowning in", "on fire", "like a",
		"heart of gold", "back to the drawing board", "wrap my head around",
	},
	Vague: {
		"maybe", "sort of", "kind of", "i guess", "we'll see", "probably",
		"something like that", "a thing or two", "it depends", "not sure",
		"whenever", "whatever works", "more or less", "ish", "at some point",
		"one of these days", "stuff like that", "you know",
	},
}

// Detect scans a message for phrases that fail the given checks. Findings are
// reported in a stable order; at most one finding per check is returned, the
// earliest matching phrase winning, so one message produces one coachable
// moment per criterion.
func Detect(message string, checks ...Check) []Finding {
	normalized := strings.ToLower(strings.TrimSpace(message))
	if normalized == "" {
		return nil
	}
	if len(checks) == 0 {
		checks = []Check{Figurative, Vague}
	}

	var findings []Finding
	for _, check := range checks {
		best := -1
		phrase := ""
		for _, candidate := range phraseBuckets[check] {
			idx := strings.Index(normalized, candidate)
			if idx < 0 {
				continue
			}
			if best < 0 || idx < best {
				best = idx
				phrase = candidate
			}
		}
		if best >= 0 {
			findings = append(findings, Finding{Check: check, Phrase: phrase})
		}
	}

	sort.Slice(findings, func(i, j int) bool { return findings[i].Check < findings[j].Check })
	return findings
}
