// Package filter narrows a list of raw tendrils by action mode, local/remote
// glob, and profile set (spec §4.6).
package filter

import (
	"github.com/bmatcuk/doublestar/v4"
	"github.com/reedmace/tendril/internal/tendril"
)

// ActionMode selects which batch operation a run performs. It is distinct
// from tendril.Mode: ActionMode is the caller's requested direction, while
// tendril.Mode is a per-tendril authored property that direction must
// respect.
type ActionMode int

const (
	Pull ActionMode = iota
	Push
	Link
	// Out performs push for DirMerge/DirOverwrite tendrils and link for Link
	// tendrils, in a single pass over every tendril.
	Out
)

func (m ActionMode) String() string {
	switch m {
	case Pull:
		return "pull"
	case Push:
		return "push"
	case Link:
		return "link"
	default:
		return "out"
	}
}

// Spec narrows a tendril list by mode, local/remote glob, and profile.
type Spec struct {
	Mode        ActionMode
	LocalGlobs  []string
	RemoteGlobs []string
	Profiles    []string
}

// Apply returns the ordered subset of raws that survive spec, preserving
// input order.
func Apply(raws []tendril.RawTendril, spec Spec) []tendril.RawTendril {
	out := make([]tendril.RawTendril, 0, len(raws))
	for _, raw := range raws {
		if !matchesMode(raw, spec.Mode) {
			continue
		}
		if !matchesGlobs(spec.LocalGlobs, raw.Local) {
			continue
		}
		if !matchesGlobs(spec.RemoteGlobs, raw.Remote) {
			continue
		}
		if !matchesProfiles(spec.Profiles, raw.Profiles) {
			continue
		}
		out = append(out, raw)
	}
	return out
}

func matchesMode(raw tendril.RawTendril, mode ActionMode) bool {
	switch mode {
	case Push, Pull:
		return raw.Mode != tendril.Link
	case Link:
		return raw.Mode == tendril.Link
	default: // Out
		return true
	}
}

// matchesGlobs reports whether globs is empty (match-all) or any pattern in
// it matches field, using doublestar so "**" behaves as a recursive
// wildcard across path separators.
func matchesGlobs(globs []string, field string) bool {
	if len(globs) == 0 {
		return true
	}
	for _, g := range globs {
		if ok, err := doublestar.Match(g, field); err == nil && ok {
			return true
		}
	}
	return false
}

// matchesProfiles reports whether filter is empty (match-all), or
// tendrilProfiles is empty (matches every filter), or the two sets
// intersect.
func matchesProfiles(filter, tendrilProfiles []string) bool {
	if len(filter) == 0 || len(tendrilProfiles) == 0 {
		return true
	}
	want := make(map[string]struct{}, len(filter))
	for _, p := range filter {
		want[p] = struct{}{}
	}
	for _, p := range tendrilProfiles {
		if _, ok := want[p]; ok {
			return true
		}
	}
	return false
}
