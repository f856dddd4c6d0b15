package model

import "sort"

// NormalizeLabels returns the labels sorted with blanks and duplicates removed.
// The result is never nil so that it always encodes as a JSON array.
func NormalizeLabels(labels []string) []string {
	seen := make(map[string]bool, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// SameLabels compares two label lists as sets.
func SameLabels(a, b []string) bool {
	as := NormalizeLabels(a)
	bs := NormalizeLabels(b)
	if len(as) != len(bs) {
		return false
	}
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
