package manifest

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// InitialVersion is stamped on every freshly built manifest
	InitialVersion = "3.0.0"
	// UnknownPreviousVersion stands in when a changed document has no
	// stored manifest to bump from
	UnknownPreviousVersion = "1.0.0"
)

// BumpPatch increments the last dot-separated component of v
func BumpPatch(v string) (string, error) {
	parts := strings.Split(v, ".")
	last := parts[len(parts)-1]
	n, err := strconv.Atoi(last)
	if err != nil || n < 0 {
		return "", fmt.Errorf("invalid version %q: last component is not a number", v)
	}
	parts[len(parts)-1] = strconv.Itoa(n + 1)
	return strings.Join(parts, "."), nil
}

// ApplyBump sets m's version to the successor of previous and records
// previous. An empty previous counts as UnknownPreviousVersion.
func ApplyBump(m *Manifest, previous string) error {
	if previous == "" {
		previous = UnknownPreviousVersion
	}
	next, err := BumpPatch(previous)
	if err != nil {
		return err
	}
	m.Version = next
	m.PreviousVersion = previous
	return nil
}
