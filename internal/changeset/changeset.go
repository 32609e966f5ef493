// Package changeset reduces per-run artifact changes to the ordered batch
// pushed to a device.
package changeset

import (
	"path/filepath"
	"sort"
	"strings"
)

// DefaultMainIndexName is the reserved file name of the main-index artifact.
const DefaultMainIndexName = "maindex.apk"

// Artifact is a deployable file, identified by its path.
type Artifact string

func (a Artifact) Name() string { return filepath.Base(string(a)) }

// Status tags an artifact relative to the previous invocation.
type Status int

const (
	New Status = iota + 1
	Changed
	Removed
)

func (s Status) String() string {
	switch s {
	case New:
		return "new"
	case Changed:
		return "changed"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// ParseStatus accepts the names produced by String, case-insensitively.
func ParseStatus(s string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "new", "added":
		return New, true
	case "changed", "modified":
		return Changed, true
	case "removed", "deleted":
		return Removed, true
	}
	return 0, false
}

// Change is one ChangeMap entry.
type Change struct {
	Artifact Artifact
	Status   Status
}

// ChangeMap lists artifact changes in encounter order.
type ChangeMap []Change

// FromMap builds a path-ordered ChangeMap from an unordered mapping.
func FromMap(m map[string]Status) ChangeMap {
	paths := make([]string, 0, len(m))
	for p := range m {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	out := make(ChangeMap, 0, len(paths))
	for _, p := range paths {
		out = append(out, Change{Artifact: Artifact(p), Status: m[p]})
	}
	return out
}

// Batch is the ordered, duplicate-free artifact list of one install.
type Batch []Artifact

// Paths returns the batch as plain strings.
func (b Batch) Paths() []string {
	out := make([]string, len(b))
	for i, a := range b {
		out[i] = string(a)
	}
	return out
}

// Reducer turns a ChangeMap into a Batch.
type Reducer struct {
	// MainIndexName overrides DefaultMainIndexName when set.
	MainIndexName string
}

func (r Reducer) mainIndexName() string {
	if name := strings.TrimSpace(r.MainIndexName); name != "" {
		return name
	}
	return DefaultMainIndexName
}

// Reduce keeps New and Changed artifacts in encounter order, drops Removed
// ones and moves main-index artifacts to the tail. A path listed more than
// once keeps its first position.
func (r Reducer) Reduce(changes ChangeMap) Batch {
	mainIndex := r.mainIndexName()
	seen := make(map[Artifact]struct{}, len(changes))
	batch := make(Batch, 0, len(changes))
	var tail Batch
	for _, c := range changes {
		if c.Status != New && c.Status != Changed {
			continue
		}
		if _, dup := seen[c.Artifact]; dup {
			continue
		}
		seen[c.Artifact] = struct{}{}
		if c.Artifact.Name() == mainIndex {
			tail = append(tail, c.Artifact)
			continue
		}
		batch = append(batch, c.Artifact)
	}
	return append(batch, tail...)
}

// Dedupe drops repeated artifacts, keeping first occurrences.
func Dedupe(artifacts []Artifact) Batch {
	seen := make(map[Artifact]struct{}, len(artifacts))
	out := make(Batch, 0, len(artifacts))
	for _, a := range artifacts {
		if strings.TrimSpace(string(a)) == "" {
			continue
		}
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}
