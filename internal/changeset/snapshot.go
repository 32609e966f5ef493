package changeset

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"sort"

	"github.com/pkg/errors"
)

// Diff derives a path-ordered ChangeMap from the digests recorded by the
// previous run and the digests of the current artifacts.
func Diff(previous, current map[string]string) ChangeMap {
	paths := make([]string, 0, len(previous)+len(current))
	for p := range current {
		paths = append(paths, p)
	}
	for p := range previous {
		if _, ok := current[p]; !ok {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)

	out := make(ChangeMap, 0, len(paths))
	for _, p := range paths {
		cur, inCurrent := current[p]
		prev, inPrevious := previous[p]
		switch {
		case !inCurrent:
			out = append(out, Change{Artifact: Artifact(p), Status: Removed})
		case !inPrevious:
			out = append(out, Change{Artifact: Artifact(p), Status: New})
		case cur != prev:
			out = append(out, Change{Artifact: Artifact(p), Status: Changed})
		}
	}
	return out
}

// Digest returns the hex SHA-256 of the file at path.
func Digest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "open artifact %s", path)
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrapf(err, "hash artifact %s", path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// DigestAll digests every artifact, keyed by path.
func DigestAll(artifacts []Artifact) (map[string]string, error) {
	out := make(map[string]string, len(artifacts))
	for _, a := range artifacts {
		sum, err := Digest(string(a))
		if err != nil {
			return nil, err
		}
		out[string(a)] = sum
	}
	return out, nil
}
