package changeset

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReduceScenario(t *testing.T) {
	changes := ChangeMap{
		{Artifact: "/a/app.apk", Status: New},
		{Artifact: "/a/maindex.apk", Status: Changed},
		{Artifact: "/a/old.apk", Status: Removed},
	}
	assert.Equal(t, Batch{"/a/app.apk", "/a/maindex.apk"}, Reducer{}.Reduce(changes))
}

func TestReduceMovesMainIndexToTail(t *testing.T) {
	changes := ChangeMap{
		{Artifact: "/out/maindex.apk", Status: New},
		{Artifact: "/out/libcom_taobao_a.so", Status: Changed},
		{Artifact: "/out/libcom_taobao_b.so", Status: New},
	}
	batch := Reducer{}.Reduce(changes)
	require.Len(t, batch, 3)
	assert.Equal(t, Artifact("/out/maindex.apk"), batch[len(batch)-1])
	assert.Equal(t, Batch{"/out/libcom_taobao_a.so", "/out/libcom_taobao_b.so", "/out/maindex.apk"}, batch)
}

func TestReduceDropsRemovedMainIndex(t *testing.T) {
	changes := ChangeMap{
		{Artifact: "/out/maindex.apk", Status: Removed},
		{Artifact: "/out/a.apk", Status: Changed},
	}
	assert.Equal(t, Batch{"/out/a.apk"}, Reducer{}.Reduce(changes))
}

func TestReduceCustomMainIndexName(t *testing.T) {
	changes := ChangeMap{
		{Artifact: "/out/index.bin", Status: New},
		{Artifact: "/out/maindex.apk", Status: New},
	}
	assert.Equal(t, Batch{"/out/maindex.apk", "/out/index.bin"}, Reducer{MainIndexName: "index.bin"}.Reduce(changes))
}

func TestReduceCollapsesDuplicates(t *testing.T) {
	changes := ChangeMap{
		{Artifact: "/out/a.apk", Status: New},
		{Artifact: "/out/maindex.apk", Status: New},
		{Artifact: "/out/a.apk", Status: Changed},
		{Artifact: "/out/maindex.apk", Status: Changed},
	}
	assert.Equal(t, Batch{"/out/a.apk", "/out/maindex.apk"}, Reducer{}.Reduce(changes))
}

func TestReduceEmpty(t *testing.T) {
	assert.Empty(t, Reducer{}.Reduce(nil))
}

// Properties over random change maps.
func TestReduceProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	names := []string{"a.apk", "b.apk", "c.apk", "d.apk", "maindex.apk"}
	r := Reducer{}
	for i := 0; i < 200; i++ {
		var changes ChangeMap
		for _, name := range names {
			if rng.Intn(4) == 0 {
				continue
			}
			changes = append(changes, Change{Artifact: Artifact("/out/" + name), Status: Status(rng.Intn(3) + 1)})
		}
		rng.Shuffle(len(changes), func(i, j int) { changes[i], changes[j] = changes[j], changes[i] })

		batch := r.Reduce(changes)
		assert.Equal(t, batch, r.Reduce(changes), "reduce must be idempotent")

		status := make(map[Artifact]Status)
		var expected Batch
		hasMainIndex := false
		for _, c := range changes {
			status[c.Artifact] = c.Status
			if c.Status == Removed {
				continue
			}
			if c.Artifact.Name() == DefaultMainIndexName {
				hasMainIndex = true
				continue
			}
			expected = append(expected, c.Artifact)
		}
		if hasMainIndex {
			expected = append(expected, "/out/maindex.apk")
			assert.Equal(t, Artifact("/out/maindex.apk"), batch[len(batch)-1])
		}
		for _, a := range batch {
			assert.NotEqual(t, Removed, status[a], "removed artifact %s in batch", a)
		}
		if len(expected) == 0 {
			assert.Empty(t, batch)
		} else {
			assert.Equal(t, expected, batch)
		}
	}
}

func TestFromMapIsPathOrdered(t *testing.T) {
	changes := FromMap(map[string]Status{
		"/a/old.apk":     Removed,
		"/a/maindex.apk": Changed,
		"/a/app.apk":     New,
	})
	require.Len(t, changes, 3)
	assert.Equal(t, Artifact("/a/app.apk"), changes[0].Artifact)
	assert.Equal(t, Batch{"/a/app.apk", "/a/maindex.apk"}, Reducer{}.Reduce(changes))
}

func TestParseStatus(t *testing.T) {
	s, ok := ParseStatus(" Changed ")
	require.True(t, ok)
	assert.Equal(t, Changed, s)
	_, ok = ParseStatus("moved")
	assert.False(t, ok)
	assert.Equal(t, "removed", Removed.String())
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, Batch{"a", "b"}, Dedupe([]Artifact{"a", "", "b", "a"}))
}

func TestDiff(t *testing.T) {
	previous := map[string]string{"/o/a.apk": "1", "/o/b.apk": "2", "/o/gone.apk": "3"}
	current := map[string]string{"/o/a.apk": "1", "/o/b.apk": "22", "/o/new.apk": "4"}
	assert.Equal(t, ChangeMap{
		{Artifact: "/o/b.apk", Status: Changed},
		{Artifact: "/o/gone.apk", Status: Removed},
		{Artifact: "/o/new.apk", Status: New},
	}, Diff(previous, current))
	assert.Empty(t, Diff(current, current))
}

func TestDigestAll(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.apk")
	require.NoError(t, os.WriteFile(a, []byte("hello"), 0o644))

	sums, err := DigestAll([]Artifact{Artifact(a)})
	require.NoError(t, err)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", sums[a])

	_, err = DigestAll([]Artifact{Artifact(filepath.Join(dir, "missing.apk"))})
	assert.Error(t, err)
}
