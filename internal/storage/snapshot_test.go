package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"channel-chatter/internal/llm"
)

func sample() map[int64][]llm.Message {
	return map[int64][]llm.Message{
		42: {llm.System("base"), llm.User("ann says: hi")},
		7:  {llm.System("other"), llm.User("q"), llm.Assistant("a")},
	}
}

func TestJSONSnapshotMissingFileIsEmpty(t *testing.T) {
	j := NewJSONSnapshotter(filepath.Join(t.TempDir(), "none.json"))
	snap, err := j.Load()
	require.NoError(t, err)
	assert.Empty(t, snap)
}

func TestJSONSnapshotRoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "data", "chat_history.json")
	j := NewJSONSnapshotter(p)
	require.NoError(t, j.Save(sample()))

	snap, err := j.Load()
	require.NoError(t, err)
	assert.Equal(t, sample(), snap)

	// overwrite, not merge
	require.NoError(t, j.Save(map[int64][]llm.Message{1: {llm.System("x")}}))
	snap, err = j.Load()
	require.NoError(t, err)
	assert.Equal(t, map[int64][]llm.Message{1: {llm.System("x")}}, snap)
}

func TestJSONSnapshotLoadsDocumentFormat(t *testing.T) {
	p := filepath.Join(t.TempDir(), "state.json")
	doc := `{"42":[{"role":"system","content":"base"},{"role":"user","content":"hello"}]}`
	require.NoError(t, os.WriteFile(p, []byte(doc), 0o644))

	snap, err := NewJSONSnapshotter(p).Load()
	require.NoError(t, err)
	assert.Equal(t, []llm.Message{llm.System("base"), llm.User("hello")}, snap[42])
}

func TestJSONSnapshotMalformed(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"garbage":   `{"42": [`,
		"bad role":  `{"42":[{"role":"wizard","content":"x"}]}`,
		"bad key":   `{"abc":[{"role":"system","content":"x"}]}`,
		"no system": `{"42":[{"role":"user","content":"x"}]}`,
	}
	for name, doc := range cases {
		p := filepath.Join(dir, name+".json")
		require.NoError(t, os.WriteFile(p, []byte(doc), 0o644))
		_, err := NewJSONSnapshotter(p).Load()
		require.ErrorIs(t, err, ErrMalformedSnapshot, name)
	}
}

func TestSQLiteSnapshotRoundTrip(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "db", "history.db"))
	require.NoError(t, err)
	defer s.Close()

	snap, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, snap)

	require.NoError(t, s.Save(sample()))
	snap, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, sample(), snap)

	require.NoError(t, s.Save(map[int64][]llm.Message{42: {llm.System("only")}}))
	snap, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, map[int64][]llm.Message{42: {llm.System("only")}}, snap)
}
