package corpus

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/openplag/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vec(i int) []float32 {
	v := make([]float32, 8)
	v[i] = 1
	return v
}

func testDoc(name, text string, created time.Time, vecs ...[]float32) *model.Document {
	segs := make([]model.Segment, len(vecs))
	for i, v := range vecs {
		segs[i] = model.Segment{Position: i, Text: name + " segment", Embedding: v}
	}
	return model.NewDocument(name, text, segs, created)
}

func storeImplementations(t *testing.T) map[string]Store {
	sqliteStore, err := Open(filepath.Join(t.TempDir(), "corpus.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqliteStore.Close() })

	memoryStore, err := Open(MemoryPath)
	require.NoError(t, err)

	return map[string]Store{
		"memory": memoryStore,
		"sqlite": sqliteStore,
	}
}

func TestOpen_SelectsBackend(t *testing.T) {
	mem, err := Open(MemoryPath)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, mem)

	disk, err := Open(filepath.Join(t.TempDir(), "corpus.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = disk.Close() })
	assert.IsType(t, &SQLiteStore{}, disk)
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for name, store := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			first := testDoc("alice", "first essay text", base, vec(0), nil, vec(2))
			second := testDoc("bob", "second essay text", base.Add(time.Hour), vec(3))

			id, err := store.Store(ctx, first)
			require.NoError(t, err)
			assert.Equal(t, first.ID, id)
			_, err = store.Store(ctx, second)
			require.NoError(t, err)

			got, err := store.Get(ctx, first.ID)
			require.NoError(t, err)
			assert.Equal(t, "alice", got.Name)
			assert.Equal(t, "first essay text", got.RawText)
			require.Len(t, got.Segments, 3)
			assert.Equal(t, vec(0), got.Segments[0].Embedding)
			assert.False(t, got.Segments[1].Embedded())
			assert.True(t, base.Equal(got.CreatedAt))

			n, err := store.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(2), n)

			var names []string
			for doc, err := range store.QueryAll(ctx) {
				require.NoError(t, err)
				names = append(names, doc.Name)
			}
			assert.Equal(t, []string{"alice", "bob"}, names)

			var records []SegmentRecord
			for rec, err := range store.Embeddings(ctx) {
				require.NoError(t, err)
				records = append(records, rec)
			}
			require.Len(t, records, 3, "unembedded segments are not streamed")
			assert.Equal(t, first.ID, records[0].DocumentID)
			assert.Equal(t, 2, records[1].Position)
			assert.Equal(t, second.ID, records[2].DocumentID)
		})
	}
}

func TestStore_DuplicateContent(t *testing.T) {
	ctx := context.Background()
	for name, store := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			doc := testDoc("alice", "same words", time.Time{}, vec(0))
			id, err := store.Store(ctx, doc)
			require.NoError(t, err)

			again := testDoc("mallory", "same words", time.Time{}, vec(0))
			dupID, err := store.Store(ctx, again)
			assert.ErrorIs(t, err, model.ErrAlreadyArchived)
			assert.Equal(t, id, dupID)

			n, err := store.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(1), n)
		})
	}
}

func TestStore_GetMissing(t *testing.T) {
	for name, store := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(context.Background(), "nope")
			assert.ErrorIs(t, err, model.ErrNotFound)
		})
	}
}

func TestVectorCodec(t *testing.T) {
	v := []float32{0.25, -1.5, 3}
	assert.Equal(t, v, DecodeVector(EncodeVector(v)))
	assert.Nil(t, EncodeVector(nil))
	assert.Nil(t, DecodeVector([]byte{1, 2}))
}

func TestIndex_SearchTopKAndTieBreak(t *testing.T) {
	base := time.Now()
	late := testDoc("late", "late", base.Add(time.Hour), vec(0), vec(1))
	early := testDoc("early", "early", base, vec(0))
	other := testDoc("other", "other", base, vec(4))

	ix := NewIndex()
	ix.Add(late)
	ix.Add(early)
	ix.Add(other)

	hits := ix.Search(vec(0), 2, "")
	require.Len(t, hits, 2)
	assert.Equal(t, early.ID, hits[0].DocumentID, "equal scores prefer the earlier submission")
	assert.Equal(t, late.ID, hits[1].DocumentID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)

	hits = ix.Search(vec(0), 5, early.ID)
	require.Len(t, hits, 3)
	assert.Equal(t, late.ID, hits[0].DocumentID)
	assert.Equal(t, other.ID, hits[1].DocumentID, "zero scores still order by submission time")
	for _, h := range hits {
		assert.NotEqual(t, early.ID, h.DocumentID)
	}

	assert.Nil(t, ix.Search([]float32{0, 0}, 3, ""))
	assert.Equal(t, 4, ix.Len())
}

func TestIndex_SnapshotUnaffectedByAdd(t *testing.T) {
	ix := NewIndex()
	ix.Add(testDoc("a", "a", time.Now(), vec(0)))

	snapshot := *ix.entries.Load()
	b := testDoc("b", "b", time.Now(), vec(0))
	ix.Add(b)
	ix.Add(b)

	assert.Len(t, snapshot, 1)
	assert.Equal(t, 2, ix.Len(), "re-adding a document is a no-op")
}

func TestIndex_LoadFromStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_, err := store.Store(ctx, testDoc("a", "a text", time.Now(), vec(0), vec(1)))
	require.NoError(t, err)

	ix := NewIndex()
	require.NoError(t, ix.Load(ctx, store))
	assert.Equal(t, 2, ix.Len())

	require.NoError(t, ix.Load(ctx, store))
	assert.Equal(t, 2, ix.Len(), "loaded documents are not indexed twice")
}

func TestMatcher_MatchLocal(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMatcher(NewMemoryStore(), nil, 3, 0.5)

	_, err := m.Archive(ctx, testDoc("source", "source essay", base, vec(0), vec(1), vec(7)))
	require.NoError(t, err)
	_, err = m.Archive(ctx, testDoc("unrelated", "unrelated essay", base, vec(5)))
	require.NoError(t, err)

	target := testDoc("target", "target essay", base.Add(time.Hour), vec(0), vec(1), vec(2))
	matches, err := m.MatchLocal(ctx, target)
	require.NoError(t, err)
	require.Len(t, matches, 1, "sub-threshold hits are excluded")

	src := matches[0]
	assert.Equal(t, "source", src.Title)
	assert.Equal(t, model.LabelLocal, src.Label)
	assert.Equal(t, model.FetchStored, src.FetchStatus)
	assert.Len(t, src.Segments, 3)
}

func TestMatcher_SameTextDifferentSubmission(t *testing.T) {
	ctx := context.Background()
	m := NewMatcher(NewMemoryStore(), nil, 3, 0.5)

	stored := testDoc("alice", "copied essay", time.Now(), vec(0), vec(1))
	storedID, err := m.Archive(ctx, stored)
	require.NoError(t, err)

	copied := testDoc("bob", "copied essay", time.Now(), vec(0), vec(1))
	require.NotEqual(t, storedID, copied.ID)

	matches, err := m.MatchLocal(ctx, copied)
	require.NoError(t, err)
	require.Len(t, matches, 1, "a fresh submission of archived text matches the archived copy")
	assert.Equal(t, storedID, matches[0].ID)

	// Re-checking the stored document under its own ID skips itself
	again, err := m.Store().Get(ctx, storedID)
	require.NoError(t, err)
	matches, err = m.MatchLocal(ctx, again)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestMatcher_ArchiveTwice(t *testing.T) {
	ctx := context.Background()
	m := NewMatcher(NewMemoryStore(), nil, 0, 0)
	doc := testDoc("a", "some essay", time.Now(), vec(0))

	id, err := m.Archive(ctx, doc)
	require.NoError(t, err)

	again, err := m.Archive(ctx, doc)
	assert.ErrorIs(t, err, model.ErrAlreadyArchived)
	assert.Equal(t, id, again)
	assert.Equal(t, 1, m.Indexed())
}

func TestMatcher_EmptyCorpus(t *testing.T) {
	m := NewMatcher(NewMemoryStore(), nil, 5, 0.75)
	matches, err := m.MatchLocal(context.Background(), testDoc("t", "t", time.Now(), vec(0)))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestMatcher_Clear(t *testing.T) {
	ctx := context.Background()
	for name, store := range storeImplementations(t) {
		t.Run(name, func(t *testing.T) {
			m := NewMatcher(store, nil, 0, 0)
			_, err := m.Archive(ctx, testDoc("a", "first essay", time.Now(), vec(0), vec(1)))
			require.NoError(t, err)
			require.Equal(t, 2, m.Indexed())

			require.NoError(t, m.Clear(ctx))

			n, err := store.Count(ctx)
			require.NoError(t, err)
			assert.Zero(t, n)
			assert.Zero(t, m.Indexed())

			// The same content can be archived again after a clear
			_, err = m.Archive(ctx, testDoc("a", "first essay", time.Now(), vec(0)))
			assert.NoError(t, err)
			assert.Equal(t, 1, m.Indexed())
		})
	}
}
