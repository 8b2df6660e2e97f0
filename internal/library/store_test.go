package library

import (
	"context"
	"errors"
	"testing"

	"github.com/buildsafe/backend/internal/storage/models"
)

type fakeDB struct {
	entries map[models.LibraryKind][]models.LibraryEntry
	err     error
	reads   int
}

func (f *fakeDB) GetActiveEntries(ctx context.Context, kind models.LibraryKind, tenantID string) ([]models.LibraryEntry, error) {
	f.reads++
	if f.err != nil {
		return nil, f.err
	}
	return f.entries[kind], nil
}

func (f *fakeDB) GetEntriesByCategory(ctx context.Context, kind models.LibraryKind, category string) ([]models.LibraryEntry, error) {
	f.reads++
	if f.err != nil {
		return nil, f.err
	}
	var out []models.LibraryEntry
	for _, e := range f.entries[kind] {
		if e.Category == category || e.Category == "" {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeCache struct {
	data   map[models.LibraryKind][]models.LibraryEntry
	getErr error
	setErr error
	sets   int
}

func (f *fakeCache) GetLibrary(ctx context.Context, tenantID string, kind models.LibraryKind) ([]models.LibraryEntry, bool, error) {
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	entries, ok := f.data[kind]
	return entries, ok, nil
}

func (f *fakeCache) SetLibrary(ctx context.Context, tenantID string, kind models.LibraryKind, entries []models.LibraryEntry) error {
	f.sets++
	if f.setErr != nil {
		return f.setErr
	}
	if f.data == nil {
		f.data = make(map[models.LibraryKind][]models.LibraryEntry)
	}
	f.data[kind] = entries
	return nil
}

func sampleEntries() []models.LibraryEntry {
	return []models.LibraryEntry{
		{ID: "1", Kind: models.KindHazard, Code: "HAZ-001", Name: "Fall from Height", IsActive: true},
		{ID: "2", Kind: models.KindHazard, Code: "HAZ-002", Name: "Noise Exposure", IsActive: true},
	}
}

func TestFetchActiveInvalidKind(t *testing.T) {
	store := NewStore(&fakeDB{}, nil)

	if _, err := store.FetchActive(context.Background(), "unicorn", ""); err == nil {
		t.Error("expected error for unknown library kind")
	}
	if _, err := store.FetchByCategory(context.Background(), "unicorn", "x"); err == nil {
		t.Error("expected error for unknown library kind")
	}
}

func TestFetchActiveCacheHitSkipsDatabase(t *testing.T) {
	db := &fakeDB{}
	cache := &fakeCache{data: map[models.LibraryKind][]models.LibraryEntry{
		models.KindHazard: sampleEntries(),
	}}
	store := NewStore(db, cache)

	entries, err := store.FetchActive(context.Background(), models.KindHazard, "")
	if err != nil {
		t.Fatalf("FetchActive failed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 cached entries, got %d", len(entries))
	}
	if db.reads != 0 {
		t.Errorf("cache hit should not touch the database, got %d reads", db.reads)
	}
}

func TestFetchActiveCacheMissPopulatesCache(t *testing.T) {
	db := &fakeDB{entries: map[models.LibraryKind][]models.LibraryEntry{
		models.KindControl: sampleEntries(),
	}}
	cache := &fakeCache{}
	store := NewStore(db, cache)

	entries, err := store.FetchActive(context.Background(), models.KindControl, "tenant-a")
	if err != nil {
		t.Fatalf("FetchActive failed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 entries from db, got %d", len(entries))
	}
	if db.reads != 1 {
		t.Errorf("expected 1 db read, got %d", db.reads)
	}
	if cache.sets != 1 {
		t.Errorf("expected the miss to populate the cache, got %d sets", cache.sets)
	}
}

func TestFetchActiveCacheErrorFallsThrough(t *testing.T) {
	db := &fakeDB{entries: map[models.LibraryKind][]models.LibraryEntry{
		models.KindHazard: sampleEntries(),
	}}
	cache := &fakeCache{getErr: errors.New("redis down"), setErr: errors.New("redis down")}
	store := NewStore(db, cache)

	entries, err := store.FetchActive(context.Background(), models.KindHazard, "")
	if err != nil {
		t.Fatalf("cache failure must not fail the read: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected db entries despite cache failure, got %d", len(entries))
	}
}

func TestFetchActiveNilCache(t *testing.T) {
	db := &fakeDB{entries: map[models.LibraryKind][]models.LibraryEntry{
		models.KindSop: sampleEntries()[:1],
	}}
	store := NewStore(db, nil)

	entries, err := store.FetchActive(context.Background(), models.KindSop, "")
	if err != nil {
		t.Fatalf("FetchActive failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected 1 entry, got %d", len(entries))
	}
}

func TestFetchActiveDatabaseError(t *testing.T) {
	db := &fakeDB{err: errors.New("sqlite locked")}
	store := NewStore(db, nil)

	if _, err := store.FetchActive(context.Background(), models.KindHazard, ""); err == nil {
		t.Error("expected database error to propagate")
	}
}

func TestFetchByCategoryIncludesGlobalEntries(t *testing.T) {
	db := &fakeDB{entries: map[models.LibraryKind][]models.LibraryEntry{
		models.KindControl: {
			{ID: "1", Code: "CTL-001", Category: "working-at-height", IsActive: true},
			{ID: "2", Code: "CTL-002", Category: "", IsActive: true},
			{ID: "3", Code: "CTL-003", Category: "electrical", IsActive: true},
		},
	}}
	store := NewStore(db, nil)

	entries, err := store.FetchByCategory(context.Background(), models.KindControl, "working-at-height")
	if err != nil {
		t.Fatalf("FetchByCategory failed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected category match plus global entry, got %d", len(entries))
	}
}
