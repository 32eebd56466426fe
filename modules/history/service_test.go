package history

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"testing"

	"bento-pro-server/modules/common/model"
	"bento-pro-server/modules/common/storage"
)

// memStore - テスト用インメモリレコードストア
type memStore struct {
	blobs map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{blobs: make(map[string][]byte)}
}

func (m *memStore) GetBlob(ctx context.Context, key string) ([]byte, error) {
	data, ok := m.blobs[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return data, nil
}

func (m *memStore) PutBlob(ctx context.Context, key string, data []byte, contentType string) error {
	m.blobs[key] = data
	return nil
}

func (m *memStore) ListPrefixes(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	for key := range m.blobs {
		if idx := strings.IndexByte(key, '/'); idx > 0 {
			seen[key[:idx]] = true
		}
	}
	var prefixes []string
	for p := range seen {
		prefixes = append(prefixes, p)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(prefixes)))
	return prefixes, nil
}

func (m *memStore) DeletePrefix(ctx context.Context, prefix string) error {
	for key := range m.blobs {
		if strings.HasPrefix(key, prefix+"/") {
			delete(m.blobs, key)
		}
	}
	return nil
}

func seedRecord(t *testing.T, store *memStore, id string, meta model.RecordMetadata) {
	t.Helper()
	meta.Timestamp = id
	data, err := json.Marshal(meta)
	if err != nil {
		t.Fatalf("marshal metadata: %v", err)
	}
	store.blobs[id+"/metadata.json"] = data
	store.blobs[id+"/original.png"] = []byte("png-original")
	store.blobs[id+"/generated.png"] = []byte("png-generated")
	store.blobs[id+"/thumbnail.png"] = []byte("png-thumbnail")
}

func TestListReturnsNewestFirst(t *testing.T) {
	store := newMemStore()
	seedRecord(t, store, "2026-08-01_10-00-00", model.RecordMetadata{Title: "鮭弁当"})
	seedRecord(t, store, "2026-08-02_10-00-00", model.RecordMetadata{Title: "唐揚げ弁当"})
	seedRecord(t, store, "2026-08-03_10-00-00", model.RecordMetadata{Title: "幕の内弁当"})

	records, total, err := NewService(store).List(context.Background(), "", 0, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 3 || len(records) != 3 {
		t.Fatalf("total = %d, len = %d, want 3", total, len(records))
	}
	if records[0].ID != "2026-08-03_10-00-00" {
		t.Errorf("first record = %s, want newest", records[0].ID)
	}
	if records[2].ID != "2026-08-01_10-00-00" {
		t.Errorf("last record = %s, want oldest", records[2].ID)
	}
}

func TestListSkipsCorruptMetadata(t *testing.T) {
	store := newMemStore()
	seedRecord(t, store, "2026-08-01_10-00-00", model.RecordMetadata{Title: "鮭弁当"})
	store.blobs["2026-08-02_10-00-00/metadata.json"] = []byte("{broken")

	records, total, err := NewService(store).List(context.Background(), "", 0, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 1 || len(records) != 1 {
		t.Fatalf("got %d records, want 1 (corrupt one skipped)", len(records))
	}
}

func TestListFiltersByQuery(t *testing.T) {
	store := newMemStore()
	seedRecord(t, store, "2026-08-01_10-00-00", model.RecordMetadata{Title: "鮭弁当", Tags: []string{"和食"}})
	seedRecord(t, store, "2026-08-02_10-00-00", model.RecordMetadata{Title: "唐揚げ弁当", Description: "二段重ね", Tags: []string{"揚げ物"}})

	svc := NewService(store)

	records, _, err := svc.List(context.Background(), "唐揚げ", 0, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 1 || records[0].Title != "唐揚げ弁当" {
		t.Fatalf("title query: got %+v", records)
	}

	records, _, err = svc.List(context.Background(), "和食", 0, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 1 || records[0].Title != "鮭弁当" {
		t.Fatalf("tag query: got %+v", records)
	}
}

func TestListPagination(t *testing.T) {
	store := newMemStore()
	seedRecord(t, store, "2026-08-01_10-00-00", model.RecordMetadata{Title: "a"})
	seedRecord(t, store, "2026-08-02_10-00-00", model.RecordMetadata{Title: "b"})
	seedRecord(t, store, "2026-08-03_10-00-00", model.RecordMetadata{Title: "c"})

	records, total, err := NewService(store).List(context.Background(), "", 2, 1)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(records) != 2 {
		t.Fatalf("len = %d, want 2", len(records))
	}
	if records[0].ID != "2026-08-02_10-00-00" {
		t.Errorf("offset 1 starts at %s", records[0].ID)
	}

	records, _, err = NewService(store).List(context.Background(), "", 10, 99)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("out-of-range offset returned %d records", len(records))
	}
}

func TestUpdatePreservesNonEditableFields(t *testing.T) {
	store := newMemStore()
	seedRecord(t, store, "2026-08-01_10-00-00", model.RecordMetadata{
		Title:           "鮭弁当",
		Background:      "white",
		AnalyzedContent: "Grilled salmon over rice.",
		FullPrompt:      "Refine this specific image...",
		Step1Time:       12.5,
	})

	newTitle := "特製鮭弁当"
	newTags := []string{"鮭", "和食"}
	record, err := NewService(store).Update(context.Background(), "2026-08-01_10-00-00", EditPatch{
		Title: &newTitle,
		Tags:  &newTags,
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if record.Title != "特製鮭弁当" {
		t.Errorf("Title = %q", record.Title)
	}
	if len(record.Tags) != 2 {
		t.Errorf("Tags = %v", record.Tags)
	}
	// 編集対象外フィールドが保全されること
	if record.Background != "white" || record.AnalyzedContent != "Grilled salmon over rice." {
		t.Error("non-editable fields were not preserved")
	}
	if record.Step1Time != 12.5 {
		t.Errorf("Step1Time = %v, want 12.5", record.Step1Time)
	}

	// 永続化も確認
	reloaded, err := NewService(store).Get(context.Background(), "2026-08-01_10-00-00")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if reloaded.Title != "特製鮭弁当" || reloaded.FullPrompt != "Refine this specific image..." {
		t.Error("update was not persisted correctly")
	}
}

func TestToggleFavorite(t *testing.T) {
	store := newMemStore()
	seedRecord(t, store, "2026-08-01_10-00-00", model.RecordMetadata{Title: "鮭弁当"})

	svc := NewService(store)

	record, err := svc.ToggleFavorite(context.Background(), "2026-08-01_10-00-00")
	if err != nil {
		t.Fatalf("ToggleFavorite() error = %v", err)
	}
	if !record.Favorite {
		t.Fatal("first toggle should set favorite")
	}

	record, err = svc.ToggleFavorite(context.Background(), "2026-08-01_10-00-00")
	if err != nil {
		t.Fatalf("ToggleFavorite() error = %v", err)
	}
	if record.Favorite {
		t.Fatal("second toggle should clear favorite")
	}
}

func TestDeleteRemovesAllObjects(t *testing.T) {
	store := newMemStore()
	seedRecord(t, store, "2026-08-01_10-00-00", model.RecordMetadata{Title: "鮭弁当"})
	seedRecord(t, store, "2026-08-02_10-00-00", model.RecordMetadata{Title: "唐揚げ弁当"})

	svc := NewService(store)
	if err := svc.Delete(context.Background(), "2026-08-01_10-00-00"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	for key := range store.blobs {
		if strings.HasPrefix(key, "2026-08-01_10-00-00/") {
			t.Errorf("object %s survived deletion", key)
		}
	}
	// 他レコードは無傷
	if _, err := svc.Get(context.Background(), "2026-08-02_10-00-00"); err != nil {
		t.Errorf("unrelated record was affected: %v", err)
	}
}

func TestNotFoundErrors(t *testing.T) {
	svc := NewService(newMemStore())
	ctx := context.Background()

	if _, err := svc.Get(ctx, "missing"); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("Get: error = %v, want ErrRecordNotFound", err)
	}
	if err := svc.Delete(ctx, "missing"); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("Delete: error = %v, want ErrRecordNotFound", err)
	}
	if _, err := svc.GetImage(ctx, "missing", "original.png"); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("GetImage: error = %v, want ErrRecordNotFound", err)
	}
	if _, err := svc.GetImage(ctx, "missing", "../etc/passwd"); err == nil {
		t.Error("GetImage accepted an unknown object name")
	}
}
