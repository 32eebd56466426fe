package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"bento-pro-server/modules/common/model"
	"bento-pro-server/modules/common/storage"
)

// ErrRecordNotFound - 指定IDの履歴レコードが存在しない
var ErrRecordNotFound = errors.New("history: record not found")

// レコード内の画像オブジェクト名（これ以外は配信しない）
var imageNames = map[string]bool{
	"original.png":  true,
	"generated.png": true,
	"thumbnail.png": true,
}

// Store - 履歴レコードストアの操作
type Store interface {
	GetBlob(ctx context.Context, key string) ([]byte, error)
	PutBlob(ctx context.Context, key string, data []byte, contentType string) error
	ListPrefixes(ctx context.Context) ([]string, error)
	DeletePrefix(ctx context.Context, prefix string) error
}

// Service - 履歴の一覧・取得・編集・削除
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// List - 新しい順の履歴一覧。q でタイトル・説明・タグを部分一致検索する
// metadata.json が壊れている/欠けているレコードはスキップして続行する
func (s *Service) List(ctx context.Context, q string, limit, offset int) ([]Record, int, error) {
	ids, err := s.store.ListPrefixes(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("history: list failed: %w", err)
	}

	var records []Record
	for _, id := range ids {
		meta, err := s.loadMetadata(ctx, id)
		if err != nil {
			log.Printf("⚠️  [History] Skipping record %s: %v", id, err)
			continue
		}
		if q != "" && !matchQuery(meta, q) {
			continue
		}
		records = append(records, Record{ID: id, RecordMetadata: *meta})
	}

	total := len(records)

	if offset >= len(records) {
		return []Record{}, total, nil
	}
	records = records[offset:]
	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	return records, total, nil
}

// Get - 単一レコードのメタデータ
func (s *Service) Get(ctx context.Context, id string) (*Record, error) {
	meta, err := s.loadMetadata(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Record{ID: id, RecordMetadata: *meta}, nil
}

// GetImage - レコード内画像の取得
func (s *Service) GetImage(ctx context.Context, id string, name string) ([]byte, error) {
	if !imageNames[name] {
		return nil, fmt.Errorf("history: unknown image name %q", name)
	}
	data, err := s.store.GetBlob(ctx, id+"/"+name)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("history: get image failed: %w", err)
	}
	return data, nil
}

// Update - メタデータの編集可能フィールドのみ差し替える
// スタイル設定・解析結果・タイミングは read-modify-write で保全される
func (s *Service) Update(ctx context.Context, id string, patch EditPatch) (*Record, error) {
	meta, err := s.loadMetadata(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Title != nil {
		meta.Title = *patch.Title
	}
	if patch.Description != nil {
		meta.Description = *patch.Description
	}
	if patch.Tags != nil {
		meta.Tags = *patch.Tags
	}
	if patch.Favorite != nil {
		meta.Favorite = *patch.Favorite
	}

	if err := s.saveMetadata(ctx, id, meta); err != nil {
		return nil, err
	}
	return &Record{ID: id, RecordMetadata: *meta}, nil
}

// ToggleFavorite - お気に入りフラグの反転
func (s *Service) ToggleFavorite(ctx context.Context, id string) (*Record, error) {
	meta, err := s.loadMetadata(ctx, id)
	if err != nil {
		return nil, err
	}

	meta.Favorite = !meta.Favorite
	if err := s.saveMetadata(ctx, id, meta); err != nil {
		return nil, err
	}
	return &Record{ID: id, RecordMetadata: *meta}, nil
}

// Delete - レコード配下の全オブジェクトを削除する
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.loadMetadata(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeletePrefix(ctx, id); err != nil {
		return fmt.Errorf("history: delete failed: %w", err)
	}
	log.Printf("🗑️  [History] Record %s deleted", id)
	return nil
}

func (s *Service) loadMetadata(ctx context.Context, id string) (*model.RecordMetadata, error) {
	data, err := s.store.GetBlob(ctx, id+"/metadata.json")
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("history: load metadata failed: %w", err)
	}

	var meta model.RecordMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("history: corrupt metadata for %s: %w", id, err)
	}
	if meta.Tags == nil {
		meta.Tags = []string{}
	}
	return &meta, nil
}

func (s *Service) saveMetadata(ctx context.Context, id string, meta *model.RecordMetadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("history: marshal metadata failed: %w", err)
	}
	if err := s.store.PutBlob(ctx, id+"/metadata.json", data, "application/json"); err != nil {
		return fmt.Errorf("history: save metadata failed: %w", err)
	}
	return nil
}

// matchQuery - タイトル・説明・タグの大文字小文字を無視した部分一致
func matchQuery(meta *model.RecordMetadata, q string) bool {
	q = strings.ToLower(q)
	if strings.Contains(strings.ToLower(meta.Title), q) {
		return true
	}
	if strings.Contains(strings.ToLower(meta.Description), q) {
		return true
	}
	for _, tag := range meta.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}
