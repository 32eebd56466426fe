package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"bento-pro-server/modules/common/config"
)

// ErrNotFound - キーが存在しない場合に返す
var ErrNotFound = errors.New("storage: object not found")

// Client - 履歴レコードストア（Supabase Storage）クライアント
// キー構造: {timestamp_id}/{original.png|generated.png|thumbnail.png|metadata.json}
type Client struct {
	baseURL    string
	serviceKey string
	bucket     string
	httpClient *http.Client
}

// NewClient - Storage クライアント生成
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.SupabaseURL, "/"),
		serviceKey: cfg.SupabaseServiceKey,
		bucket:     cfg.StorageBucket,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) objectURL(key string) string {
	return fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, c.bucket, escapeKey(key))
}

// escapeKey - パスセグメント単位でURLエスケープ
func escapeKey(key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}

// PutBlob - バイナリをアップロード（既存キーは上書き）
func (c *Client) PutBlob(ctx context.Context, key string, data []byte, contentType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.objectURL(key), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("upload %s failed with status %d: %s", key, resp.StatusCode, string(body))
	}

	log.Printf("📤 [Storage] Uploaded %s (%d bytes)", key, len(data))
	return nil
}

// GetBlob - バイナリを取得。存在しない場合は ErrNotFound
func (c *Client) GetBlob(ctx context.Context, key string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.objectURL(key), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("download %s failed with status %d: %s", key, resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// Exists - キーの存在確認
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.objectURL(key), nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", key, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("exists check %s failed with status %d", key, resp.StatusCode)
	}
}

type listEntry struct {
	Name string  `json:"name"`
	ID   *string `json:"id"`
}

// list - Supabase Storage のオブジェクト一覧 API
func (c *Client) list(ctx context.Context, prefix string) ([]listEntry, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"prefix": prefix,
		"limit":  10000,
		"offset": 0,
		"sortBy": map[string]string{"column": "name", "order": "desc"},
	})
	if err != nil {
		return nil, err
	}

	listURL := fmt.Sprintf("%s/storage/v1/object/list/%s", c.baseURL, c.bucket)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, listURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create list request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("list failed with status %d: %s", resp.StatusCode, string(body))
	}

	var entries []listEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to parse list response: %w", err)
	}
	return entries, nil
}

// ListPrefixes - トップレベルのプレフィックス（履歴ID）一覧を新しい順で返す
func (c *Client) ListPrefixes(ctx context.Context) ([]string, error) {
	entries, err := c.list(ctx, "")
	if err != nil {
		return nil, err
	}

	// フォルダエントリは id が null で返る
	var prefixes []string
	for _, e := range entries {
		if e.ID == nil && e.Name != "" {
			prefixes = append(prefixes, strings.TrimSuffix(e.Name, "/"))
		}
	}

	// タイムスタンプIDは辞書順 = 時系列順
	sort.Sort(sort.Reverse(sort.StringSlice(prefixes)))
	return prefixes, nil
}

// DeletePrefix - プレフィックス配下の全キーを削除
func (c *Client) DeletePrefix(ctx context.Context, prefix string) error {
	entries, err := c.list(ctx, strings.TrimSuffix(prefix, "/")+"/")
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		keys = append(keys, strings.TrimSuffix(prefix, "/")+"/"+e.Name)
	}

	payload, err := json.Marshal(map[string][]string{"prefixes": keys})
	if err != nil {
		return err
	}

	deleteURL := fmt.Sprintf("%s/storage/v1/object/%s", c.baseURL, c.bucket)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, deleteURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create delete request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to delete prefix %s: %w", prefix, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("delete prefix %s failed with status %d: %s", prefix, resp.StatusCode, string(body))
	}

	log.Printf("🗑️  [Storage] Deleted %d objects under %s/", len(keys), prefix)
	return nil
}
