package analyze

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMetadataParse - メタデータ応答が不正な JSON または必須フィールド欠落
var ErrMetadataParse = errors.New("analyze: invalid metadata response")

// Metadata - 解析テキストから抽出した履歴表示用メタデータ
type Metadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// DefaultMetadata - 抽出失敗時のフォールバック
func DefaultMetadata() Metadata {
	return Metadata{Title: "弁当", Description: "", Tags: []string{}}
}

// ParseMetadataResponse - モデル応答をパースする
// 応答がコードフェンス（言語タグの有無を問わず）で包まれていても受け付ける
func ParseMetadataResponse(text string) (Metadata, error) {
	cleaned := stripCodeFence(text)
	if cleaned == "" {
		return Metadata{}, fmt.Errorf("%w: empty response", ErrMetadataParse)
	}

	// 3フィールドすべての存在を検証する
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return Metadata{}, fmt.Errorf("%w: %v", ErrMetadataParse, err)
	}
	for _, field := range []string{"title", "description", "tags"} {
		if _, ok := raw[field]; !ok {
			return Metadata{}, fmt.Errorf("%w: missing field %q", ErrMetadataParse, field)
		}
	}

	var meta Metadata
	if err := json.Unmarshal([]byte(cleaned), &meta); err != nil {
		return Metadata{}, fmt.Errorf("%w: %v", ErrMetadataParse, err)
	}
	if strings.TrimSpace(meta.Title) == "" {
		return Metadata{}, fmt.Errorf("%w: empty title", ErrMetadataParse)
	}
	if meta.Tags == nil {
		meta.Tags = []string{}
	}
	return meta, nil
}

// stripCodeFence - 先頭・末尾のコードフェンスと任意の言語タグを取り除く
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	// 先頭の言語タグ ("json" など)。改行を挟まず本文が続く一行応答もある
	i := 0
	for i < len(s) && isAlpha(s[i]) {
		i++
	}
	if i > 0 && i <= 10 {
		s = s[i:]
	}
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
