package analyze

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"google.golang.org/genai"

	"bento-pro-server/modules/common/config"
	"bento-pro-server/modules/common/gemini"
)

// ErrEmptyAnalysis - 解析呼び出しが空テキストを返した
var ErrEmptyAnalysis = errors.New("analyze: empty analysis result")

// Service - Vision 解析サービス
type Service struct{}

func NewService() *Service {
	return &Service{}
}

// Analyze - 弁当画像を解析して内容説明文を返す
// jpegData は向き補正・縮小済みのワーキングコピー（長辺 1024px 以下）
// 容器の素材・形状や食材ごとの配置を列挙させるため thinking budget を高めに設定する
func (s *Service) Analyze(ctx context.Context, jpegData []byte) (string, error) {
	cfg := config.GetConfig()

	ctx, cancel := context.WithTimeout(ctx, cfg.GeminiCallTimeout)
	defer cancel()

	content := &genai.Content{
		Parts: []*genai.Part{
			genai.NewPartFromText(visionPrompt),
			genai.NewPartFromBytes(jpegData, "image/jpeg"),
		},
	}

	log.Printf("🔍 [Analyze] Calling vision model %s (%d bytes image)", cfg.GeminiVisionModel, len(jpegData))

	result, err := gemini.GenerateContentWithRetry(
		ctx,
		cfg.GeminiAPIKeys,
		cfg.GeminiVisionModel,
		[]*genai.Content{content},
		&genai.GenerateContentConfig{
			ThinkingConfig: &genai.ThinkingConfig{
				ThinkingBudget: int32Ptr(32768),
			},
		},
	)
	if err != nil {
		return "", fmt.Errorf("vision analysis failed: %w", err)
	}

	text := strings.TrimSpace(extractText(result))
	if text == "" {
		return "", ErrEmptyAnalysis
	}

	log.Printf("✅ [Analyze] Analysis complete (%d chars)", len(text))
	return text, nil
}

// ExtractMetadata - 解析テキストからタイトル・説明・タグを抽出する
// 失敗は ErrMetadataParse または呼び出しエラー。呼び出し側でフォールバック可能
func (s *Service) ExtractMetadata(ctx context.Context, analyzedContent string) (Metadata, error) {
	cfg := config.GetConfig()

	ctx, cancel := context.WithTimeout(ctx, cfg.GeminiCallTimeout)
	defer cancel()

	content := &genai.Content{
		Parts: []*genai.Part{
			genai.NewPartFromText(metadataPromptHeader + analyzedContent),
		},
	}

	log.Printf("🏷️  [Analyze] Calling metadata model %s", cfg.GeminiTextModel)

	result, err := gemini.GenerateContentWithRetry(
		ctx,
		cfg.GeminiAPIKeys,
		cfg.GeminiTextModel,
		[]*genai.Content{content},
		nil,
	)
	if err != nil {
		return Metadata{}, fmt.Errorf("metadata extraction failed: %w", err)
	}

	meta, err := ParseMetadataResponse(extractText(result))
	if err != nil {
		return Metadata{}, err
	}

	log.Printf("✅ [Analyze] Metadata extracted: %s (%d tags)", meta.Title, len(meta.Tags))
	return meta, nil
}

// extractText - 応答の全テキストパートを連結する
func extractText(result *genai.GenerateContentResponse) string {
	if result == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				builder.WriteString(part.Text)
			}
		}
	}
	return builder.String()
}

func int32Ptr(v int32) *int32 {
	return &v
}
