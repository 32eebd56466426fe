package generate

import (
	"context"
	"errors"
	"fmt"
	"log"

	"google.golang.org/genai"

	"bento-pro-server/modules/common/config"
	"bento-pro-server/modules/common/gemini"
)

// ErrNoImage - 生成呼び出しが利用可能な画像候補を返さなかった
var ErrNoImage = errors.New("generate: no image data in response")

// ImageGenerator - 指示文と参照画像から画像を生成する能力
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string, referenceJPEG []byte, aspectRatio string) ([]byte, error)
}

type geminiGenerator struct{}

// NewGeminiGenerator - Gemini 画像生成クライアント
func NewGeminiGenerator() ImageGenerator {
	return &geminiGenerator{}
}

// Generate - 参照画像を見ながらスタイルのみを変換する画像編集呼び出し
func (g *geminiGenerator) Generate(ctx context.Context, prompt string, referenceJPEG []byte, aspectRatio string) ([]byte, error) {
	cfg := config.GetConfig()

	ctx, cancel := context.WithTimeout(ctx, cfg.GeminiCallTimeout)
	defer cancel()

	log.Printf("🎨 [Generate] Calling %s (prompt: %d chars, reference: %d bytes, ratio: %s)",
		cfg.GeminiImageModel, len(prompt), len(referenceJPEG), aspectRatio)

	content := &genai.Content{
		Parts: []*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromBytes(referenceJPEG, "image/jpeg"),
		},
	}

	result, err := gemini.GenerateContentWithRetry(
		ctx,
		cfg.GeminiAPIKeys,
		cfg.GeminiImageModel,
		[]*genai.Content{content},
		&genai.GenerateContentConfig{
			ImageConfig: &genai.ImageConfig{
				AspectRatio: aspectRatio,
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("image generation failed: %w", err)
	}

	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				log.Printf("✅ [Generate] Received image: %d bytes", len(part.InlineData.Data))
				return part.InlineData.Data, nil
			}
		}
	}

	return nil, ErrNoImage
}
