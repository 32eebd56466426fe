package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"log"
	"time"

	"github.com/google/uuid"

	"bento-pro-server/modules/analyze"
	"bento-pro-server/modules/catalog"
	"bento-pro-server/modules/common/model"
	"bento-pro-server/modules/common/utils"
	"bento-pro-server/modules/compose"
	"bento-pro-server/modules/progress"
)

const (
	// 解析用ワーキングコピーの長辺上限（リクエストサイズとレイテンシを抑える）
	analysisMaxSide = 1024
	// サムネイルの長辺上限
	thumbnailMaxSide = 400
	// 解析用 JPEG の品質
	analysisJPEGQuality = 85
)

// Analyzer - Vision 解析能力
type Analyzer interface {
	Analyze(ctx context.Context, jpegData []byte) (string, error)
	ExtractMetadata(ctx context.Context, analyzedContent string) (analyze.Metadata, error)
}

// BlobStore - 履歴レコードストアへの書き込み
type BlobStore interface {
	PutBlob(ctx context.Context, key string, data []byte, contentType string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// JobStore - ジョブ状態の永続化
type JobStore interface {
	UpdateJobStatus(ctx context.Context, jobID string, status string) error
	UpdateJobResult(ctx context.Context, jobID string, recordID string, warnings []string) error
	UpdateJobError(ctx context.Context, jobID string, message string) error
}

// Notifier - ステージ遷移の通知先
type Notifier interface {
	Publish(update progress.Update)
}

// Service - 生成パイプラインのオーケストレータ
// 解析 → メタデータ抽出 → プロンプト合成 → 画像生成 → 永続化 を直列実行する
type Service struct {
	analyzer  Analyzer
	generator ImageGenerator
	store     BlobStore
	jobs      JobStore
	hub       Notifier
	now       func() time.Time
}

func NewService(analyzer Analyzer, generator ImageGenerator, store BlobStore, jobs JobStore, hub Notifier) *Service {
	return &Service{
		analyzer:  analyzer,
		generator: generator,
		store:     store,
		jobs:      jobs,
		hub:       hub,
		now:       time.Now,
	}
}

// Process - 1ジョブ分のパイプライン実行
// 成功時はレコードIDを返す。失敗時はジョブを failed にして戻る
// （次のジョブを受け付けられる状態を常に保つ）
func (s *Service) Process(ctx context.Context, job *model.Job, imageData []byte) (string, error) {
	startTime := s.now()

	style := catalog.StyleSelection{
		Background:     catalog.Background(job.Background),
		Angle:          catalog.Angle(job.Angle),
		Lighting:       catalog.Lighting(job.Lighting),
		Margin:         catalog.Margin(job.Margin),
		Rotation:       catalog.Rotation(job.Rotation),
		AspectRatio:    catalog.AspectRatio(job.AspectRatio),
		ContainerClean: catalog.ContainerClean(job.ContainerClean),
	}
	if err := style.Validate(); err != nil {
		// ハンドラで検証済みのため通常到達しない
		return "", s.fail(ctx, job.JobID, "スタイル設定が不正です", err)
	}

	// Step 1: 画像解析
	s.stage(ctx, job.JobID, model.StatusAnalyzing, "Step 1/3: 容器と食材を詳細に解析中...")
	step1Start := s.now()

	original, err := utils.DecodeImage(imageData)
	if err != nil {
		return "", s.fail(ctx, job.JobID, "画像を読み込めませんでした", err)
	}

	workingCopy, err := utils.EncodeJPEG(utils.ResizeToFit(original, analysisMaxSide), analysisJPEGQuality)
	if err != nil {
		return "", s.fail(ctx, job.JobID, "画像の変換に失敗しました", err)
	}

	analyzedContent, err := s.analyzer.Analyze(ctx, workingCopy)
	if err != nil {
		return "", s.fail(ctx, job.JobID, "画像の解析に失敗しました。もう一度お試しください。", err)
	}

	// メタデータ抽出。失敗してもリクエスト全体は中断せず、
	// デフォルト値にフォールバックする
	meta, err := s.analyzer.ExtractMetadata(ctx, analyzedContent)
	if err != nil {
		log.Printf("⚠️  [Generate] Metadata extraction failed, using defaults: %v", err)
		meta = analyze.DefaultMetadata()
	}
	step1Time := s.now().Sub(step1Start).Seconds()

	// Step 2: プロンプト合成
	s.stage(ctx, job.JobID, model.StatusComposing, "Step 2/3: プロンプトを合成中...")
	prompts, err := compose.Compose(style, analyzedContent)
	if err != nil {
		return "", s.fail(ctx, job.JobID, "プロンプトの合成に失敗しました", err)
	}

	// Step 3: 画像生成
	s.stage(ctx, job.JobID, model.StatusGenerating, "Step 3/3: 元画像を参照しながらプロ写真に加工中...")
	step3Start := s.now()

	ratio, _ := style.AspectRatio.Ratio()
	generatedData, err := s.generator.Generate(ctx, prompts.Generation, workingCopy, ratio)
	if err != nil {
		return "", s.fail(ctx, job.JobID, "画像加工に失敗しました。もう一度お試しください。", err)
	}

	step3Time := s.now().Sub(step3Start).Seconds()
	totalTime := s.now().Sub(startTime).Seconds()

	// 永続化
	s.stage(ctx, job.JobID, model.StatusPersisting, "生成結果を保存中...")
	recordID := s.mintRecordID(ctx)

	warnings := s.persistRecord(ctx, recordID, original, generatedData, model.RecordMetadata{
		Timestamp:       recordID,
		Title:           meta.Title,
		Description:     meta.Description,
		Tags:            meta.Tags,
		Favorite:        false,
		Background:      job.Background,
		Angle:           job.Angle,
		Lighting:        job.Lighting,
		Margin:          job.Margin,
		AspectRatio:     job.AspectRatio,
		Rotation:        job.Rotation,
		ContainerClean:  job.ContainerClean,
		AnalyzedContent: analyzedContent,
		FullPrompt:      prompts.Generation,
		DisplayPrompt:   prompts.Informational,
		Step1Time:       step1Time,
		Step3Time:       step3Time,
		TotalTime:       totalTime,
	})

	if err := s.jobs.UpdateJobResult(ctx, job.JobID, recordID, warnings); err != nil {
		log.Printf("⚠️  [Generate] Failed to update job result: %v", err)
	}
	s.hub.Publish(progress.Update{
		JobID:    job.JobID,
		Status:   model.StatusCompleted,
		Message:  fmt.Sprintf("加工完了 | 解析: %.2f秒 | 加工: %.2f秒 | 合計: %.2f秒", step1Time, step3Time, totalTime),
		RecordID: recordID,
	})

	log.Printf("🎉 [Generate] Job %s completed: record=%s (total %.2fs)", job.JobID, recordID, totalTime)
	return recordID, nil
}

// mintRecordID - タイムスタンプID（YYYY-MM-DD_HH-MM-SS）を生成成功時点で発番する
// 同一秒内に別の生成が完了していた場合は短いトークンを付けて一意性を保証する
func (s *Service) mintRecordID(ctx context.Context) string {
	id := s.now().Format("2006-01-02_15-04-05")

	exists, err := s.store.Exists(ctx, id+"/metadata.json")
	if err != nil {
		log.Printf("⚠️  [Generate] Record ID collision check failed: %v", err)
		return id
	}
	if exists {
		suffix := uuid.NewString()[:8]
		log.Printf("⚠️  [Generate] Record ID collision for %s, appending suffix %s", id, suffix)
		id = id + "-" + suffix
	}
	return id
}

// persistRecord - 4オブジェクトをベストエフォートで書き込む
// 各書き込みは独立しており、失敗してもロールバックしない
// （非トランザクショナル。失敗は警告として報告する）
func (s *Service) persistRecord(ctx context.Context, recordID string, original image.Image, generatedData []byte, meta model.RecordMetadata) []string {
	var warnings []string

	put := func(key string, data []byte, contentType string) {
		if err := s.store.PutBlob(ctx, recordID+"/"+key, data, contentType); err != nil {
			log.Printf("❌ [Generate] Failed to persist %s/%s: %v", recordID, key, err)
			warnings = append(warnings, fmt.Sprintf("%s: %v", key, err))
		}
	}

	// 元画像（向き補正済みフルサイズ）
	if originalPNG, err := utils.EncodePNG(original); err != nil {
		warnings = append(warnings, fmt.Sprintf("original.png: %v", err))
	} else {
		put("original.png", originalPNG, "image/png")
	}

	// 生成画像。デコードできる場合は PNG に正規化して保存する
	generatedImg, err := utils.DecodeImage(generatedData)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("generated.png: %v", err))
	} else {
		if generatedPNG, encErr := utils.EncodePNG(generatedImg); encErr != nil {
			warnings = append(warnings, fmt.Sprintf("generated.png: %v", encErr))
		} else {
			put("generated.png", generatedPNG, "image/png")
		}

		// サムネイル（長辺 400px）
		if thumbPNG, thumbErr := utils.EncodePNG(utils.ResizeToFit(generatedImg, thumbnailMaxSide)); thumbErr != nil {
			warnings = append(warnings, fmt.Sprintf("thumbnail.png: %v", thumbErr))
		} else {
			put("thumbnail.png", thumbPNG, "image/png")
		}
	}

	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("metadata.json: %v", err))
	} else {
		put("metadata.json", metaJSON, "application/json")
	}

	return warnings
}

// stage - ジョブ状態を更新して購読者に通知する
func (s *Service) stage(ctx context.Context, jobID string, status string, message string) {
	if err := s.jobs.UpdateJobStatus(ctx, jobID, status); err != nil {
		log.Printf("⚠️  [Generate] Failed to update job status: %v", err)
	}
	s.hub.Publish(progress.Update{JobID: jobID, Status: status, Message: message})
}

// fail - ジョブを失敗状態にしてユーザー向けメッセージを残す
func (s *Service) fail(ctx context.Context, jobID string, userMessage string, cause error) error {
	log.Printf("❌ [Generate] Job %s failed: %v", jobID, cause)

	if err := s.jobs.UpdateJobError(ctx, jobID, userMessage); err != nil {
		log.Printf("⚠️  [Generate] Failed to record job error: %v", err)
	}
	s.hub.Publish(progress.Update{
		JobID:  jobID,
		Status: model.StatusFailed,
		Error:  userMessage,
	})
	return cause
}

// FailJob - パイプライン開始前の失敗（入力消失など）をジョブに反映する
func (s *Service) FailJob(ctx context.Context, jobID string, userMessage string, cause error) {
	_ = s.fail(ctx, jobID, userMessage, cause)
}
