package model

import "time"

// Job - bento_jobs テーブル構造
// 生成パイプライン1リクエスト分のライフサイクルを追跡する
type Job struct {
	JobID          string   `json:"job_id"`
	JobStatus      string   `json:"job_status"`
	UploadHash     string   `json:"upload_hash"`
	Background     string   `json:"background"`
	Angle          string   `json:"angle"`
	Lighting       string   `json:"lighting"`
	Margin         string   `json:"margin"`
	AspectRatio    string   `json:"aspect_ratio"`
	Rotation       string   `json:"rotation"`
	ContainerClean string   `json:"container_clean"`
	RecordID       *string  `json:"record_id"`
	ErrorMessage   *string  `json:"error_message"`
	Warnings       []string `json:"persistence_warnings"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// パイプラインの状態。pending から completed まで順に遷移し、
// failed はどの段階からも到達しうる吸収状態
const (
	StatusPending    = "pending"
	StatusAnalyzing  = "analyzing"
	StatusComposing  = "composing"
	StatusGenerating = "generating"
	StatusPersisting = "persisting"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// RecordMetadata - 履歴レコードの metadata.json 構造
// バイナリ（original/generated/thumbnail）以外の全フィールド
type RecordMetadata struct {
	Timestamp       string   `json:"timestamp"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Tags            []string `json:"tags"`
	Favorite        bool     `json:"favorite"`
	Background      string   `json:"background"`
	Angle           string   `json:"angle"`
	Lighting        string   `json:"lighting"`
	Margin          string   `json:"margin"`
	AspectRatio     string   `json:"aspect_ratio"`
	Rotation        string   `json:"rotation"`
	ContainerClean  string   `json:"container_clean"`
	AnalyzedContent string   `json:"analyzed_content"`
	FullPrompt      string   `json:"full_prompt"`
	DisplayPrompt   string   `json:"informational_prompt"`
	Step1Time       float64  `json:"step1_time"`
	Step3Time       float64  `json:"step3_time"`
	TotalTime       float64  `json:"total_time"`
}
