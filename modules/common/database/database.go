package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/supabase-community/supabase-go"

	"bento-pro-server/modules/common/config"
	"bento-pro-server/modules/common/model"
)

type Client struct {
	supabase *supabase.Client
}

// NewClient - Database クライアント生成
func NewClient() *Client {
	cfg := config.GetConfig()

	supabaseClient, err := supabase.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, &supabase.ClientOptions{})
	if err != nil {
		log.Printf("❌ Failed to create Supabase client: %v", err)
		return nil
	}

	return &Client{
		supabase: supabaseClient,
	}
}

// CreateJob - bento_jobs にジョブレコードを作成
func (c *Client) CreateJob(ctx context.Context, job *model.Job) error {
	insertData := map[string]interface{}{
		"job_id":          job.JobID,
		"job_status":      job.JobStatus,
		"upload_hash":     job.UploadHash,
		"background":      job.Background,
		"angle":           job.Angle,
		"lighting":        job.Lighting,
		"margin":          job.Margin,
		"aspect_ratio":    job.AspectRatio,
		"rotation":        job.Rotation,
		"container_clean": job.ContainerClean,
	}

	_, _, err := c.supabase.From("bento_jobs").
		Insert(insertData, false, "", "", "").
		Execute()

	if err != nil {
		return fmt.Errorf("failed to insert job: %w", err)
	}

	log.Printf("💾 Job created: %s", job.JobID)
	return nil
}

// FetchJob - ジョブデータ取得
func (c *Client) FetchJob(jobID string) (*model.Job, error) {
	var jobs []model.Job

	data, _, err := c.supabase.From("bento_jobs").
		Select("*", "exact", false).
		Eq("job_id", jobID).
		Execute()

	if err != nil {
		return nil, fmt.Errorf("failed to query bento_jobs: %w", err)
	}

	if err := json.Unmarshal(data, &jobs); err != nil {
		return nil, fmt.Errorf("failed to parse job response: %w", err)
	}

	if len(jobs) == 0 {
		return nil, fmt.Errorf("job not found: %s", jobID)
	}

	return &jobs[0], nil
}

// UpdateJobStatus - ジョブ状態の更新
func (c *Client) UpdateJobStatus(ctx context.Context, jobID string, status string) error {
	log.Printf("📝 Updating job %s status to: %s", jobID, status)

	updateData := map[string]interface{}{
		"job_status": status,
		"updated_at": "now()",
	}

	if status == model.StatusAnalyzing {
		updateData["started_at"] = "now()"
	} else if status == model.StatusCompleted || status == model.StatusFailed {
		updateData["completed_at"] = "now()"
	}

	_, _, err := c.supabase.From("bento_jobs").
		Update(updateData, "", "").
		Eq("job_id", jobID).
		Execute()

	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	return nil
}

// UpdateJobResult - 成功時の結果反映（レコードIDと書き込み警告）
func (c *Client) UpdateJobResult(ctx context.Context, jobID string, recordID string, warnings []string) error {
	updateData := map[string]interface{}{
		"job_status":   model.StatusCompleted,
		"record_id":    recordID,
		"updated_at":   "now()",
		"completed_at": "now()",
	}
	if len(warnings) > 0 {
		updateData["persistence_warnings"] = warnings
	}

	_, _, err := c.supabase.From("bento_jobs").
		Update(updateData, "", "").
		Eq("job_id", jobID).
		Execute()

	if err != nil {
		return fmt.Errorf("failed to update job result: %w", err)
	}

	log.Printf("✅ Job %s completed with record: %s", jobID, recordID)
	return nil
}

// UpdateJobError - 失敗時のエラーメッセージ反映
func (c *Client) UpdateJobError(ctx context.Context, jobID string, message string) error {
	updateData := map[string]interface{}{
		"job_status":    model.StatusFailed,
		"error_message": message,
		"updated_at":    "now()",
		"completed_at":  "now()",
	}

	_, _, err := c.supabase.From("bento_jobs").
		Update(updateData, "", "").
		Eq("job_id", jobID).
		Execute()

	if err != nil {
		return fmt.Errorf("failed to update job error: %w", err)
	}
	return nil
}
