package generate

import (
	"context"
	"log"
	"time"
)

const (
	// 重複アップロードガードの保持期間
	guardTTL = 24 * time.Hour
	// BRPOP のブロック時間。シャットダウン確認のため定期的に抜ける
	popTimeout = 5 * time.Second
)

// StartWorker - キューからジョブを取り出して直列に処理する
// 生成は1件ずつ実行する（Gemini 呼び出しの多重化を避ける）
func StartWorker(ctx context.Context, queue Queue, svc *Service, jobs JobRepo) error {
	log.Printf("🚀 [Worker] Generation worker started (queue=%s)", QueueKey)

	for {
		select {
		case <-ctx.Done():
			log.Printf("🛑 [Worker] Shutting down")
			return ctx.Err()
		default:
		}

		jobID, ok, err := queue.Dequeue(ctx, popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("❌ [Worker] Queue pop failed: %v", err)
			time.Sleep(time.Second)
			continue
		}
		if !ok {
			continue
		}

		processJob(ctx, queue, svc, jobs, jobID)
	}
}

func processJob(ctx context.Context, queue Queue, svc *Service, jobs JobRepo, jobID string) {
	log.Printf("📥 [Worker] Picked up job %s", jobID)

	job, err := jobs.FetchJob(jobID)
	if err != nil {
		log.Printf("❌ [Worker] Job %s not found: %v", jobID, err)
		return
	}

	imageData, err := queue.TakeInput(ctx, jobID)
	if err != nil {
		// 入力の TTL 切れ、もしくは Redis 障害。再実行は不可能なので失敗確定
		svc.FailJob(ctx, jobID, "アップロード画像の取得に失敗しました。再度アップロードしてください。", err)
		return
	}
	defer queue.DropInput(ctx, jobID)

	recordID, err := svc.Process(ctx, job, imageData)
	if err != nil {
		// Process 内で failed への遷移と通知は済んでいる
		return
	}

	// 同一画像・同一スタイルの再投入を 24h 抑止する。失敗ジョブには張らない
	if job.UploadHash != "" {
		if err := queue.SetGuard(ctx, job.UploadHash, recordID, guardTTL); err != nil {
			log.Printf("⚠️  [Worker] Failed to set duplicate guard: %v", err)
		}
	}
}
