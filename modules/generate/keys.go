package generate

// Redis キー構成
const (
	// QueueKey - ジョブキュー（LPUSH / BRPOP）
	QueueKey = "bento:jobs:queue"
)

// InputKey - キュー滞在中のアップロード画像の一時保管キー
func InputKey(jobID string) string {
	return "bento:job:input:" + jobID
}

// GuardKey - 同一アップロードの二重送信ガード
// 値は完了済みレコードID。アップロード内容の SHA-256 でキー化する
func GuardKey(uploadHash string) string {
	return "bento:upload:" + uploadHash
}
