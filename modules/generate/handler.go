package generate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"bento-pro-server/modules/catalog"
	"bento-pro-server/modules/common/model"
)

const (
	// アップロード画像の上限（multipart メモリ上限としても使用）
	maxUploadSize = 20 << 20
	// 入力画像スタッシュの保持期間。ワーカーが処理完了時に削除する
	inputTTL = 30 * time.Minute
)

// JobRepo - ジョブ行の作成と照会
type JobRepo interface {
	CreateJob(ctx context.Context, job *model.Job) error
	FetchJob(jobID string) (*model.Job, error)
}

// Handler - 生成リクエストの受付とジョブ照会
type Handler struct {
	queue Queue
	jobs  JobRepo
}

// GenerateResponse - POST /api/generate 応答
type GenerateResponse struct {
	Success  bool   `json:"success"`
	JobID    string `json:"job_id,omitempty"`
	Status   string `json:"status,omitempty"`
	RecordID string `json:"record_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

// JobResponse - GET /api/jobs/{jobId} 応答
type JobResponse struct {
	Success bool       `json:"success"`
	Job     *model.Job `json:"job,omitempty"`
	Error   string     `json:"error,omitempty"`
}

func NewHandler(queue Queue, jobs JobRepo) *Handler {
	return &Handler{queue: queue, jobs: jobs}
}

// RegisterRoutes - ルート登録
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/generate", h.HandleGenerate).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/jobs/{jobId}", h.HandleGetJob).Methods("GET", "OPTIONS")
	r.HandleFunc("/api/styles", h.HandleStyles).Methods("GET", "OPTIONS")
	log.Println("✅ Generate routes registered: /api/generate, /api/jobs/{jobId}, /api/styles")
}

// HandleGenerate - POST /api/generate
// multipart: image + 7つのスタイル軸。受理したら 202 でジョブIDを返す
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeJSON(w, http.StatusBadRequest, GenerateResponse{Success: false, Error: "multipart form の解析に失敗しました"})
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, GenerateResponse{Success: false, Error: "image ファイルが必要です"})
		return
	}
	defer file.Close()

	imageData, err := io.ReadAll(io.LimitReader(file, maxUploadSize+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, GenerateResponse{Success: false, Error: "画像の読み込みに失敗しました"})
		return
	}
	if len(imageData) == 0 || len(imageData) > maxUploadSize {
		writeJSON(w, http.StatusBadRequest, GenerateResponse{Success: false, Error: "画像サイズが不正です（最大 20MB）"})
		return
	}

	style := catalog.StyleSelection{
		Background:     catalog.Background(r.FormValue("background")),
		Angle:          catalog.Angle(r.FormValue("angle")),
		Lighting:       catalog.Lighting(r.FormValue("lighting")),
		Margin:         catalog.Margin(r.FormValue("margin")),
		Rotation:       catalog.Rotation(r.FormValue("rotation")),
		AspectRatio:    catalog.AspectRatio(r.FormValue("aspect_ratio")),
		ContainerClean: catalog.ContainerClean(r.FormValue("container_clean")),
	}
	if err := style.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, GenerateResponse{Success: false, Error: err.Error()})
		return
	}

	// 画像+スタイルのハッシュで直近の重複投入を検出する
	uploadHash := hashUpload(imageData, style)
	if recordID, found, err := h.queue.LookupGuard(r.Context(), uploadHash); err == nil && found {
		log.Printf("⚠️  [Generate] Duplicate upload detected (hash=%s, record=%s)", uploadHash[:12], recordID)
		writeJSON(w, http.StatusConflict, GenerateResponse{
			Success:  false,
			RecordID: recordID,
			Error:    "同じ画像・同じ設定の生成が完了しています",
		})
		return
	}

	jobID := uuid.NewString()
	job := &model.Job{
		JobID:          jobID,
		JobStatus:      model.StatusPending,
		UploadHash:     uploadHash,
		Background:     string(style.Background),
		Angle:          string(style.Angle),
		Lighting:       string(style.Lighting),
		Margin:         string(style.Margin),
		AspectRatio:    string(style.AspectRatio),
		Rotation:       string(style.Rotation),
		ContainerClean: string(style.ContainerClean),
	}

	// 入力画像を先にスタッシュする。ジョブ作成後に画像が無い状態を作らない
	if err := h.queue.StashInput(r.Context(), jobID, imageData, inputTTL); err != nil {
		log.Printf("❌ [Generate] Failed to stash upload: %v", err)
		writeJSON(w, http.StatusInternalServerError, GenerateResponse{Success: false, Error: "アップロードの保存に失敗しました"})
		return
	}

	if err := h.jobs.CreateJob(r.Context(), job); err != nil {
		log.Printf("❌ [Generate] Failed to create job: %v", err)
		h.queue.DropInput(r.Context(), jobID)
		writeJSON(w, http.StatusInternalServerError, GenerateResponse{Success: false, Error: "ジョブの作成に失敗しました"})
		return
	}

	if err := h.queue.Enqueue(r.Context(), jobID); err != nil {
		log.Printf("❌ [Generate] Failed to enqueue job: %v", err)
		h.queue.DropInput(r.Context(), jobID)
		writeJSON(w, http.StatusInternalServerError, GenerateResponse{Success: false, Error: "ジョブの投入に失敗しました"})
		return
	}

	log.Printf("📤 [Generate] Job %s queued (hash=%s)", jobID, uploadHash[:12])
	writeJSON(w, http.StatusAccepted, GenerateResponse{
		Success: true,
		JobID:   jobID,
		Status:  model.StatusPending,
	})
}

// HandleGetJob - GET /api/jobs/{jobId}
func (h *Handler) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	jobID := mux.Vars(r)["jobId"]
	job, err := h.jobs.FetchJob(jobID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, JobResponse{Success: false, Error: "ジョブが見つかりません"})
		return
	}

	writeJSON(w, http.StatusOK, JobResponse{Success: true, Job: job})
}

// HandleStyles - GET /api/styles
// フロントエンドが選択肢を描画するためのカタログ
func (h *Handler) HandleStyles(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"options": catalog.Options(),
	})
}

// hashUpload - 画像バイト列とスタイル選択を合わせたハッシュ
func hashUpload(imageData []byte, style catalog.StyleSelection) string {
	hasher := sha256.New()
	hasher.Write(imageData)
	hasher.Write([]byte(string(style.Background) + "|" + string(style.Angle) + "|" +
		string(style.Lighting) + "|" + string(style.Margin) + "|" + string(style.Rotation) + "|" +
		string(style.AspectRatio) + "|" + string(style.ContainerClean)))
	return hex.EncodeToString(hasher.Sum(nil))
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
