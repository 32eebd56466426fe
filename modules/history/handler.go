package history

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"bento-pro-server/modules/common/utils"
)

const defaultListLimit = 50

// Handler - 履歴 API
type Handler struct {
	svc *Service
}

// ListResponse - GET /api/history 応答
type ListResponse struct {
	Success bool     `json:"success"`
	Records []Record `json:"records"`
	Total   int      `json:"total"`
	Error   string   `json:"error,omitempty"`
}

// RecordResponse - 単一レコード応答
type RecordResponse struct {
	Success bool    `json:"success"`
	Record  *Record `json:"record,omitempty"`
	Error   string  `json:"error,omitempty"`
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes - ルート登録
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/history", h.HandleList).Methods("GET", "OPTIONS")
	r.HandleFunc("/api/history/{id}", h.HandleGet).Methods("GET", "OPTIONS")
	r.HandleFunc("/api/history/{id}", h.HandleUpdate).Methods("PATCH")
	r.HandleFunc("/api/history/{id}", h.HandleDelete).Methods("DELETE")
	r.HandleFunc("/api/history/{id}/favorite", h.HandleFavorite).Methods("POST", "OPTIONS")
	r.HandleFunc("/api/history/{id}/images/{name}", h.HandleImage).Methods("GET", "OPTIONS")
	log.Println("✅ History routes registered: /api/history")
}

// HandleList - GET /api/history?q=&limit=&offset=
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	q := r.URL.Query().Get("q")
	limit := parseIntParam(r, "limit", defaultListLimit)
	offset := parseIntParam(r, "offset", 0)

	records, total, err := h.svc.List(r.Context(), q, limit, offset)
	if err != nil {
		log.Printf("❌ [History] List failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, ListResponse{Success: false, Error: "履歴の取得に失敗しました"})
		return
	}
	if records == nil {
		records = []Record{}
	}

	writeJSON(w, http.StatusOK, ListResponse{Success: true, Records: records, Total: total})
}

// HandleGet - GET /api/history/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	record, err := h.svc.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, RecordResponse{Success: true, Record: record})
}

// HandleImage - GET /api/history/{id}/images/{name}?format=webp
func (h *Handler) HandleImage(w http.ResponseWriter, r *http.Request) {
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	vars := mux.Vars(r)
	data, err := h.svc.GetImage(r.Context(), vars["id"], vars["name"])
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		h.writeError(w, err)
		return
	}

	// PNG から WebP への変換配信（帯域削減用）
	if r.URL.Query().Get("format") == "webp" {
		webpData, err := utils.ConvertPNGToWebP(data, 85)
		if err != nil {
			log.Printf("⚠️  [History] WebP conversion failed, serving PNG: %v", err)
		} else {
			w.Header().Set("Content-Type", "image/webp")
			w.Write(webpData)
			return
		}
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(data)
}

// HandleUpdate - PATCH /api/history/{id}
// title / description / tags / favorite のみ編集できる
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var patch EditPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, RecordResponse{Success: false, Error: "リクエストボディが不正です"})
		return
	}

	record, err := h.svc.Update(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, RecordResponse{Success: true, Record: record})
}

// HandleFavorite - POST /api/history/{id}/favorite
func (h *Handler) HandleFavorite(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	record, err := h.svc.ToggleFavorite(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, RecordResponse{Success: true, Record: record})
}

// HandleDelete - DELETE /api/history/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if err := h.svc.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrRecordNotFound) {
		writeJSON(w, http.StatusNotFound, RecordResponse{Success: false, Error: "レコードが見つかりません"})
		return
	}
	log.Printf("❌ [History] %v", err)
	writeJSON(w, http.StatusInternalServerError, RecordResponse{Success: false, Error: "内部エラーが発生しました"})
}

func parseIntParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
