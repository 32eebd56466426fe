// Package progress はジョブのステージ遷移を WebSocket で配信する。
// 元の実装のプログレスバー表示に相当する
package progress

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Update - ステージ遷移1件分の通知
type Update struct {
	JobID    string `json:"job_id"`
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
	RecordID string `json:"record_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub - ジョブID単位の購読者管理
type Hub struct {
	mutex       sync.RWMutex
	subscribers map[string]map[*subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[*subscriber]struct{}),
	}
}

// Publish - ジョブの購読者全員に通知を配信する
// 送信が詰まっているクライアントは切断する（パイプラインをブロックさせない）
func (h *Hub) Publish(update Update) {
	payload, err := json.Marshal(update)
	if err != nil {
		log.Printf("❌ [Progress] Failed to marshal update: %v", err)
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	for sub := range h.subscribers[update.JobID] {
		select {
		case sub.send <- payload:
		default:
			close(sub.send)
			delete(h.subscribers[update.JobID], sub)
		}
	}
}

func (h *Hub) addSubscriber(jobID string, sub *subscriber) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.subscribers[jobID] == nil {
		h.subscribers[jobID] = make(map[*subscriber]struct{})
	}
	h.subscribers[jobID][sub] = struct{}{}
	log.Printf("👤 [Progress] Subscriber joined job %s (total: %d)", jobID, len(h.subscribers[jobID]))
}

func (h *Hub) removeSubscriber(jobID string, sub *subscriber) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if subs, ok := h.subscribers[jobID]; ok {
		if _, exists := subs[sub]; exists {
			close(sub.send)
			delete(subs, sub)
		}
		if len(subs) == 0 {
			delete(h.subscribers, jobID)
		}
	}
}

// HandleJobSocket - GET /ws/jobs/{jobId}
func (h *Hub) HandleJobSocket(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]
	if jobID == "" {
		http.Error(w, "jobId is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("❌ [Progress] WebSocket upgrade failed: %v", err)
		return
	}

	sub := &subscriber{
		conn: conn,
		send: make(chan []byte, 16),
	}
	h.addSubscriber(jobID, sub)

	go sub.writePump()
	go h.readPump(jobID, sub)
}

// readPump - クライアントからの読み取り（切断検知のみ）
func (h *Hub) readPump(jobID string, sub *subscriber) {
	defer func() {
		h.removeSubscriber(jobID, sub)
		sub.conn.Close()
	}()

	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("⚠️  [Progress] WebSocket error: %v", err)
			}
			return
		}
	}
}

// writePump - 通知をクライアントへ書き出す
func (s *subscriber) writePump() {
	defer s.conn.Close()

	for message := range s.send {
		if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Printf("⚠️  [Progress] WebSocket write error: %v", err)
			return
		}
	}
	s.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
