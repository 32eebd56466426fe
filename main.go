package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"bento-pro-server/modules/analyze"
	"bento-pro-server/modules/common/config"
	"bento-pro-server/modules/common/database"
	redisClient "bento-pro-server/modules/common/redis"
	"bento-pro-server/modules/common/storage"
	"bento-pro-server/modules/generate"
	"bento-pro-server/modules/history"
	"bento-pro-server/modules/progress"
)

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ヘルスチェックエンドポイント
func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "bento-pro-server",
	})
}

func main() {
	// 環境変数ロード
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	// Redis 接続
	rdb := redisClient.Connect(cfg)
	if rdb == nil {
		log.Fatalf("❌ Failed to connect to Redis")
	}

	// 各クライアント初期化
	db := database.NewClient()
	store := storage.NewClient(cfg)
	hub := progress.NewHub()

	// 生成パイプライン
	svc := generate.NewService(
		analyze.NewService(),
		generate.NewGeminiGenerator(),
		store,
		db,
		hub,
	)

	// ルーター設定
	r := mux.NewRouter()
	r.Use(enableCORS)

	r.HandleFunc("/", healthCheck).Methods("GET")
	r.HandleFunc("/health", healthCheck).Methods("GET")
	r.HandleFunc("/ws/jobs/{jobId}", hub.HandleJobSocket)

	queue := generate.NewQueue(rdb)
	generate.NewHandler(queue, db).RegisterRoutes(r)
	history.NewHandler(history.NewService(store)).RegisterRoutes(r)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	g, gctx := errgroup.WithContext(ctx)

	// HTTP サーバー
	g.Go(func() error {
		log.Printf("🚀 Bento Pro Server starting on port %s", cfg.Port)
		log.Printf("📡 Progress WebSocket: ws://localhost:%s/ws/jobs/{jobId}", cfg.Port)
		log.Printf("❤️  Health check: http://localhost:%s/health", cfg.Port)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// 生成ワーカー（バックグラウンド）
	g.Go(func() error {
		err := generate.StartWorker(gctx, queue, svc, db)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	// シャットダウン監視
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Printf("❌ Server exited with error: %v", err)
		os.Exit(1)
	}
	log.Println("👋 Server stopped")
}
