package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"hexarena/logic"
	"hexarena/network"
	"hexarena/storage"
)

const defaultRoom = "alpha"

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func loadConfig(path string, logger *log.Logger) logic.GameConfig {
	cfg, err := logic.LoadConfig(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Printf("No config at %s, using defaults", path)
		return cfg
	}
	if err != nil {
		logger.Fatalf("Error loading config: %v", err)
	}
	return cfg
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write json: %v", err)
	}
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Error loading .env: %v", err)
	}

	addr := flag.String("addr", envOr("HEXARENA_ADDR", ":8080"), "listen address")
	configPath := flag.String("config", envOr("HEXARENA_CONFIG", "config.yaml"), "config file (yaml or json)")
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	// 1. Load Config
	cfg := loadConfig(*configPath, logger)

	// 2. Storage
	opts := network.RoomOptions{}
	var store *storage.Store
	if cfg.Storage.Path != "" {
		s, err := storage.Open(cfg.Storage.Driver, cfg.Storage.Path, log.New(os.Stdout, "[storage] ", log.LstdFlags))
		if err != nil {
			logger.Fatalf("Error opening storage: %v", err)
		}
		store = s
		opts.Recorder = store
	}
	if cfg.Journal.Enabled {
		opts.JournalDir = cfg.Journal.Dir
	}

	// 3. Rooms
	manager := network.NewManager(cfg, opts, logger)
	if _, err := manager.GetOrCreate(defaultRoom); err != nil {
		logger.Fatalf("Error creating room: %v", err)
	}

	// 4. Router Setup
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("room")
		if id == "" {
			id = defaultRoom
		}
		if !network.ValidRoomID(id) {
			http.Error(w, "bad room id", http.StatusBadRequest)
			return
		}
		room, err := manager.GetOrCreate(id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		network.ServeWs(room, w, r)
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.HandleFunc("/rooms", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, manager.ListRooms())
	})

	if store != nil {
		mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
			name := r.URL.Query().Get("name")
			if name == "" {
				http.Error(w, "name required", http.StatusBadRequest)
				return
			}
			st, ok, err := store.Player(name)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			if !ok {
				http.NotFound(w, r)
				return
			}
			writeJSON(w, st)
		})
	}

	// 5. Start Server
	srv := &http.Server{Addr: *addr, Handler: mux}
	go func() {
		logger.Printf("Hexarena server listening on %s (tick %d Hz, codec %s)", *addr, cfg.Server.TickRateHz, cfg.Transport.Codec)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("ListenAndServe:", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Println("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("shutdown: %v", err)
	}
	manager.Close()
	if store != nil {
		if err := store.Close(); err != nil {
			logger.Printf("storage close: %v", err)
		}
	}
}
