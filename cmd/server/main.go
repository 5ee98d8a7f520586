package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"github.com/manpreetbhatti/sketchsync/internal/api"
	"github.com/manpreetbhatti/sketchsync/internal/ratelimit"
	"github.com/manpreetbhatti/sketchsync/internal/store"
	"github.com/manpreetbhatti/sketchsync/internal/ws"
)

const (
	upgradesPerSecond = 5
	upgradeBurst      = 10
)

func main() {
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env")
	}

	rooms := store.New()
	hub := ws.NewHub()
	go hub.Run()

	gateway := ws.NewGateway(rooms, hub)
	ipLimiters := ratelimit.NewClientLimiters(upgradesPerSecond, upgradeBurst)
	defer ipLimiters.Stop()

	var sweeper *store.Sweeper
	if os.Getenv("EVICT_IDLE_ROOMS") == "true" {
		config := store.DefaultSweeperConfig()
		if d, err := time.ParseDuration(os.Getenv("EVICT_AFTER")); err == nil {
			config.EvictAfter = d
		}
		if d, err := time.ParseDuration(os.Getenv("EVICT_INTERVAL")); err == nil {
			config.Interval = d
		}
		sweeper = store.NewSweeper(rooms, config)
		sweeper.Start()
	}

	router := mux.NewRouter()
	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWs(hub, gateway, ipLimiters, w, r)
	})

	api.New(hub, rooms).Routes(router)

	// Serve the drawing client alongside the backend when a build is around.
	if clientDir := os.Getenv("CLIENT_DIR"); clientDir != "" {
		router.PathPrefix("/").Handler(http.FileServer(http.Dir(clientDir)))
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		if sweeper != nil {
			sweeper.Stop()
		}
		os.Exit(0)
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("sketchsync server starting on :%s", port)
	log.Println("Endpoints:")
	log.Println("  - WebSocket: /ws")
	log.Println("  - Health:    GET /health")
	log.Println("  - Stats:     GET /api/stats")
	log.Println("  - Rooms:     GET /api/rooms")
	log.Println("  - Room:      GET/DELETE /api/rooms/{id}")

	if err := http.ListenAndServe(":"+port, corsMiddleware(router)); err != nil {
		log.Fatal("ListenAndServe: ", err)
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
