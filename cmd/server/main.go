package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"codesync/internal/coordinator"
	"codesync/internal/presence"
	"codesync/internal/routers"
	"codesync/internal/state"
	"codesync/internal/utils"
)

// Seams for tests.
var (
	listenAndServe = http.ListenAndServe
	exitFunc       = defaultExit
	exit           = os.Exit

	defaultPort      = "8080"
	defaultRedisAddr = "" // presence publishing disabled unless configured
)

func main() {
	if err := run(context.Background()); err != nil {
		exitFunc(err)
	}
}

func run(_ context.Context) error {
	logger := utils.NewLogger()
	defer logger.Sync()

	var pub coordinator.Publisher
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = defaultRedisAddr
	}
	if redisAddr != "" {
		pub = presence.NewPublisher(redisAddr, logger)
	}

	coord := coordinator.New(state.New(), logger, pub)

	var origins []string
	if raw := os.Getenv("ALLOWED_ORIGINS"); raw != "" {
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
	)

	r.Mount("/", routers.New(logger, coord, origins))

	r.Get("/healthz", healthHandler)

	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}
	addr := ":" + port
	log.Printf("codesync-svc listening on %s", addr)
	return listenAndServe(addr, r)
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("ok"))
}

func defaultExit(err error) {
	log.Printf("codesync-svc terminated: %v", err)
	exit(1)
}
