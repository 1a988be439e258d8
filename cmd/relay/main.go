package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/collabtext/otrelay/application"
	"github.com/collabtext/otrelay/infrastructure"
)

// Listen port, CORS origin, and log level are read from the environment,
// with CLI flags overriding. The flag default is whatever the environment
// holds.
var (
	port       string
	corsOrigin string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "relay",
	Short: "Real-time collaborative text editing relay",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVar(&port, "port", envOr("PORT", "8080"), "listen port")
	rootCmd.Flags().StringVar(&corsOrigin, "cors-origin", envOr("CORS_ORIGIN", "*"), "allowed CORS origin for the collaborator HTTP endpoints")
	rootCmd.Flags().StringVar(&logLevel, "log-level", envOr("LOG_LEVEL", "info"), "log verbosity (currently informational only; the relay never suppresses error logs)")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func run(cmd *cobra.Command, args []string) error {
	registry := application.NewRegistry()
	hub := application.NewHub(registry, log.New(os.Stdout, "[hub] ", log.LstdFlags))
	go hub.Run()

	wsServer := infrastructure.NewWSServer(hub, log.New(os.Stdout, "[ws] ", log.LstdFlags))
	httpRouter := infrastructure.NewHTTPServer(registry)

	mux := http.NewServeMux()
	mux.Handle("/ws", wsServer)
	mux.Handle("/", withCORS(corsOrigin, httpRouter))

	addr := fmt.Sprintf(":%s", port)
	log.Printf("[relay] listening on %s (cors-origin=%s, log-level=%s)", addr, corsOrigin, logLevel)
	return http.ListenAndServe(addr, mux)
}

func withCORS(origin string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		next.ServeHTTP(w, r)
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
