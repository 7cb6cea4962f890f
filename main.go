package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/cors"
	"github.com/spf13/cobra"

	"github.com/voicetracker/voicetracker/client"
	"github.com/voicetracker/voicetracker/database"
	"github.com/voicetracker/voicetracker/gateway"
	"github.com/voicetracker/voicetracker/handlers"
	"github.com/voicetracker/voicetracker/services"
	"github.com/voicetracker/voicetracker/tui"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "voicetracker",
		Short:        "Voice-driven task tracker",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd(), boardCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the task tracker HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig()
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}
}

func boardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "board",
		Short: "Open the terminal kanban board against a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig()
			if err != nil {
				return err
			}
			api := client.NewHTTPClient(cfg.ServerURL, cfg.RequestTimeout)
			syncer := client.NewSyncer(api, client.NewContainer())
			return tui.Run(syncer)
		},
	}
}

func runServer(cfg *Config) error {
	// Initialize database
	db, err := database.InitDB(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	taskService := database.NewTaskService(db)

	// Initialize WebSocket hub for the change feed
	hub := services.NewHub()
	go hub.Run()

	// Extraction gateway with the Gemini adapter
	gemini := gateway.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.RequestTimeout)
	extractor := gateway.NewGateway(gemini)

	// Initialize handlers
	taskHandler := handlers.NewTaskHandler(taskService, extractor, hub)
	wsHandler := handlers.NewWSHandler(hub)

	// Setup router
	r := mux.NewRouter()

	r.HandleFunc("/api/tasks", taskHandler.GetTasks).Methods("GET")
	r.HandleFunc("/api/tasks", taskHandler.CreateTask).Methods("POST")
	r.HandleFunc("/api/tasks/{id}", taskHandler.UpdateTask).Methods("PUT")
	r.HandleFunc("/api/tasks/{id}", taskHandler.DeleteTask).Methods("DELETE")
	r.HandleFunc("/api/parse", taskHandler.ParseVoiceInput).Methods("POST")

	// WebSocket route for board change feed
	r.HandleFunc("/api/ws", wsHandler.HandleWebSocket)

	// Static file server for frontend
	r.PathPrefix("/").Handler(http.FileServer(http.Dir(cfg.StaticDir)))

	// Setup CORS
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"}, // In production, change to your domain
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      c.Handler(r),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("Server starting on port %s", cfg.Port)
	return server.ListenAndServe()
}
