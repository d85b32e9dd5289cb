/*
Package server implements the application's network transport layer.
It initializes the HTTP server, configures timeouts, and wires the
advisory engine together with its collaborators.
*/
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"VitalSage_V0.1/internal/advisory"
	"VitalSage_V0.1/internal/database"
	"VitalSage_V0.1/internal/geminiservice"
	"VitalSage_V0.1/internal/locale"
	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog/log"
)

// Server holds the configuration and dependencies for the HTTP service.
type Server struct {
	// port specifies the TCP port the server will listen on.
	port int

	// db provides persistence; nil when the database is not configured,
	// in which case history and durable fallback are disabled.
	db database.Service

	// engine is the advisory orchestration façade.
	engine *advisory.Orchestrator

	// governor is shared with the engine so the usage endpoint can read
	// ledger snapshots.
	governor *advisory.UsageGovernor
}

// NewServer wires the engine and returns a configured *http.Server.
// Configuration comes from environment variables with production-ready
// network timeouts.
func NewServer() *http.Server {
	// Attempt to parse port from environment; fallback to 8080 if not set or invalid.
	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err != nil || port == 0 {
		port = 8080
	}

	var (
		history  advisory.HistoryStore
		fallback advisory.FallbackStore
	)
	db, err := database.NewService()
	if err != nil {
		log.Warn().Err(err).Msg("Running without persistence; history and durable fallback disabled")
	} else {
		if err := db.Queries().EnsureSchema(context.Background()); err != nil {
			log.Warn().Err(err).Msg("Failed to ensure database schema")
		}
		history = db.Queries()
		fallback = db.Queries()
	}

	catalog := locale.NewCatalog()
	governor := advisory.NewUsageGovernor()
	engine := advisory.NewOrchestrator(advisory.Config{
		Assembler: advisory.NewContextAssembler(nil, nil),
		Resolver:  advisory.NewConflictResolver(),
		Prompts:   advisory.NewPromptBuilder(catalog),
		Cache:     advisory.NewCacheManager(fallback),
		Validator: advisory.NewResponseValidator(),
		Governor:  governor,
		Static:    advisory.NewStaticSynthesizer(catalog),
		Generator: geminiservice.NewGenerator(),
		History:   history,
	})

	newApp := &Server{
		port:     port,
		db:       db,
		engine:   engine,
		governor: governor,
	}

	// Configure the standard library http.Server with the application's router and timeouts.
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", newApp.port),
		Handler:      newApp.RegisterRoutes(), // Injected from routes.go
		IdleTimeout:  time.Minute,             // Time to wait for the next request on keep-alive connections.
		ReadTimeout:  10 * time.Second,        // Maximum duration for reading the entire request.
		WriteTimeout: 30 * time.Second,        // Maximum duration before timing out writes of the response.
	}

	return server
}

// Close releases held resources.
func (s *Server) Close() {
	if s.db != nil {
		s.db.Close()
	}
}
