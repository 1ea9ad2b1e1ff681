package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/acr/internal/api"
	"github.com/wonny/acr/internal/api/handlers"
	"github.com/wonny/acr/internal/composite"
	"github.com/wonny/acr/internal/study"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

피드를 한 번 적재한 뒤 메모리의 Rating Series Store로 응답합니다.

Endpoints:
  GET  /health                          - Health check
  GET  /api/stats                       - Store 통계
  GET  /api/composite?date=&ids=        - Composite 스냅샷
  GET  /api/bonds/{id}/ratings?date=    - 3사 등급 + composite
  GET  /api/bonds/{id}/history?agency=  - 등급 변경 이력
  GET  /api/bonds/{id}/timeseries       - 일별 시계열
  POST /api/transitions                 - 전이 스터디 실행
  GET  /api/transitions/runs            - 저장된 스터디 목록
  GET  /api/transitions/runs/{id}/cells - 저장된 행렬 셀

Example:
  go run ./cmd/acr api
  go run ./cmd/acr api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (default: PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== ACR API Server ===")

	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	ctx := cmd.Context()

	// 1. Ratings
	st, err := a.loadStore(ctx)
	if err != nil {
		return err
	}

	// 2. Universe and defaults
	universe, err := a.universe("", st)
	if err != nil {
		return err
	}
	reg, err := a.defaults(universe)
	if err != nil {
		return err
	}

	// 3. Persistence
	repo := a.repository()
	if repo != nil {
		if err := a.db.EnsureSchema(ctx); err != nil {
			return err
		}
	}

	// 4. Handlers
	ratingsHandler := handlers.NewRatingsHandler(st, a.calc, composite.NewSnapshotCache(a.calc, a.cache), a.log)
	transitionHandler := handlers.NewTransitionHandler(study.NewRunner(st, a.log), universe, reg, a.calc, repo, a.log)

	// 5. Router and server
	router := api.NewRouter(ratingsHandler, transitionHandler, a.log)
	server := api.New(a.cfg, a.log, router)

	go func() {
		if err := server.Start(); err != nil {
			a.log.WithError(err).Fatal("Failed to start server")
		}
	}()

	a.log.WithFields(map[string]interface{}{
		"bonds":    st.Stats().Bonds,
		"universe": universe.Count(),
		"defaults": reg.Len(),
	}).Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	a.log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.log.Info("Server stopped")
	return nil
}
