package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/stwalsh4118/groundwork/internal/handlers"
	"github.com/stwalsh4118/groundwork/internal/middleware"
	"github.com/stwalsh4118/groundwork/internal/report"
	"github.com/stwalsh4118/groundwork/internal/repository"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the validation report API",
		Long:  "Start an HTTP server exposing health checks, the post-load validation report, and table counts for operators.",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	if a.cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Middleware order: RequestID -> Logger -> Recovery -> CORS
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(a.log))
	router.Use(middleware.Recovery(a.log))
	router.Use(middleware.CORS(a.cfg.CORS.Origins))

	stats := repository.NewStatsRepository(a.db)
	validator := report.NewValidator(stats, a.log)

	healthHandler := handlers.NewHealthHandler(a.db, a.cfg.Server.Env)
	reportHandler := handlers.NewReportHandler(validator, stats)

	router.GET("/health", healthHandler.Health)
	router.GET("/health/ready", healthHandler.Ready)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/report", reportHandler.Report)
		v1.GET("/tables", reportHandler.Tables)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", a.cfg.Server.Port),
		Handler: router,
	}

	go func() {
		a.log.Info("Report API listening", map[string]interface{}{
			"addr": srv.Addr,
			"env":  a.cfg.Server.Env,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.Fatal("Server failed to start", err, nil)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	a.log.Info("Shutting down report API...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("Server forced to shutdown", err, map[string]interface{}{
			"timeout": shutdownTimeout.String(),
		})
	}

	a.log.Info("Report API exited", nil)
	return nil
}
