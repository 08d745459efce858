package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/extractor"
	"github.com/kozaktomas/face-attendance/internal/logging"
	"github.com/kozaktomas/face-attendance/internal/web"
	"github.com/kozaktomas/face-attendance/internal/web/handlers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the attendance HTTP API.
Kiosk endpoints (recognize, check-in, reports) are public; identity
management requires WEB_API_TOKEN as a bearer token when it is set.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
}

// retryExtractor keeps probing the embedding server until it answers or ctx ends.
func retryExtractor(ctx context.Context, client *extractor.Client, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for !client.Ready() {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			if err := client.Initialize(probeCtx); err != nil {
				logging.Default().Debug("Embedding server still unavailable", "error", err)
			}
			cancel()
		}
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if port := mustGetInt(cmd, "port"); port > 0 {
		a.cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		a.cfg.Web.Host = host
	}
	if a.cfg.Web.APIToken == "" {
		logging.Default().Warn("WEB_API_TOKEN is not set, identity management endpoints are open")
	}

	if !a.extractor.Ready() {
		go retryExtractor(ctx, a.extractor, 15*time.Second)
	}

	var readiness handlers.Readiness = a.extractor
	server := web.NewServer(a.cfg, web.Services{
		Recognition: a.recognition,
		Attendance:  a.attendance,
		Enrollment:  a.enrollment,
		DB:          a.pool,
		Extractor:   readiness,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Face Attendance API on http://%s:%d\n", a.cfg.Web.Host, a.cfg.Web.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
