package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/yeremiapane/table-order/router"
	"github.com/yeremiapane/table-order/utils"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web front (JSON API, status stream and admin feed)",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("port", "", "listen port (PORT)")
	if err := viper.BindPFlag("PORT", serveCmd.Flags().Lookup("port")); err != nil {
		panic(err)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	e, err := newEnv()
	if err != nil {
		return err
	}
	if e.cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv, err := router.SetupRouter(e.cfg, utils.GetDB(), e.backend)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv.Start(ctx)
	defer srv.Stop()

	httpServer := &http.Server{
		Addr:              ":" + e.cfg.Port,
		Handler:           srv.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		utils.InfoLogger.Printf("Listening on port %s (backend %s)", e.cfg.Port, e.cfg.APIBaseURL)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	utils.InfoLogger.Println("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
