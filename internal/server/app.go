package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ledger-core/pkg/logger"
)

// App wraps the HTTP server with graceful shutdown. Background components
// (relay, cron, worker, consumers) register stop hooks that run after the
// HTTP listener drains.
type App struct {
	httpServer *http.Server
	onShutdown []func()
}

func NewApp(httpPort string, httpHandler *gin.Engine) *App {
	return &App{
		httpServer: &http.Server{
			Addr:    ":" + httpPort,
			Handler: httpHandler,
		},
	}
}

// OnShutdown registers a hook to run during graceful shutdown, in order
func (a *App) OnShutdown(fn func()) {
	a.onShutdown = append(a.onShutdown, fn)
}

// Run starts the server and blocks until SIGINT/SIGTERM
func (a *App) Run() {
	go func() {
		logger.Info("starting HTTP server", zap.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failure", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server forced to shutdown", zap.Error(err))
	}

	for _, fn := range a.onShutdown {
		fn()
	}
	logger.Info("server exited properly")
}
