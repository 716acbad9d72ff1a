package worker

import (
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"ledger-core/internal/worker/tasks"
	"ledger-core/pkg/logger"
)

// Server runs the notification worker
type Server struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

func NewServer(addr string, password string, db int, concurrency int) *Server {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     addr,
			Password: password,
			DB:       db,
		},
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			Logger: logger.NewAsynqLogger(),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypePayoutStatusNotify, tasks.HandlePayoutStatusTask)
	mux.HandleFunc(tasks.TypeEscrowReleasedNotify, tasks.HandleEscrowReleasedTask)

	return &Server{
		server: srv,
		mux:    mux,
	}
}

// Start runs the worker without blocking
func (s *Server) Start() {
	go func() {
		if err := s.server.Run(s.mux); err != nil {
			logger.Fatal("notification worker failed", zap.Error(err))
		}
	}()
}

func (s *Server) Stop() {
	s.server.Stop()
	s.server.Shutdown()
}
