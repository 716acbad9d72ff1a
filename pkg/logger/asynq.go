package logger

import "go.uber.org/zap"

// AsynqLogger adapts zap to the asynq.Logger interface
type AsynqLogger struct {
	sugar *zap.SugaredLogger
}

func NewAsynqLogger() *AsynqLogger {
	return &AsynqLogger{sugar: Log.Sugar()}
}

func (l *AsynqLogger) Debug(args ...interface{}) { l.sugar.Debug(args...) }
func (l *AsynqLogger) Info(args ...interface{})  { l.sugar.Info(args...) }
func (l *AsynqLogger) Warn(args ...interface{})  { l.sugar.Warn(args...) }
func (l *AsynqLogger) Error(args ...interface{}) { l.sugar.Error(args...) }
func (l *AsynqLogger) Fatal(args ...interface{}) { l.sugar.Fatal(args...) }
