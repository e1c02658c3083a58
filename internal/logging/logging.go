// Package logging wires up the engine's zap logger and bridges it into
// btclog.Logger for subpackages that follow the btcsuite UseLogger
// convention.
package logging

import (
	"github.com/btcsuite/btclog"
	"go.uber.org/zap"
)

// New builds the process-wide structured logger. Foreground mode logs to
// stderr at debug level; daemon mode logs JSON to stderr at info level.
// Neither mode writes a log file.
func New(foreground bool) (*zap.Logger, error) {
	if foreground {
		cfg := zap.NewDevelopmentConfig()
		return cfg.Build()
	}
	cfg := zap.NewProductionConfig()
	return cfg.Build()
}

// zapBackend adapts *zap.SugaredLogger to btclog.Logger so packages that
// follow the btcsuite convention of a package-level, swappable logger can
// be pointed at our zap sink instead of maintaining their own.
type zapBackend struct {
	s *zap.SugaredLogger
}

// NewBtcLogger returns a btclog.Logger backed by the given zap logger.
func NewBtcLogger(l *zap.Logger, subsystem string) btclog.Logger {
	return &zapBackend{s: l.Sugar().Named(subsystem)}
}

func (b *zapBackend) Tracef(format string, params ...interface{})   { b.s.Debugf(format, params...) }
func (b *zapBackend) Debugf(format string, params ...interface{})   { b.s.Debugf(format, params...) }
func (b *zapBackend) Infof(format string, params ...interface{})    { b.s.Infof(format, params...) }
func (b *zapBackend) Warnf(format string, params ...interface{})    { b.s.Warnf(format, params...) }
func (b *zapBackend) Errorf(format string, params ...interface{})   { b.s.Errorf(format, params...) }
func (b *zapBackend) Criticalf(format string, params ...interface{}) { b.s.Errorf(format, params...) }

func (b *zapBackend) Trace(args ...interface{})    { b.s.Debug(args...) }
func (b *zapBackend) Debug(args ...interface{})    { b.s.Debug(args...) }
func (b *zapBackend) Info(args ...interface{})     { b.s.Info(args...) }
func (b *zapBackend) Warn(args ...interface{})     { b.s.Warn(args...) }
func (b *zapBackend) Error(args ...interface{})    { b.s.Error(args...) }
func (b *zapBackend) Critical(args ...interface{}) { b.s.Error(args...) }

func (b *zapBackend) Level() btclog.Level          { return btclog.LevelDebug }
func (b *zapBackend) SetLevel(_ btclog.Level)      {}
