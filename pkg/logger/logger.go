package logger

import (
	"fmt"

	"github.com/accesscore/accessd/internal/pkg/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger interface {
	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Error(args ...interface{})
	Errorf(template string, args ...interface{})
	Fatalf(template string, args ...interface{})
}

type ZapLogger struct {
	*zap.SugaredLogger
}

func New(cfg config.Logger) (ZapLogger, error) {
	lvl, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return ZapLogger{}, fmt.Errorf("parse level error: %w", err)
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(lvl)

	if len(cfg.Output) != 0 {
		zapCfg.OutputPaths = cfg.Output
	}

	if len(cfg.ErrOutput) != 0 {
		zapCfg.ErrorOutputPaths = cfg.ErrOutput
	}

	lg, err := zapCfg.Build()
	if err != nil {
		return ZapLogger{}, fmt.Errorf("build logger error: %w", err)
	}

	return ZapLogger{lg.Sugar()}, nil
}
