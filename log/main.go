package log

import (
	"github.com/vipcxj/dash.go/config"
	"github.com/vipcxj/dash.go/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func Init() {
	var logger = MustCreate(nil)
	zap.ReplaceGlobals(logger)
}

func MustCreate(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		var err error
		logger, err = Create(config.Conf().LogProfile(), config.Conf().Log.Level)
		if err != nil {
			panic(err)
		}
	}
	return logger.With(fields...)
}

// Create builds a logger for profile. An empty level keeps the profile's
// default.
func Create(profile config.LogProfile, level string) (*zap.Logger, error) {
	var cfg zap.Config
	switch profile {
	case config.LOG_PROFILE_DEVELOPMENT:
		cfg = zap.NewDevelopmentConfig()
	case config.LOG_PROFILE_PRODUCTION:
		cfg = zap.NewProductionConfig()
	default:
		return nil, errors.ThisIsImpossible().GenCallStacks()
	}
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, errors.InvalidConfig("invalid log level %s", level)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return cfg.Build()
}

func Logger() *zap.Logger {
	return zap.L()
}

func Sugar() *zap.SugaredLogger {
	return zap.S()
}
