package zapLogger

import (
	"io"
	"os"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	once sync.Once
	Log  = zap.NewNop().Sugar()
)

// Options controls where and how much the process logs.
type Options struct {
	// Level is a zap level name such as "debug" or "warn". Unknown names fall back to info.
	Level string
	// File is appended to in addition to stdout. Empty logs to stdout only.
	File string
}

// Init initializes the process logger and returns the opened log file
// handle, or nil when logging to stdout only.
func Init(opts Options) (*os.File, error) {
	var (
		logFile *os.File
		initErr error
	)
	once.Do(func() {
		level, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			level = zapcore.InfoLevel
		}

		writers := []zapcore.WriteSyncer{zapcore.AddSync(os.Stdout)}
		if opts.File != "" {
			logFile, initErr = os.OpenFile(opts.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
			if initErr != nil {
				return
			}
			writers = append(writers, zapcore.AddSync(logFile))
		}

		encoderCfg := zap.NewProductionEncoderConfig()
		encoderCfg.TimeKey = "timestamp"
		encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

		core := zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderCfg),
			zapcore.NewMultiWriteSyncer(writers...),
			level,
		)

		Log = zap.New(core, zap.AddCaller()).Sugar()
	})
	return logFile, initErr
}

// FiberLoggingMiddleware returns Fiber's access log middleware writing to
// stdout and, when set, logFile.
func FiberLoggingMiddleware(logFile *os.File) fiber.Handler {
	var out io.Writer = os.Stdout
	if logFile != nil {
		out = io.MultiWriter(os.Stdout, logFile)
	}
	return logger.New(logger.Config{
		Output:     out,
		Format:     "${time} | ${status} | ${method} | ${path} | ${latency}\n",
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Local",
	})
}
