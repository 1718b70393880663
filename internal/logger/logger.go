// internal/logger/logger.go
package logger

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"pocabinder/internal/config"
)

// New builds the process logger writing to stdout. Unknown levels fall back
// to info and any encoding other than json is console.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	return build(cfg, zapcore.Lock(os.Stdout), zapcore.Lock(os.Stderr)), nil
}

func build(cfg config.LogConfig, out, errOut zapcore.WriteSyncer) *zap.Logger {
	level := zap.NewAtomicLevelAt(parseLevel(cfg.Level))

	var core zapcore.Core = zapcore.NewCore(encoder(cfg), out, level)
	if cfg.Sampling {
		core = zapcore.NewSamplerWithOptions(core, time.Second, 100, 100)
	}

	opts := []zap.Option{zap.ErrorOutput(errOut)}
	if !cfg.DisableCaller {
		opts = append(opts, zap.AddCaller())
	}
	if !cfg.DisableStacktrace {
		traceAt := zapcore.ErrorLevel
		if cfg.Development {
			traceAt = zapcore.WarnLevel
		}
		opts = append(opts, zap.AddStacktrace(traceAt))
	}
	if cfg.Development {
		opts = append(opts, zap.Development())
	}
	return zap.New(core, opts...)
}

func parseLevel(raw string) zapcore.Level {
	level, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}

func encoder(cfg config.LogConfig) zapcore.Encoder {
	if strings.EqualFold(cfg.Encoding, "json") {
		ec := zap.NewProductionEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		ec.EncodeDuration = zapcore.MillisDurationEncoder
		return zapcore.NewJSONEncoder(ec)
	}
	ec := zap.NewDevelopmentEncoderConfig()
	if cfg.Development {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return zapcore.NewConsoleEncoder(ec)
}

// Requests logs one line per request after it completes. It reads the request
// id set by middleware.RequestID, so it must be mounted after it.
func Requests(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				fields := []zap.Field{
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", status),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
				}
				if status >= http.StatusInternalServerError {
					log.Warn("request", fields...)
					return
				}
				log.Info("request", fields...)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
