package logging

import (
	"context"
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
)

type ctxKey struct{}

// Setup configures the standard logrus logger.
func Setup(level, format string, out io.Writer) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("logging.Setup: %w", err)
	}
	log.SetLevel(lvl)

	switch strings.ToLower(format) {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "text", "":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("logging.Setup: unknown log format %q", format)
	}

	if out != nil {
		log.SetOutput(out)
	}
	return nil
}

func WithLogger(ctx context.Context, entry *log.Entry) context.Context {
	return context.WithValue(ctx, ctxKey{}, entry)
}

// FromContext returns the request scoped entry, falling back to the standard logger.
func FromContext(ctx context.Context) *log.Entry {
	if ctx != nil {
		if entry, ok := ctx.Value(ctxKey{}).(*log.Entry); ok && entry != nil {
			return entry
		}
	}
	return log.NewEntry(log.StandardLogger())
}
