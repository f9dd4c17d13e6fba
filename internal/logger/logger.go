package logger

import (
	"context"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"fireproof/internal/common"
)

// Logger wraps logrus for structured logging with context support
type Logger struct {
	*logrus.Entry
}

// Setup configures the standard logrus logger from the level and format settings.
// An empty format picks JSON in production and text elsewhere.
func Setup(level, format, environment string) {
	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
	logrus.SetOutput(os.Stdout)

	if format == "" {
		format = "text"
		if environment == "production" {
			format = "json"
		}
	}

	if format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// New creates a new logger
func New() *Logger {
	return &Logger{
		Entry: logrus.NewEntry(logrus.StandardLogger()),
	}
}

// FromContext returns a logger carrying the request, tenant and user identifiers
// found in ctx.
func FromContext(ctx context.Context) *Logger {
	l := New()
	if ctx == nil {
		return l
	}

	fields := logrus.Fields{}
	if requestID, ok := ctx.Value(common.RequestIDKey).(string); ok && requestID != "" {
		fields["request_id"] = requestID
	}
	if tenantID, ok := common.GetTenantIDFromContext(ctx); ok {
		fields["tenant_id"] = tenantID.String()
	}
	if userID, ok := common.GetUserIDFromContext(ctx); ok {
		fields["user_id"] = userID.String()
	}

	if len(fields) > 0 {
		l.Entry = l.Entry.WithFields(fields)
	}
	return l
}

// WithField adds a field to the logger
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{
		Entry: l.Entry.WithField(key, value),
	}
}

// WithFields adds multiple fields to the logger
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return &Logger{
		Entry: l.Entry.WithFields(fields),
	}
}

// WithError attaches err to the logger
func (l *Logger) WithError(err error) *Logger {
	return &Logger{
		Entry: l.Entry.WithError(err),
	}
}
