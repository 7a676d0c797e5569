package mailer

import (
	"context"

	"go.uber.org/zap"

	"github.com/ndmitriev/auth-service/internal/infra/logger"
)

// LoggingMailer records outbound email as structured log entries instead of
// delivering it. Used in development and tests; message bodies are not
// logged because reset links are credentials.
type LoggingMailer struct {
	logger *zap.Logger
}

// NewLoggingMailer constructs a mailer backed by structured logging.
func NewLoggingMailer(log *zap.Logger) *LoggingMailer {
	if log == nil {
		log = zap.NewNop()
	}
	return &LoggingMailer{logger: log}
}

// Send logs the delivery instead of performing it.
func (m *LoggingMailer) Send(_ context.Context, toEmail, subject, bodyText, _ string) error {
	m.logger.Info("email delivery skipped (logging mailer)",
		zap.String("to", logger.MaskEmail(toEmail)),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(bodyText)),
	)
	return nil
}
