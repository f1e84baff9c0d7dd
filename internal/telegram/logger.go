// ABOUTME: Bridges telego's printf-style logger onto log/slog

package telegram

import (
	"fmt"
	"log/slog"
	"strings"
)

// slogLogger implements telego.Logger.
type slogLogger struct {
	logger *slog.Logger
	token  string
}

func (l slogLogger) Debugf(format string, args ...any) {
	l.logger.Debug(l.redact(fmt.Sprintf(format, args...)))
}

func (l slogLogger) Errorf(format string, args ...any) {
	l.logger.Error(l.redact(fmt.Sprintf(format, args...)))
}

// redact strips the bot token, which telego includes in request URLs.
func (l slogLogger) redact(msg string) string {
	msg = strings.TrimSpace(msg)
	if l.token == "" {
		return msg
	}
	return strings.ReplaceAll(msg, l.token, "BOT_TOKEN")
}
