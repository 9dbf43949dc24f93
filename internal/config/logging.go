package config

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// Logger builds a logrus logger at the configured level writing to out.
// Level names are case-insensitive (INFO, debug, ...).
func (l LoggingConfig) Logger(out io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(l.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid logging level %q: %w", l.Level, err)
	}

	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		FullTimestamp:   true,
	})
	return logger, nil
}
