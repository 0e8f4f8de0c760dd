package config

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the JSON logger used by every command
func NewLogger(level string, out io.Writer) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(out)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return logger, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	logger.SetLevel(lvl)
	return logger, nil
}
