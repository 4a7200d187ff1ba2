package core

import (
	"io"
	"log/slog"
	"os"
	"path"

	"github.com/encodeous/tint"
	slogmulti "github.com/samber/slog-multi"
)

type LogOptions struct {
	Console      io.Writer
	ConsoleLevel slog.Level
	FilePath     string
	FileLevel    slog.Level
}

// NewLogger builds the console handler and, when a log file is configured,
// fans records out to a text handler appending to it. The returned closer
// closes the log file.
func NewLogger(opts LogOptions) (*slog.Logger, io.Closer, error) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	handlers := make([]slog.Handler, 0)
	handlers = append(handlers,
		tint.NewHandler(console, &tint.Options{
			Level:      opts.ConsoleLevel,
			AddSource:  false,
			TimeFormat: "15:04:05",
		}))

	var closer io.Closer = nopCloser{}
	if opts.FilePath != "" {
		err := os.MkdirAll(path.Dir(opts.FilePath), 0700)
		if err != nil {
			return nil, nil, err
		}
		f, err := os.OpenFile(opts.FilePath, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0600)
		if err != nil {
			return nil, nil, err
		}
		handlers = append(handlers, slog.NewTextHandler(f, &slog.HandlerOptions{Level: opts.FileLevel}))
		closer = f
	}

	logger := slog.New(
		slogmulti.Fanout(handlers...))
	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error {
	return nil
}
