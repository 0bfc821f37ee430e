package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/igorofyeshuasete/authgate/config"
	"github.com/igorofyeshuasete/authgate/domain/port/outbound"
)

type LogLevel int

const (
	LevelError LogLevel = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

// represents a single log entry to be processed asynchronously
type LogMessage struct {
	Level LogLevel
	Msg   string
	Args  []any
	Time  time.Time
}

// SlogAdapter implements the Logger port on top of log/slog with
// asynchronous processing so authentication paths never block on I/O.
type SlogAdapter struct {
	logger    *slog.Logger
	logChan   chan LogMessage
	ctx       context.Context
	cancel    context.CancelFunc
	slogLevel *slog.LevelVar
	closer    io.Closer
}

func NewSlogAdapter(cfg *config.Config) outbound.Logger {
	ctx, cancel := context.WithCancel(context.Background())

	levelVar := &slog.LevelVar{}
	levelVar.Set(parseSlogLevel(cfg.Logging.Level))

	var out io.Writer = os.Stdout
	var closer io.Closer
	if cfg.Logging.Output == "file" && cfg.Logging.FilePath != "" {
		file, err := os.OpenFile(cfg.Logging.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if err == nil {
			out = file
			closer = file
		}
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: levelVar}
	if strings.ToLower(cfg.Logging.Format) == "text" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	adapter := &SlogAdapter{
		logger:    slog.New(handler),
		logChan:   make(chan LogMessage, cfg.Logging.ChannelSize),
		ctx:       ctx,
		cancel:    cancel,
		slogLevel: levelVar,
		closer:    closer,
	}

	go adapter.processLogs()

	return adapter
}

// UpdateLevel changes the log level dynamically.
func (s *SlogAdapter) UpdateLevel(logLvl string) {
	s.slogLevel.Set(parseSlogLevel(logLvl))
	s.Info("logger level updated", "new_level", strings.ToLower(logLvl))
}

// processLogs drains the channel; on shutdown remaining messages are
// flushed before the goroutine exits.
func (s *SlogAdapter) processLogs() {
	for {
		select {
		case msg := <-s.logChan:
			s.writeLog(msg)
		case <-s.ctx.Done():
			for len(s.logChan) > 0 {
				msg := <-s.logChan
				s.writeLog(msg)
			}
			if s.closer != nil {
				s.closer.Close()
			}
			return
		}
	}
}

func parseSlogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (s *SlogAdapter) writeLog(msg LogMessage) {
	switch msg.Level {
	case LevelError:
		s.logger.Error(msg.Msg, msg.Args...)
	case LevelWarn:
		s.logger.Warn(msg.Msg, msg.Args...)
	case LevelInfo:
		s.logger.Info(msg.Msg, msg.Args...)
	case LevelDebug:
		s.logger.Debug(msg.Msg, msg.Args...)
	}
}

func (s *SlogAdapter) sendLog(level LogLevel, msg string, args ...any) {
	select {
	case s.logChan <- LogMessage{
		Level: level,
		Msg:   msg,
		Args:  args,
		Time:  time.Now(),
	}:
	default:
		// chan full, drop rather than block the caller
	}
}

func (s *SlogAdapter) shouldLog(level LogLevel) bool {
	switch s.slogLevel.Level() {
	case slog.LevelError:
		return level == LevelError
	case slog.LevelWarn:
		return level <= LevelWarn
	case slog.LevelInfo:
		return level <= LevelInfo
	case slog.LevelDebug:
		return level <= LevelDebug
	default:
		return level <= LevelInfo
	}
}

func (s *SlogAdapter) Error(msg string, args ...any) {
	if !s.shouldLog(LevelError) {
		return
	}
	s.sendLog(LevelError, msg, args...)
}

func (s *SlogAdapter) Warn(msg string, args ...any) {
	if !s.shouldLog(LevelWarn) {
		return
	}
	s.sendLog(LevelWarn, msg, args...)
}

func (s *SlogAdapter) Info(msg string, args ...any) {
	if !s.shouldLog(LevelInfo) {
		return
	}
	s.sendLog(LevelInfo, msg, args...)
}

func (s *SlogAdapter) Debug(msg string, args ...any) {
	if !s.shouldLog(LevelDebug) {
		return
	}
	s.sendLog(LevelDebug, msg, args...)
}

func (s *SlogAdapter) Shutdown() {
	s.cancel()
}
