// Package logging provides leveled subsystem loggers backed by decred/slog.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/decred/slog"
)

// Subsystem tags.
const (
	SubsysServer = "SRVR"
	SubsysGate   = "GATE"
	SubsysSwap   = "SWAP"
	SubsysRPC    = "RPC"
	SubsysBot    = "BOT"
	SubsysWait   = "WAIT"
	SubsysAuth   = "AUTH"
	SubsysStore  = "STOR"
)

// LogConfig configures a LogBackend.
type LogConfig struct {
	// DebugLevel is a global level ("info") or per-subsystem list
	// ("info,SWAP=debug,RPC=trace").
	DebugLevel string
	// Writer receives log output. Defaults to stdout.
	Writer io.Writer
}

// LogBackend hands out subsystem loggers sharing one output.
type LogBackend struct {
	backend *slog.Backend

	mu      sync.Mutex
	level   slog.Level
	perSub  map[string]slog.Level
	loggers map[string]slog.Logger
}

// NewLogBackend creates a backend and validates the debug level string.
func NewLogBackend(cfg LogConfig) (*LogBackend, error) {
	w := cfg.Writer
	if w == nil {
		w = os.Stdout
	}

	lb := &LogBackend{
		backend: slog.NewBackend(w),
		level:   slog.LevelInfo,
		perSub:  make(map[string]slog.Level),
		loggers: make(map[string]slog.Logger),
	}
	if cfg.DebugLevel != "" {
		if err := lb.SetLevels(cfg.DebugLevel); err != nil {
			return nil, err
		}
	}
	return lb, nil
}

// Logger returns the logger for subsystem, creating it on first use.
func (lb *LogBackend) Logger(subsystem string) slog.Logger {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	if l, ok := lb.loggers[subsystem]; ok {
		return l
	}
	l := lb.backend.Logger(subsystem)
	l.SetLevel(lb.levelFor(subsystem))
	lb.loggers[subsystem] = l
	return l
}

// SetLevels parses a debug level string and applies it to all loggers.
func (lb *LogBackend) SetLevels(spec string) error {
	global, perSub, err := parseLevels(spec)
	if err != nil {
		return err
	}

	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.level = global
	lb.perSub = perSub
	for sub, l := range lb.loggers {
		l.SetLevel(lb.levelFor(sub))
	}
	return nil
}

func (lb *LogBackend) levelFor(subsystem string) slog.Level {
	if lvl, ok := lb.perSub[subsystem]; ok {
		return lvl
	}
	return lb.level
}

// parseLevels accepts "level" or "level,SUBSYS=level,...".
func parseLevels(spec string) (slog.Level, map[string]slog.Level, error) {
	global := slog.LevelInfo
	perSub := make(map[string]slog.Level)

	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		sub, lvlStr, hasSub := strings.Cut(part, "=")
		if !hasSub {
			lvlStr = sub
		}
		lvl, ok := slog.LevelFromString(strings.ToLower(strings.TrimSpace(lvlStr)))
		if !ok {
			return 0, nil, fmt.Errorf("unknown log level %q", lvlStr)
		}
		if hasSub {
			perSub[strings.ToUpper(strings.TrimSpace(sub))] = lvl
		} else {
			global = lvl
		}
	}
	return global, perSub, nil
}

// OrDisabled returns l, or slog.Disabled when l is nil.
func OrDisabled(l slog.Logger) slog.Logger {
	if l == nil {
		return slog.Disabled
	}
	return l
}
