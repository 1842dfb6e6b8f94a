package digest

import (
	"io"
	"log/slog"
	"os"
)

type Tracer interface {
	Enter(path string, rule Rule)
	Leave(path string, rule Rule)
	Unbalanced(path string, rule Rule, before, after int)
	Error(path string, err error)
}

func NoopTracer() Tracer {
	return discardTracer{}
}

type discardTracer struct{}

func (_ discardTracer) Enter(_ string, _ Rule) {}

func (_ discardTracer) Leave(_ string, _ Rule) {}

func (_ discardTracer) Unbalanced(_ string, _ Rule, _, _ int) {}

func (_ discardTracer) Error(_ string, _ error) {}

type stdioTracer struct {
	logger *slog.Logger
}

func Stdout() Tracer {
	return stdioTracer{
		logger: stdioLogger(os.Stdout),
	}
}

func Stderr() Tracer {
	return stdioTracer{
		logger: stdioLogger(os.Stderr),
	}
}

func stdioLogger(w io.Writer) *slog.Logger {
	opts := slog.HandlerOptions{
		Level: slog.LevelDebug,
	}
	return slog.New(slog.NewTextHandler(w, &opts))
}

func (t stdioTracer) Enter(path string, rule Rule) {
	t.logger.Debug("begin rule", "path", path, "rule", ruleName(rule))
}

func (t stdioTracer) Leave(path string, rule Rule) {
	t.logger.Debug("end rule", "path", path, "rule", ruleName(rule))
}

func (t stdioTracer) Unbalanced(path string, rule Rule, before, after int) {
	t.logger.Warn("object stack depth not restored by rule",
		"path", path,
		"rule", ruleName(rule),
		"before", before,
		"after", after,
	)
}

func (t stdioTracer) Error(path string, err error) {
	t.logger.Error("error while processing rule", "path", path, "err", err.Error())
}

func ruleName(rule Rule) string {
	if s, ok := rule.(interface{ String() string }); ok {
		return s.String()
	}
	return "rule"
}
