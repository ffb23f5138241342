package logger

import (
	"fmt"
	"strings"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

// gooseLogger writes schema migration output through a zap logger at the
// debug level.
type gooseLogger struct {
	log *zap.SugaredLogger
}

var _ goose.Logger = (*gooseLogger)(nil)

// Goose returns a goose compatible logger backed by the provided logger.
func Goose(log *zap.SugaredLogger) goose.Logger {
	return &gooseLogger{log: log.Named("migrate")}
}

func (g *gooseLogger) Fatal(v ...any) { g.log.Fatal(v...) }

func (g *gooseLogger) Fatalf(format string, v ...any) { g.log.Fatalf(format, v...) }

func (g *gooseLogger) Print(v ...any) { g.log.Debug(strings.TrimSpace(fmt.Sprint(v...))) }

func (g *gooseLogger) Println(v ...any) { g.log.Debug(strings.TrimSpace(fmt.Sprint(v...))) }

// Printf trims the trailing newline goose adds to every format.
func (g *gooseLogger) Printf(format string, v ...any) {
	g.log.Debugf(strings.TrimSuffix(format, "\n"), v...)
}
