// Package logging builds RuleZ's diagnostic logger: stderr-only structured
// output via go.uber.org/zap, with verbose/RULEZ_DEBUG bumping the level to
// debug. Grounded on theRebelliousNerd-codenerd/cmd/nerd/main.go's
// PersistentPreRunE, which builds a *zap.Logger from
// zap.NewProductionConfig() and raises its level when --verbose is set.
// stdout is reserved for the hook's JSON response (spec §6.4); every
// diagnostic line here goes to stderr, which is zap's ProductionConfig
// default output path already.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a stderr-only sugared logger. debug raises the level to Debug;
// otherwise it stays at zap's production default (Info). RULEZ_DEBUG=1 in
// the environment has the same effect as passing debug=true, matching the
// teacher's own env-var-or-flag convention for its verbose switch.
func New(debug bool) (*zap.SugaredLogger, error) {
	cfg := zap.NewProductionConfig()
	if debug || os.Getenv("RULEZ_DEBUG") == "1" {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

// Nop returns a logger that discards everything, used by tests and as
// cmd/rulez's logger until its PersistentPreRunE builds the real one.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
