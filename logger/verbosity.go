package logger

import "go.uber.org/zap/zapcore"

// Verbosity level constants for CLI flag counts. These gate WHAT gets
// logged, not just severity: evaluation traces and resolver batch contents
// only appear at the higher levels.
const (
	VerbosityUser  = 0 // No flags: results and errors only
	VerbosityInfo  = 1 // -v: + pass summaries, provider registration
	VerbosityDebug = 2 // -vv: + parse failures, cache activity, recalc order
	VerbosityTrace = 3 // -vvv: + per-node evaluation detail
	VerbosityAll   = 4 // -vvvv: + full resolver batch contents
)

// VerbosityToLevel maps verbosity flag counts (-v, -vv, ...) to zap levels.
func VerbosityToLevel(verbosity int) zapcore.Level {
	switch verbosity {
	case VerbosityUser:
		return zapcore.WarnLevel
	case VerbosityInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// ShouldLogTrace returns true for verbosity >= 3 (-vvv).
func ShouldLogTrace(verbosity int) bool {
	return verbosity >= VerbosityTrace
}

// ShouldLogAll returns true for verbosity >= 4 (-vvvv). Use this before
// dumping full data structures into log fields.
func ShouldLogAll(verbosity int) bool {
	return verbosity >= VerbosityAll
}
