package observability

import "go.uber.org/zap"

// Field constructors re-exported so callers log through this package only.
//
//nolint:gochecknoglobals // aliases of zap constructors
var (
	String   = zap.String
	Strings  = zap.Strings
	Int      = zap.Int
	Bool     = zap.Bool
	Duration = zap.Duration
	Error    = zap.Error
)
