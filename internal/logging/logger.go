package logging

import "go.uber.org/zap"

// New builds the process-wide logger. Verbose enables the development
// encoder with debug level; otherwise the production config is used at
// info level.
func New(verbose bool) (*zap.Logger, error) {
	var cfg zap.Config
	if verbose {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
		cfg.Encoding = "console"
		cfg.DisableCaller = true
	}
	return cfg.Build()
}
