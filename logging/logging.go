package logging

import "go.uber.org/zap"

// New creates a new zap logger for the given environment. Production gets
// the JSON production logger, development the console development logger and
// anything else the example logger.
func New(env string) (*zap.Logger, error) {
	switch env {
	case "production":
		return zap.NewProduction()
	case "development":
		return zap.NewDevelopment()
	}
	return zap.NewExample(), nil
}
