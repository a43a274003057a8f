package providers

import "go.uber.org/zap"

// Provide a development logger tagged with the application name.
func ProvideLogger() (*zap.Logger, error) {
	return zap.NewDevelopment(zap.Fields(zap.String("app", "rwsdemo")))
}
