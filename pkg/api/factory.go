// Package api provides factory implementations for dependency injection
package api

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// DefaultServerFactory is the default implementation of ServerFactory
type DefaultServerFactory struct{}

// NewServerFactory creates a new server factory
func NewServerFactory() ServerFactory {
	return &DefaultServerFactory{}
}

// CreateServerStarter creates a server starter
func (f *DefaultServerFactory) CreateServerStarter() ServerStarter {
	return &DefaultServerStarter{}
}

// DefaultServerStarter is the default implementation of ServerStarter
type DefaultServerStarter struct{}

// StartServer builds a Server with fresh metrics and serves until ctx is cancelled
func (s *DefaultServerStarter) StartServer(ctx context.Context, catalog MatchStore, config ServerConfig, log logrus.FieldLogger) error {
	SwaggerInfo.Host = fmt.Sprintf("%s:%d", config.Bind, config.Port)
	return NewServer(catalog, config, NewMetrics(), log).ListenAndServe(ctx)
}
