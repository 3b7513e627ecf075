// Package di provides dependency injection container
package di

import (
	"github.com/sirupsen/logrus"

	"github.com/ssargent/slippc/pkg/api"
	"github.com/ssargent/slippc/pkg/batch"
	"github.com/ssargent/slippc/pkg/storage"
)

// CatalogOpener opens the match catalog in dir, logging through log
type CatalogOpener func(dir string, log logrus.FieldLogger) (*storage.Catalog, error)

// Container holds all the dependencies for the application
type Container struct {
	serverFactory api.ServerFactory
	openCatalog   CatalogOpener
}

// NewContainer creates a new dependency injection container
func NewContainer() *Container {
	return &Container{
		serverFactory: api.NewServerFactory(),
		openCatalog:   openCatalog,
	}
}

func openCatalog(dir string, log logrus.FieldLogger) (*storage.Catalog, error) {
	return storage.Open(dir, storage.WithLogger(log))
}

// GetServerFactory returns the server factory
func (c *Container) GetServerFactory() api.ServerFactory {
	return c.serverFactory
}

// SetServerFactory allows overriding the server factory (for testing)
func (c *Container) SetServerFactory(factory api.ServerFactory) {
	c.serverFactory = factory
}

// OpenCatalog opens the match catalog in dir
func (c *Container) OpenCatalog(dir string, log logrus.FieldLogger) (*storage.Catalog, error) {
	return c.openCatalog(dir, log)
}

// SetCatalogOpener allows overriding how the catalog is opened (for testing)
func (c *Container) SetCatalogOpener(open CatalogOpener) {
	c.openCatalog = open
}

// NewRunner builds a batch runner. catalog may be nil, which disables dedupe.
func (c *Container) NewRunner(log logrus.FieldLogger, workers int, catalog batch.Catalog) *batch.Runner {
	opts := []batch.Option{batch.WithLogger(log), batch.WithWorkers(workers)}
	if catalog != nil {
		opts = append(opts, batch.WithCatalog(catalog))
	}
	return batch.NewRunner(opts...)
}
