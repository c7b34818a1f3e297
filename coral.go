// Package coral maps registered entity definitions to relational tables. It
// tracks per-instance field mutations against a persisted baseline, builds
// parameterized SQL through the builder package, and resolves declared
// relations for whole batches of parents with a fixed number of queries.
package coral

import (
	"time"

	"github.com/coralorm/coral/logger"
	"github.com/coralorm/coral/schema"
)

// Config carries the collaborators a Connection or Repository needs. Zero
// value fields fall back to the package defaults.
type Config struct {
	// Logger receives SQL traces and soft failures. Defaults to
	// logger.Default.
	Logger logger.Interface
	// Registry resolves entity names to schemas. Defaults to the process
	// wide registry.
	Registry *schema.Registry
	// NowFunc stamps created at and updated at fields. Defaults to time.Now.
	NowFunc func() time.Time
}

func (c *Config) logger() logger.Interface {
	if c != nil && c.Logger != nil {
		return c.Logger
	}
	return logger.Default
}

func (c *Config) registry() *schema.Registry {
	if c != nil && c.Registry != nil {
		return c.Registry
	}
	return schema.DefaultRegistry()
}

func (c *Config) now() func() time.Time {
	if c != nil && c.NowFunc != nil {
		return c.NowFunc
	}
	return time.Now
}
