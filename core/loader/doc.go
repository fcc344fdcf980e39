// Package loader mounts the HTTP features of the service.
//
// Each feature implements Feature and is registered on a Manager, which
// loads the enabled ones in registration order:
//
//	m := loader.NewManager(logger)
//	m.Register(health.NewFeature(...), monitor.NewFeature(...))
//	err := m.LoadAll(app)
package loader
