package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nfrund/taskmanager/internal/module"
	"github.com/nfrund/taskmanager/internal/registry"
)

// InitModules runs the two startup phases for every module: all modules
// register their services first, then each one boots. A failing module stops
// startup; modules already booted are shut down again by Shutdown.
func (s *Server) InitModules(ctx context.Context, modules []module.Module, reg *registry.Registry) error {
	for _, m := range modules {
		slog.Debug("Registering module", "event", "module_register", "module", m.Name())
		if err := m.Register(reg); err != nil {
			return fmt.Errorf("registering module %s: %w", m.Name(), err)
		}
	}

	for _, m := range modules {
		slog.Debug("Booting module", "event", "module_boot", "module", m.Name())
		if err := m.Boot(ctx, s.E, s.API, reg); err != nil {
			return fmt.Errorf("booting module %s: %w", m.Name(), err)
		}
		s.modules = append(s.modules, m)
	}
	return nil
}
