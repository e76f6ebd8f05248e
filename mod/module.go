package mod

import (
	"errors"
	"fmt"

	"github.com/rskv-p/nested/pkg/x_log"
)

//---------------------
// Module
//---------------------

// Module is a component with a managed lifecycle.
type Module interface {
	Name() string
	Init() error
	Start() error
	Stop() error
}

//---------------------
// Module Lifecycle
//---------------------

// Start initializes every module, then starts them in order. When one fails,
// the modules already started are stopped in reverse order.
func Start(mods ...Module) error {
	for _, m := range mods {
		if err := m.Init(); err != nil {
			return fmt.Errorf("%s: init: %w", m.Name(), err)
		}
	}
	for i, m := range mods {
		if err := m.Start(); err != nil {
			x_log.Error().Err(err).Str("mod", m.Name()).Msg("module start failed")
			_ = Stop(mods[:i]...)
			return fmt.Errorf("%s: start: %w", m.Name(), err)
		}
		x_log.Debug().Str("mod", m.Name()).Msg("module started")
	}
	return nil
}

// Stop stops modules in reverse order. All modules are stopped even when
// some fail; the errors are joined.
func Stop(mods ...Module) error {
	var errs []error
	for i := len(mods) - 1; i >= 0; i-- {
		if err := mods[i].Stop(); err != nil {
			x_log.Warn().Err(err).Str("mod", mods[i].Name()).Msg("module stop failed")
			errs = append(errs, fmt.Errorf("%s: stop: %w", mods[i].Name(), err))
		}
	}
	return errors.Join(errs...)
}
