package erp

import (
	"fmt"

	"github.com/erpsync/backend/internal/domain/connector"
)

// AdapterRegistry holds one adapter per supported ERP system
type AdapterRegistry struct {
	adapters map[connector.ERPSystem]connector.Adapter
}

// NewRegistry creates a registry with every built-in adapter registered
func NewRegistry() *AdapterRegistry {
	r := &AdapterRegistry{adapters: make(map[connector.ERPSystem]connector.Adapter)}
	r.register(NewOdooAdapter())
	r.register(NewSAPB1Adapter())
	r.register(NewQuickBooksAdapter())
	r.register(NewSageAdapter())
	r.register(NewDynamics365Adapter())
	r.register(NewCustomRESTAdapter())
	return r
}

func (r *AdapterRegistry) register(a connector.Adapter) {
	r.adapters[a.System()] = a
}

// Adapter resolves the adapter for an ERP system
func (r *AdapterRegistry) Adapter(system connector.ERPSystem) (connector.Adapter, error) {
	a, ok := r.adapters[system]
	if !ok {
		return nil, fmt.Errorf("%w: %s", connector.ErrAdapterNotRegistered, system)
	}
	return a, nil
}

var _ connector.Registry = (*AdapterRegistry)(nil)
