package testing

import (
	"testing"

	"github.com/Alia5/CONDUIT/adapter"
	"github.com/Alia5/CONDUIT/source"
)

type mockRegistration struct {
	family source.Family

	createFunc func(o *adapter.CreateOptions) (adapter.Adapter, error)
}

func (m *mockRegistration) NewAdapter(o *adapter.CreateOptions) (adapter.Adapter, error) {
	return m.createFunc(o)
}

func CreateMockRegistration(
	t *testing.T,
	family source.Family,
	cf func(o *adapter.CreateOptions) (adapter.Adapter, error),
) adapter.Registration {
	return &mockRegistration{
		family:     family,
		createFunc: cf,
	}
}
