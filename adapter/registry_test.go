package adapter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/CONDUIT/adapter"
	"github.com/Alia5/CONDUIT/channel"
	"github.com/Alia5/CONDUIT/source"
)

type stubAdapter struct {
	adapter.Base
}

func (a *stubAdapter) Configure() bool {
	return a.ConfigureFrom([]channel.Definition{
		{Label: "Select", Axis: channel.AxisBool, Kind: channel.KindPrimaryButton},
	})
}

type stubRegistration struct{}

func (r *stubRegistration) NewAdapter(o *adapter.CreateOptions) (adapter.Adapter, error) {
	return &stubAdapter{Base: adapter.NewBase("testfam", o)}, nil
}

func TestRegistryLookup(t *testing.T) {
	adapter.Register("TestFam", &stubRegistration{})

	// Lookup is case-insensitive; tags are stored lowercased.
	reg := adapter.Lookup("testfam")
	require.NotNil(t, reg)
	assert.Same(t, reg, adapter.Lookup("TESTFAM"))
	assert.Contains(t, adapter.Families(), "testfam")

	assert.Nil(t, adapter.Lookup("warp"))
}

func TestRegistryNewAdapter(t *testing.T) {
	adapter.Register("testfam", &stubRegistration{})

	ad, err := adapter.Lookup("testfam").NewAdapter(&adapter.CreateOptions{
		Source: 3,
		Hand:   source.HandRight,
	})
	require.NoError(t, err)

	assert.Equal(t, source.Family("testfam"), ad.Family())
	assert.Equal(t, source.HandRight, ad.Hand())
	assert.False(t, ad.Enabled())
	assert.Nil(t, ad.Channels())

	c, ok := ad.(adapter.Configurable)
	require.True(t, ok)
	require.True(t, c.Configure())
	assert.True(t, ad.Enabled())
	assert.Equal(t, 1, ad.Channels().Len())
}
