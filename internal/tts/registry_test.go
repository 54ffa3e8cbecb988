package tts

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterIdempotent(t *testing.T) {
	r := NewRegistry()

	first := &MockProvider{Name: "alpha"}
	replacement := &MockProvider{Name: "alpha", Audio: []byte("new")}
	r.Register(first)
	r.Register(replacement)

	assert.Equal(t, []string{"alpha"}, r.Names())
	assert.Same(t, VoiceProvider(replacement), r.GetProvider("alpha"))
}

func TestRegistry_GetProviderUnknownReturnsNil(t *testing.T) {
	r := NewRegistry()
	assert.Nil(t, r.GetProvider("ghost"))
}

func TestRegistry_ResolveChainOrder(t *testing.T) {
	r := NewRegistry()
	a := &MockProvider{Name: "a"}
	b := &MockProvider{Name: "b"}
	c := &MockProvider{Name: "c"}
	d := &MockProvider{Name: "d"}
	r.Register(a)
	r.Register(b)
	r.Register(c)
	r.Register(d)
	r.SetDefault("b")
	r.SetFallbackOrder([]string{"c"})

	chain := r.ResolveChain("d")
	require.Len(t, chain, 4)
	// Явно запрошенный, затем default, затем фолбэк-список, затем остальные
	assert.Equal(t, "d", chain[0].Metadata().Name)
	assert.Equal(t, "b", chain[1].Metadata().Name)
	assert.Equal(t, "c", chain[2].Metadata().Name)
	assert.Equal(t, "a", chain[3].Metadata().Name)
}

func TestRegistry_ResolveChainSkipsInvalid(t *testing.T) {
	r := NewRegistry()
	broken := &MockProvider{Name: "broken", ValidateErr: errors.New("нет ключа")}
	healthy := &MockProvider{Name: "healthy"}
	r.Register(broken)
	r.Register(healthy)
	r.SetDefault("broken")

	chain := r.ResolveChain("")
	require.Len(t, chain, 1)
	assert.Equal(t, "healthy", chain[0].Metadata().Name)
}

func TestRegistry_GetProviderWithFallback(t *testing.T) {
	r := NewRegistry()
	broken := &MockProvider{Name: "broken", ValidateErr: errors.New("нет ключа")}
	healthy := &MockProvider{Name: "healthy"}
	r.Register(broken)
	r.Register(healthy)
	r.SetDefault("healthy")

	// Явный запрос невалидного провайдера падает на default
	p := r.GetProviderWithFallback("broken")
	require.NotNil(t, p)
	assert.Equal(t, "healthy", p.Metadata().Name)
}

func TestRegistry_GetProviderWithFallbackExhaustion(t *testing.T) {
	r := NewRegistry()
	r.Register(&MockProvider{Name: "a", ValidateErr: errors.New("a сломан")})
	r.Register(&MockProvider{Name: "b", ValidateErr: errors.New("b сломан")})

	assert.Nil(t, r.GetProviderWithFallback(""))
	assert.Empty(t, r.ResolveChain("a"))
}

func TestRegistry_UnknownRequestedNameSkipped(t *testing.T) {
	r := NewRegistry()
	r.Register(&MockProvider{Name: "real"})

	chain := r.ResolveChain("imaginary")
	require.Len(t, chain, 1)
	assert.Equal(t, "real", chain[0].Metadata().Name)
}

func TestRegistry_Reset(t *testing.T) {
	r := NewRegistry()
	r.Register(&MockProvider{Name: "a"})
	r.SetDefault("a")
	r.Reset()

	assert.Empty(t, r.Names())
	assert.Nil(t, r.GetProvider("a"))
}
