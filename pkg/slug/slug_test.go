package slug

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/dropmart/dropmart-backend/pkg/errors"
)

func TestNormalize(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Wireless Earbuds", "wireless-earbuds"},
		{"  Crème Brûlée  Torch! ", "creme-brulee-torch"},
		{"USB-C   Cable (2m)", "usb-c-cable-2m"},
		{"---Hello---World---", "hello-world"},
		{"Ñandú 100%", "nandu-100percent"},
		{"Men's Shoes", "mens-shoes"},
		{"Salt & Pepper", "salt-and-pepper"},
		{"AC/DC Tee, 2.5mm", "acdc-tee-25mm"},
		{"Straße Poster", "strasse-poster"},
		{"snake_case\tname", "snakecase-name"},
		{"", "product"},
		{"!!!", "product"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "Normalize(%q)", tt.in)
	}
}

type memProber struct {
	taken map[string]uuid.UUID
	calls int
}

func (m *memProber) SlugExists(_ context.Context, slug string, excludeID *uuid.UUID) (bool, error) {
	m.calls++
	owner, ok := m.taken[slug]
	if !ok {
		return false, nil
	}
	if excludeID != nil && *excludeID == owner {
		return false, nil
	}
	return true, nil
}

func TestAllocateAppendsSuffixOnCollision(t *testing.T) {
	prober := &memProber{taken: map[string]uuid.UUID{"wireless-earbuds": uuid.New()}}
	alloc := NewAllocator(prober, 10)

	got, err := alloc.Allocate(context.Background(), "Wireless Earbuds", nil)
	require.NoError(t, err)
	assert.Equal(t, "wireless-earbuds-1", got)

	prober.taken[got] = uuid.New()
	got, err = alloc.Allocate(context.Background(), "Wireless Earbuds", nil)
	require.NoError(t, err)
	assert.Equal(t, "wireless-earbuds-2", got)
}

func TestAllocateExcludesOwnRow(t *testing.T) {
	self := uuid.New()
	prober := &memProber{taken: map[string]uuid.UUID{"desk-lamp": self}}

	got, err := NewAllocator(prober, 10).Allocate(context.Background(), "Desk Lamp", &self)
	require.NoError(t, err)
	assert.Equal(t, "desk-lamp", got)
}

func TestAllocateExhausted(t *testing.T) {
	always := ProberFunc(func(context.Context, string, *uuid.UUID) (bool, error) { return true, nil })

	_, err := NewAllocator(always, 3).Allocate(context.Background(), "Lamp", nil)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeCollisionExhausted, typed.Code())
}

func TestAllocateProbeFailure(t *testing.T) {
	failing := ProberFunc(func(context.Context, string, *uuid.UUID) (bool, error) { return false, errors.New("db down") })

	_, err := NewAllocator(failing, 3).Allocate(context.Background(), "Lamp", nil)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
}
