package checkout

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/dropmart/dropmart-backend/pkg/errors"
)

func TestNormalizeLinesMergesDuplicates(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	lines, err := NormalizeLines([]Line{{ProductID: a, Quantity: 1}, {ProductID: b, Quantity: 2}, {ProductID: a, Quantity: 3}})
	require.NoError(t, err)
	assert.Equal(t, []Line{{ProductID: a, Quantity: 4}, {ProductID: b, Quantity: 2}}, lines)
}

func TestNormalizeLinesErrors(t *testing.T) {
	_, err := NormalizeLines(nil)
	assert.Equal(t, pkgerrors.CodeEmptyCart, pkgerrors.As(err).Code())

	_, err = NormalizeLines([]Line{{ProductID: uuid.New(), Quantity: 0}})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	assert.Len(t, details["violations"], 1)

	_, err = NormalizeLines([]Line{{Quantity: 1}})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	id := uuid.New()
	_, err = NormalizeLines([]Line{{ProductID: id, Quantity: MaxLineQuantity}, {ProductID: id, Quantity: 1}})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestMissingProducts(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	found := map[uuid.UUID]struct{}{b: {}}
	assert.Equal(t, []uuid.UUID{a, c}, MissingProducts([]Line{{ProductID: a}, {ProductID: b}, {ProductID: c}}, found))
	assert.Nil(t, MissingProducts([]Line{{ProductID: b}}, found))
}
