package checkout

import (
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/dropmart/dropmart-backend/pkg/errors"
)

// MaxLineQuantity caps a single line so one request cannot reserve absurd
// payouts.
const MaxLineQuantity = 999

// Line is one requested product and quantity.
type Line struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// QuantityViolation describes a line whose quantity is out of range.
type QuantityViolation struct {
	ProductID    uuid.UUID `json:"product_id"`
	RequestedQty int       `json:"requested_qty"`
	MaxQty       int       `json:"max_qty"`
}

// NormalizeLines validates the requested lines and merges repeated products
// into one line, keeping first-seen order.
func NormalizeLines(lines []Line) ([]Line, error) {
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
	}

	var violations []QuantityViolation
	index := make(map[uuid.UUID]int, len(lines))
	merged := make([]Line, 0, len(lines))
	for _, line := range lines {
		if line.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
		}
		if line.Quantity < 1 {
			violations = append(violations, QuantityViolation{ProductID: line.ProductID, RequestedQty: line.Quantity, MaxQty: MaxLineQuantity})
			continue
		}
		if i, ok := index[line.ProductID]; ok {
			merged[i].Quantity += line.Quantity
			continue
		}
		index[line.ProductID] = len(merged)
		merged = append(merged, line)
	}
	for _, line := range merged {
		if line.Quantity > MaxLineQuantity {
			violations = append(violations, QuantityViolation{ProductID: line.ProductID, RequestedQty: line.Quantity, MaxQty: MaxLineQuantity})
		}
	}
	if len(violations) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid quantity for %d item(s)", len(violations))).
			WithDetails(map[string]any{"violations": violations})
	}
	return merged, nil
}

// MissingProducts returns the requested ids absent from found, in request order.
func MissingProducts(lines []Line, found map[uuid.UUID]struct{}) []uuid.UUID {
	var missing []uuid.UUID
	for _, line := range lines {
		if _, ok := found[line.ProductID]; !ok {
			missing = append(missing, line.ProductID)
		}
	}
	return missing
}
