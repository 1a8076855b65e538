// Package slug builds URL-safe identifiers and allocates unique ones.
package slug

import (
	"context"
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	pkgerrors "github.com/dropmart/dropmart-backend/pkg/errors"
)

// DefaultMaxAttempts bounds the suffix search when no ceiling is configured.
const DefaultMaxAttempts = 5000

const emptyFallback = "product"

// symbolWords spells out symbols that carry meaning in product titles.
var symbolWords = map[rune]string{
	'&': "and",
	'$': "dollar",
	'%': "percent",
	'<': "less",
	'>': "greater",
	'|': "or",
	'¢': "cent",
	'£': "pound",
	'¥': "yen",
	'€': "euro",
	'♥': "love",
	'∞': "infinity",
}

// letterFolds covers Latin letters that do not decompose under NFD.
var letterFolds = map[rune]string{
	'ß': "ss",
	'æ': "ae",
	'œ': "oe",
	'ø': "o",
	'đ': "d",
	'ł': "l",
	'þ': "th",
}

// Normalize lowercases title, folds diacritics to ASCII and spells out a few
// symbols ("&" becomes "and"). Whitespace and hyphens separate words; any
// other punctuation is dropped without splitting, so "Men's" becomes "mens".
// A title with no usable characters yields "product".
func Normalize(title string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), title)
	if err != nil {
		folded = title
	}

	var b strings.Builder
	pendingHyphen := false
	write := func(word string) {
		if pendingHyphen && b.Len() > 0 {
			b.WriteByte('-')
		}
		pendingHyphen = false
		b.WriteString(word)
	}
	for _, r := range strings.ToLower(folded) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			write(string(r))
		case r == '-' || unicode.IsSpace(r):
			pendingHyphen = true
		default:
			if word, ok := symbolWords[r]; ok {
				write(word)
			} else if word, ok := letterFolds[r]; ok {
				write(word)
			}
		}
	}
	if b.Len() == 0 {
		return emptyFallback
	}
	return b.String()
}

// Prober reports whether a slug is already taken, ignoring the row identified
// by excludeID when set.
type Prober interface {
	SlugExists(ctx context.Context, slug string, excludeID *uuid.UUID) (bool, error)
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context, slug string, excludeID *uuid.UUID) (bool, error)

func (f ProberFunc) SlugExists(ctx context.Context, slug string, excludeID *uuid.UUID) (bool, error) {
	return f(ctx, slug, excludeID)
}

// Allocator finds the first free slug among base, base-1, base-2, ...
type Allocator struct {
	prober      Prober
	maxAttempts int
}

func NewAllocator(prober Prober, maxAttempts int) *Allocator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Allocator{prober: prober, maxAttempts: maxAttempts}
}

// Allocate returns a slug derived from title that the prober reports as
// free. Uniqueness is only observed, not reserved: callers inserting the
// result must still handle a unique violation and allocate again.
func (a *Allocator) Allocate(ctx context.Context, title string, excludeID *uuid.UUID) (string, error) {
	base := Normalize(title)
	candidate := base
	for attempt := 0; attempt <= a.maxAttempts; attempt++ {
		if attempt > 0 {
			candidate = base + "-" + strconv.Itoa(attempt)
		}
		taken, err := a.prober.SlugExists(ctx, candidate, excludeID)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "probe slug")
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeCollisionExhausted, "slug candidates exhausted").
		WithDetails(map[string]any{"base": base, "attempts": a.maxAttempts})
}
