package scan

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/catalog"
	"github.com/noah-isme/backend-pos/internal/obs"
)

// ErrMalformed indicates the payload failed symbology validation.
var ErrMalformed = errors.New("scan: malformed payload")

// ErrUnrecognized indicates a well-formed code with no catalog match. This is
// an expected outcome during normal operation, not a fault: the surface is
// expected to offer a manual product-creation or skip path.
var ErrUnrecognized = errors.New("scan: unrecognized code")

// Catalog is the lookup surface the resolver needs.
type Catalog interface {
	LookupByBarcode(ctx context.Context, code string) (catalog.Product, error)
}

// Resolver turns raw barcode payloads into catalog products.
type Resolver struct {
	Catalog Catalog
	Log     zerolog.Logger
}

// Resolve normalizes and validates the payload, then resolves it against the
// catalog. Numeric payloads of EAN-8, UPC-A, or EAN-13 length must carry a
// valid check digit; anything else is treated as a manually keyed code and
// matched verbatim.
func (r *Resolver) Resolve(ctx context.Context, raw string) (catalog.Product, error) {
	code := normalize(raw)
	if code == "" {
		r.count("malformed")
		return catalog.Product{}, fmt.Errorf("%w: empty payload", ErrMalformed)
	}
	if isNumeric(code) {
		switch len(code) {
		case 8, 12, 13:
			if !checkDigitValid(code) {
				r.count("malformed")
				r.Log.Debug().Str("payload", code).Msg("scan check digit mismatch")
				return catalog.Product{}, fmt.Errorf("%w: check digit mismatch", ErrMalformed)
			}
		}
	}
	product, err := r.Catalog.LookupByBarcode(ctx, code)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			r.count("unrecognized")
			return catalog.Product{}, fmt.Errorf("%w: %s", ErrUnrecognized, code)
		}
		r.count("error")
		return catalog.Product{}, fmt.Errorf("resolve barcode: %w", err)
	}
	r.count("resolved")
	return product, nil
}

func (r *Resolver) count(result string) {
	if obs.ScanResolveTotal != nil {
		obs.ScanResolveTotal.WithLabelValues(result).Inc()
	}
}

// normalize strips whitespace anywhere in the payload. Keypad entry pads
// with spaces and some camera decoders emit trailing newlines.
func normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isNumeric(code string) bool {
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

// checkDigitValid verifies the GS1 modulo-10 check digit shared by EAN-8,
// UPC-A, and EAN-13: weights alternate 3,1 moving left from the digit next
// to the check digit.
func checkDigitValid(code string) bool {
	sum := 0
	weight := 3
	for i := len(code) - 2; i >= 0; i-- {
		sum += int(code[i]-'0') * weight
		if weight == 3 {
			weight = 1
		} else {
			weight = 3
		}
	}
	check := (10 - sum%10) % 10
	return check == int(code[len(code)-1]-'0')
}
