package scanfeed

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/catalog"
	"github.com/noah-isme/backend-pos/internal/obs"
	"github.com/noah-isme/backend-pos/internal/scan"
)

// Resolver turns a raw payload into a product.
type Resolver interface {
	Resolve(ctx context.Context, raw string) (catalog.Product, error)
}

// Cart is the mutation surface the pump drives.
type Cart interface {
	AddLine(ctx context.Context, productID uuid.UUID, qty int32) (cart.Line, error)
}

// Pump decouples the scanner from cart mutation through a bounded buffer.
// Offer never blocks the decode path: when the register falls behind, the
// oldest unprocessed decodes are the ones preserved and new ones are
// dropped and counted.
type Pump struct {
	Resolver Resolver
	Cart     Cart
	Log      zerolog.Logger

	ch chan string
}

// NewPump sizes the buffer; a zero or negative size falls back to 64.
func NewPump(resolver Resolver, cartEngine Cart, buffer int, log zerolog.Logger) *Pump {
	if buffer <= 0 {
		buffer = 64
	}
	return &Pump{
		Resolver: resolver,
		Cart:     cartEngine,
		Log:      log,
		ch:       make(chan string, buffer),
	}
}

// Offer enqueues a decode without blocking. Returns false when the buffer
// is full and the decode was dropped.
func (p *Pump) Offer(payload string) bool {
	select {
	case p.ch <- payload:
		return true
	default:
		if obs.ScanFeedDropped != nil {
			obs.ScanFeedDropped.Inc()
		}
		p.Log.Warn().Msg("scan feed buffer full, decode dropped")
		return false
	}
}

// Run consumes decodes until the context ends. Resolution failures and cart
// rejections are logged and skipped: one bad scan must not stall the lane.
func (p *Pump) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-p.ch:
			p.consume(ctx, payload)
		}
	}
}

func (p *Pump) consume(ctx context.Context, payload string) {
	product, err := p.Resolver.Resolve(ctx, payload)
	if err != nil {
		level := zerolog.WarnLevel
		if errors.Is(err, scan.ErrUnrecognized) || errors.Is(err, scan.ErrMalformed) {
			level = zerolog.DebugLevel
		}
		p.Log.WithLevel(level).Err(err).Msg("scan feed resolve")
		return
	}
	if _, err := p.Cart.AddLine(ctx, product.ID, 1); err != nil {
		p.Log.Warn().Err(err).Str("product_id", product.ID.String()).Msg("scan feed add line")
	}
}
