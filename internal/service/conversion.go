package service

import (
	"context"
	"errors"
	"time"

	"genbridge/internal/analytics"
	"genbridge/internal/domain"
	"genbridge/internal/infra"
	"genbridge/internal/infra/geoip"
	"genbridge/internal/metrics"
)

// TrackingParams are the order-completion query parameters a resumed client
// session arrives with. Their presence is optional; a request without them
// is normal navigation, not an error.
type TrackingParams struct {
	OrderNo    string
	ValueMinor int64
	Currency   string
	ClientIP   string
}

// ConversionBridge reports the one-time conversion signal for an order. The
// exactly-once guarantee rests on the order store's conditional flag flip,
// not on anything held in memory, so repeated invocations from remounts or
// concurrent tabs converge on a single fired event.
type ConversionBridge struct {
	orders domain.OrderRepository
	sink   analytics.Sink
	geo    geoip.CountryResolver
	logger infra.Logger
}

// NewConversionBridge wires the tracking path. geo may be nil when no GeoIP
// database is configured.
func NewConversionBridge(orders domain.OrderRepository, sink analytics.Sink, geo geoip.CountryResolver, logger infra.Logger) *ConversionBridge {
	if sink == nil {
		sink = analytics.NopSink{}
	}
	return &ConversionBridge{orders: orders, sink: sink, geo: geo, logger: logger}
}

// Report fires at most one conversion event for the order named in params.
// Every failure mode is a silent no-op from the caller's perspective: the
// page must render regardless of what happens here.
func (b *ConversionBridge) Report(ctx context.Context, params TrackingParams) {
	if params.OrderNo == "" {
		return
	}

	order, err := b.orders.GetByOrderNo(ctx, params.OrderNo)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			b.logger.Debug().Str("order_no", params.OrderNo).Msg("tracking parameters for unknown order")
		} else {
			b.logger.Error().Err(err).Str("order_no", params.OrderNo).Msg("order lookup failed")
		}
		return
	}
	if order.ConversionReported {
		return
	}
	if params.ValueMinor != 0 && params.ValueMinor != order.AmountMinor {
		b.logger.Warn().
			Str("order_no", params.OrderNo).
			Int64("url_value", params.ValueMinor).
			Int64("order_value", order.AmountMinor).
			Msg("tracking value disagrees with order record")
	}

	applied, err := b.orders.MarkConversionReported(ctx, params.OrderNo)
	if err != nil {
		b.logger.Error().Err(err).Str("order_no", params.OrderNo).Msg("conversion flag flip failed")
		return
	}
	if !applied {
		// A concurrent invocation won; its event is the one that counts.
		return
	}

	event := analytics.Event{
		Name:       analytics.EventConversion,
		OrderNo:    order.OrderNo,
		ValueMinor: order.AmountMinor,
		Currency:   order.Currency,
		OccurredAt: time.Now().UTC(),
	}
	if b.geo != nil && params.ClientIP != "" {
		if country, err := b.geo.CountryCode(params.ClientIP); err == nil {
			event.Country = country
		}
	}
	metrics.Conversions.Inc()
	if err := b.sink.Report(ctx, event); err != nil {
		// The flag stays flipped: a dropped signal is an accepted
		// loss, a doubled signal is not.
		b.logger.Warn().Err(err).Str("order_no", params.OrderNo).Msg("conversion signal dropped")
	}
}
