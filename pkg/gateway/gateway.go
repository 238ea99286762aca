package gateway

import (
	"time"

	"github.com/curaious/voicerelay/pkg/llm"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("RelayGateway")

// Observer receives the outcome of every upstream call.
// outcome is one of "success", "upstream_error" or "transport_error".
type Observer interface {
	ObserveUpstream(operation string, outcome string, duration time.Duration)
}

// RelayGateway wraps a Provider with tracing and upstream call accounting.
// It holds no per-request state and is safe for concurrent use.
type RelayGateway struct {
	providerName llm.ProviderName
	provider     llm.Provider
	observer     Observer
}

var _ llm.Provider = (*RelayGateway)(nil)

func NewRelayGateway(providerName llm.ProviderName, p llm.Provider, observer Observer) *RelayGateway {
	return &RelayGateway{
		providerName: providerName,
		provider:     p,
		observer:     observer,
	}
}

func (g *RelayGateway) observe(operation string, start time.Time, err error) {
	if g.observer == nil {
		return
	}

	outcome := "success"
	if err != nil {
		outcome = "transport_error"
		if _, ok := llm.AsUpstreamError(err); ok {
			outcome = "upstream_error"
		}
	}

	g.observer.ObserveUpstream(operation, outcome, time.Since(start))
}
