package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "funnel"

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	// outcome: produced, no_json, malformed, invalid
	FunnelsIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "ingested_total", Help: "Producer completions handled, by outcome."},
		[]string{"outcome"},
	)
	RenderedBlocks = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rendered_blocks_total", Help: "Blocks rendered by a registered renderer, by tag."},
		[]string{"tag"},
	)
	// reason: unknown_tag, render_error
	RenderPlaceholders = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "render_placeholders_total", Help: "Blocks rendered as placeholders, by reason."},
		[]string{"reason"},
	)
	PagesPublished = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "pages_published_total", Help: "Rendered pages uploaded to object storage."},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(FunnelsIngested)
	reg.MustRegister(RenderedBlocks)
	reg.MustRegister(RenderPlaceholders)
	reg.MustRegister(PagesPublished)
}
