package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Счётчики прогона. Регистрируются в дефолтном реестре при импорте пакета;
// инкременты идут через функции-хелперы, чтобы движок не таскал prometheus
// в своих импортах.
var (
	barsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fourfat_bars_ingested_total",
		Help: "Historical bars accepted into the aggregator.",
	})
	duplicateBars = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fourfat_bars_duplicate_total",
		Help: "Bars delivered more than once for the same (symbol, timestamp).",
	})
	unknownIDs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fourfat_unknown_correlation_ids_total",
		Help: "Gateway callbacks whose id resolved to no registered ticket.",
	})
	ordersPlaced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fourfat_orders_placed_total",
		Help: "Orders accepted by the gateway, by side.",
	}, []string{"side"})
	ordersFilled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fourfat_orders_filled_total",
		Help: "Terminal fills observed.",
	})
	ordersCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fourfat_orders_cancelled_total",
		Help: "Sibling legs cancelled after a bracket exit fill.",
	})
	duplicateFills = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fourfat_duplicate_fills_total",
		Help: "Repeated terminal statuses ignored by the order book.",
	})
	outstandingRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fourfat_outstanding_requests",
		Help: "Tickets still waiting for a gateway reply.",
	})
)

func IncBarsIngested()            { barsIngested.Inc() }
func IncDuplicateBars()           { duplicateBars.Inc() }
func IncUnknownIDs()              { unknownIDs.Inc() }
func IncOrdersPlaced(side string) { ordersPlaced.WithLabelValues(side).Inc() }
func IncOrdersFilled()            { ordersFilled.Inc() }
func IncOrdersCancelled()         { ordersCancelled.Inc() }
func IncDuplicateFills()          { duplicateFills.Inc() }
func SetOutstanding(n int)        { outstandingRequests.Set(float64(n)) }
