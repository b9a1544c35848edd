package models

import "errors"

var (
	ErrInvalidOrderKind = errors.New("invalid order kind")
	ErrInvalidSide      = errors.New("invalid order side")
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite — сторона закрывающей ноги брекета.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

type OrderKind string

const (
	KindMarket        OrderKind = "MKT"
	KindLimit         OrderKind = "LMT"
	KindStop          OrderKind = "STP"
	KindMarketOnClose OrderKind = "MOC"
)

type OrderState string

const (
	StateSubmitted OrderState = "Submitted"
	StateFilled    OrderState = "Filled"
	StateCancelled OrderState = "Cancelled"
)

// Terminal — после этого статуса ордер больше не изменится.
func (s OrderState) Terminal() bool {
	return s == StateFilled || s == StateCancelled
}

// Purpose — зачем был выдан requestId/orderId.
// У long-пути entry это покупка, у short-пути — продажа, поэтому
// семантика entry/exit, а не buy/sell.
type Purpose string

const (
	PurposeHistoricalBars Purpose = "historical-bars"
	PurposeEntryOrder     Purpose = "entry-order"
	PurposeExitOrder      Purpose = "exit-order"
)

// OrderStatusEvent — нормализованный orderStatus-колбек шлюза.
type OrderStatusEvent struct {
	OrderID      int64
	State        OrderState
	FilledQty    float64
	AvgFillPrice float64
}
