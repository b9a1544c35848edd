package service

import (
	"fmt"

	"fourfat_bot/internal/models"
)

// Кадры JSON-протокола TWS-моста. Исходящие собираем sonic'ом,
// входящие парсим encoding/json по полю type.

const (
	frameStartAPI       = "startApi"
	frameMarketDataType = "reqMarketDataType"
	frameReqHistorical  = "reqHistoricalData"
	framePlaceOrder     = "placeOrder"
	frameCancelOrder    = "cancelOrder"

	frameNextValidID    = "nextValidId"
	frameHistoricalData = "historicalData"
	frameHistoricalEnd  = "historicalDataEnd"
	frameOrderStatus    = "orderStatus"
	frameError          = "error"
)

type startAPIFrame struct {
	Type     string `json:"type"`
	ClientID int    `json:"clientId"`
}

type marketDataTypeFrame struct {
	Type string `json:"type"`
	Kind int    `json:"marketDataType"` // 3 = delayed
}

type reqHistoricalFrame struct {
	Type        string          `json:"type"`
	ReqID       int64           `json:"reqId"`
	Contract    models.Contract `json:"contract"`
	EndDateTime string          `json:"endDateTime"`
	Duration    string          `json:"duration"` // "23100 S"
	BarSize     string          `json:"barSize"`  // "5 mins"
	WhatToShow  string          `json:"whatToShow"`
	UseRTH      int             `json:"useRTH"`
}

type orderFrame struct {
	Action        string  `json:"action"`
	OrderType     string  `json:"orderType"`
	TotalQuantity float64 `json:"totalQuantity"`
	LmtPrice      float64 `json:"lmtPrice,omitempty"`
	AuxPrice      float64 `json:"auxPrice,omitempty"`
	TIF           string  `json:"tif"`
}

type placeOrderFrame struct {
	Type     string          `json:"type"`
	OrderID  int64           `json:"orderId"`
	Contract models.Contract `json:"contract"`
	Order    orderFrame      `json:"order"`
}

type cancelOrderFrame struct {
	Type    string `json:"type"`
	OrderID int64  `json:"orderId"`
}

type inBar struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

type inFrame struct {
	Type    string  `json:"type"`
	ReqID   int64   `json:"reqId"`
	OrderID int64   `json:"orderId"`
	Bar     inBar   `json:"bar"`
	Status  string  `json:"status"`
	Filled  float64 `json:"filled"`
	AvgFill float64 `json:"avgFillPrice"`
	Code    int     `json:"code"`
	Msg     string  `json:"msg"`
}

// durationStr — длительность запроса в нотации моста.
func durationStr(sec int) string { return fmt.Sprintf("%d S", sec) }

// barSizeStr — размер свечи в нотации моста (300 -> "5 mins").
func barSizeStr(sec int) string {
	switch {
	case sec < 60:
		return fmt.Sprintf("%d secs", sec)
	case sec == 60:
		return "1 min"
	case sec%3600 == 0:
		if sec == 3600 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", sec/3600)
	default:
		return fmt.Sprintf("%d mins", sec/60)
	}
}
