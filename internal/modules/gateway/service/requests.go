package service

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"fourfat_bot/internal/models"
)

// send сериализует кадр sonic'ом и пишет под мьютексом: у gorilla
// одновременные писатели запрещены.
func (c *Client) send(frame any) error {
	payload, err := sonic.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("gateway not connected")
	}
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// RequestHistoricalBars — запрос исторических свечей TRADES.
func (c *Client) RequestHistoricalBars(ctx context.Context, reqID int64, contract models.Contract, endDateTime string, durationSec, barSeconds int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.send(reqHistoricalFrame{
		Type:        frameReqHistorical,
		ReqID:       reqID,
		Contract:    contract,
		EndDateTime: endDateTime,
		Duration:    durationStr(durationSec),
		BarSize:     barSizeStr(barSeconds),
		WhatToShow:  "TRADES",
		UseRTH:      0,
	})
}

// PlaceOrder валидирует ногу и отправляет её мосту. Битые kind/side —
// ошибки конструирования, их ловит вызывающий по сентинелам.
func (c *Client) PlaceOrder(ctx context.Context, orderID int64, contract models.Contract, side models.Side, kind models.OrderKind, price, qty float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if side != models.SideBuy && side != models.SideSell {
		return fmt.Errorf("%w: %q", models.ErrInvalidSide, side)
	}

	order := orderFrame{
		Action:        string(side),
		TotalQuantity: qty,
		TIF:           "DAY",
	}
	switch kind {
	case models.KindMarket:
		order.OrderType = "MKT"
	case models.KindLimit:
		order.OrderType = "LMT"
		order.LmtPrice = price
	case models.KindStop:
		order.OrderType = "STP"
		order.AuxPrice = price
	case models.KindMarketOnClose:
		order.OrderType = "MOC"
	default:
		return fmt.Errorf("%w: %q", models.ErrInvalidOrderKind, kind)
	}

	return c.send(placeOrderFrame{
		Type:     framePlaceOrder,
		OrderID:  orderID,
		Contract: contract,
		Order:    order,
	})
}

// CancelOrder — отмена по id. Отмена уже терминального ордера на мосту no-op.
func (c *Client) CancelOrder(ctx context.Context, orderID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.send(cancelOrderFrame{Type: frameCancelOrder, OrderID: orderID})
}
