package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"fourfat_bot/internal/config"
	"fourfat_bot/internal/models"
	healthsvc "fourfat_bot/internal/modules/health/service"
	"fourfat_bot/pkg/logger"
)

// EventSink получает события шлюза. Все методы зовутся из одного
// фонового диспетчера, строго по порядку прихода кадров.
type EventSink interface {
	OnBar(id int64, bar models.Bar)
	OnBarsDone(id int64)
	OnOrderStatus(ev models.OrderStatusEvent)
	OnNextValidID(id int64)
}

// Client — WebSocket-клиент TWS-моста. Держит одно соединение с
// реконнектом; исходящие кадры сериализует мьютексом, входящие гонит
// через буферный канал в единственный диспетчер.
type Client struct {
	cfg      *config.Config
	wsDialer *websocket.Dialer
	sink     EventSink

	mu   sync.Mutex // пишущая сторона conn
	conn *websocket.Conn

	events chan inFrame
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		cfg:      cfg,
		wsDialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		events:   make(chan inFrame, 1024),
	}
}

// SetSink подключает получателя событий. Вызывать до Start.
func (c *Client) SetSink(s EventSink) { c.sink = s }

func (c *Client) url() string {
	return fmt.Sprintf("ws://%s:%d/v1/api", c.cfg.GatewayHost, c.cfg.Port())
}

// Start держит соединение и читает кадры, пока ctx жив.
func (c *Client) Start(ctx context.Context) {
	go c.dispatch(ctx)

	for {
		log.Printf("[WS] connect %s (clientId=%d)", c.url(), c.cfg.GatewayClientID)
		conn, _, err := c.wsDialer.DialContext(ctx, c.url(), nil)
		if err != nil {
			logger.Error("[WS] dial: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()

		if err := c.bootstrap(); err != nil {
			logger.Error("[WS] bootstrap: %v", err)
			_ = conn.Close()
			continue
		}
		healthsvc.SetWSConnected(true)

		// keepalive ping каждые 20s — мост рвёт молчаливые соединения
		stopPing := make(chan struct{})
		go func() {
			t := time.NewTicker(20 * time.Second)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-stopPing:
					return
				case <-t.C:
					c.mu.Lock()
					_ = conn.WriteMessage(websocket.PingMessage, nil)
					c.mu.Unlock()
				}
			}
		}()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				logger.Error("[WS] read: %v", err)
				break
			}
			var frame inFrame
			if err := json.Unmarshal(msg, &frame); err != nil {
				continue
			}
			select {
			case c.events <- frame:
			default:
				// буфер доставки переполнен — кадр теряем громко
				logger.Error("[WS] event buffer full, dropping %s frame", frame.Type)
			}
		}

		close(stopPing)
		healthsvc.SetWSConnected(false)
		_ = conn.Close()
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		default:
			time.Sleep(time.Second)
		}
	}
}

// bootstrap — сессия моста: startApi с clientId и delayed market data.
func (c *Client) bootstrap() error {
	if err := c.send(startAPIFrame{Type: frameStartAPI, ClientID: c.cfg.GatewayClientID}); err != nil {
		return err
	}
	return c.send(marketDataTypeFrame{Type: frameMarketDataType, Kind: 3})
}

// dispatch — единственный поток, который зовёт sink.
func (c *Client) dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-c.events:
			c.handle(frame)
		}
	}
}

func (c *Client) handle(frame inFrame) {
	if c.sink == nil {
		return
	}
	switch frame.Type {
	case frameNextValidID:
		log.Printf("[WS] nextValidId=%d", frame.OrderID)
		c.sink.OnNextValidID(frame.OrderID)
	case frameHistoricalData:
		c.sink.OnBar(frame.ReqID, models.Bar{
			Timestamp: frame.Bar.Date,
			Open:      frame.Bar.Open,
			High:      frame.Bar.High,
			Low:       frame.Bar.Low,
			Close:     frame.Bar.Close,
			Volume:    frame.Bar.Volume,
		})
	case frameHistoricalEnd:
		c.sink.OnBarsDone(frame.ReqID)
	case frameOrderStatus:
		c.sink.OnOrderStatus(models.OrderStatusEvent{
			OrderID:      frame.OrderID,
			State:        models.OrderState(frame.Status),
			FilledQty:    frame.Filled,
			AvgFillPrice: frame.AvgFill,
		})
	case frameError:
		// аномалия со стороны шлюза: фиксируем, прогон не роняем
		logger.Error("[WS] gateway error id=%d code=%d: %s", frame.ReqID, frame.Code, frame.Msg)
	default:
		log.Printf("[WS] unhandled frame type %q", frame.Type)
	}
}
