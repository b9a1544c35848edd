package service

import (
	"sync/atomic"
	"time"
)

// Пакетное состояние живости: пишут шлюз и движок, читает http-хендлер.
// Атомики вместо мьютекса — каждое поле независимо.
var (
	ready       atomic.Bool
	wsConnected atomic.Bool
	lastBarUnix atomic.Int64
)

func SetReady(v bool)       { ready.Store(v) }
func Ready() bool           { return ready.Load() }
func SetWSConnected(v bool) { wsConnected.Store(v) }
func WSConnected() bool     { return wsConnected.Load() }

// TouchLastBar отмечает момент последней принятой свечи.
func TouchLastBar(t time.Time) { lastBarUnix.Store(t.Unix()) }

func LastBar() time.Time {
	u := lastBarUnix.Load()
	if u == 0 {
		return time.Time{}
	}
	return time.Unix(u, 0)
}
