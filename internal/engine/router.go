package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"fourfat_bot/internal/models"
)

// Sequence — генератор id запросов и ордеров. Один на движок, стартует выше
// базы, чтобы не пересечься с id, которые шлюз уже раздал сам.
type Sequence struct {
	next atomic.Int64
}

func NewSequence(base int64) *Sequence {
	s := &Sequence{}
	s.next.Store(base)
	return s
}

func (s *Sequence) Next() int64 { return s.next.Add(1) }

// Bump поднимает счётчик минимум до min (сид от nextValidId сессии шлюза).
func (s *Sequence) Bump(min int64) {
	for {
		cur := s.next.Load()
		if cur >= min {
			return
		}
		if s.next.CompareAndSwap(cur, min) {
			return
		}
	}
}

// ticket — одна запись корреляции id -> (символ, назначение).
type ticket struct {
	symbol  string
	purpose models.Purpose
	created time.Time
	open    bool
}

// Router — единственная общая таблица между фоновым потоком доставки
// и управляющим потоком. Резолвит ответы шлюза обратно к символам.
//
// Тикет живёт в двух фазах: open (ждём ответ, считается в Outstanding)
// и satisfied (ответ был, но маппинг ещё нужен — исторический запрос
// приносит много свечей после первой). Unregister убирает запись совсем.
type Router struct {
	mu   sync.Mutex
	m    map[int64]*ticket
	open int
}

func NewRouter() *Router {
	return &Router{m: make(map[int64]*ticket)}
}

func (r *Router) Register(id int64, symbol string, purpose models.Purpose, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.m[id]; ok {
		return // id уже занят — программная ошибка, но не роняем доставку
	}
	r.m[id] = &ticket{symbol: symbol, purpose: purpose, created: now, open: true}
	r.open++
}

func (r *Router) Resolve(id int64) (symbol string, purpose models.Purpose, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.m[id]
	if !ok {
		return "", "", false
	}
	return t.symbol, t.purpose, true
}

// MarkSatisfied — ответ пришёл: тикет больше не outstanding, но резолвится.
// Идемпотентно.
func (r *Router) MarkSatisfied(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.m[id]
	if !ok || !t.open {
		return
	}
	t.open = false
	r.open--
}

// Unregister удаляет маппинг. Отсутствующий id — no-op: ответ мог
// обогнать уборку.
func (r *Router) Unregister(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.m[id]
	if !ok {
		return
	}
	if t.open {
		r.open--
	}
	delete(r.m, id)
}

// Outstanding — сколько тикетов ещё ждёт ответа.
func (r *Router) Outstanding() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.open
}

// ExpireBefore помечает протухшие open-тикеты и возвращает их id,
// чтобы вызывающий освободил слоты admission.
func (r *Router) ExpireBefore(cutoff time.Time) []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var expired []int64
	for id, t := range r.m {
		if t.open && t.created.Before(cutoff) {
			t.open = false
			r.open--
			expired = append(expired, id)
		}
	}
	return expired
}
