package engine

import (
	"context"
	"sync"
)

// Admission ограничивает число одновременно открытых запросов к шлюзу.
// Аналог листа ожидания на 50 слотов: Submit блокирует вызывающего, пока
// слот не освободится. Никогда не ошибается — только задерживает.
type Admission struct {
	mu       sync.Mutex
	cond     *sync.Cond
	max      int
	inFlight map[int64]struct{}
}

func NewAdmission(max int) *Admission {
	if max <= 0 {
		max = 50
	}
	a := &Admission{
		max:      max,
		inFlight: make(map[int64]struct{}),
	}
	a.cond = sync.NewCond(&a.mu)
	return a
}

// Submit ждёт свободный слот и занимает его под id.
// ctx прерывает только ожидание (остановка прогона), других ошибок нет.
func (a *Admission) Submit(ctx context.Context, id int64) error {
	// cond не умеет ctx — будим ожидающих при отмене
	stop := context.AfterFunc(ctx, func() {
		a.cond.Broadcast()
	})
	defer stop()

	a.mu.Lock()
	defer a.mu.Unlock()
	for len(a.inFlight) >= a.max {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		a.cond.Wait()
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	a.inFlight[id] = struct{}{}
	return nil
}

// Release освобождает слот. Повторный вызов по тому же id — no-op:
// ответ шлюза может гоняться с таймаут-уборкой.
func (a *Admission) Release(id int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.inFlight[id]; !ok {
		return
	}
	delete(a.inFlight, id)
	a.cond.Broadcast()
}

func (a *Admission) InFlight() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.inFlight)
}
