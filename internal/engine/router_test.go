package engine

import (
	"testing"
	"time"

	"fourfat_bot/internal/models"
)

func TestRouterResolveLifecycle(t *testing.T) {
	rt := NewRouter()
	now := time.Now()

	rt.Register(1001, "BABA", models.PurposeHistoricalBars, now)
	if got := rt.Outstanding(); got != 1 {
		t.Fatalf("outstanding = %d, want 1", got)
	}

	sym, purpose, ok := rt.Resolve(1001)
	if !ok || sym != "BABA" || purpose != models.PurposeHistoricalBars {
		t.Fatalf("resolve = (%q, %q, %v)", sym, purpose, ok)
	}

	// первая свеча снимает тикет с барьера, но маппинг живёт
	rt.MarkSatisfied(1001)
	rt.MarkSatisfied(1001)
	if got := rt.Outstanding(); got != 0 {
		t.Fatalf("outstanding after satisfy = %d, want 0", got)
	}
	if _, _, ok := rt.Resolve(1001); !ok {
		t.Fatalf("satisfied ticket must still resolve")
	}

	rt.Unregister(1001)
	if _, _, ok := rt.Resolve(1001); ok {
		t.Fatalf("unregistered ticket resolved")
	}
	rt.Unregister(1001) // no-op
}

func TestRouterUnknownID(t *testing.T) {
	rt := NewRouter()
	if _, _, ok := rt.Resolve(42); ok {
		t.Fatalf("resolved never-registered id")
	}
}

func TestRouterExpireBefore(t *testing.T) {
	rt := NewRouter()
	base := time.Now()
	rt.Register(1, "A", models.PurposeHistoricalBars, base)
	rt.Register(2, "B", models.PurposeHistoricalBars, base.Add(time.Minute))
	rt.Register(3, "C", models.PurposeHistoricalBars, base)
	rt.MarkSatisfied(3) // уже закрыт, протухнуть не может

	expired := rt.ExpireBefore(base.Add(30 * time.Second))
	if len(expired) != 1 || expired[0] != 1 {
		t.Fatalf("expired = %v, want [1]", expired)
	}
	if got := rt.Outstanding(); got != 1 {
		t.Fatalf("outstanding = %d, want 1", got)
	}
	// брошенный тикет всё ещё резолвится для хвостовых свечей
	if _, _, ok := rt.Resolve(1); !ok {
		t.Fatalf("expired ticket must still resolve")
	}
}

func TestSequence(t *testing.T) {
	seq := NewSequence(1000)
	if got := seq.Next(); got != 1001 {
		t.Fatalf("first id = %d, want 1001", got)
	}

	seq.Bump(2000)
	if got := seq.Next(); got != 2001 {
		t.Fatalf("id after bump = %d, want 2001", got)
	}

	// bump вниз не откатывает
	seq.Bump(5)
	if got := seq.Next(); got != 2002 {
		t.Fatalf("id after low bump = %d, want 2002", got)
	}
}
