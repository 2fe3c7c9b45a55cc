package plan

import (
	"testing"
	"time"

	"github.com/kadirpekel/launchgate/pkg/config"
)

func defaultRegistry(t *testing.T) *Registry {
	t.Helper()
	cfg := config.PlansConfig{}
	cfg.SetDefaults()
	r, err := NewRegistry(cfg)
	if err != nil {
		t.Fatalf("failed to build registry: %v", err)
	}
	return r
}

func TestPeriodKey(t *testing.T) {
	at := time.Date(2025, 7, 4, 15, 30, 0, 0, time.UTC)

	if got := PeriodDay.Key(at); got != "2025-07-04" {
		t.Errorf("day key: got %q", got)
	}
	if got := PeriodMonth.Key(at); got != "2025-07" {
		t.Errorf("month key: got %q", got)
	}
}

func TestPeriodKeyUsesUTC(t *testing.T) {
	// 23:30 in UTC-5 is 04:30 the next day in UTC.
	loc := time.FixedZone("UTC-5", -5*3600)
	at := time.Date(2025, 7, 4, 23, 30, 0, 0, loc)

	if got := PeriodDay.Key(at); got != "2025-07-05" {
		t.Errorf("expected UTC day 2025-07-05, got %q", got)
	}
}

func TestPeriodBounds(t *testing.T) {
	at := time.Date(2025, 7, 4, 15, 30, 0, 0, time.UTC)

	start, end := PeriodDay.Bounds(at)
	if !start.Equal(time.Date(2025, 7, 4, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("day start: got %v", start)
	}
	if !end.Equal(time.Date(2025, 7, 5, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("day end: got %v", end)
	}

	start, end = PeriodMonth.Bounds(at)
	if !start.Equal(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("month start: got %v", start)
	}
	if !end.Equal(time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("month end: got %v", end)
	}
}

func TestPeriodBoundsDecemberRollover(t *testing.T) {
	at := time.Date(2025, 12, 15, 0, 0, 0, 0, time.UTC)
	_, end := PeriodMonth.Bounds(at)
	if !end.Equal(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expected january of next year, got %v", end)
	}
}

func TestResolveUnknownFallsBackToFree(t *testing.T) {
	r := defaultRegistry(t)

	p := r.Resolve("no-such-plan")
	if p.Key != FreeKey {
		t.Errorf("expected free fallback, got %q", p.Key)
	}
	if p.Key != r.Resolve("").Key {
		t.Error("expected empty key to resolve like unknown")
	}
}

func TestPeriodFor(t *testing.T) {
	if PeriodFor("free") != PeriodDay {
		t.Error("free plan should be daily")
	}
	if PeriodFor("") != PeriodDay {
		t.Error("empty plan key should be daily")
	}
	for _, key := range []string{"hobby", "pro", "business", "enterprise"} {
		if PeriodFor(key) != PeriodMonth {
			t.Errorf("%s plan should be monthly", key)
		}
	}
}

func TestPlanLimits(t *testing.T) {
	r := defaultRegistry(t)

	free := r.Resolve("free")
	if free.DataLimit(PeriodDay) != 100 {
		t.Errorf("free data daily: got %d", free.DataLimit(PeriodDay))
	}
	if free.AILimit(ClassMini, PeriodDay) != 5 {
		t.Errorf("free mini daily: got %d", free.AILimit(ClassMini, PeriodDay))
	}
	if free.AILimit(ClassGPT4, PeriodDay) != 0 {
		t.Errorf("free gpt4 daily: got %d", free.AILimit(ClassGPT4, PeriodDay))
	}

	pro := r.Resolve("pro")
	if pro.DataLimit(PeriodMonth) != 250_000 {
		t.Errorf("pro data monthly: got %d", pro.DataLimit(PeriodMonth))
	}
	if pro.AILimit(ClassGPT4, PeriodMonth) != 200 {
		t.Errorf("pro gpt4 monthly: got %d", pro.AILimit(ClassGPT4, PeriodMonth))
	}
}

func TestNilLimitInsideLimitedPlanIsZero(t *testing.T) {
	r := defaultRegistry(t)

	// The free plan only sets daily limits; its monthly ones are nil
	// and must read as zero, not unlimited.
	free := r.Resolve("free")
	if free.DataLimit(PeriodMonth) != 0 {
		t.Errorf("expected nil monthly limit to read as 0, got %d", free.DataLimit(PeriodMonth))
	}
	if free.DataUnlimited() {
		t.Error("free plan must not be unlimited")
	}
}

func TestEnterpriseIsUnlimited(t *testing.T) {
	r := defaultRegistry(t)

	ent := r.Resolve("enterprise")
	if !ent.DataUnlimited() {
		t.Error("expected unlimited data")
	}
	if !ent.AIUnlimited() {
		t.Error("expected unlimited ai")
	}
}

func TestDefaultRouteClasses(t *testing.T) {
	rc := DefaultRouteClasses()

	cases := map[string][]Class{
		"/ai/extract":   {ClassMini},
		"/ai/summarize": {ClassGPT4},
		"/enquire":      {ClassMini, ClassGPT4},
	}
	for route, want := range cases {
		got := rc.For(route)
		if len(got) != len(want) {
			t.Errorf("%s: got %v, want %v", route, got, want)
			continue
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("%s: got %v, want %v", route, got, want)
			}
		}
	}

	if rc.For("/api/launches") != nil {
		t.Error("expected data routes to be unmapped")
	}
}
