package usage

import (
	"context"
	"testing"
	"time"

	"github.com/kadirpekel/launchgate/pkg/plan"
)

func TestNormalizeModel(t *testing.T) {
	cases := map[string]string{
		"gpt-4.1":                "gpt-4.1",
		"gpt-4.1-2025-04-14":     "gpt-4.1",
		"my-org/GPT-4.1-eastus2": "gpt-4.1",
		"gpt-5-mini":             "gpt-5-mini",
		"gpt-5-mini-deployment":  "gpt-5-mini",
		"llama-3-70b":            "llama-3-70b",
	}
	for in, want := range cases {
		if got := NormalizeModel(in); got != want {
			t.Errorf("NormalizeModel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPricerEstimate(t *testing.T) {
	p := NewPricer(nil)

	// gpt-4.1: $2/1M input, $8/1M output.
	if got := p.Estimate("gpt-4.1", 1_000_000, 1_000_000); got != 10.0 {
		t.Errorf("expected 10.0, got %v", got)
	}

	// gpt-5-mini: $0.40/1M input, $1.60/1M output.
	if got := p.Estimate("gpt-5-mini-prod", 500_000, 250_000); got != 0.6 {
		t.Errorf("expected 0.6, got %v", got)
	}

	// Unknown models cost nothing.
	if got := p.Estimate("llama-3-70b", 1_000_000, 1_000_000); got != 0 {
		t.Errorf("expected 0, got %v", got)
	}
}

func TestPricerRoundsToSixDecimals(t *testing.T) {
	p := NewPricer(nil)

	// 7 input tokens of gpt-5-mini = 7 * 0.40 / 1e6 = 0.0000028,
	// which rounds to 0.000003.
	if got := p.Estimate("gpt-5-mini", 7, 0); got != 0.000003 {
		t.Errorf("expected 0.000003, got %v", got)
	}
}

func TestMemoryLedgerCountInRange(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	base := time.Date(2025, 7, 4, 12, 0, 0, 0, time.UTC)
	events := []Event{
		{UserID: "u1", Model: "gpt-5-mini", CreatedAt: base},
		{UserID: "u1", Model: "gpt-5-mini-prod", CreatedAt: base.Add(time.Hour)},
		{UserID: "u1", Model: "gpt-4.1", CreatedAt: base},
		{UserID: "u1", Model: "gpt-4.1-2025-04-14", CreatedAt: base},
		{UserID: "u2", Model: "gpt-5-mini", CreatedAt: base},
		// Outside the range.
		{UserID: "u1", Model: "gpt-5-mini", CreatedAt: base.Add(24 * time.Hour)},
	}
	for _, e := range events {
		if err := l.Append(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	start, end := plan.PeriodDay.Bounds(base)

	mini, err := l.CountInRange(ctx, "u1", plan.ClassMini, start, end)
	if err != nil {
		t.Fatal(err)
	}
	if mini != 2 {
		t.Errorf("expected 2 mini events, got %d", mini)
	}

	gpt4, err := l.CountInRange(ctx, "u1", plan.ClassGPT4, start, end)
	if err != nil {
		t.Fatal(err)
	}
	if gpt4 != 2 {
		t.Errorf("expected 2 gpt4 events, got %d", gpt4)
	}
}

func TestMemoryLedgerTodayTotals(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()
	now := time.Date(2025, 7, 4, 12, 0, 0, 0, time.UTC)

	appends := []Event{
		{UserID: "u1", Model: "gpt-5-mini", InputTokens: 100, OutputTokens: 50, CostUSD: 0.25, CreatedAt: now},
		{UserID: "u1", Model: "gpt-4.1", InputTokens: 200, OutputTokens: 100, CostUSD: 0.5, CreatedAt: now.Add(time.Hour)},
		{UserID: "u1", Model: "gpt-4.1", InputTokens: 999, OutputTokens: 999, CostUSD: 1, CreatedAt: now.Add(-24 * time.Hour)},
	}
	for _, e := range appends {
		if err := l.Append(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	totals, err := l.TodayTotals(ctx, "u1", now)
	if err != nil {
		t.Fatal(err)
	}
	if totals.Calls != 2 {
		t.Errorf("expected 2 calls, got %d", totals.Calls)
	}
	if totals.InputTokens != 300 || totals.OutputTokens != 150 {
		t.Errorf("unexpected token totals: %+v", totals)
	}
	if totals.CostUSD != 0.75 {
		t.Errorf("expected cost 0.75, got %v", totals.CostUSD)
	}
}

func TestMemoryLedgerDailyByModel(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()
	now := time.Date(2025, 7, 4, 12, 0, 0, 0, time.UTC)

	appends := []Event{
		{UserID: "u1", Model: "gpt-5-mini", CreatedAt: now},
		{UserID: "u1", Model: "gpt-5-mini", CreatedAt: now},
		{UserID: "u1", Model: "gpt-4.1", CreatedAt: now},
		{UserID: "u1", Model: "gpt-5-mini", CreatedAt: now.AddDate(0, 0, -1)},
		// Too old for a 7 day window.
		{UserID: "u1", Model: "gpt-5-mini", CreatedAt: now.AddDate(0, 0, -10)},
	}
	for _, e := range appends {
		if err := l.Append(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	rows, err := l.DailyByModel(ctx, "u1", 7, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d: %+v", len(rows), rows)
	}

	// Newest day first, models alphabetical within a day.
	if rows[0].Day != "2025-07-04" || rows[0].Model != "gpt-4.1" || rows[0].Calls != 1 {
		t.Errorf("unexpected row 0: %+v", rows[0])
	}
	if rows[1].Day != "2025-07-04" || rows[1].Model != "gpt-5-mini" || rows[1].Calls != 2 {
		t.Errorf("unexpected row 1: %+v", rows[1])
	}
	if rows[2].Day != "2025-07-03" || rows[2].Model != "gpt-5-mini" || rows[2].Calls != 1 {
		t.Errorf("unexpected row 2: %+v", rows[2])
	}
}

func TestRecorderNormalizesModelName(t *testing.T) {
	l := NewMemoryLedger()
	r := NewRecorder(l, nil)
	ctx := context.Background()
	now := time.Now().UTC()

	// A deployment name where the canonical model is not a prefix must
	// still count against the gpt4 tier.
	r.Record(ctx, "u1", "/ai/summarize", "prod-gpt-4.1-eastus", 10, 10)

	start, end := plan.PeriodDay.Bounds(now)
	gpt4, err := l.CountInRange(ctx, "u1", plan.ClassGPT4, start, end)
	if err != nil {
		t.Fatal(err)
	}
	if gpt4 != 1 {
		t.Errorf("expected 1 gpt4 event, got %d", gpt4)
	}

	// The daily report aggregates under the canonical name.
	rows, err := l.DailyByModel(ctx, "u1", 1, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Model != "gpt-4.1" {
		t.Errorf("expected one gpt-4.1 row, got %+v", rows)
	}
}

func TestRecorderEstimatesCost(t *testing.T) {
	l := NewMemoryLedger()
	r := NewRecorder(l, nil)

	r.Record(context.Background(), "u1", "/ai/extract", "gpt-5-mini", 1_000_000, 0)

	totals, err := l.TodayTotals(context.Background(), "u1", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if totals.Calls != 1 {
		t.Fatalf("expected 1 call, got %d", totals.Calls)
	}
	if totals.CostUSD != 0.4 {
		t.Errorf("expected cost 0.4, got %v", totals.CostUSD)
	}
}
