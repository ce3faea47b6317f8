package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/confiabar/confiabar/internal/domain"
)

func newTestStore(t *testing.T) domain.Store {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "confiabar-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpPath) })

	s, err := New(domain.StoreConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return s
}

func TestSQLiteStore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	identifier := "11222333000181"

	t.Run("Ping", func(t *testing.T) {
		if err := s.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("KVRoundTrip", func(t *testing.T) {
		if err := s.Set(ctx, "record:"+identifier, []byte(`{"tradeName":"Bar do Ze"}`)); err != nil {
			t.Fatalf("Set failed: %v", err)
		}

		value, err := s.Get(ctx, "record:"+identifier)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(value) != `{"tradeName":"Bar do Ze"}` {
			t.Errorf("unexpected value: %s", value)
		}

		// Overwrite replaces.
		if err := s.Set(ctx, "record:"+identifier, []byte(`{}`)); err != nil {
			t.Fatalf("Set overwrite failed: %v", err)
		}
		value, _ = s.Get(ctx, "record:"+identifier)
		if string(value) != `{}` {
			t.Errorf("expected overwrite, got %s", value)
		}

		keys, err := s.ListKeys(ctx)
		if err != nil {
			t.Fatalf("ListKeys failed: %v", err)
		}
		if len(keys) != 1 || keys[0] != "record:"+identifier {
			t.Errorf("unexpected keys: %v", keys)
		}

		if err := s.Delete(ctx, "record:"+identifier); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if _, err := s.Get(ctx, "record:"+identifier); err != ErrNotFound {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
		if err := s.Delete(ctx, "record:"+identifier); err != ErrNotFound {
			t.Errorf("expected ErrNotFound on second delete, got: %v", err)
		}
	})

	t.Run("SaveAndListReports", func(t *testing.T) {
		report := &domain.UserReport{
			ID:            uuid.NewString(),
			Identifier:    identifier,
			Cleanliness:   4,
			SealedBottles: true,
			InvoiceIssued: true,
			NormalPrices:  false,
			Comment:       "boa experiencia",
			CreatedAt:     time.Now().UTC(),
		}

		if err := s.SaveReport(ctx, report); err != nil {
			t.Fatalf("SaveReport failed: %v", err)
		}

		reports, err := s.ListReports(ctx, identifier)
		if err != nil {
			t.Fatalf("ListReports failed: %v", err)
		}
		if len(reports) != 1 {
			t.Fatalf("expected 1 report, got %d", len(reports))
		}
		got := reports[0]
		if got.ID != report.ID || got.Cleanliness != 4 || !got.SealedBottles || got.NormalPrices {
			t.Errorf("round trip mismatch: %+v", got)
		}
	})

	t.Run("ReportValidation", func(t *testing.T) {
		err := s.SaveReport(ctx, &domain.UserReport{ID: uuid.NewString(), Identifier: identifier, Cleanliness: 6})
		if err == nil {
			t.Error("expected error for out-of-range cleanliness")
		}

		err = s.SaveReport(ctx, &domain.UserReport{ID: uuid.NewString(), Cleanliness: 3})
		if err == nil {
			t.Error("expected error for empty identifier")
		}
	})

	t.Run("ReportStats", func(t *testing.T) {
		other := "19131243000197"
		fixtures := []struct {
			clean   int
			sealed  bool
			invoice bool
			prices  bool
		}{
			{5, true, true, true},
			{4, true, true, true},
			{2, false, true, false},
			{4, true, false, true},
		}
		for _, f := range fixtures {
			err := s.SaveReport(ctx, &domain.UserReport{
				ID:            uuid.NewString(),
				Identifier:    other,
				Cleanliness:   f.clean,
				SealedBottles: f.sealed,
				InvoiceIssued: f.invoice,
				NormalPrices:  f.prices,
				CreatedAt:     time.Now().UTC(),
			})
			if err != nil {
				t.Fatalf("SaveReport failed: %v", err)
			}
		}

		stats, err := s.ReportStats(ctx, other)
		if err != nil {
			t.Fatalf("ReportStats failed: %v", err)
		}
		if stats.Total != 4 {
			t.Errorf("Total = %d, want 4", stats.Total)
		}
		// (5+4+2+4)/4 = 3.75 rounds to 3.8
		if stats.AvgCleanliness != 3.8 {
			t.Errorf("AvgCleanliness = %v, want 3.8", stats.AvgCleanliness)
		}
		if stats.PctSealedBottles != 75 {
			t.Errorf("PctSealedBottles = %d, want 75", stats.PctSealedBottles)
		}
		if stats.PctInvoiceIssued != 75 {
			t.Errorf("PctInvoiceIssued = %d, want 75", stats.PctInvoiceIssued)
		}
	})

	t.Run("ReportStatsEmpty", func(t *testing.T) {
		stats, err := s.ReportStats(ctx, "00000000000000")
		if err != nil {
			t.Fatalf("ReportStats failed: %v", err)
		}
		if stats.Total != 0 || stats.AvgCleanliness != 0 {
			t.Errorf("expected zero stats, got %+v", stats)
		}
	})

	t.Run("DeleteReport", func(t *testing.T) {
		report := &domain.UserReport{
			ID:          uuid.NewString(),
			Identifier:  identifier,
			Cleanliness: 3,
			CreatedAt:   time.Now().UTC(),
		}
		if err := s.SaveReport(ctx, report); err != nil {
			t.Fatalf("SaveReport failed: %v", err)
		}

		if err := s.DeleteReport(ctx, identifier, report.ID); err != nil {
			t.Fatalf("DeleteReport failed: %v", err)
		}
		if err := s.DeleteReport(ctx, identifier, report.ID); err != ErrNotFound {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
		// Wrong identifier does not delete.
		if err := s.DeleteReport(ctx, "19131243000197", report.ID); err != ErrNotFound {
			t.Errorf("expected ErrNotFound for wrong identifier, got: %v", err)
		}
	})

	t.Run("Penalties", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			err := s.SavePenalty(ctx, &domain.PenaltyReport{
				ID:         uuid.NewString(),
				Identifier: identifier,
				Reason:     "fiscalizacao",
				CreatedAt:  time.Now().UTC(),
			})
			if err != nil {
				t.Fatalf("SavePenalty failed: %v", err)
			}
		}

		count, err := s.CountPenalties(ctx, identifier)
		if err != nil {
			t.Fatalf("CountPenalties failed: %v", err)
		}
		if count != 3 {
			t.Errorf("count = %d, want 3", count)
		}

		penalties, err := s.ListPenalties(ctx, identifier)
		if err != nil {
			t.Fatalf("ListPenalties failed: %v", err)
		}
		if len(penalties) != 3 {
			t.Errorf("expected 3 penalties, got %d", len(penalties))
		}

		count, _ = s.CountPenalties(ctx, "00000000000000")
		if count != 0 {
			t.Errorf("count for unknown identifier = %d, want 0", count)
		}
	})

	t.Run("ListAll", func(t *testing.T) {
		reports, err := s.ListAllReports(ctx)
		if err != nil {
			t.Fatalf("ListAllReports failed: %v", err)
		}
		if len(reports) != 5 {
			t.Errorf("expected 5 reports across establishments, got %d", len(reports))
		}

		seen := map[string]bool{}
		for _, r := range reports {
			seen[r.Identifier] = true
		}
		if len(seen) != 2 {
			t.Errorf("expected reports for 2 establishments, got %d", len(seen))
		}

		penalties, err := s.ListAllPenalties(ctx)
		if err != nil {
			t.Fatalf("ListAllPenalties failed: %v", err)
		}
		if len(penalties) != 3 {
			t.Errorf("expected 3 penalties, got %d", len(penalties))
		}
	})

	t.Run("AggregateStats", func(t *testing.T) {
		stats, err := s.RefreshStats(ctx)
		if err != nil {
			t.Fatalf("RefreshStats failed: %v", err)
		}
		if stats.TotalPenalties != 3 {
			t.Errorf("TotalPenalties = %d, want 3", stats.TotalPenalties)
		}
		if stats.TotalEstablishments != 2 {
			t.Errorf("TotalEstablishments = %d, want 2", stats.TotalEstablishments)
		}

		cached, err := s.GetStats(ctx)
		if err != nil {
			t.Fatalf("GetStats failed: %v", err)
		}
		if cached.TotalReports != stats.TotalReports {
			t.Errorf("GetStats = %+v, want %+v", cached, stats)
		}
	})

	t.Run("AlertRules", func(t *testing.T) {
		rule := &domain.AlertRuleConfig{
			ID:         "low-equity",
			Name:       "Low equity",
			Expression: "equity < 1000.0",
			Message:    "Declared equity below R$ 1000",
			Enabled:    true,
		}
		if err := s.SaveAlertRule(ctx, rule); err != nil {
			t.Fatalf("SaveAlertRule failed: %v", err)
		}

		// Upsert replaces the expression.
		rule.Expression = "equity < 500.0"
		if err := s.SaveAlertRule(ctx, rule); err != nil {
			t.Fatalf("SaveAlertRule upsert failed: %v", err)
		}

		rules, err := s.ListAlertRules(ctx)
		if err != nil {
			t.Fatalf("ListAlertRules failed: %v", err)
		}
		if len(rules) != 1 {
			t.Fatalf("expected 1 rule, got %d", len(rules))
		}
		if rules[0].Expression != "equity < 500.0" {
			t.Errorf("Expression = %q", rules[0].Expression)
		}

		// Disabled rules are not listed.
		rule.Enabled = false
		if err := s.SaveAlertRule(ctx, rule); err != nil {
			t.Fatalf("SaveAlertRule disable failed: %v", err)
		}
		rules, _ = s.ListAlertRules(ctx)
		if len(rules) != 0 {
			t.Errorf("expected no enabled rules, got %d", len(rules))
		}
	})
}

func TestSearchHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < domain.HistoryLimit+10; i++ {
		err := s.AddSearch(ctx, &domain.SearchEntry{
			ID:         uuid.NewString(),
			QueryType:  domain.QueryTypeCNPJ,
			Identifier: fmt.Sprintf("%014d", i),
			Success:    true,
			TradeName:  fmt.Sprintf("bar-%d", i),
			CreatedAt:  base.Add(time.Duration(i) * time.Millisecond),
		})
		if err != nil {
			t.Fatalf("AddSearch failed: %v", err)
		}
	}

	t.Run("CapEnforced", func(t *testing.T) {
		entries, err := s.ListSearches(ctx, 0)
		if err != nil {
			t.Fatalf("ListSearches failed: %v", err)
		}
		if len(entries) != domain.HistoryLimit {
			t.Errorf("expected %d entries, got %d", domain.HistoryLimit, len(entries))
		}
	})

	t.Run("NewestFirst", func(t *testing.T) {
		entries, err := s.ListSearches(ctx, 5)
		if err != nil {
			t.Fatalf("ListSearches failed: %v", err)
		}
		if len(entries) != 5 {
			t.Fatalf("expected 5 entries, got %d", len(entries))
		}
		if entries[0].TradeName != fmt.Sprintf("bar-%d", domain.HistoryLimit+9) {
			t.Errorf("first entry = %q, want the newest", entries[0].TradeName)
		}
		for i := 1; i < len(entries); i++ {
			if entries[i].CreatedAt.After(entries[i-1].CreatedAt) {
				t.Errorf("entries out of order at %d", i)
			}
		}
	})

	t.Run("Clear", func(t *testing.T) {
		if err := s.ClearSearches(ctx); err != nil {
			t.Fatalf("ClearSearches failed: %v", err)
		}
		entries, _ := s.ListSearches(ctx, 0)
		if len(entries) != 0 {
			t.Errorf("expected empty history, got %d entries", len(entries))
		}
	})
}

func TestUnsupportedDriver(t *testing.T) {
	_, err := New(domain.StoreConfig{Driver: "mysql"})
	if err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestRebind(t *testing.T) {
	s := &SQLStore{driver: "postgres"}

	tests := []struct {
		input    string
		expected string
	}{
		{"SELECT * FROM t WHERE id = ?", "SELECT * FROM t WHERE id = $1"},
		{"INSERT INTO t (a, b) VALUES (?, ?)", "INSERT INTO t (a, b) VALUES ($1, $2)"},
		{"SELECT * FROM t", "SELECT * FROM t"},
	}

	for _, tt := range tests {
		result := s.rebind(tt.input)
		if result != tt.expected {
			t.Errorf("rebind(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}
