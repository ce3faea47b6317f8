package lookup

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/confiabar/confiabar/internal/cache"
	"github.com/confiabar/confiabar/internal/domain"
	"github.com/confiabar/confiabar/internal/provider"
)

const testCNPJ = "11222333000181"

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, nil))
}

// fakeStore records history entries and stubs the rest of the store.
type fakeStore struct {
	domain.Store
	history []*domain.SearchEntry
	addErr  error
}

func (f *fakeStore) AddSearch(ctx context.Context, entry *domain.SearchEntry) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.history = append(f.history, entry)
	return nil
}

type fakeCEP struct {
	result *domain.CEPResult
	err    error
}

func (f *fakeCEP) LookupCEP(ctx context.Context, cep string) (*domain.CEPResult, error) {
	return f.result, f.err
}

func newTestService(t *testing.T, providerURL string) (*Service, *fakeStore) {
	t.Helper()

	store := &fakeStore{}
	c := cache.NewLRUCache(100)
	t.Cleanup(func() { c.Close() })

	client := provider.NewClient(time.Second)
	gateway := provider.NewGateway(quietLogger(), provider.NewBrasilAPI(client, providerURL))

	svc := NewService(store, c, gateway, &fakeCEP{}, time.Hour, quietLogger())
	return svc, store
}

func registryServer(t *testing.T, hits *int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			*hits++
		}
		w.Write([]byte(`{
			"razao_social": "BAR DO ZE LTDA",
			"nome_fantasia": "Bar do Ze",
			"descricao_situacao_cadastral": "ATIVA",
			"data_inicio_atividade": "2015-03-10",
			"cnae_fiscal": 5611201
		}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLookupInvalidInput(t *testing.T) {
	svc, store := newTestService(t, "http://unused.invalid")

	for _, raw := range []string{"", "123", "11111111111111", "1122233300018a"} {
		_, err := svc.Lookup(context.Background(), raw)
		if !errors.Is(err, ErrInvalidIdentifier) {
			t.Errorf("Lookup(%q) = %v, want ErrInvalidIdentifier", raw, err)
		}
	}

	// Malformed input never reaches the history.
	if len(store.history) != 0 {
		t.Errorf("expected empty history, got %d entries", len(store.history))
	}
}

func TestLookupCacheIdempotence(t *testing.T) {
	hits := 0
	srv := registryServer(t, &hits)
	svc, store := newTestService(t, srv.URL)
	ctx := context.Background()

	first, err := svc.Lookup(ctx, "11.222.333/0001-81")
	if err != nil {
		t.Fatalf("first Lookup failed: %v", err)
	}
	if first.Origin != "brasilapi" {
		t.Errorf("first Origin = %q, want brasilapi", first.Origin)
	}

	second, err := svc.Lookup(ctx, testCNPJ)
	if err != nil {
		t.Fatalf("second Lookup failed: %v", err)
	}
	if second.Origin != domain.OriginCache {
		t.Errorf("second Origin = %q, want cache", second.Origin)
	}
	if second.Record.TradeName != first.Record.TradeName {
		t.Errorf("cached record differs: %q vs %q", second.Record.TradeName, first.Record.TradeName)
	}

	if hits != 1 {
		t.Errorf("provider hit %d times, want 1", hits)
	}

	// Only the provider-backed lookup logs history.
	if len(store.history) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(store.history))
	}
	entry := store.history[0]
	if !entry.Success || entry.TradeName != "Bar do Ze" {
		t.Errorf("unexpected history entry: %+v", entry)
	}
}

func TestLookupAllProvidersFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	svc, store := newTestService(t, srv.URL)

	_, err := svc.Lookup(context.Background(), testCNPJ)

	var cErr *provider.CascadeError
	if !errors.As(err, &cErr) {
		t.Fatalf("expected *CascadeError, got %v", err)
	}

	if len(store.history) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(store.history))
	}
	entry := store.history[0]
	if entry.Success || entry.Error == "" {
		t.Errorf("expected failure entry with error, got %+v", entry)
	}
}

func TestLookupHistoryFailureIsNotFatal(t *testing.T) {
	srv := registryServer(t, nil)
	svc, store := newTestService(t, srv.URL)
	store.addErr = errors.New("disk full")

	result, err := svc.Lookup(context.Background(), testCNPJ)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if result.Record.TradeName != "Bar do Ze" {
		t.Errorf("unexpected record: %+v", result.Record)
	}
}

func TestLookupCEP(t *testing.T) {
	t.Run("Invalid", func(t *testing.T) {
		svc, store := newTestService(t, "http://unused.invalid")

		_, err := svc.LookupCEP(context.Background(), "123")
		if !errors.Is(err, ErrInvalidIdentifier) {
			t.Errorf("expected ErrInvalidIdentifier, got %v", err)
		}
		if len(store.history) != 0 {
			t.Errorf("expected empty history, got %d entries", len(store.history))
		}
	})

	t.Run("Found", func(t *testing.T) {
		svc, store := newTestService(t, "http://unused.invalid")
		svc.cep = &fakeCEP{result: &domain.CEPResult{Zip: "01310-100", City: "Sao Paulo"}}

		result, err := svc.LookupCEP(context.Background(), "01310-100")
		if err != nil {
			t.Fatalf("LookupCEP failed: %v", err)
		}
		if result.City != "Sao Paulo" {
			t.Errorf("unexpected result: %+v", result)
		}
		if len(store.history) != 1 || store.history[0].QueryType != domain.QueryTypeCEP {
			t.Errorf("expected one CEP history entry, got %+v", store.history)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		svc, store := newTestService(t, "http://unused.invalid")
		svc.cep = &fakeCEP{err: provider.ErrCEPNotFound}

		_, err := svc.LookupCEP(context.Background(), "99999999")
		if !errors.Is(err, provider.ErrCEPNotFound) {
			t.Errorf("expected ErrCEPNotFound, got %v", err)
		}
		if len(store.history) != 1 || store.history[0].Success {
			t.Errorf("expected one failure entry, got %+v", store.history)
		}
	})
}
