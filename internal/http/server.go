// Package http exposes the ledger over a JSON API: CSV import, transaction
// listing, category assignment, rule editing, and month aggregates. Derived
// aggregates are cached per filter and dropped wholesale on any write.
package http

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"spendlite/internal/cache"
	"spendlite/internal/core"
	"spendlite/internal/storage"
)

// Ledger is the slice of the transaction service the HTTP layer consumes.
type Ledger interface {
	ImportCSV(ctx context.Context, r io.Reader) (int, error)
	List(ctx context.Context, month, category string) ([]storage.Transaction, error)
	Totals(ctx context.Context, month, category string) ([]core.CategoryTotal, decimal.Decimal, error)
	Report(ctx context.Context, month string) (string, error)
	Months(ctx context.Context) ([]string, error)
	RuleText(ctx context.Context) (string, error)
	UpdateRules(ctx context.Context, text string) (int, error)
	AssignCategory(ctx context.Context, id int64, category string) (string, error)
	Recategorise(ctx context.Context) (int, error)
}

// Pinger reports whether the backing store is reachable. Used by the
// readiness endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

const (
	totalsCacheSize      = 100
	reportCacheSize      = 50
	derivedCacheTTL      = 5 * time.Minute
	cacheJanitorInterval = 10 * time.Minute
)

type Server struct {
	http.Server

	ledger Ledger
	pinger Pinger

	rateLimiter *rateLimiter
	totalsCache *cache.LRUCache[totalsResponse]
	reportCache *cache.LRUCache[string]
	janitor     *cache.Manager

	shutdownOnce sync.Once
}

func NewServer(addr string, ledger Ledger, pinger Pinger) *Server {
	s := &Server{
		ledger:      ledger,
		pinger:      pinger,
		rateLimiter: newRateLimiter(),
		totalsCache: cache.NewLRUCache[totalsResponse](totalsCacheSize, derivedCacheTTL),
		reportCache: cache.NewLRUCache[string](reportCacheSize, derivedCacheTTL),
		janitor:     cache.NewManager(),
	}

	s.janitor.Register(s.totalsCache)
	s.janitor.Register(s.reportCache)
	s.janitor.StartCleanup(cacheJanitorInterval)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("POST /api/import", s.withCommon(s.handleImport))
	mux.HandleFunc("GET /api/transactions", s.withCommon(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions/{id}/category", s.withCommon(s.handleAssignCategory))
	mux.HandleFunc("GET /api/rules", s.withCommon(s.handleGetRules))
	mux.HandleFunc("PUT /api/rules", s.withCommon(s.handlePutRules))
	mux.HandleFunc("POST /api/recategorize", s.withCommon(s.handleRecategorize))
	mux.HandleFunc("GET /api/totals", s.withCommon(s.handleTotals))
	mux.HandleFunc("GET /api/months", s.withCommon(s.handleMonths))
	mux.HandleFunc("GET /api/report", s.withCommon(s.handleReport))

	s.Server = http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// invalidateDerived drops every cached aggregate. A single import or
// assignment can shift any month's totals, so invalidation is wholesale
// rather than per key.
func (s *Server) invalidateDerived() {
	s.totalsCache.Clear()
	s.reportCache.Clear()
}

// Shutdown stops the background janitors, then drains in-flight requests.
// Safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.janitor.Stop()
		s.rateLimiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
