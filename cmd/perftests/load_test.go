package perftests

import (
	"errors"
	"fmt"
	"math/rand"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"auction-house/internal/auctionerrors"
	bidding "auction-house/internal/biddingService"
	catalog "auction-house/internal/catalogService"
	question "auction-house/internal/questionService"
	"auction-house/internal/repository"

	"github.com/shopspring/decimal"
)

// marketLoad describes one traffic shape against the marketplace. Weights are relative.
type marketLoad struct {
	Name       string
	Items      int
	BidWeight  int
	ViewWeight int
	AskWeight  int
	MaxRaise   int // largest step above the starting price, in whole units
	Burst      bool
}

// latencyLog keeps per-operation timings for percentile reporting
type latencyLog struct {
	mu      sync.Mutex
	samples map[string][]time.Duration
}

func (l *latencyLog) Record(op string, d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.samples == nil {
		l.samples = map[string][]time.Duration{}
	}
	l.samples[op] = append(l.samples[op], d)
}

// Percentiles returns count, p50, p95 and p99 for op
func (l *latencyLog) Percentiles(op string) (n int, p50, p95, p99 time.Duration) {
	l.mu.Lock()
	samples := append([]time.Duration(nil), l.samples[op]...)
	l.mu.Unlock()

	if len(samples) == 0 {
		return 0, 0, 0, 0
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	at := func(q float64) time.Duration { return samples[int(q*float64(len(samples)-1))] }
	return len(samples), at(0.50), at(0.95), at(0.99)
}

type market struct {
	bids      *bidding.BiddingService
	catalog   *catalog.CatalogService
	questions *question.QuestionService
}

func newMarket(items int) market {
	repo := repository.NewMemoryRepo()
	for i := 0; i < items; i++ {
		repo.AddItem(newItem(fmt.Sprintf("lot_%d", i), 100))
	}
	return market{
		bids:      bidding.NewBiddingService(repo),
		catalog:   catalog.NewCatalogService(repo, nil),
		questions: question.NewQuestionService(repo, nil),
	}
}

func Benchmark_Load_Marketplace(b *testing.B) {
	loads := []marketLoad{
		{Name: "Bidding-War-FewLots", Items: 5, BidWeight: 9, ViewWeight: 1, MaxRaise: 20},
		{Name: "Browsing-ManyLots", Items: 200, BidWeight: 1, ViewWeight: 8, AskWeight: 1, MaxRaise: 50},
		{Name: "Closing-Minutes", Items: 20, BidWeight: 6, ViewWeight: 4, MaxRaise: 30, Burst: true},
		{Name: "Questions-Heavy", Items: 50, BidWeight: 2, ViewWeight: 4, AskWeight: 4, MaxRaise: 30},
		{Name: "Single-Lot", Items: 1, BidWeight: 5, ViewWeight: 5, MaxRaise: 10, Burst: true},
	}

	for _, l := range loads {
		b.Run(l.Name, func(b *testing.B) {
			runMarketLoad(b, l)
		})
	}
}

func runMarketLoad(b *testing.B, l marketLoad) {
	b.ReportAllocs()

	m := newMarket(l.Items)
	total := l.BidWeight + l.ViewWeight + l.AskWeight
	timings := &latencyLog{}

	var accepted, outbid int64
	start := time.Now()

	b.RunParallel(func(pb *testing.PB) {
		rnd := rand.New(rand.NewSource(time.Now().UnixNano()))

		for pb.Next() {
			itemID := fmt.Sprintf("lot_%d", rnd.Intn(l.Items))
			userID := fmt.Sprintf("buyer_%d", rnd.Intn(1000))
			pick := rnd.Intn(total)
			opStart := time.Now()

			switch {
			case pick < l.BidWeight:
				amount := decimal.NewFromInt(int64(101 + rnd.Intn(l.MaxRaise*100))).Shift(-2).Add(decimal.NewFromInt(100))
				_, err := m.bids.PlaceBid(benchCtx, itemID, userID, amount)
				switch {
				case err == nil:
					atomic.AddInt64(&accepted, 1)
				case errors.Is(err, auctionerrors.ErrBidTooLow):
					atomic.AddInt64(&outbid, 1)
				default:
					b.Errorf("unexpected bid error: %v", err)
				}
				timings.Record("bid", time.Since(opStart))
			case pick < l.BidWeight+l.ViewWeight:
				if _, err := m.catalog.GetItem(benchCtx, itemID); err != nil {
					b.Errorf("detail view failed: %v", err)
				}
				timings.Record("view", time.Since(opStart))
			default:
				if _, err := m.questions.AskQuestion(benchCtx, itemID, userID, "Does it ship abroad?"); err != nil {
					b.Errorf("ask failed: %v", err)
				}
				timings.Record("ask", time.Since(opStart))
			}

			if !l.Burst {
				time.Sleep(time.Millisecond)
			}
		}
	})

	elapsed := time.Since(start)
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	b.Logf("load %s | lots %d | accepted %d | outbid %d | elapsed %s | heap %.2f MB",
		l.Name, l.Items, accepted, outbid, elapsed, float64(mem.HeapAlloc)/1024/1024)
	for _, op := range []string{"bid", "view", "ask"} {
		n, p50, p95, p99 := timings.Percentiles(op)
		if n == 0 {
			continue
		}
		b.Logf("  %-4s n=%d %.0f ops/s p50=%s p95=%s p99=%s", op, n, float64(n)/elapsed.Seconds(), p50, p95, p99)
	}
}
