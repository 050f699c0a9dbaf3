package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/krisalay/qrstore"
	"github.com/krisalay/qrstore/engine"
	"github.com/krisalay/qrstore/types"
)

// ================= BENCHMARK =================

func main() {
	ctx := context.Background()

	const (
		shards      = 32
		preloadIDs  = 100000
		goroutines  = 200
		opsPerG     = 5000
		writeEveryN = 10 // one write per N operations
	)

	fmt.Println("\n================ QRSTORE LOAD BENCHMARK =================")
	fmt.Println("CONFIG")
	fmt.Println("---------------------------------")
	fmt.Println("Shards       :", shards)
	fmt.Println("Preload IDs  :", preloadIDs)
	fmt.Println("Goroutines   :", goroutines)
	fmt.Println("Ops/Goroutine:", opsPerG)
	fmt.Println("Write ratio  :", fmt.Sprintf("1/%d", writeEveryN))
	fmt.Println("---------------------------------")

	eng := engine.NewGuardEngine(300*time.Second, 5*time.Second, nil, nil, nil)
	s := qrstore.NewGuardedStore(shards, eng)
	defer s.Close()

	// ---------------- Preload ----------------
	fmt.Println("Preloading store...")
	for i := uint64(0); i < preloadIDs; i++ {
		s.Write(ctx, i, []byte(fmt.Sprintf("value-%d", i)))
	}
	fmt.Println("Preload complete.")

	// ---------------- Load Test ----------------
	fmt.Println("Running concurrency benchmark...")

	var hits, writes, limited atomic.Int64
	start := time.Now()

	wg := sync.WaitGroup{}
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func(g int) {
			defer wg.Done()
			for j := 0; j < opsPerG; j++ {
				id := uint64((g*opsPerG + j) % preloadIDs)
				if j%writeEveryN == 0 {
					err := s.Write(ctx, id, []byte("updated"))
					switch {
					case err == nil:
						writes.Add(1)
					case errors.Is(err, types.ErrRateLimited):
						limited.Add(1)
					}
					continue
				}
				if _, ok, _ := s.Read(ctx, id); ok {
					hits.Add(1)
				}
			}
		}(g)
	}
	wg.Wait()

	duration := time.Since(start)
	totalOps := goroutines * opsPerG

	fmt.Println("\n================ RESULTS =================")
	fmt.Printf("Total Operations : %d\n", totalOps)
	fmt.Printf("Read Hits        : %d\n", hits.Load())
	fmt.Printf("Writes Accepted  : %d\n", writes.Load())
	fmt.Printf("Writes Limited   : %d\n", limited.Load())
	fmt.Printf("Total Time       : %v\n", duration)
	fmt.Printf("Throughput       : %.2f ops/sec\n", float64(totalOps)/duration.Seconds())
	fmt.Println("=========================================")
}
