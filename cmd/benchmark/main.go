package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joripage/order-manager/pkg/rpc/omspb"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

var instruments = []string{"EURUSD", "GBPUSD", "USDJPY"}

func randomRequest() *omspb.TradeRequest {
	side := "BUY"
	if rand.IntN(2) == 0 {
		side = "SELL"
	}
	return &omspb.TradeRequest{
		Instrument: instruments[rand.IntN(len(instruments))],
		Side:       side,
		Volume:     float64(rand.IntN(100)+1) / 100,
	}
}

func main() {
	var (
		addr        string
		numOrders   int
		concurrency int
	)
	flag.StringVar(&addr, "addr", "localhost:50051", "order manager address")
	flag.IntVar(&numOrders, "orders", 100_000, "orders to send")
	flag.IntVar(&concurrency, "concurrency", 64, "concurrent callers")
	flag.Parse()

	logger, _ := zap.NewDevelopment()
	sugar := logger.Sugar()

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		sugar.Fatalf("dial %s: %v", addr, err)
	}
	defer conn.Close()
	client := omspb.NewOrderManagerClient(conn)

	var (
		next      atomic.Int64
		accepted  atomic.Int64
		rejected  atomic.Int64
		failed    atomic.Int64
		mu        sync.Mutex
		latencies = make([]time.Duration, 0, numOrders)
	)

	start := time.Now()
	g, ctx := errgroup.WithContext(context.Background())
	for range concurrency {
		g.Go(func() error {
			local := make([]time.Duration, 0, numOrders/concurrency+1)
			for next.Add(1) <= int64(numOrders) {
				t0 := time.Now()
				resp, err := client.SendTradeOrder(ctx, randomRequest())
				local = append(local, time.Since(t0))
				switch {
				case err != nil:
					if failed.Add(1) <= 5 {
						sugar.Warnf("call failed: %v", err)
					}
				case resp.Success:
					accepted.Add(1)
				default:
					rejected.Add(1)
				}
			}
			mu.Lock()
			latencies = append(latencies, local...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	elapsed := time.Since(start)

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	pct := func(p float64) time.Duration {
		if len(latencies) == 0 {
			return 0
		}
		return latencies[int(float64(len(latencies)-1)*p)]
	}

	fmt.Println("--------")
	fmt.Printf("Total Orders : %d\n", numOrders)
	fmt.Printf("Accepted     : %d\n", accepted.Load())
	fmt.Printf("Rejected     : %d\n", rejected.Load())
	fmt.Printf("Failed       : %d\n", failed.Load())
	fmt.Printf("Time Taken   : %s\n", elapsed)
	fmt.Printf("Throughput   : %.0f orders/s\n", float64(numOrders)/elapsed.Seconds())
	fmt.Printf("Latency p50/p99/max: %s / %s / %s\n", pct(0.5), pct(0.99), pct(1))
}
