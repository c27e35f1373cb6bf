// Command loadgen opens many concurrent connections against a running server
// and reports how many got a response.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/freekieb7/poolhttp/config"
	"github.com/freekieb7/poolhttp/telemetry"
)

type result struct {
	status  int
	latency time.Duration
	err     error
}

func main() {
	var (
		url         = flag.String("url", "http://127.0.0.1:3004/", "target URL")
		method      = flag.String("method", http.MethodGet, "request method")
		body        = flag.String("body", "", "request body")
		concurrency = flag.Int("c", 32, "concurrent clients")
		total       = flag.Int("n", 1000, "total requests")
		timeout     = flag.Duration("timeout", 10*time.Second, "per request timeout")
	)
	flag.Parse()

	if err := run(context.Background(), *url, *method, *body, *concurrency, *total, *timeout); err != nil {
		log.Fatalln(err)
	}
}

func run(ctx context.Context, url, method, body string, concurrency, total int, timeout time.Duration) error {
	if concurrency < 1 || total < 1 {
		return fmt.Errorf("loadgen: -c and -n must be positive")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	cfg, err := config.Load("")
	if err != nil {
		return err
	}
	cfg.Telemetry.ServiceName = "poolhttp-loadgen"

	tel, err := telemetry.Setup(ctx, cfg)
	if err != nil {
		return err
	}
	defer tel.Shutdown(context.Background())
	logger := tel.Logger

	client := &http.Client{
		Timeout: timeout,
		Transport: otelhttp.NewTransport(&http.Transport{
			// every response closes the connection, so pooling buys nothing
			DisableKeepAlives: true,
		}),
	}

	var next atomic.Int64
	results := make([]result, total)

	start := time.Now()
	var wg sync.WaitGroup
	for range concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(next.Add(1)) - 1
				if i >= total || ctx.Err() != nil {
					return
				}
				results[i] = fire(ctx, client, method, url, body)
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	var ok, failed int
	latencies := make([]time.Duration, 0, total)
	statuses := make(map[int]int)
	for _, r := range results {
		if r.err != nil || r.status == 0 {
			failed++
			continue
		}
		ok++
		statuses[r.status]++
		latencies = append(latencies, r.latency)
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	logger.Info("load finished",
		"requests", total,
		"concurrency", concurrency,
		"ok", ok,
		"failed", failed,
		"statuses", fmt.Sprint(statuses),
		"elapsed", elapsed,
		"p50", percentile(latencies, 0.50),
		"p99", percentile(latencies, 0.99),
	)

	if failed > 0 {
		return fmt.Errorf("loadgen: %d of %d requests failed", failed, total)
	}
	return nil
}

func fire(ctx context.Context, client *http.Client, method, url, body string) result {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return result{err: err}
	}

	start := time.Now()
	res, err := client.Do(req)
	if err != nil {
		return result{err: err}
	}
	defer res.Body.Close()

	if _, err := io.Copy(io.Discard, res.Body); err != nil {
		return result{err: err}
	}

	return result{status: res.StatusCode, latency: time.Since(start)}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	return sorted[int(float64(len(sorted)-1)*p)]
}
