package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

type statusBody struct {
	State string `json:"state"`
}

func main() {
	targetURL := flag.String("url", "http://localhost:9091/status", "Admin status URL")
	token := flag.String("token", "", "Bearer token for the admin API")
	concurrency := flag.Int("c", 4, "Number of concurrent workers")
	duration := flag.Duration("d", 10*time.Second, "Duration of the run")
	rps := flag.Int("rps", 200, "Requests per second limit")
	flag.Parse()

	log.Printf("Polling %s", *targetURL)
	log.Printf("Concurrency: %d, Duration: %s, RPS: %d", *concurrency, *duration, *rps)

	var wg sync.WaitGroup
	var errorCount atomic.Int64
	var statesMu sync.Mutex
	states := make(map[string]int64)

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	limiter := rate.NewLimiter(rate.Limit(*rps), *concurrency)

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 5 * time.Second}

			for {
				if err := limiter.Wait(ctx); err != nil {
					return
				}

				req, err := http.NewRequestWithContext(ctx, http.MethodGet, *targetURL, nil)
				if err != nil {
					errorCount.Add(1)
					continue
				}
				if *token != "" {
					req.Header.Set("Authorization", "Bearer "+*token)
				}

				resp, err := client.Do(req)
				if err != nil {
					errorCount.Add(1)
					continue
				}

				var body statusBody
				decodeErr := json.NewDecoder(resp.Body).Decode(&body)
				resp.Body.Close()
				if resp.StatusCode != http.StatusOK || decodeErr != nil {
					errorCount.Add(1)
					continue
				}

				statesMu.Lock()
				states[body.State]++
				statesMu.Unlock()
			}
		}()
	}

	wg.Wait()

	var total int64
	for _, n := range states {
		total += n
	}
	total += errorCount.Load()

	log.Println("Polling finished.")
	log.Printf("Total Requests: %d", total)
	for state, n := range states {
		log.Printf("State %s: %d", state, n)
	}
	log.Printf("Errors: %d", errorCount.Load())
	log.Printf("Actual RPS: %.2f", float64(total)/duration.Seconds())
}
