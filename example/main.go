// Minimal example demonstrating the weather fetch layer: cached fetches of
// current conditions and a forecast, concurrent callers collapsed into one
// network call, and stale fallback when the network goes away.
package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	skyfetch "github.com/George-Cain/Ride-or-Drive-Weather-sub000"
)

const (
	currentURL = "https://api.open-meteo.com/v1/forecast"
	nycLat     = "40.71"
	nycLon     = "-74.00"
)

func main() {
	cfg, err := skyfetch.FromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	client := skyfetch.New(append(cfg.Options(),
		skyfetch.WithSimpleLogger(),
		skyfetch.WithMetrics(),
	)...)
	if !client.IsValid() {
		log.Fatalf("invalid client config: %v", client.ValidationError())
	}
	defer client.Close()

	ctx := context.Background()
	params := map[string]string{
		"latitude":        nycLat,
		"longitude":       nycLon,
		"current_weather": "true",
	}

	// Two concurrent callers for the same resource: one network call, two
	// identical results.
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			res, err := client.Get(ctx, currentURL, params, nil)
			if err != nil {
				log.Printf("caller %d: %v", n, err)
				return
			}
			fmt.Printf("caller %d: stale=%v fromCache=%v bytes=%d\n", n, res.Stale, res.FromCache, len(res.Data))
		}(i)
	}
	wg.Wait()

	// Second round within the TTL is served from cache without network use.
	start := time.Now()
	res, err := client.Get(ctx, currentURL, params, nil)
	if err != nil {
		log.Fatalf("cached read failed: %v", err)
	}
	fmt.Printf("cached read: fromCache=%v in %v\n", res.FromCache, time.Since(start))
}
