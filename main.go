package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/vietddude/vatcheck/internal/infra/rpc"
)

// Quick manual run against the live authorities:
//
//	VAT_NUMBERS="DE:DE129274202,CH:CHE-116.281.710" go run .
func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found")
	}

	samples := os.Getenv("VAT_NUMBERS")
	if samples == "" {
		log.Fatalf("VAT_NUMBERS is not set")
	}

	ctx := context.Background()

	// 1. Create client with both authorities and default retries
	client, err := rpc.NewClient(rpc.Config{
		Retry: rpc.DefaultRetryConfig,
		Vies:  &rpc.ViesConfig{},
		UID:   &rpc.UIDConfig{},
	})
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}

	fmt.Println("=== Validating VAT numbers ===")

	// 2. Validate every sample
	for i, sample := range strings.Split(samples, ",") {
		code, vat, ok := strings.Cut(strings.TrimSpace(sample), ":")
		if !ok {
			log.Printf("Sample %d: expected CC:NUMBER, got %q", i+1, sample)
			continue
		}

		start := time.Now()
		valid, err := client.Validate(ctx, code, vat)
		if err != nil {
			log.Printf("Sample %d (%s %s) failed: %v", i+1, code, vat, err)
			continue
		}
		fmt.Printf("Sample %d: %s %s valid=%t (%s)\n", i+1, code, vat, valid, time.Since(start).Round(time.Millisecond))
	}

	fmt.Println()

	// 3. Show authority health
	fmt.Println("=== Authority Health ===")
	for name, h := range client.Health() {
		fmt.Printf("%s:\n", name)
		fmt.Printf("  Available: %t\n", h.Available)
		if h.MonitorStats != nil {
			fmt.Printf("  Status: %s\n", h.MonitorStats.Status)
			fmt.Printf("  Avg Latency: %v\n", h.MonitorStats.AverageLatency)
			fmt.Printf("  Requests (1h): %d\n", h.MonitorStats.RequestsLast1Hour)
		}
		fmt.Println()
	}
}
