// Ping the Polymarket Gamma API and OpenDota to measure network latency.
//
// Measures cold-start and warm keep-alive HTTP round-trip times against
// the two upstream APIs the pipeline depends on.
//
// Usage:
//
//	go run ./ping_services          # default: 20 requests
//	go run ./ping_services -n 50    # 50 requests per endpoint
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/dotaedge/esport-signal/internal/config"
)

const (
	opendotaHealthURL = "https://api.opendota.com/api/health"
	httpTimeout       = 10 * time.Second
	ipifyV4           = "https://api4.ipify.org"
	ipifyV6           = "https://api6.ipify.org"
)

func main() {
	n := flag.Int("n", 20, "Number of requests per endpoint")
	flag.Parse()

	cfg := config.Load()
	gammaURL := cfg.PolymarketAPIURL + "/events?series_id=10309&limit=1"

	ipv4 := fetchURL(ipifyV4)
	if ipv4 == "" {
		ipv4 = "unavailable"
	}
	ipv6 := fetchURL(ipifyV6)
	if ipv6 == "" {
		ipv6 = "unavailable (no IPv6 connectivity)"
	}
	fmt.Printf("\nPinging services — IPv4: %s  |  IPv6: %s\n", ipv4, ipv6)

	pingEndpoint("POLYMARKET GAMMA", gammaURL, *n)
	pingEndpoint("OPENDOTA", opendotaHealthURL, *n)
	fmt.Println()
}

func pingEndpoint(label, url string, n int) {
	fmt.Printf("\n%s\n", strings.Repeat("=", 55))
	fmt.Printf("  %s — %s\n", label, url)
	fmt.Printf("%s\n", strings.Repeat("=", 55))

	fmt.Println("\n  Cold-start request (DNS + TLS + HTTP):")
	if ms, code, err := measureHTTP(url, nil); err != nil {
		fmt.Printf("    FAILED — %v\n", err)
	} else {
		fmt.Printf("    %.1f ms  (HTTP %d)\n", ms, code)
	}

	fmt.Printf("\n  Warm HTTP latency (%d requests, keep-alive):\n", n)
	client := &http.Client{Timeout: httpTimeout}
	if _, _, err := measureHTTP(url, client); err != nil {
		fmt.Printf("  [!] Warm-up request failed: %v\n", err)
		return
	}

	latencies := make([]float64, 0, n)
	pad := len(fmt.Sprintf("%d", n))
	for i := 1; i <= n; i++ {
		ms, code, err := measureHTTP(url, client)
		if err != nil {
			fmt.Printf("  [%*d/%d]  FAILED — %v\n", pad, i, n, err)
			continue
		}
		latencies = append(latencies, ms)
		fmt.Printf("  [%*d/%d]  %7.1f ms  (HTTP %d)\n", pad, i, n, ms, code)
	}
	printStats(latencies, label)
}

func measureHTTP(url string, client *http.Client) (ms float64, statusCode int, err error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return 0, 0, err
	}
	c := client
	if c == nil {
		c = &http.Client{Timeout: httpTimeout}
	}
	start := time.Now()
	resp, err := c.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()
	return float64(elapsed.Microseconds()) / 1000, resp.StatusCode, nil
}

func printStats(latencies []float64, label string) {
	if len(latencies) < 2 {
		fmt.Printf("\n  Not enough %s samples for statistics.\n", label)
		return
	}
	sorted := make([]float64, len(latencies))
	copy(sorted, latencies)
	sort.Float64s(sorted)

	mean := 0.0
	for _, v := range latencies {
		mean += v
	}
	mean /= float64(len(latencies))

	variance := 0.0
	for _, v := range latencies {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(latencies) - 1)
	stdev := math.Sqrt(variance)

	median := sorted[len(sorted)/2]
	p95Idx := int(float64(len(sorted)) * 0.95)
	if p95Idx >= len(sorted) {
		p95Idx = len(sorted) - 1
	}
	p99Idx := int(float64(len(sorted)) * 0.99)
	if p99Idx >= len(sorted) {
		p99Idx = len(sorted) - 1
	}

	fmt.Printf("\n  --- %s Stats (%d requests) ---\n", label, len(latencies))
	fmt.Printf("  Min:    %7.1f ms\n", sorted[0])
	fmt.Printf("  Max:    %7.1f ms\n", sorted[len(sorted)-1])
	fmt.Printf("  Mean:   %7.1f ms\n", mean)
	fmt.Printf("  Median: %7.1f ms\n", median)
	fmt.Printf("  Stdev:  %7.1f ms\n", stdev)
	fmt.Printf("  p95:    %7.1f ms\n", sorted[p95Idx])
	fmt.Printf("  p99:    %7.1f ms\n", sorted[p99Idx])
}

func fetchURL(u string) string {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return ""
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ""
	}
	var b [64]byte
	n, _ := resp.Body.Read(b[:])
	return strings.TrimSpace(string(b[:n]))
}
