// Batch checker for scoring many establishments against a running server.
//
// Usage:
//   go run cmd/batchcheck/main.go -csv /path/to/cnpjs.csv -url http://localhost:8080
//
// This tool:
//   1. Reads a CSV with one CNPJ per row (first column)
//   2. Validates each identifier locally before sending
//   3. Queries /score/{cnpj} concurrently
//   4. Prints the category distribution and error counts
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/confiabar/confiabar/internal/cnpj"
)

// ScoreResponse is the subset of the /score response the checker reads.
type ScoreResponse struct {
	Score struct {
		Score        int      `json:"score"`
		Category     string   `json:"category"`
		AlertSignals []string `json:"alertSignals"`
	} `json:"score"`
	Origin string `json:"origin"`
}

// Metrics tracks batch results.
type Metrics struct {
	TotalProcessed int64
	TotalInvalid   int64
	TotalErrors    int64

	mu         sync.Mutex
	categories map[string]int
	durations  []time.Duration
}

func (m *Metrics) record(category string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.categories == nil {
		m.categories = make(map[string]int)
	}
	m.categories[category]++
	m.durations = append(m.durations, d)
}

func main() {
	csvPath := flag.String("csv", "", "Path to CSV file with CNPJs in the first column")
	baseURL := flag.String("url", "http://localhost:8080", "Server base URL")
	limit := flag.Int("limit", 0, "Maximum identifiers to process (0 = all)")
	workers := flag.Int("workers", 10, "Number of concurrent workers")
	verbose := flag.Bool("verbose", false, "Print each result")
	flag.Parse()

	if *csvPath == "" {
		fmt.Println("Usage: batchcheck -csv /path/to/cnpjs.csv [-url http://localhost:8080]")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: server not reachable at %s: %v\n", *baseURL, err)
		os.Exit(1)
	}

	identifiers, invalid, err := readIdentifiers(*csvPath, *limit)
	if err != nil {
		fmt.Printf("ERROR: failed to read CSV: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Identifiers: %d valid, %d invalid (skipped)\n", len(identifiers), invalid)
	fmt.Printf("Workers:     %d\n\n", *workers)

	metrics := &Metrics{TotalInvalid: int64(invalid)}
	jobs := make(chan string)
	var wg sync.WaitGroup

	start := time.Now()
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 30 * time.Second}
			for id := range jobs {
				checkOne(client, *baseURL, id, metrics, *verbose)
			}
		}()
	}

	for _, id := range identifiers {
		jobs <- id
	}
	close(jobs)
	wg.Wait()

	printSummary(metrics, time.Since(start))
}

// readIdentifiers loads and validates CNPJs from the CSV first column.
func readIdentifiers(path string, limit int) ([]string, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	var ids []string
	invalid := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, err
		}
		if len(row) == 0 {
			continue
		}

		id := cnpj.Normalize(row[0])
		if !cnpj.IsValid(id) {
			invalid++
			continue
		}
		ids = append(ids, id)
		if limit > 0 && len(ids) >= limit {
			break
		}
	}
	return ids, invalid, nil
}

func checkOne(client *http.Client, baseURL, id string, metrics *Metrics, verbose bool) {
	start := time.Now()
	resp, err := client.Get(baseURL + "/score/" + id)
	elapsed := time.Since(start)

	atomic.AddInt64(&metrics.TotalProcessed, 1)
	if err != nil {
		atomic.AddInt64(&metrics.TotalErrors, 1)
		if verbose {
			fmt.Printf("  %s  ERROR %v\n", cnpj.Format(id), err)
		}
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		atomic.AddInt64(&metrics.TotalErrors, 1)
		if verbose {
			fmt.Printf("  %s  HTTP %d\n", cnpj.Format(id), resp.StatusCode)
		}
		return
	}

	var result ScoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		atomic.AddInt64(&metrics.TotalErrors, 1)
		return
	}

	metrics.record(result.Score.Category, elapsed)
	if verbose {
		fmt.Printf("  %s  %3d  %-18s %6dms  %s\n",
			cnpj.Format(id), result.Score.Score, result.Score.Category,
			elapsed.Milliseconds(), result.Origin)
	}
}

func checkHealth(baseURL string) error {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health returned %d", resp.StatusCode)
	}
	return nil
}

func printSummary(m *Metrics, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fmt.Println("\n=== Batch Check Results ===")
	fmt.Printf("Processed:  %d\n", m.TotalProcessed)
	fmt.Printf("Errors:     %d\n", m.TotalErrors)
	fmt.Printf("Skipped:    %d invalid identifiers\n", m.TotalInvalid)
	fmt.Printf("Elapsed:    %s\n", elapsed.Round(time.Millisecond))

	if len(m.categories) > 0 {
		fmt.Println("\nCategories:")
		keys := make([]string, 0, len(m.categories))
		for k := range m.categories {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("  %-20s %d\n", k, m.categories[k])
		}
	}

	if len(m.durations) > 0 {
		sort.Slice(m.durations, func(i, j int) bool { return m.durations[i] < m.durations[j] })
		var total time.Duration
		for _, d := range m.durations {
			total += d
		}
		p95 := m.durations[len(m.durations)*95/100]
		fmt.Println("\nLatency:")
		fmt.Printf("  avg  %s\n", (total / time.Duration(len(m.durations))).Round(time.Millisecond))
		fmt.Printf("  p95  %s\n", p95.Round(time.Millisecond))
		fmt.Printf("  max  %s\n", m.durations[len(m.durations)-1].Round(time.Millisecond))
	}
}
