// Package main provides a performance benchmarking tool for the footfall CLI.
// It generates synthetic footfall files of increasing size, runs every pipeline
// command several times per file, treats the first successful cached run as cold
// and averages the rest as warm, and writes a CSV summary for documentation.
//
// Prerequisites:
// - footfall binary installed and available in PATH
//
// Usage: go run benchmark/main.go [work-dir]
//
//	work-dir: Directory where the generated input files are written
package main

import (
	"encoding/csv"
	"fmt"
	"math/rand/v2"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// BenchmarkResult holds the result of a benchmark run (no-cache average, cold run and average of warm runs).
type BenchmarkResult struct {
	Dataset     string
	Command     string
	NoCacheTime string
	ColdTime    string
	WarmTime    string
}

// Dataset describes one generated input file.
type Dataset struct {
	Name  string
	Hexes int
	Days  int
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	WorkDir     string
	Timeout     time.Duration
	Workers     int
	NoCacheRuns int
	CacheRuns   int
	Datasets    []Dataset
	Commands    map[string][]string
}

// timeSlices are the 3-hour slices written for every key and day.
var timeSlices = []string{"00-03", "03-06", "06-09", "09-12", "12-15", "15-18", "18-21", "21-24"}

func main() {
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [work-dir]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		WorkDir:     os.Args[1],
		Timeout:     5 * time.Minute,
		Workers:     8,
		NoCacheRuns: 3,
		CacheRuns:   4,
		Datasets: []Dataset{
			{Name: "small", Hexes: 10, Days: 90},
			{Name: "medium", Hexes: 100, Days: 365},
			{Name: "large", Hexes: 500, Days: 730},
		},
		Commands: map[string][]string{
			"aggregate": {"-k", "hex_id"},
			"anomalies": {"-k", "hex_id", "--metric", "visitors"},
			"daynight":  {"-k", "hex_id"},
			"typical":   {"-k", "hex_id", "--day-night"},
		},
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Clearing cache...\n")
	clearCmd := exec.Command("footfall", "cache", "clear")
	if output, err := clearCmd.CombinedOutput(); err != nil {
		fmt.Printf("Warning: failed to clear cache: %v\nOutput: %s\n", err, string(output))
	} else {
		fmt.Printf("Cache cleared successfully\n")
	}

	results, err := runBenchmarks(config)
	if err != nil {
		fmt.Printf("Benchmark failed: %v\n", err)
		os.Exit(1)
	}

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(config, results)
}

// checkPrerequisites verifies that the footfall binary exists and the work dir is usable.
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("footfall"); err != nil {
		return fmt.Errorf("footfall binary not found in PATH")
	}
	return os.MkdirAll(config.WorkDir, 0o755)
}

// generateDataset writes a seeded random footfall file and returns its path.
// Roughly one day in fifty gets a spike so the anomaly path has work to do.
func generateDataset(dir string, ds Dataset) (string, error) {
	path := filepath.Join(dir, "footfall_"+ds.Name+".csv")
	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = file.Close() }()

	rng := rand.New(rand.NewPCG(uint64(ds.Hexes), uint64(ds.Days)))
	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"hex_id", "count_date", "time_indicator", "resident", "worker", "visitor"}); err != nil {
		return "", err
	}
	for h := range ds.Hexes {
		hex := fmt.Sprintf("8a%06x", h)
		for d := range ds.Days {
			date := start.AddDate(0, 0, d).Format(time.DateOnly)
			spike := 1
			if rng.IntN(50) == 0 {
				spike = 10
			}
			for _, slice := range timeSlices {
				record := []string{
					hex, date, slice,
					strconv.Itoa(50 + rng.IntN(20)),
					strconv.Itoa(30 + rng.IntN(15)),
					strconv.Itoa((10 + rng.IntN(10)) * spike),
				}
				if err := writer.Write(record); err != nil {
					return "", err
				}
			}
		}
	}
	writer.Flush()
	return path, writer.Error()
}

// runBenchmarks executes every command across the generated datasets.
func runBenchmarks(config BenchmarkConfig) ([]BenchmarkResult, error) {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d datasets, %v timeout, %d workers, no-cache: %d runs, cache: %d runs\n",
		len(config.Datasets), config.Timeout, config.Workers, config.NoCacheRuns, config.CacheRuns)

	for _, ds := range config.Datasets {
		path, err := generateDataset(config.WorkDir, ds)
		if err != nil {
			return nil, fmt.Errorf("failed to generate %s dataset: %w", ds.Name, err)
		}
		fmt.Printf("Benchmarking %s (%d hexes x %d days)\n", ds.Name, ds.Hexes, ds.Days)

		for _, command := range []string{"aggregate", "anomalies", "daynight", "typical"} {
			results = append(results, runBenchmarkSuite(config, ds.Name, path, command))
		}
	}

	return results, nil
}

// runBenchmarkSuite runs both no-cache and cache benchmarks for a command.
func runBenchmarkSuite(config BenchmarkConfig, dataset, path, command string) BenchmarkResult {
	fmt.Printf("Running %s on %s\n", command, dataset)

	runPhase := func(cacheBackend string, numRuns int, phaseName string) (coldTime float64, avgTime string) {
		fmt.Printf("  %s phase (%d runs)\n", phaseName, numRuns)
		cold, times := runBenchmark(config, path, command, cacheBackend, numRuns)
		if len(times) == 0 {
			avgTime = "TIMEOUT"
		} else {
			var sum float64
			for _, t := range times {
				sum += t
			}
			avgTime = fmt.Sprintf("%.3fs", sum/float64(len(times)))
		}
		return cold, avgTime
	}

	_, noCacheAvg := runPhase("none", config.NoCacheRuns, "No-cache")
	coldTime, warmAvg := runPhase("sqlite", config.CacheRuns, "Cache")

	coldTimeStr := "TIMEOUT"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}

	fmt.Printf("  No-cache average: %s, Cold time: %s, Warm average: %s\n", noCacheAvg, coldTimeStr, warmAvg)

	return BenchmarkResult{
		Dataset:     dataset,
		Command:     command,
		NoCacheTime: noCacheAvg,
		ColdTime:    coldTimeStr,
		WarmTime:    warmAvg,
	}
}

// runBenchmark executes a footfall command multiple times and returns cold time and warm times.
func runBenchmark(config BenchmarkConfig, path, command, cacheBackend string, numRuns int) (coldTime float64, warmTimes []float64) {
	args := []string{command, path, "--cache-backend", cacheBackend, "--workers", strconv.Itoa(config.Workers), "--color", "no"}
	args = append(args, config.Commands[command]...)

	var times []float64
	for range numRuns {
		start := time.Now()

		cmd := exec.Command("footfall", args...)

		done := make(chan bool)
		var output []byte
		var cmdErr error

		go func() {
			output, cmdErr = cmd.CombinedOutput()
			done <- true
		}()

		select {
		case <-done:
			if cmdErr == nil && isSuccess(output) {
				times = append(times, time.Since(start).Seconds())
			}
		case <-time.After(config.Timeout):
			_ = cmd.Process.Kill()
			<-done
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// isSuccess checks if command output indicates successful completion.
func isSuccess(output []byte) bool {
	outputStr := string(output)
	return strings.Contains(outputStr, "Completed in") && strings.Contains(outputStr, "workers")
}

// saveResults writes benchmark results to a timestamped CSV file.
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(os.TempDir(), fmt.Sprintf("footfall_benchmark_%s.csv", timestamp))

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"dataset", "cmd", "no_cache_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, result := range results {
		if err := writer.Write([]string{result.Dataset, result.Command, result.NoCacheTime, result.ColdTime, result.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results grouped by command.
func printSummary(config BenchmarkConfig, results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	for _, command := range []string{"aggregate", "anomalies", "daynight", "typical"} {
		fmt.Printf("%s (%s):\n", command, strings.Join(config.Commands[command], " "))
		for _, result := range results {
			if result.Command == command {
				fmt.Printf("  %-8s: No-cache: %s, Cold: %s, Warm: %s\n", result.Dataset, result.NoCacheTime, result.ColdTime, result.WarmTime)
			}
		}
	}
	fmt.Printf("Benchmark script completed successfully\n")
}
