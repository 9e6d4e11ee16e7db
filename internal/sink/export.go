package sink

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

var csvHeader = []string{
	"timestamp", "request_id", "total_requests", "error_count", "avg_response_time_ms",
	"success_rate", "total_execution_time_ms", "circuit_breaker_state", "fallback",
}

// ExportJSONLToCSV converts a metrics log into CSV and returns the number of rows written.
func ExportJSONLToCSV(inputPath string, outputPath string) (int, error) {
	in, err := os.Open(inputPath)
	if err != nil {
		return 0, fmt.Errorf("open metrics log: %w", err)
	}
	defer in.Close()

	out, err := os.Create(outputPath)
	if err != nil {
		return 0, fmt.Errorf("create output csv: %w", err)
	}
	defer out.Close()

	w := csv.NewWriter(out)
	if err := w.Write(csvHeader); err != nil {
		return 0, fmt.Errorf("write csv header: %w", err)
	}

	rows := 0
	s := bufio.NewScanner(in)
	for s.Scan() {
		line := s.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return rows, fmt.Errorf("parse metrics line %d: %w", rows+1, err)
		}
		if err := w.Write(csvRow(rec)); err != nil {
			return rows, fmt.Errorf("write csv row: %w", err)
		}
		rows++
	}
	if err := s.Err(); err != nil {
		return rows, fmt.Errorf("scan metrics log: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return rows, fmt.Errorf("flush csv: %w", err)
	}
	return rows, nil
}

func csvRow(rec Record) []string {
	return []string{
		rec.Timestamp.Format(time.RFC3339Nano),
		rec.RequestID,
		strconv.FormatInt(rec.TotalRequests, 10),
		strconv.FormatInt(rec.ErrorCount, 10),
		strconv.FormatFloat(rec.AvgResponseTimeMs, 'f', 3, 64),
		strconv.FormatFloat(rec.SuccessRatePercent, 'f', 2, 64),
		strconv.FormatFloat(rec.TotalExecutionTimeMs, 'f', 3, 64),
		rec.CircuitBreakerState,
		strconv.FormatBool(rec.Fallback),
	}
}
