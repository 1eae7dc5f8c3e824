package datasource

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"squeeze-trader/src/helpers"
	"squeeze-trader/src/models"
)

var csvColumns = []string{"timestamp", "open", "high", "low", "close", "volume"}

// -----------------------------------------------------------------------------

// LoadCandlesCSV reads a timestamp,open,high,low,close,volume file.
func LoadCandlesCSV(path string) ([]models.MCandle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, helpers.NewDataSourceError(err, "open %s", path)
	}
	defer f.Close()

	candles, err := ParseCandlesCSV(f)
	if err != nil {
		return nil, helpers.NewDataSourceError(err, "parse %s", path)
	}
	return candles, nil
}

// -----------------------------------------------------------------------------

// ParseCandlesCSV parses candles and returns them sorted by timestamp.
// A header row is optional. Timestamps may be Unix milliseconds, Unix seconds
// or RFC3339. Duplicate timestamps keep the last row.
func ParseCandlesCSV(r io.Reader) ([]models.MCandle, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	byTime := make(map[int64]models.MCandle)
	line := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line++

		if line == 1 && isHeader(record) {
			continue
		}
		if len(record) < len(csvColumns) {
			return nil, fmt.Errorf("line %d: expected %d columns, got %d", line, len(csvColumns), len(record))
		}

		c, err := parseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		byTime[c.Timestamp] = c
	}

	if len(byTime) == 0 {
		return nil, helpers.ErrEmptyCandles
	}

	candles := make([]models.MCandle, 0, len(byTime))
	for _, c := range byTime {
		candles = append(candles, c)
	}
	sort.Slice(candles, func(i, j int) bool { return candles[i].Timestamp < candles[j].Timestamp })
	return candles, nil
}

// -----------------------------------------------------------------------------

func isHeader(record []string) bool {
	if len(record) == 0 {
		return false
	}
	_, err := strconv.ParseFloat(strings.TrimSpace(record[0]), 64)
	if err == nil {
		return false
	}
	_, err = time.Parse(time.RFC3339, strings.TrimSpace(record[0]))
	return err != nil
}

// -----------------------------------------------------------------------------

func parseRecord(record []string) (models.MCandle, error) {
	ts, err := parseTimestamp(strings.TrimSpace(record[0]))
	if err != nil {
		return models.MCandle{}, err
	}

	var values [5]float64
	for i := 1; i < len(csvColumns); i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(record[i]), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return models.MCandle{}, fmt.Errorf("invalid %s %q", csvColumns[i], record[i])
		}
		values[i-1] = v
	}

	c := models.MCandle{
		Timestamp: ts,
		Open:      values[0],
		High:      values[1],
		Low:       values[2],
		Close:     values[3],
		Volume:    values[4],
	}
	if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
		return models.MCandle{}, helpers.ErrNonPositivePrice
	}
	if c.Volume < 0 {
		return models.MCandle{}, fmt.Errorf("negative volume %v", c.Volume)
	}
	if c.Low > c.High {
		return models.MCandle{}, fmt.Errorf("low %v above high %v", c.Low, c.High)
	}
	return c, nil
}

// -----------------------------------------------------------------------------

// parseTimestamp returns Unix milliseconds. Integers below 1e11 are seconds.
func parseTimestamp(s string) (int64, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 1e11 {
			return n * 1000, nil
		}
		return n, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if f < 1e11 {
			return int64(f * 1000), nil
		}
		return int64(f), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q", s)
	}
	return t.UnixMilli(), nil
}

// -----------------------------------------------------------------------------

// WriteCandlesCSV writes candles with a header row.
func WriteCandlesCSV(w io.Writer, candles []models.MCandle) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvColumns); err != nil {
		return err
	}
	for _, c := range candles {
		row := []string{
			strconv.FormatInt(c.Timestamp, 10),
			strconv.FormatFloat(c.Open, 'f', -1, 64),
			strconv.FormatFloat(c.High, 'f', -1, 64),
			strconv.FormatFloat(c.Low, 'f', -1, 64),
			strconv.FormatFloat(c.Close, 'f', -1, 64),
			strconv.FormatFloat(c.Volume, 'f', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
