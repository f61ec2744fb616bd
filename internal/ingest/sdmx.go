// Package ingest reads ISTAT SDMX-CSV exports into observations.
package ingest

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/jengzang/crime-lisa-go/internal/models"
)

// Required SDMX columns
const (
	ColRefArea    = "REF_AREA"
	ColTimePeriod = "TIME_PERIOD"
	ColTypeCrime  = "TYPE_CRIME"
	ColObsValue   = "OBS_VALUE"
)

// Stats describes one parsed file
type Stats struct {
	Rows       int              `json:"rows"`
	Imported   int              `json:"imported"`
	Skipped    int              `json:"skipped"`    // non-numeric year or value
	Duplicates int              `json:"duplicates"` // later rows replaced earlier ones
	CrimeTypes int              `json:"crime_types"`
	Years      models.YearRange `json:"years"`
}

// ObservationWriter stores parsed observations
type ObservationWriter interface {
	Upsert(ctx context.Context, measure models.Measure, observations []models.Observation) (int, error)
}

// Parse reads an SDMX-CSV stream. Headers may carry a ": label" suffix and
// the delimiter may be a comma or a semicolon. Rows with a non-numeric
// year or value are skipped and counted.
func Parse(r io.Reader) ([]models.Observation, Stats, error) {
	var st Stats
	br := bufio.NewReader(r)

	first, err := br.Peek(4096)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, st, fmt.Errorf("failed to read header: %w", err)
	}
	line := string(first)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true
	if strings.Count(line, ";") > strings.Count(line, ",") {
		reader.Comma = ';'
	}

	header, err := reader.Read()
	if err != nil {
		return nil, st, fmt.Errorf("%w: missing header: %v", models.ErrInvalidInput, err)
	}
	cols, err := columnIndex(header)
	if err != nil {
		return nil, st, err
	}

	type key struct {
		unit, crime string
		year        int
	}
	pos := make(map[key]int)
	crimes := make(map[string]struct{})
	var out []models.Observation

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, st, fmt.Errorf("%w: line %d: %v", models.ErrInvalidInput, st.Rows+2, err)
		}
		st.Rows++

		if len(record) <= cols.max {
			st.Skipped++
			continue
		}
		year, ok := parseYear(record[cols.time])
		if !ok {
			st.Skipped++
			continue
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(record[cols.value]), 64)
		if err != nil {
			st.Skipped++
			continue
		}

		o := models.Observation{
			RefArea:   strings.TrimSpace(record[cols.area]),
			CrimeType: strings.TrimSpace(record[cols.crime]),
			Year:      year,
			Value:     value,
		}
		if o.RefArea == "" || o.CrimeType == "" {
			st.Skipped++
			continue
		}

		k := key{o.RefArea, o.CrimeType, o.Year}
		if i, dup := pos[k]; dup {
			out[i] = o
			st.Duplicates++
			continue
		}
		pos[k] = len(out)
		out = append(out, o)
		crimes[o.CrimeType] = struct{}{}

		if st.Years.Start == 0 || year < st.Years.Start {
			st.Years.Start = year
		}
		if year > st.Years.End {
			st.Years.End = year
		}
	}

	st.Imported = len(out)
	st.CrimeTypes = len(crimes)
	return out, st, nil
}

type columns struct {
	area, time, crime, value int
	max                      int
}

func columnIndex(header []string) (columns, error) {
	idx := map[string]int{}
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if j := strings.IndexByte(name, ':'); j >= 0 {
			name = strings.TrimSpace(name[:j])
		}
		idx[strings.ToUpper(name)] = i
	}

	var c columns
	for _, req := range []struct {
		name string
		dst  *int
	}{
		{ColRefArea, &c.area},
		{ColTimePeriod, &c.time},
		{ColTypeCrime, &c.crime},
		{ColObsValue, &c.value},
	} {
		i, ok := idx[req.name]
		if !ok {
			return c, fmt.Errorf("%w: column %s not found", models.ErrInvalidInput, req.name)
		}
		*req.dst = i
		if i > c.max {
			c.max = i
		}
	}
	return c, nil
}

// parseYear accepts "2019" as well as period forms like "2019-01-01"
func parseYear(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 4 {
		return 0, false
	}
	year, err := strconv.Atoi(s[:4])
	if err != nil || year <= 0 {
		return 0, false
	}
	return year, true
}

// Importer loads SDMX files into an observation store
type Importer struct {
	writer ObservationWriter
}

// NewImporter creates an importer writing to w
func NewImporter(w ObservationWriter) *Importer {
	return &Importer{writer: w}
}

// ImportFile parses path and stores its observations under measure
func (im *Importer) ImportFile(ctx context.Context, path string, measure models.Measure) (Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return im.Import(ctx, f, measure)
}

// Import parses r and stores its observations under measure
func (im *Importer) Import(ctx context.Context, r io.Reader, measure models.Measure) (Stats, error) {
	observations, st, err := Parse(r)
	if err != nil {
		return st, err
	}

	written, err := im.writer.Upsert(ctx, measure, observations)
	if err != nil {
		return st, fmt.Errorf("failed to store observations: %w", err)
	}
	st.Imported = written

	slog.Info("observations imported",
		slog.String("component", "ingest"),
		slog.String("measure", string(measure)),
		slog.Int("rows", st.Rows),
		slog.Int("imported", st.Imported),
		slog.Int("skipped", st.Skipped),
		slog.Int("duplicates", st.Duplicates))
	return st, nil
}
