package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jengzang/crime-lisa-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const commaExport = "\ufeffDATAFLOW,FREQ,REF_AREA: Territory,TYPE_CRIME: Crime type,TIME_PERIOD,OBS_VALUE\n" +
	"IT1:73_1,A,ITC4C,THEFT,2019,120\n" +
	"IT1:73_1,A,ITC4C,THEFT,2020,95.5\n" +
	"IT1:73_1,A,ITI43,THEFT,2019,110\n" +
	"IT1:73_1,A,ITI43,ROBBER,2019,n.d.\n" +
	"IT1:73_1,A,ITI43,THEFT,2019,111\n"

func TestParse_Comma(t *testing.T) {
	obs, st, err := Parse(strings.NewReader(commaExport))
	require.NoError(t, err)

	assert.Equal(t, []models.Observation{
		{RefArea: "ITC4C", CrimeType: "THEFT", Year: 2019, Value: 120},
		{RefArea: "ITC4C", CrimeType: "THEFT", Year: 2020, Value: 95.5},
		{RefArea: "ITI43", CrimeType: "THEFT", Year: 2019, Value: 111},
	}, obs)
	assert.Equal(t, Stats{
		Rows:       5,
		Imported:   3,
		Skipped:    1,
		Duplicates: 1,
		CrimeTypes: 1,
		Years:      models.YearRange{Start: 2019, End: 2020},
	}, st)
}

func TestParse_SemicolonAndPeriodDates(t *testing.T) {
	in := "TIME_PERIOD;OBS_VALUE;REF_AREA;TYPE_CRIME\n" +
		"2021-01-01;3,5;ITF33;FRAUD\n" +
		"2022;4.25;ITF33;FRAUD\n" +
		";1;ITF33;FRAUD\n" +
		"2022;2;;FRAUD\n"

	obs, st, err := Parse(strings.NewReader(in))
	require.NoError(t, err)

	require.Len(t, obs, 1)
	assert.Equal(t, models.Observation{RefArea: "ITF33", CrimeType: "FRAUD", Year: 2022, Value: 4.25}, obs[0])
	assert.Equal(t, 4, st.Rows)
	assert.Equal(t, 3, st.Skipped, "decimal comma, empty year and empty area are skipped")
}

func TestParse_Errors(t *testing.T) {
	_, _, err := Parse(strings.NewReader(""))
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, _, err = Parse(strings.NewReader("REF_AREA,TIME_PERIOD,OBS_VALUE\nITC4C,2019,1\n"))
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	assert.Contains(t, err.Error(), ColTypeCrime)
}

func TestParseYear(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"2019", 2019, true},
		{" 2020-12-31 ", 2020, true},
		{"19", 0, false},
		{"abcd", 0, false},
		{"0000", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseYear(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

type recordingWriter struct {
	measure models.Measure
	got     []models.Observation
	err     error
}

func (w *recordingWriter) Upsert(_ context.Context, measure models.Measure, obs []models.Observation) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	w.measure = measure
	w.got = append(w.got, obs...)
	return len(obs), nil
}

func TestImporter_ImportFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thefts.csv")
	require.NoError(t, os.WriteFile(path, []byte(commaExport), 0o644))

	w := &recordingWriter{}
	st, err := NewImporter(w).ImportFile(context.Background(), path, models.MeasureRate)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Imported)
	assert.Equal(t, models.MeasureRate, w.measure)
	assert.Len(t, w.got, 3)

	_, err = NewImporter(w).ImportFile(context.Background(), filepath.Join(t.TempDir(), "missing.csv"), models.MeasureRate)
	assert.Error(t, err)
}

func TestImporter_WriterFailure(t *testing.T) {
	boom := errors.New("disk full")
	_, err := NewImporter(&recordingWriter{err: boom}).Import(context.Background(), strings.NewReader(commaExport), models.MeasureCount)
	assert.ErrorIs(t, err, boom)
}
