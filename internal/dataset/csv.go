package dataset

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/seligo/sentiment-pulse/internal/errdefs"
)

const (
	rawFileName      = "raw_data.csv"
	analyzedFileName = "analyzed_data.csv"
)

var (
	rawHeader      = []string{"platform", "timestamp", "query", "text", "url"}
	analyzedHeader = []string{"platform", "timestamp", "query", "text", "url", "label", "score"}
)

// Store reads and writes the two fixed-path CSV files under one working
// directory. Each save is a full overwrite through a temp file rename,
// so readers never observe a half-written table.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) RawPath() string {
	return filepath.Join(s.dir, rawFileName)
}

func (s *Store) AnalyzedPath() string {
	return filepath.Join(s.dir, analyzedFileName)
}

// SaveRaw overwrites the raw merged table.
func (s *Store) SaveRaw(rows []Record) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(rawHeader); err != nil {
		return errdefs.Wrap(err, errdefs.Persistence, "write raw header")
	}
	for _, r := range rows {
		if err := w.Write([]string{r.Platform, formatTimestamp(r.Timestamp), r.Query, r.Text, r.URL}); err != nil {
			return errdefs.Wrap(err, errdefs.Persistence, "write raw row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errdefs.Wrap(err, errdefs.Persistence, "flush raw table")
	}
	return s.overwrite(s.RawPath(), buf.Bytes())
}

// SaveAnalyzed overwrites the analyzed table.
func (s *Store) SaveAnalyzed(rows []AnalyzedRecord) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(analyzedHeader); err != nil {
		return errdefs.Wrap(err, errdefs.Persistence, "write analyzed header")
	}
	for _, r := range rows {
		record := []string{
			r.Platform,
			formatTimestamp(r.Timestamp),
			r.Query,
			r.Text,
			r.URL,
			r.Label,
			strconv.FormatFloat(r.Score, 'f', -1, 64),
		}
		if err := w.Write(record); err != nil {
			return errdefs.Wrap(err, errdefs.Persistence, "write analyzed row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errdefs.Wrap(err, errdefs.Persistence, "flush analyzed table")
	}
	return s.overwrite(s.AnalyzedPath(), buf.Bytes())
}

// LoadAnalyzed reads the analyzed table back. A missing file is a
// NotFound error and a header without the timestamp and score columns is
// a Validation error; an empty table is neither. Rows whose score cell
// does not parse are dropped, mirroring how the table is consumed.
func (s *Store) LoadAnalyzed() ([]AnalyzedRecord, error) {
	f, err := os.Open(s.AnalyzedPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errdefs.New(errdefs.NotFound, "analyzed data not found").
				WithContext("path", s.AnalyzedPath())
		}
		return nil, errdefs.Wrap(err, errdefs.Persistence, "open analyzed data")
	}
	defer f.Close()

	return readAnalyzed(f)
}

// ExportAnalyzed writes the current analyzed table as CSV to w, for the
// download endpoint. The caller decides what to do when no data exists.
func (s *Store) ExportAnalyzed(w io.Writer) error {
	rows, err := s.LoadAnalyzed()
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(analyzedHeader); err != nil {
		return errdefs.Wrap(err, errdefs.Persistence, "write export header")
	}
	for _, r := range rows {
		record := []string{
			r.Platform,
			formatTimestamp(r.Timestamp),
			r.Query,
			r.Text,
			r.URL,
			r.Label,
			strconv.FormatFloat(r.Score, 'f', -1, 64),
		}
		if err := cw.Write(record); err != nil {
			return errdefs.Wrap(err, errdefs.Persistence, "write export row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errdefs.Wrap(err, errdefs.Persistence, "flush export")
	}
	return nil
}

func readAnalyzed(r io.Reader) ([]AnalyzedRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errdefs.New(errdefs.Validation, "analyzed data file is empty")
	}
	if err != nil {
		return nil, errdefs.Wrap(err, errdefs.Persistence, "read analyzed header")
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}
	if _, ok := index["timestamp"]; !ok {
		return nil, errdefs.New(errdefs.Validation, "missing required columns: timestamp and score")
	}
	if _, ok := index["score"]; !ok {
		return nil, errdefs.New(errdefs.Validation, "missing required columns: timestamp and score")
	}

	field := func(row []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}

	var rows []AnalyzedRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errdefs.Wrap(err, errdefs.Persistence, "read analyzed row")
		}

		score, err := strconv.ParseFloat(field(row, "score"), 64)
		if err != nil {
			continue
		}

		rec := AnalyzedRecord{
			Record: Record{
				Platform:  field(row, "platform"),
				Timestamp: ParseTimestamp(field(row, "timestamp")),
				Query:     field(row, "query"),
				Text:      field(row, "text"),
				URL:       field(row, "url"),
			},
			Label: field(row, "label"),
			Score: score,
		}
		if rec.Label == "" {
			rec.Label = LabelForScore(score)
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

// overwrite replaces path with content atomically via a temp file in the
// same directory.
func (s *Store) overwrite(path string, content []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return errdefs.Wrap(err, errdefs.Persistence, "create data directory")
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, content, 0o644); err != nil {
		return errdefs.Wrap(err, errdefs.Persistence, fmt.Sprintf("write %s", filepath.Base(tmpPath)))
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return errdefs.Wrap(err, errdefs.Persistence, fmt.Sprintf("replace %s", filepath.Base(path)))
	}
	return nil
}

func formatTimestamp(ts *time.Time) string {
	if ts == nil {
		return ""
	}
	return ts.UTC().Format(time.RFC3339)
}
