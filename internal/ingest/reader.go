package ingest

import (
	"archive/zip"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"tripclean/internal/trip"
)

// Options configures how input files are read. Delimiter, header presence
// and charset vary between data providers, so none of them is hardcoded.
type Options struct {
	Comma      rune   // field delimiter, default ','
	HasHeader  bool   // first row is a header; columns bind by name
	Encoding   string // IANA charset name, "" or "utf-8" for none
	TimeLayout string // timestamp layout, default trip.DefaultTimeLayout
	Location   *time.Location

	// MaxErrorSamples caps how many ParseErrors are kept per run for the
	// audit report. The skip count is always exact.
	MaxErrorSamples int

	// Workers bounds the parallel per-file parse fan-out. Parsing is
	// order-independent; results are reassembled in input order so the
	// dataset-wide dedup stage stays deterministic.
	Workers int
}

func (o Options) withDefaults() Options {
	if o.Comma == 0 {
		o.Comma = ','
	}
	if o.TimeLayout == "" {
		o.TimeLayout = trip.DefaultTimeLayout
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.MaxErrorSamples == 0 {
		o.MaxErrorSamples = 20
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	return o
}

// FileResult holds the parsed rows of one monthly input file.
type FileResult struct {
	File     string
	Records  []trip.Record
	RowsRead int
	Skipped  int
	Errors   []*ParseError // first MaxErrorSamples only
}

// Result is the concatenation of all monthly files, in input order.
type Result struct {
	Records  []trip.Record
	RowsRead int
	Skipped  int
	Errors   []*ParseError
	Files    []FileResult
}

// Reader parses monthly trip CSVs into trip Records.
type Reader struct {
	opts   Options
	logger *slog.Logger
}

// NewReader creates a Reader.
func NewReader(opts Options, logger *slog.Logger) *Reader {
	return &Reader{opts: opts.withDefaults(), logger: logger}
}

// ReadAll parses every input file and concatenates the results in input
// order. Files parse in parallel; any InputUnavailableError aborts the
// whole read.
func (r *Reader) ReadAll(ctx context.Context, paths []string) (*Result, error) {
	results := make([]*FileResult, len(paths))
	errs := make([]error, len(paths))

	sem := make(chan struct{}, r.opts.Workers)
	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			if ctx.Err() != nil {
				errs[i] = ctx.Err()
				return
			}
			fr, err := r.ReadFile(path)
			results[i], errs[i] = fr, err
		}(i, path)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	out := &Result{}
	for _, fr := range results {
		out.Records = append(out.Records, fr.Records...)
		out.RowsRead += fr.RowsRead
		out.Skipped += fr.Skipped
		for _, pe := range fr.Errors {
			if len(out.Errors) < r.opts.MaxErrorSamples {
				out.Errors = append(out.Errors, pe)
			}
		}
		out.Files = append(out.Files, *fr)
	}

	r.logger.Info("ingestion complete",
		"files", len(paths),
		"rows", out.RowsRead,
		"parsed", len(out.Records),
		"skipped", out.Skipped,
	)
	return out, nil
}

// ReadFile parses one input file, which may be a plain CSV or a zip
// archive whose first *.csv member is read.
func (r *Reader) ReadFile(path string) (*FileResult, error) {
	name := filepath.Base(path)

	if strings.EqualFold(filepath.Ext(path), ".zip") {
		return r.readZip(path, name)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &InputUnavailableError{Path: path, Err: err}
	}
	defer f.Close()

	return r.readCSV(f, name, path)
}

func (r *Reader) readZip(path, name string) (*FileResult, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, &InputUnavailableError{Path: path, Err: err}
	}
	defer zr.Close()

	var member *zip.File
	for _, f := range zr.File {
		base := filepath.Base(f.Name)
		if strings.HasPrefix(base, ".") || strings.HasPrefix(f.Name, "__MACOSX/") {
			continue
		}
		if strings.EqualFold(filepath.Ext(f.Name), ".csv") {
			member = f
			break
		}
	}
	if member == nil {
		return nil, &InputUnavailableError{Path: path, Err: fmt.Errorf("no csv member in archive")}
	}

	rc, err := member.Open()
	if err != nil {
		return nil, &InputUnavailableError{Path: path, Err: err}
	}
	defer rc.Close()

	return r.readCSV(rc, name, path)
}

func (r *Reader) readCSV(src io.Reader, name, path string) (*FileResult, error) {
	decoded, err := r.decode(src)
	if err != nil {
		return nil, &InputUnavailableError{Path: path, Err: err}
	}

	reader := csv.NewReader(decoded)
	reader.Comma = r.opts.Comma
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	fieldMap := positionalFieldMap()
	if r.opts.HasHeader {
		header, err := reader.Read()
		if err != nil {
			return nil, &InputUnavailableError{Path: path, Err: fmt.Errorf("read header: %w", err)}
		}
		if len(header) > 0 {
			header[0] = strings.TrimPrefix(header[0], "\xef\xbb\xbf")
		}
		fieldMap = buildFieldMap(header)
		if len(fieldMap) == 0 {
			return nil, &InputUnavailableError{Path: path, Err: fmt.Errorf("header matches no known column")}
		}
	}

	result := &FileResult{File: name}
	row := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			result.RowsRead++
			result.skip(r, &ParseError{File: name, Row: row, Err: err})
			continue
		}
		result.RowsRead++

		raw := decodeRaw(record, fieldMap)
		rec, err := trip.FromRaw(raw, r.opts.Location, r.opts.TimeLayout)
		if err != nil {
			pe := &ParseError{File: name, Row: row, Err: err}
			var fe *trip.FieldError
			if errors.As(err, &fe) {
				pe.Column = fe.Column
			}
			result.skip(r, pe)
			continue
		}
		result.Records = append(result.Records, rec)
	}

	r.logger.Info("file parsed",
		"file", name,
		"rows", result.RowsRead,
		"parsed", len(result.Records),
		"skipped", result.Skipped,
	)
	return result, nil
}

func (fr *FileResult) skip(r *Reader, pe *ParseError) {
	fr.Skipped++
	if len(fr.Errors) < r.opts.MaxErrorSamples {
		fr.Errors = append(fr.Errors, pe)
	}
	r.logger.Debug("row skipped", "file", pe.File, "row", pe.Row, "error", pe.Err)
}

// decode wraps src with a charset decoder when the configured encoding is
// not UTF-8.
func (r *Reader) decode(src io.Reader) (io.Reader, error) {
	enc := strings.ToLower(strings.TrimSpace(r.opts.Encoding))
	if enc == "" || enc == "utf-8" || enc == "utf8" {
		return src, nil
	}
	e, err := htmlindex.Get(enc)
	if err != nil {
		return nil, fmt.Errorf("unknown input encoding %q: %w", r.opts.Encoding, err)
	}
	return transform.NewReader(src, e.NewDecoder()), nil
}

type fieldMapping struct {
	csvIndex   int
	fieldIndex int
}

// buildFieldMap binds CSV columns to RawTrip fields by csv tag.
func buildFieldMap(header []string) []fieldMapping {
	typ := reflect.TypeOf(trip.RawTrip{})

	tagToField := make(map[string]int)
	for i := 0; i < typ.NumField(); i++ {
		if tag := typ.Field(i).Tag.Get("csv"); tag != "" {
			tagToField[tag] = i
		}
	}

	var mappings []fieldMapping
	for csvIdx, colName := range header {
		colName = strings.ToLower(strings.TrimSpace(colName))
		if fieldIdx, ok := tagToField[colName]; ok {
			mappings = append(mappings, fieldMapping{csvIndex: csvIdx, fieldIndex: fieldIdx})
		}
	}
	return mappings
}

// positionalFieldMap binds columns by schema position for headerless input:
// the documented column order is the RawTrip field order.
func positionalFieldMap() []fieldMapping {
	typ := reflect.TypeOf(trip.RawTrip{})
	mappings := make([]fieldMapping, 0, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		mappings = append(mappings, fieldMapping{csvIndex: i, fieldIndex: i})
	}
	return mappings
}

// decodeRaw fills a RawTrip from a CSV record using the field mapping.
func decodeRaw(record []string, fieldMap []fieldMapping) trip.RawTrip {
	var raw trip.RawTrip
	v := reflect.ValueOf(&raw).Elem()
	for _, fm := range fieldMap {
		if fm.csvIndex < len(record) {
			v.Field(fm.fieldIndex).SetString(record[fm.csvIndex])
		}
	}
	return raw
}
