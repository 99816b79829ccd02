// Package dataset loads the director registry and movie history tables from
// CSV, TSV or XLSX sources.
package dataset

import (
	"context"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/boxoffice/internal/fetcher"
	"github.com/sells-group/boxoffice/internal/model"
)

// Supported table formats.
const (
	FormatAuto = "auto"
	FormatCSV  = "csv"
	FormatTSV  = "tsv"
	FormatXLSX = "xlsx"
)

// Column names recognized in source headers, compared case-insensitively.
const (
	colID           = "id"
	colDirectorName = "director_name"
	colDirectorID   = "director_id"
	colBudget       = "budget"
	colRevenue      = "revenue"
)

// Loader reads tables through an Opener.
type Loader struct {
	Opener *fetcher.Opener
	// Format forces a table format; empty or "auto" detects it from the
	// location's extension.
	Format string
	// Sheet names the XLSX worksheet to read; empty reads the first.
	Sheet string
}

// Tables is one loaded snapshot of both tables.
type Tables struct {
	Registry *model.Registry
	History  *model.History
	LoadedAt time.Time
}

// LoadRegistry loads the director registry. The table must carry id and
// director_name columns.
func (l *Loader) LoadRegistry(ctx context.Context, location string) (*model.Registry, error) {
	var reg model.Registry
	err := l.decode(ctx, location, []string{colID, colDirectorName}, func(dec *csvutil.Decoder) error {
		var rec model.DirectorRecord
		if err := dec.Decode(&rec); err != nil {
			return err
		}
		rec.ID = canonicalID(rec.ID)
		reg.Directors = append(reg.Directors, rec)
		return nil
	}, nil)
	if err != nil {
		return nil, err
	}

	zap.L().Info("dataset: registry loaded",
		zap.String("location", location),
		zap.Int("directors", len(reg.Directors)),
	)
	return &reg, nil
}

// LoadHistory loads the movie history. The table must carry a director_id
// column; budget and revenue are optional and their presence is recorded in
// the returned History's Columns.
func (l *Loader) LoadHistory(ctx context.Context, location string) (*model.History, error) {
	var hist model.History
	err := l.decode(ctx, location, []string{colDirectorID}, func(dec *csvutil.Decoder) error {
		var rec model.MovieRecord
		if err := dec.Decode(&rec); err != nil {
			return err
		}
		rec.DirectorID = canonicalID(rec.DirectorID)
		hist.Movies = append(hist.Movies, rec)
		return nil
	}, func(header []string) {
		hist.Columns = model.HistoryColumns{
			Budget:  slices.Contains(header, colBudget),
			Revenue: slices.Contains(header, colRevenue),
		}
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("dataset: history loaded",
		zap.String("location", location),
		zap.Int("movies", len(hist.Movies)),
		zap.Bool("budget_column", hist.Columns.Budget),
		zap.Bool("revenue_column", hist.Columns.Revenue),
	)
	return &hist, nil
}

// LoadTables loads the registry and history concurrently.
func (l *Loader) LoadTables(ctx context.Context, directors, movies string) (*Tables, error) {
	g, gctx := errgroup.WithContext(ctx)

	var tables Tables
	g.Go(func() error {
		reg, err := l.LoadRegistry(gctx, directors)
		if err != nil {
			return eris.Wrap(err, "load directors")
		}
		tables.Registry = reg
		return nil
	})
	g.Go(func() error {
		hist, err := l.LoadHistory(gctx, movies)
		if err != nil {
			return eris.Wrap(err, "load movies")
		}
		tables.History = hist
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	tables.LoadedAt = time.Now().UTC()
	return &tables, nil
}

// format resolves the table format for a location.
func (l *Loader) format(location string) (string, error) {
	f := strings.ToLower(strings.TrimSpace(l.Format))
	switch f {
	case FormatCSV, FormatTSV, FormatXLSX:
		return f, nil
	case "", FormatAuto:
	default:
		return "", eris.Errorf("dataset: unknown format %q", l.Format)
	}

	switch fetcher.Ext(location) {
	case ".tsv", ".tab":
		return FormatTSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return FormatCSV, nil
	}
}

// rows streams a location's rows, header first. The returned cleanup must be
// called once reading stops.
func (l *Loader) rows(ctx context.Context, location string) (<-chan []string, <-chan error, func(), error) {
	if l.Opener == nil {
		return nil, nil, nil, eris.New("dataset: no opener configured")
	}

	format, err := l.format(location)
	if err != nil {
		return nil, nil, nil, err
	}

	if format == FormatXLSX {
		path, cleanup, err := l.Opener.LocalPath(ctx, location)
		if err != nil {
			return nil, nil, nil, eris.Wrapf(err, "dataset: open %s", location)
		}
		rowCh, errCh := fetcher.StreamXLSX(ctx, path, fetcher.XLSXOptions{SheetName: l.Sheet})
		return rowCh, errCh, cleanup, nil
	}

	rc, err := l.Opener.Open(ctx, location)
	if err != nil {
		return nil, nil, nil, eris.Wrapf(err, "dataset: open %s", location)
	}
	opts := fetcher.CSVOptions{LazyQuotes: true}
	if format == FormatTSV {
		opts.Delimiter = '\t'
	}
	rowCh, errCh := fetcher.StreamCSV(ctx, rc, opts)
	return rowCh, errCh, func() { _ = rc.Close() }, nil
}

// decode reads the header, checks required columns and calls each for every
// data row. onHeader, when set, sees the normalized header first.
func (l *Loader) decode(
	ctx context.Context,
	location string,
	required []string,
	each func(*csvutil.Decoder) error,
	onHeader func([]string),
) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rowCh, errCh, cleanup, err := l.rows(ctx, location)
	if err != nil {
		return err
	}
	defer cleanup()

	r := &rowReader{rows: rowCh, errs: errCh}
	raw, err := r.Read()
	if err == io.EOF {
		return eris.Errorf("dataset: %s: empty table", location)
	}
	if err != nil {
		return eris.Wrapf(err, "dataset: read %s", location)
	}

	header := normalizeHeader(raw)
	for _, col := range required {
		if !slices.Contains(header, col) {
			return eris.Errorf("dataset: %s: missing required column %q", location, col)
		}
	}
	if onHeader != nil {
		onHeader(header)
	}
	r.width = len(header)

	dec, err := csvutil.NewDecoder(r, header...)
	if err != nil {
		return eris.Wrapf(err, "dataset: %s: header", location)
	}
	dec.Map = mapField

	for {
		err := each(dec)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return eris.Wrapf(err, "dataset: %s: row %d", location, r.line)
		}
	}
}

// mapField turns empty numeric cells into zero and trims numeric text.
func mapField(field, _ string, v any) string {
	if _, ok := v.(float64); ok {
		field = strings.TrimSpace(field)
		if field == "" {
			return "0"
		}
	}
	return field
}

// rowReader adapts a row channel to csvutil.Reader. Rows are padded or cut
// to the header width and blank rows are skipped.
type rowReader struct {
	rows  <-chan []string
	errs  <-chan error
	width int
	line  int
}

func (r *rowReader) Read() ([]string, error) {
	for {
		row, ok := <-r.rows
		if !ok {
			if err := <-r.errs; err != nil {
				return nil, err
			}
			return nil, io.EOF
		}
		r.line++

		if r.width == 0 {
			return row, nil
		}
		if blank(row) {
			continue
		}
		switch {
		case len(row) < r.width:
			row = append(row, make([]string, r.width-len(row))...)
		case len(row) > r.width:
			row = row[:r.width]
		}
		return row, nil
	}
}

func normalizeHeader(raw []string) []string {
	header := make([]string, len(raw))
	for i, h := range raw {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return header
}

// canonicalID trims an identifier and drops an all-zero fraction from
// integral ids, so "7.0" from a spreadsheet export matches "7".
func canonicalID(id string) string {
	id = strings.TrimSpace(id)
	whole, frac, ok := strings.Cut(id, ".")
	if !ok || whole == "" || frac == "" || strings.Trim(frac, "0") != "" {
		return id
	}
	for _, c := range whole {
		if c < '0' || c > '9' {
			return id
		}
	}
	return whole
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
