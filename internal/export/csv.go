// Package export writes batch results: the measurement table as CSV and a
// YAML manifest describing the run.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ironsheep/object-metrics/internal/pipeline"
)

// filePrefix starts the name of every output file.
const filePrefix = "ellipse_data_"

// OutputPath returns <dir>/ellipse_data_<base of root><ext>. dir is outDir, or
// the parent of root when outDir is empty.
func OutputPath(root, outDir, ext string) string {
	clean := filepath.Clean(root)
	dir := outDir
	if dir == "" {
		dir = filepath.Dir(clean)
	}
	return filepath.Join(dir, filePrefix+filepath.Base(clean)+ext)
}

// CSVPath returns where the table for root is written.
func CSVPath(root, outDir string) string {
	return OutputPath(root, outDir, ".csv")
}

// WriteCSV writes pipeline.Header followed by one row per record.
func WriteCSV(w io.Writer, records []pipeline.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(pipeline.Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write(row(r)); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", r.Filename, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

// WriteCSVFile creates path, including missing parent directories, and writes
// the table to it.
func WriteCSVFile(path string, records []pipeline.Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create csv file: %w", err)
	}
	if err := WriteCSV(f, records); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close csv file: %w", err)
	}
	return nil
}

func row(r pipeline.Record) []string {
	return []string{
		r.Filename,
		FormatFloat(r.Major),
		FormatFloat(r.Minor),
		FormatFloat(r.Area),
		FormatFloat(r.Circularity),
		FormatFloat(r.Perimeter),
		strconv.Itoa(r.Width),
		strconv.Itoa(r.Height),
		FormatFloat(r.Sharpness),
		FormatFloat(r.Saturation),
		FormatFloat(r.Red),
		FormatFloat(r.Green),
		FormatFloat(r.Blue),
		FormatFloat(r.Colorfulness),
	}
}

// FormatFloat renders v with the fewest digits that read back exactly.
//
// Integral values keep a ".0" suffix, decimal exponents below -4 or at least
// 16 switch to e-notation, and the non-finite values are "nan", "inf" and
// "-inf", so the table reads the same as one produced by common data tools.
func FormatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case v == 0:
		if math.Signbit(v) {
			return "-0.0"
		}
		return "0.0"
	}

	sci := strconv.FormatFloat(v, 'e', -1, 64)
	exp, err := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if err == nil && (exp < -4 || exp >= 16) {
		return sci
	}

	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}
