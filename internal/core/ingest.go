package core

// ingest.go turns an uploaded file into headers and row maps.
//
// Two shapes are accepted: delimited text (CSV, TSV, semicolon exports from
// spreadsheet tools in Spanish locales) and OOXML workbooks. The format is
// picked from the declared media type first and the file extension second.
// Problems that still leave a readable table are reported as diagnostics,
// never as errors.

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	// LargeFileRowThreshold is the row count above which a preview carries
	// a large file warning. It is advisory only.
	LargeFileRowThreshold = 10000
	SampleRowCount        = 5

	maxIngestErrors = 50
)

// Diagnostic prefixes for preview warnings.
const (
	DiagEmptyFile      = "EMPTY_FILE"
	DiagLargeFile      = "LARGE_FILE"
	DiagNoCommonFields = "NO_COMMON_FIELDS"
)

// FileFormat is the detected shape of an upload.
type FileFormat string

const (
	FormatDelimited   FileFormat = "delimited"
	FormatSpreadsheet FileFormat = "spreadsheet"
)

var mediaFormats = map[string]FileFormat{
	"text/csv":                  FormatDelimited,
	"text/x-csv":                FormatDelimited,
	"application/csv":           FormatDelimited,
	"text/tab-separated-values": FormatDelimited,
	"text/plain":                FormatDelimited,

	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": FormatSpreadsheet,
	"application/vnd.ms-excel.sheet.macroenabled.12":                    FormatSpreadsheet,
}

var extFormats = map[string]FileFormat{
	".csv":  FormatDelimited,
	".tsv":  FormatDelimited,
	".txt":  FormatDelimited,
	".xlsx": FormatSpreadsheet,
	".xlsm": FormatSpreadsheet,
}

// identityTerms are folded header fragments that suggest a file holds
// people. Terms of three characters or fewer match whole tokens only.
var identityTerms = []string{
	"cedula", "documento", "identificacion", "nombre", "apellido",
	"telefono", "celular", "correo", "email", "name", "surname", "phone",
	"id", "cc",
}

// Preview is the parsed content of an upload.
type Preview struct {
	Format     FileFormat  `json:"format"`
	Encoding   string      `json:"encoding,omitempty"`
	Delimiter  string      `json:"delimiter,omitempty"`
	Sheet      string      `json:"sheet,omitempty"`
	Headers    []string    `json:"headers"`
	Rows       []ImportRow `json:"rows"`
	TotalRows  int         `json:"totalRows"`
	SampleRows []ImportRow `json:"sampleRows"`
	Errors     []string    `json:"errors"`
	Warnings   []string    `json:"warnings"`
}

// DetectFormat picks the reader for an upload. Browsers on Windows send
// application/vnd.ms-excel for plain CSV files, so that type defers to the
// extension.
func DetectFormat(mediaType, fileName string) (FileFormat, error) {
	if mt, _, err := mime.ParseMediaType(mediaType); err == nil {
		if f, ok := mediaFormats[strings.ToLower(mt)]; ok {
			return f, nil
		}
	}
	if f, ok := extFormats[strings.ToLower(filepath.Ext(fileName))]; ok {
		return f, nil
	}
	return "", &UnsupportedFormatError{MediaType: mediaType, FileName: fileName}
}

// Ingest parses data into a Preview. Only an unreadable format is an error.
func Ingest(data []byte, mediaType, fileName string) (*Preview, error) {
	format, err := DetectFormat(mediaType, fileName)
	if err != nil {
		return nil, err
	}

	p := &Preview{
		Format:     format,
		Headers:    []string{},
		Rows:       []ImportRow{},
		SampleRows: []ImportRow{},
		Errors:     []string{},
		Warnings:   []string{},
	}

	var records [][]string
	switch format {
	case FormatSpreadsheet:
		records, p.Sheet, err = readSpreadsheet(data)
		if err != nil {
			return nil, &UnsupportedFormatError{MediaType: mediaType, FileName: fileName, Reason: err.Error()}
		}
	default:
		text, enc := decodeText(data)
		delim := sniffDelimiter(text, mediaType, fileName)
		p.Encoding = enc
		p.Delimiter = string(delim)
		records, p.Errors = readDelimited(text, delim)
	}

	p.fill(records)
	return p, nil
}

func (p *Preview) fill(records [][]string) {
	start := 0
	for start < len(records) && isEmptyRow(records[start]) {
		start++
	}
	if start < len(records) {
		p.Headers = uniqueHeaders(records[start])
		start++
	}

	extra := 0
	for _, rec := range records[start:] {
		if isEmptyRow(rec) {
			continue
		}
		row := make(ImportRow, len(p.Headers))
		for i, h := range p.Headers {
			if i < len(rec) {
				row[h] = CleanCell(rec[i])
			} else {
				row[h] = ""
			}
		}
		if len(rec) > len(p.Headers) && !isEmptyRow(rec[len(p.Headers):]) {
			extra++
			if extra <= maxIngestErrors {
				p.Errors = append(p.Errors, fmt.Sprintf("row %d: %d values but only %d headers; extra values ignored",
					len(p.Rows)+1, len(rec), len(p.Headers)))
			}
		}
		p.Rows = append(p.Rows, row)
	}
	if extra > maxIngestErrors {
		p.Errors = append(p.Errors, fmt.Sprintf("%d more rows with extra values", extra-maxIngestErrors))
	}

	p.TotalRows = len(p.Rows)
	n := min(SampleRowCount, len(p.Rows))
	p.SampleRows = append(p.SampleRows, p.Rows[:n]...)

	if p.TotalRows == 0 {
		p.Warnings = append(p.Warnings, DiagEmptyFile+": the file has no data rows")
	}
	if p.TotalRows > LargeFileRowThreshold {
		p.Warnings = append(p.Warnings, fmt.Sprintf("%s: %d rows exceeds %d; the import may take a while",
			DiagLargeFile, p.TotalRows, LargeFileRowThreshold))
	}
	if len(p.Headers) > 0 && !hasIdentityHeader(p.Headers) {
		p.Warnings = append(p.Warnings, DiagNoCommonFields+": no column looks like an id, name, phone or email")
	}
}

// Resample replaces SampleRows with the first n rows.
func (p *Preview) Resample(n int) {
	n = max(0, min(n, len(p.Rows)))
	p.SampleRows = append(make([]ImportRow, 0, n), p.Rows[:n]...)
}

func hasIdentityHeader(headers []string) bool {
	for _, h := range headers {
		folded := foldKey(h)
		tokens := strings.Fields(folded)
		for _, term := range identityTerms {
			if synonymMatches(folded, tokens, term) {
				return true
			}
		}
	}
	return false
}

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// decodeText returns data as UTF-8 along with the encoding it came in.
// Files without a BOM that are not valid UTF-8 are read as Windows-1252,
// which is what Excel writes for "CSV" in Latin American locales.
func decodeText(data []byte) ([]byte, string) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return data[len(bomUTF8):], "utf-8"
	case bytes.HasPrefix(data, bomUTF16LE), bytes.HasPrefix(data, bomUTF16BE):
		out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
		if err == nil {
			return out, "utf-16"
		}
	case utf8.Valid(data):
		return data, "utf-8"
	}

	out, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return bytes.ToValidUTF8(data, []byte("\uFFFD")), "utf-8"
	}
	return out, "windows-1252"
}

var delimiterCandidates = []rune{',', ';', '\t', '|'}

// sniffDelimiter counts candidate separators outside quotes on the first
// non-blank line. Ties keep the earlier candidate.
func sniffDelimiter(text []byte, mediaType, fileName string) rune {
	if strings.HasPrefix(strings.ToLower(mediaType), "text/tab-separated-values") ||
		strings.EqualFold(filepath.Ext(fileName), ".tsv") {
		return '\t'
	}

	var line string
	for _, l := range strings.Split(string(text), "\n") {
		if strings.TrimSpace(l) != "" {
			line = l
			break
		}
	}

	counts := make(map[rune]int, len(delimiterCandidates))
	quoted := false
	for _, r := range line {
		if r == '"' {
			quoted = !quoted
			continue
		}
		if !quoted {
			counts[r]++
		}
	}

	best := delimiterCandidates[0]
	for _, c := range delimiterCandidates[1:] {
		if counts[c] > counts[best] {
			best = c
		}
	}
	return best
}

func readDelimited(text []byte, delim rune) ([][]string, []string) {
	r := csv.NewReader(bytes.NewReader(text))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var (
		records [][]string
		errs    = []string{}
	)
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) && len(errs) < maxIngestErrors {
				errs = append(errs, fmt.Sprintf("line %d: %v", pe.Line, pe.Err))
				continue
			}
			errs = append(errs, fmt.Sprintf("stopped reading: %v", err))
			break
		}
		records = append(records, rec)
	}
	return records, errs
}

// readSpreadsheet returns the cell text of the first visible sheet.
func readSpreadsheet(data []byte) ([][]string, string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	for _, name := range f.GetSheetList() {
		visible, err := f.GetSheetVisible(name)
		if err != nil || !visible {
			continue
		}
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, "", fmt.Errorf("read sheet %q: %w", name, err)
		}
		return rows, name, nil
	}
	return nil, "", errors.New("workbook has no visible sheets")
}
