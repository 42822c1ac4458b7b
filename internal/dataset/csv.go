// Package dataset loads example tables from CSV files, HTTP endpoints and
// the SQLite cache.
package dataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/stupiduntilnot/notesassist/internal/transcript"
)

const (
	inputColumn    = "tweet_content"
	responseColumn = "summary"
)

// ErrTooFewColumns is returned when the header has fewer than two columns.
var ErrTooFewColumns = errors.New("dataset needs at least two columns")

// Result is a parsed example table.
type Result struct {
	Source  string
	Pairs   []transcript.Pair
	Skipped int
	// Coerced is set when the named columns were missing and the first two
	// columns were used instead.
	Coerced bool
}

var candidateDelimiters = []rune{',', ';', '\t', '|'}

// ParseCSV reads a table of (tweet_content, summary) rows. The delimiter is
// guessed from the header line. Rows where either field is blank after
// trimming are dropped and counted in Skipped.
func ParseCSV(r io.Reader) (Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Result{}, fmt.Errorf("read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return Result{}, fmt.Errorf("read csv header: empty input")
	}
	if err != nil {
		return Result{}, fmt.Errorf("read csv header: %w", err)
	}

	var res Result
	inIdx, respIdx := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case inputColumn:
			inIdx = i
		case responseColumn:
			respIdx = i
		}
	}
	if inIdx < 0 || respIdx < 0 {
		if len(header) < 2 {
			return Result{}, fmt.Errorf("%w: found %q", ErrTooFewColumns, header)
		}
		inIdx, respIdx = 0, 1
		res.Coerced = true
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("read csv row: %w", err)
		}
		if inIdx >= len(record) || respIdx >= len(record) {
			res.Skipped++
			continue
		}
		p := transcript.Pair{
			Input:    strings.TrimSpace(record[inIdx]),
			Response: strings.TrimSpace(record[respIdx]),
		}
		if !p.Eligible() {
			res.Skipped++
			continue
		}
		res.Pairs = append(res.Pairs, p)
	}
	return res, nil
}

// sniffDelimiter picks the candidate that occurs most often outside quotes
// in the first line, defaulting to a comma.
func sniffDelimiter(data []byte) rune {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	if !sc.Scan() {
		return ','
	}
	counts := make(map[rune]int, len(candidateDelimiters))
	inQuotes := false
	for _, c := range sc.Text() {
		if c == '"' {
			inQuotes = !inQuotes
			continue
		}
		if !inQuotes {
			counts[c]++
		}
	}
	best, bestCount := ',', 0
	for _, d := range candidateDelimiters {
		if counts[d] > bestCount {
			best, bestCount = d, counts[d]
		}
	}
	return best
}
