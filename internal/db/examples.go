package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/stupiduntilnot/notesassist/internal/transcript"
)

// ErrNoDataset is returned when no example table has been cached yet.
var ErrNoDataset = errors.New("no cached dataset")

// Dataset describes one cached example table.
type Dataset struct {
	ID        int64
	Source    string
	RowCount  int
	Skipped   int
	CreatedAt int64
}

// SaveExamples stores pairs as a new dataset and removes older datasets, so
// the cache only ever holds the latest table.
func SaveExamples(db *sql.DB, source string, pairs []transcript.Pair, skipped int) (int64, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin save examples: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO datasets (source, row_count, skipped) VALUES (?, ?, ?)`,
		source, len(pairs), skipped,
	)
	if err != nil {
		return 0, fmt.Errorf("insert dataset: %w", err)
	}
	datasetID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get dataset id: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO examples (dataset_id, input, response) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert example: %w", err)
	}
	defer stmt.Close()
	for _, p := range pairs {
		if _, err := stmt.Exec(datasetID, p.Input, p.Response); err != nil {
			return 0, fmt.Errorf("insert example: %w", err)
		}
	}

	if _, err := tx.Exec(`DELETE FROM examples WHERE dataset_id <> ?`, datasetID); err != nil {
		return 0, fmt.Errorf("prune examples: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM datasets WHERE id <> ?`, datasetID); err != nil {
		return 0, fmt.Errorf("prune datasets: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit save examples: %w", err)
	}
	return datasetID, nil
}

// LatestDataset returns metadata for the most recently cached table.
func LatestDataset(db *sql.DB) (Dataset, error) {
	var d Dataset
	err := db.QueryRow(
		`SELECT id, source, row_count, skipped, created_at FROM datasets ORDER BY id DESC LIMIT 1`,
	).Scan(&d.ID, &d.Source, &d.RowCount, &d.Skipped, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return Dataset{}, ErrNoDataset
	}
	if err != nil {
		return Dataset{}, err
	}
	return d, nil
}

// LoadExamples returns the pairs of the latest cached dataset in row order.
func LoadExamples(db *sql.DB) ([]transcript.Pair, error) {
	d, err := LatestDataset(db)
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(
		`SELECT input, response FROM examples WHERE dataset_id = ? ORDER BY id ASC`,
		d.ID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pairs := make([]transcript.Pair, 0, d.RowCount)
	for rows.Next() {
		var p transcript.Pair
		if err := rows.Scan(&p.Input, &p.Response); err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}
