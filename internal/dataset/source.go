package dataset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/stupiduntilnot/notesassist/internal/db"
)

// Source produces an example table.
type Source interface {
	Name() string
	Load(ctx context.Context) (Result, error)
}

// HTTPSource downloads a CSV table.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

func (s *HTTPSource) Name() string { return s.URL }

func (s *HTTPSource) Load(ctx context.Context) (Result, error) {
	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return Result{}, fmt.Errorf("build dataset request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("fetch dataset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Result{}, fmt.Errorf("fetch dataset: status %d: %s", resp.StatusCode, string(body))
	}
	res, err := ParseCSV(resp.Body)
	if err != nil {
		return Result{}, err
	}
	res.Source = s.Name()
	return res, nil
}

// FileSource reads a CSV table from disk.
type FileSource struct {
	Path string
}

func (s *FileSource) Name() string { return s.Path }

func (s *FileSource) Load(ctx context.Context) (Result, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return Result{}, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	res, err := ParseCSV(f)
	if err != nil {
		return Result{}, err
	}
	res.Source = s.Name()
	return res, nil
}

// SQLiteSource reads the most recently cached table.
type SQLiteSource struct {
	DB *sql.DB
}

func (s *SQLiteSource) Name() string { return "sqlite-cache" }

func (s *SQLiteSource) Load(ctx context.Context) (Result, error) {
	meta, err := db.LatestDataset(s.DB)
	if err != nil {
		return Result{}, err
	}
	pairs, err := db.LoadExamples(s.DB)
	if err != nil {
		return Result{}, fmt.Errorf("load cached examples: %w", err)
	}
	return Result{Source: meta.Source, Pairs: pairs, Skipped: meta.Skipped}, nil
}

// CachedSource loads from Primary and keeps the last non-empty table in
// SQLite. When Primary fails, the cached table is returned instead.
type CachedSource struct {
	Primary Source
	DB      *sql.DB
}

func (s *CachedSource) Name() string { return s.Primary.Name() }

func (s *CachedSource) Load(ctx context.Context) (Result, error) {
	res, err := s.Primary.Load(ctx)
	if err == nil {
		if len(res.Pairs) > 0 {
			if _, saveErr := db.SaveExamples(s.DB, res.Source, res.Pairs, res.Skipped); saveErr != nil {
				log.Printf("[dataset] cache write failed source=%s: %v", res.Source, saveErr)
			}
		}
		return res, nil
	}

	cached, cacheErr := (&SQLiteSource{DB: s.DB}).Load(ctx)
	if cacheErr != nil || len(cached.Pairs) == 0 {
		if cacheErr != nil && !errors.Is(cacheErr, db.ErrNoDataset) {
			log.Printf("[dataset] cache read failed: %v", cacheErr)
		}
		return Result{}, err
	}
	log.Printf("[dataset] primary source failed, using cache source=%s rows=%d: %v", cached.Source, len(cached.Pairs), err)
	return cached, nil
}
