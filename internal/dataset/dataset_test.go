package dataset

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stupiduntilnot/notesassist/internal/db"
	"github.com/stupiduntilnot/notesassist/internal/transcript"
)

func TestParseCSV_NamedColumns(t *testing.T) {
	in := "id,summary,tweet_content\n" +
		"1,Note one,\"Post, with comma\"\n" +
		"2,  ,Post two\n" +
		"3,Note three,\"multi\nline\"\n"
	res, err := ParseCSV(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if res.Coerced {
		t.Fatal("named columns must not be coerced")
	}
	want := []transcript.Pair{
		{Input: "Post, with comma", Response: "Note one"},
		{Input: "multi\nline", Response: "Note three"},
	}
	if len(res.Pairs) != len(want) {
		t.Fatalf("expected %d pairs, got %+v", len(want), res.Pairs)
	}
	for i := range want {
		if res.Pairs[i] != want[i] {
			t.Errorf("pair %d: got %+v want %+v", i, res.Pairs[i], want[i])
		}
	}
	if res.Skipped != 1 {
		t.Errorf("expected 1 skipped row, got %d", res.Skipped)
	}
}

func TestParseCSV_SniffsDelimiter(t *testing.T) {
	in := "tweet_content;summary\n\"a, b\";NNN\nc;note\n"
	res, err := ParseCSV(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Pairs) != 2 || res.Pairs[0].Input != "a, b" || res.Pairs[1].Response != "note" {
		t.Fatalf("unexpected pairs: %+v", res.Pairs)
	}

	res, err = ParseCSV(strings.NewReader("tweet_content\tsummary\npost\tNNN\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Pairs) != 1 || res.Pairs[0].Response != "NNN" {
		t.Fatalf("unexpected tab pairs: %+v", res.Pairs)
	}
}

func TestParseCSV_CoercesFirstTwoColumns(t *testing.T) {
	res, err := ParseCSV(strings.NewReader("\xef\xbb\xbfpost,note,extra\nhello,NNN,x\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Coerced {
		t.Fatal("expected coerced columns")
	}
	if len(res.Pairs) != 1 || res.Pairs[0] != (transcript.Pair{Input: "hello", Response: "NNN"}) {
		t.Fatalf("unexpected pairs: %+v", res.Pairs)
	}
}

func TestParseCSV_TooFewColumns(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("only\nrow\n"))
	if !errors.Is(err, ErrTooFewColumns) {
		t.Fatalf("expected ErrTooFewColumns, got %v", err)
	}
	if _, err := ParseCSV(strings.NewReader("")); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestParseCSV_ShortRowsSkipped(t *testing.T) {
	res, err := ParseCSV(strings.NewReader("tweet_content,summary\nlonely\nok,NNN\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Pairs) != 1 || res.Skipped != 1 {
		t.Fatalf("expected 1 pair and 1 skipped, got %+v", res)
	}
}

func TestHTTPSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.Error(w, "gone", http.StatusNotFound)
			return
		}
		w.Write([]byte("tweet_content,summary\npost,NNN\n"))
	}))
	defer server.Close()

	src := &HTTPSource{URL: server.URL + "/data.csv"}
	res, err := src.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Pairs) != 1 || res.Source != src.URL {
		t.Fatalf("unexpected result: %+v", res)
	}

	_, err = (&HTTPSource{URL: server.URL + "/missing"}).Load(context.Background())
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "examples.csv")
	if err := os.WriteFile(path, []byte("tweet_content|summary\npost|NNN\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	res, err := (&FileSource{Path: path}).Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Pairs) != 1 || res.Source != path {
		t.Fatalf("unexpected result: %+v", res)
	}

	if _, err := (&FileSource{Path: path + ".nope"}).Load(context.Background()); err == nil {
		t.Fatal("expected error for missing file")
	}
}

type stubSource struct {
	res Result
	err error
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Load(ctx context.Context) (Result, error) { return s.res, s.err }

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.OpenDB(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { database.Close() })
	if err := db.InitSchema(database); err != nil {
		t.Fatal(err)
	}
	return database
}

func TestCachedSource_FallsBackToCache(t *testing.T) {
	database := openTestDB(t)
	primary := &stubSource{res: Result{
		Source:  "remote",
		Pairs:   []transcript.Pair{{Input: "A", Response: "a"}, {Input: "B", Response: "b"}},
		Skipped: 3,
	}}
	src := &CachedSource{Primary: primary, DB: database}

	if _, err := src.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	primary.err = errors.New("network down")
	res, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("expected cached fallback, got %v", err)
	}
	if len(res.Pairs) != 2 || res.Pairs[1].Input != "B" || res.Source != "remote" || res.Skipped != 3 {
		t.Fatalf("unexpected cached result: %+v", res)
	}
}

func TestCachedSource_EmptyTableKeepsCache(t *testing.T) {
	database := openTestDB(t)
	primary := &stubSource{res: Result{Source: "remote", Pairs: []transcript.Pair{{Input: "A", Response: "a"}}}}
	src := &CachedSource{Primary: primary, DB: database}
	if _, err := src.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	primary.res = Result{Source: "remote", Skipped: 4}
	res, err := src.Load(context.Background())
	if err != nil || len(res.Pairs) != 0 {
		t.Fatalf("expected empty primary result, got %+v err=%v", res, err)
	}

	cached, err := (&SQLiteSource{DB: database}).Load(context.Background())
	if err != nil || len(cached.Pairs) != 1 {
		t.Fatalf("expected cache untouched, got %+v err=%v", cached, err)
	}
}

func TestCachedSource_NoCacheReturnsPrimaryError(t *testing.T) {
	database := openTestDB(t)
	primaryErr := errors.New("boom")
	src := &CachedSource{Primary: &stubSource{err: primaryErr}, DB: database}
	if _, err := src.Load(context.Background()); !errors.Is(err, primaryErr) {
		t.Fatalf("expected primary error, got %v", err)
	}
}
