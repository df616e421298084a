package bench_test

import (
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	ngramindex "github.com/luhtfiimanal/go-ngram-index"
	_ "modernc.org/sqlite"
)

type lineRef struct {
	Path   string
	Offset uint64
	Line   string
}

const (
	corpusFiles  = 8
	linesPerFile = 500
	maxWords     = 12
)

func randomASCII(r *rand.Rand, n int) string {
	letters := []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")
	b := make([]rune, n)
	for i := range b {
		b[i] = letters[r.Intn(len(letters))]
	}
	return string(b)
}

// writeCorpus membuat file korpus acak dan mengembalikan referensi setiap baris.
func writeCorpus(tb testing.TB, dir string, seed int64) []lineRef {
	tb.Helper()
	r := rand.New(rand.NewSource(seed))
	var refs []lineRef
	for f := 0; f < corpusFiles; f++ {
		path := filepath.Join(dir, fmt.Sprintf("corpus-%02d.txt", f))
		var sb strings.Builder
		for l := 0; l < linesPerFile; l++ {
			words := make([]string, 1+r.Intn(maxWords))
			for w := range words {
				words[w] = randomASCII(r, 1+r.Intn(8))
			}
			line := strings.Join(words, " ") + "\n"
			refs = append(refs, lineRef{Path: path, Offset: uint64(sb.Len()), Line: line})
			sb.WriteString(line)
		}
		if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
			tb.Fatalf("write corpus: %v", err)
		}
	}
	return refs
}

// openLineDB menyimpan semua baris ke SQLite in-memory sebagai pembanding.
func openLineDB(tb testing.TB, refs []lineRef) *sql.DB {
	tb.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`CREATE TABLE lines (path TEXT, off INTEGER, line TEXT, PRIMARY KEY (path, off));`); err != nil {
		tb.Fatalf("create table: %v", err)
	}
	tx, err := db.Begin()
	if err != nil {
		tb.Fatalf("begin: %v", err)
	}
	for _, r := range refs {
		if _, err := tx.Exec(`INSERT INTO lines (path, off, line) VALUES (?,?,?)`, r.Path, int64(r.Offset), r.Line); err != nil {
			tb.Fatalf("sqlite insert: %v", err)
		}
	}
	if err := tx.Commit(); err != nil {
		tb.Fatalf("commit: %v", err)
	}
	return db
}

// TestCompareWithSQLite resolves every line through the LineCache, under
// constant memory pressure, and validates it against the SQLite copy.
func TestCompareWithSQLite(t *testing.T) {
	refs := writeCorpus(t, t.TempDir(), 7)
	db := openLineDB(t, refs)
	defer db.Close()

	opts := ngramindex.DefaultOptions()
	opts.Memory = ngramindex.StaticMemory(0)
	cache, err := ngramindex.NewLineCacheWithOptions(opts)
	if err != nil {
		t.Fatalf("create cache: %v", err)
	}
	defer cache.Close()

	order := rand.New(rand.NewSource(99)).Perm(len(refs))
	for _, i := range order {
		r := refs[i]
		got, err := cache.Resolve(r.Path, r.Offset)
		if err != nil {
			t.Fatalf("resolve %s@%d: %v", r.Path, r.Offset, err)
		}
		var want string
		if err := db.QueryRow(`SELECT line FROM lines WHERE path=? AND off=?`, r.Path, int64(r.Offset)).Scan(&want); err != nil {
			t.Fatalf("sqlite read: %v", err)
		}
		if string(got) != want {
			t.Fatalf("mismatch at %s@%d: %q vs %q", r.Path, r.Offset, got, want)
		}
	}

	if cache.Len() != 1 {
		t.Fatalf("expected a single cached file under pressure, got %d", cache.Len())
	}
}
