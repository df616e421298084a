package ngramindex

import (
	"io"
	"path/filepath"

	"github.com/pkg/errors"
)

// ErrMalformedRow is returned when a record row does not carry a string path
// and a non-negative integer offset.
var ErrMalformedRow = errors.New("malformed row")

// CorpusReference identifies the start of one line in one source file.
type CorpusReference struct {
	Path   string
	Offset uint64
}

// RecordSource yields the rows of one n-gram order in file order. Next returns
// io.EOF after the last row.
type RecordSource interface {
	NumRows() int64
	SeekToRow(row int64) error
	Next() (CorpusReference, error)
	Close() error
}

// SourceOpener opens a fresh RecordSource for an n-gram order, positioned at
// the first row.
type SourceOpener interface {
	Open(order int) (RecordSource, error)
}

// newReference maps the two row fields to a reference.
func newReference(path string, offset int64) (CorpusReference, error) {
	if offset < 0 {
		return CorpusReference{}, errors.Wrapf(ErrMalformedRow, "negative offset %d for %q", offset, path)
	}
	return CorpusReference{Path: path, Offset: uint64(offset)}, nil
}

// underBase joins path under base when base is set.
func underBase(base, path string) string {
	if base == "" {
		return path
	}
	return filepath.Join(base, path)
}

// SliceOpener serves records from memory, keyed by order.
type SliceOpener map[int][]CorpusReference

func (o SliceOpener) Open(order int) (RecordSource, error) {
	refs, ok := o[order]
	if !ok {
		return nil, errors.Errorf("no records for order %d", order)
	}
	return &sliceSource{refs: refs}, nil
}

type sliceSource struct {
	refs []CorpusReference
	pos  int64
}

func (s *sliceSource) NumRows() int64 { return int64(len(s.refs)) }

func (s *sliceSource) SeekToRow(row int64) error {
	if row < 0 || row > int64(len(s.refs)) {
		return errors.Errorf("seek to row %d: out of range (rows: %d)", row, len(s.refs))
	}
	s.pos = row
	return nil
}

func (s *sliceSource) Next() (CorpusReference, error) {
	if s.pos >= int64(len(s.refs)) {
		return CorpusReference{}, io.EOF
	}
	ref := s.refs[s.pos]
	s.pos++
	return ref, nil
}

func (s *sliceSource) Close() error { return nil }
