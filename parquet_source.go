package ngramindex

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
	"github.com/pkg/errors"
)

const defaultParquetBatch = 1024

// ParquetOpener opens <Dir>/<order>.parquet. Leaf column 0 must hold the
// source path (string) and leaf column 1 the byte offset (INT64 or INT32).
type ParquetOpener struct {
	Dir       string
	BatchSize int // rows per read (0 = 1024)
}

// Path returns the record file of an order.
func (o ParquetOpener) Path(order int) string {
	return filepath.Join(o.Dir, fmt.Sprintf("%d.parquet", order))
}

func (o ParquetOpener) Open(order int) (RecordSource, error) {
	path := o.Path(order)
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open record file")
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "stat record file")
	}
	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "read parquet metadata of %s", path)
	}
	if cols := pf.Schema().Columns(); len(cols) < 2 {
		f.Close()
		return nil, errors.Wrapf(ErrMalformedRow, "%s has %d columns, want path and offset", path, len(cols))
	}

	batch := o.BatchSize
	if batch <= 0 {
		batch = defaultParquetBatch
	}
	return &parquetSource{
		file:   f,
		reader: parquet.NewReader(pf),
		rows:   pf.NumRows(),
		buf:    make([]parquet.Row, batch),
	}, nil
}

type parquetSource struct {
	file   *os.File
	reader *parquet.Reader
	rows   int64
	pos    int64

	buf  []parquet.Row
	n, i int
	eof  bool
}

func (s *parquetSource) NumRows() int64 { return s.rows }

func (s *parquetSource) SeekToRow(row int64) error {
	if err := s.reader.SeekToRow(row); err != nil {
		return errors.Wrapf(err, "seek to row %d", row)
	}
	s.pos = row
	s.n, s.i, s.eof = 0, 0, false
	return nil
}

func (s *parquetSource) Next() (CorpusReference, error) {
	for s.i >= s.n {
		if s.eof {
			return CorpusReference{}, io.EOF
		}
		n, err := s.reader.ReadRows(s.buf)
		s.n, s.i = n, 0
		if err != nil {
			if err != io.EOF {
				return CorpusReference{}, errors.Wrapf(err, "read rows at %d", s.pos)
			}
			s.eof = true
		} else if n == 0 {
			s.eof = true
		}
	}

	row := s.buf[s.i]
	s.i++
	s.pos++
	ref, err := referenceFromRow(row)
	if err != nil {
		return CorpusReference{}, errors.WithMessagef(err, "row %d", s.pos-1)
	}
	return ref, nil
}

func (s *parquetSource) Close() error {
	rerr := s.reader.Close()
	ferr := s.file.Close()
	if rerr != nil {
		return rerr
	}
	return ferr
}

// referenceFromRow reads the path from leaf column 0 and the offset from leaf
// column 1.
func referenceFromRow(row parquet.Row) (CorpusReference, error) {
	var (
		path                 string
		offset               int64
		havePath, haveOffset bool
	)
	for _, v := range row {
		switch v.Column() {
		case 0:
			if v.IsNull() || v.Kind() != parquet.ByteArray {
				return CorpusReference{}, errors.Wrapf(ErrMalformedRow, "path field is %v", v.Kind())
			}
			path = string(v.ByteArray())
			havePath = true
		case 1:
			switch {
			case v.IsNull():
				return CorpusReference{}, errors.Wrap(ErrMalformedRow, "offset field is null")
			case v.Kind() == parquet.Int64:
				offset = v.Int64()
			case v.Kind() == parquet.Int32:
				offset = int64(v.Int32())
			default:
				return CorpusReference{}, errors.Wrapf(ErrMalformedRow, "offset field is %v", v.Kind())
			}
			haveOffset = true
		}
	}
	if !havePath || !haveOffset {
		return CorpusReference{}, errors.Wrap(ErrMalformedRow, "missing path or offset")
	}
	return newReference(path, offset)
}
