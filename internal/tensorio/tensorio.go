// Package tensorio reads and writes the benchmark CLI's tensor text
// format: a header naming the kind ("sptensor" or "tensor") and dims,
// followed by either a coordinate-value list (sparse) or a flat row-major
// value list (dense). Gzip-compressed input is supported transparently.
package tensorio

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gentengo/gcp/densetensor"
	"github.com/gentengo/gcp/internal/gcperr"
	"github.com/gentengo/gcp/sptensor"
)

// Options configures how a tensor file is read.
type Options struct {
	IndexBase int // 0 or 1; subscripts in the file are offset by this amount
	Gzip      bool
}

func openReader(path string, gz bool) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, gcperr.Wrap(gcperr.InvalidArgument, "tensorio: open "+path, err)
	}
	if !gz {
		return f, nil
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, gcperr.Wrap(gcperr.InvalidArgument, "tensorio: gzip "+path, err)
	}
	return struct {
		io.Reader
		io.Closer
	}{Reader: zr, Closer: multiCloser{zr, f}}, nil
}

type multiCloser struct {
	a, b io.Closer
}

func (m multiCloser) Close() error {
	e1 := m.a.Close()
	e2 := m.b.Close()
	if e1 != nil {
		return e1
	}
	return e2
}

type lineScanner struct {
	sc *bufio.Scanner
}

func (l *lineScanner) next() (string, error) {
	if !l.sc.Scan() {
		if err := l.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(l.sc.Text()), nil
}

// ReadSparse reads a sparse tensor in the "sptensor" text format.
func ReadSparse(path string, opts Options) (*sptensor.Sptensor, error) {
	rc, err := openReader(path, opts.Gzip)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	ls := &lineScanner{sc: bufio.NewScanner(rc)}
	ls.sc.Buffer(make([]byte, 64*1024), 1<<24)

	kind, err := ls.next()
	if err != nil {
		return nil, gcperr.Wrap(gcperr.InvalidArgument, "tensorio: reading header", err)
	}
	if kind != "sptensor" {
		return nil, gcperr.New(gcperr.InvalidArgument, "tensorio: expected sptensor header, got "+kind)
	}

	nLine, err := ls.next()
	if err != nil {
		return nil, gcperr.Wrap(gcperr.InvalidArgument, "tensorio: reading N", err)
	}
	n, err := strconv.Atoi(nLine)
	if err != nil {
		return nil, gcperr.Wrap(gcperr.InvalidArgument, "tensorio: parsing N", err)
	}

	dimsLine, err := ls.next()
	if err != nil {
		return nil, gcperr.Wrap(gcperr.InvalidArgument, "tensorio: reading dims", err)
	}
	dims, err := parseInts(dimsLine, n)
	if err != nil {
		return nil, err
	}

	nnzLine, err := ls.next()
	if err != nil {
		return nil, gcperr.Wrap(gcperr.InvalidArgument, "tensorio: reading nnz", err)
	}
	nnz, err := strconv.Atoi(nnzLine)
	if err != nil {
		return nil, gcperr.Wrap(gcperr.InvalidArgument, "tensorio: parsing nnz", err)
	}

	subs := make([][]int, nnz)
	vals := make([]float64, nnz)
	for i := 0; i < nnz; i++ {
		line, err := ls.next()
		if err != nil {
			return nil, gcperr.Wrap(gcperr.InvalidArgument, fmt.Sprintf("tensorio: reading nonzero %d", i), err)
		}
		fields := strings.Fields(line)
		if len(fields) != n+1 {
			return nil, gcperr.New(gcperr.InvalidArgument, fmt.Sprintf("tensorio: nonzero %d has %d fields, want %d", i, len(fields), n+1))
		}
		coord := make([]int, n)
		for k := 0; k < n; k++ {
			c, err := strconv.Atoi(fields[k])
			if err != nil {
				return nil, gcperr.Wrap(gcperr.InvalidArgument, "tensorio: parsing subscript", err)
			}
			coord[k] = c - opts.IndexBase
		}
		v, err := strconv.ParseFloat(fields[n], 64)
		if err != nil {
			return nil, gcperr.Wrap(gcperr.InvalidArgument, "tensorio: parsing value", err)
		}
		subs[i] = coord
		vals[i] = v
	}

	return sptensor.New(dims, subs, vals)
}

// ReadDense reads a dense tensor in the "tensor" text format.
func ReadDense(path string, opts Options) (*densetensor.Dense, error) {
	rc, err := openReader(path, opts.Gzip)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	ls := &lineScanner{sc: bufio.NewScanner(rc)}
	ls.sc.Buffer(make([]byte, 64*1024), 1<<24)

	kind, err := ls.next()
	if err != nil {
		return nil, gcperr.Wrap(gcperr.InvalidArgument, "tensorio: reading header", err)
	}
	if kind != "tensor" {
		return nil, gcperr.New(gcperr.InvalidArgument, "tensorio: expected tensor header, got "+kind)
	}

	nLine, err := ls.next()
	if err != nil {
		return nil, gcperr.Wrap(gcperr.InvalidArgument, "tensorio: reading N", err)
	}
	n, err := strconv.Atoi(nLine)
	if err != nil {
		return nil, gcperr.Wrap(gcperr.InvalidArgument, "tensorio: parsing N", err)
	}

	dimsLine, err := ls.next()
	if err != nil {
		return nil, gcperr.Wrap(gcperr.InvalidArgument, "tensorio: reading dims", err)
	}
	dims, err := parseInts(dimsLine, n)
	if err != nil {
		return nil, err
	}

	numel := 1
	for _, d := range dims {
		numel *= d
	}
	data := make([]float64, numel)
	for i := 0; i < numel; i++ {
		line, err := ls.next()
		if err != nil {
			return nil, gcperr.Wrap(gcperr.InvalidArgument, fmt.Sprintf("tensorio: reading element %d", i), err)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(line), 64)
		if err != nil {
			return nil, gcperr.Wrap(gcperr.InvalidArgument, "tensorio: parsing value", err)
		}
		data[i] = v
	}
	return densetensor.FromSlice(dims, data)
}

func parseInts(line string, n int) ([]int, error) {
	fields := strings.Fields(line)
	if len(fields) != n {
		return nil, gcperr.New(gcperr.InvalidArgument, fmt.Sprintf("tensorio: dims line has %d fields, want %d", len(fields), n))
	}
	out := make([]int, n)
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, gcperr.Wrap(gcperr.InvalidArgument, "tensorio: parsing dim", err)
		}
		out[i] = v
	}
	return out, nil
}

// WriteSparse writes x to path in the "sptensor" text format, with
// subscripts offset by indexBase.
func WriteSparse(path string, x *sptensor.Sptensor, indexBase int) error {
	f, err := os.Create(path)
	if err != nil {
		return gcperr.Wrap(gcperr.InvalidArgument, "tensorio: create "+path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "sptensor")
	fmt.Fprintln(w, x.NDims())
	for i, d := range x.Dims {
		if i > 0 {
			fmt.Fprint(w, " ")
		}
		fmt.Fprint(w, d)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, x.NNZ())
	for i, coord := range x.Subs {
		for _, c := range coord {
			fmt.Fprintf(w, "%d ", c+indexBase)
		}
		fmt.Fprintf(w, "%g\n", x.Vals[i])
	}
	return w.Flush()
}

// WriteDense writes d to path in the "tensor" text format.
func WriteDense(path string, d *densetensor.Dense) error {
	f, err := os.Create(path)
	if err != nil {
		return gcperr.Wrap(gcperr.InvalidArgument, "tensorio: create "+path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "tensor")
	fmt.Fprintln(w, d.NDims())
	dims := d.Dims()
	for i, dd := range dims {
		if i > 0 {
			fmt.Fprint(w, " ")
		}
		fmt.Fprint(w, dd)
	}
	fmt.Fprintln(w)
	for _, v := range d.Data() {
		fmt.Fprintf(w, "%g\n", v)
	}
	return w.Flush()
}
