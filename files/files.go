package files

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	county "github.com/khslmr/covid-county-corr"
)

// All code writing the unified table to delimited files is here

const (
	Sep         = ','
	EOL         = '\n'
	StringDelim = '"'
	FloatFormat = "%v"
	Header      = true
)

type Files struct {
	FieldNames  []string
	EOL         byte
	Sep         byte
	StringDelim byte // 0 writes strings bare
	FloatFormat string
	Missing     string
	Header      bool

	w        *bufio.Writer
	file     *os.File
	fileName string
}

type FileOpt func(f *Files) error

func NewFiles(opts ...FileOpt) (*Files, error) {
	f := &Files{
		EOL:         byte(EOL),
		Sep:         byte(Sep),
		StringDelim: byte(StringDelim),
		FloatFormat: FloatFormat,
		Missing:     county.MissingLabel,
		Header:      Header,
	}

	for _, opt := range opts {
		if e := opt(f); e != nil {
			return nil, e
		}
	}

	return f, nil
}

// *********** options ***********

func FileSep(sep byte) FileOpt {
	return func(f *Files) error {
		if sep == f.EOL || (sep == f.StringDelim && sep != 0) {
			return fmt.Errorf("separator collides with EOL or string delimiter")
		}

		f.Sep = sep

		return nil
	}
}

func FileEOL(eol byte) FileOpt {
	return func(f *Files) error {
		f.EOL = eol
		return nil
	}
}

func FileStringDelim(delim byte) FileOpt {
	return func(f *Files) error {
		f.StringDelim = delim
		return nil
	}
}

// FileFloatFormat is a fmt verb for float64, such as %.2f
func FileFloatFormat(format string) FileOpt {
	return func(f *Files) error {
		if !strings.Contains(format, "%") {
			return fmt.Errorf("invalid float format %s", format)
		}

		f.FloatFormat = format

		return nil
	}
}

// FileMissing sets what a missing value is written as.
func FileMissing(missing string) FileOpt {
	return func(f *Files) error {
		f.Missing = missing
		return nil
	}
}

func FileHeader(header bool) FileOpt {
	return func(f *Files) error {
		f.Header = header
		return nil
	}
}

// ***************** Files - Methods *****************

func (f *Files) Create(fileName string) error {
	var e error
	f.fileName = fileName
	if f.file, e = os.Create(fileName); e != nil {
		return e
	}

	f.w = bufio.NewWriter(f.file)

	return nil
}

// Attach writes to w instead of a file. Close flushes but does not close w.
func (f *Files) Attach(w io.Writer) {
	f.file, f.fileName = nil, ""
	f.w = bufio.NewWriter(w)
}

func (f *Files) FileName() string {
	return f.fileName
}

func (f *Files) Close() error {
	if f.w == nil {
		return fmt.Errorf("no open files")
	}

	e := f.w.Flush()
	f.w = nil

	if f.file != nil {
		if ex := f.file.Close(); e == nil {
			e = ex
		}

		f.file = nil
	}

	return e
}

// WriteLine writes one line. Entries are float64, county.Value, int or string.
func (f *Files) WriteLine(v []any) error {
	if f.w == nil {
		return fmt.Errorf("no open files")
	}

	var line []byte
	for ind := 0; ind < len(v); ind++ {
		var lx []byte
		switch d := v[ind].(type) {
		case float64:
			lx = []byte(fmt.Sprintf(f.FloatFormat, d))
		case county.Value:
			if d.IsMissing() {
				lx = []byte(f.Missing)
				break
			}

			lx = []byte(fmt.Sprintf(f.FloatFormat, d.F))
		case int:
			lx = []byte(fmt.Sprintf("%v", d))
		case string:
			lx = f.delimit(d)
		default:
			return fmt.Errorf("unsupported type %T in Files.WriteLine", d)
		}

		line = append(line, lx...)
		if ind < len(v)-1 {
			line = append(line, f.Sep)
		}
	}

	if _, e := f.w.Write(line); e != nil {
		return e
	}

	return f.w.WriteByte(f.EOL)
}

func (f *Files) WriteHeader() error {
	if !f.Header {
		return nil
	}

	if f.FieldNames == nil {
		return fmt.Errorf("field names not set in *Files")
	}

	if f.w == nil {
		return fmt.Errorf("no open files")
	}

	_, e := f.w.WriteString(strings.Join(f.FieldNames, string(rune(f.Sep))) + string(rune(f.EOL)))

	return e
}

// Save writes u with a header line, one line per entity in id order. Attributes are strings,
// weights and values are numbers.
func (f *Files) Save(u *county.Unified) error {
	f.FieldNames = u.Header()
	if e := f.WriteHeader(); e != nil {
		return e
	}

	labels, values := u.LabelColumns(), u.Columns()
	for _, row := range u.Rows() {
		line := []any{county.FormatID(row.ID), row.State, row.Name, county.KnownOrMissing(row.Weight)}
		for _, col := range labels {
			line = append(line, row.Label(col))
		}

		for _, col := range values {
			line = append(line, row.Value(col))
		}

		if e := f.WriteLine(line); e != nil {
			return e
		}
	}

	return nil
}

// delimit wraps s in the string delimiter, doubling any delimiter inside it.
func (f *Files) delimit(s string) []byte {
	if f.StringDelim == 0 {
		return []byte(s)
	}

	d := string(rune(f.StringDelim))

	return []byte(d + strings.ReplaceAll(s, d, d+d) + d)
}
