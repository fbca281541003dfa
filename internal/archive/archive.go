// Package archive writes tables to disk under names derived from their content, so that re-running
// a stage on unchanged input leaves the output directory untouched.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"math"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/firestore"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/segmentio/fasthash/jody"
	"go.uber.org/zap"
)

// Supported formats.
const (
	JSON      = "json"
	CSV       = "csv"
	SQLite    = "sqlite"
	Parquet   = "parquet"
	Firestore = "firestore"
)

// Formats lists every format Archive accepts.
var Formats = []string{JSON, CSV, SQLite, Parquet, Firestore}

// ErrUnknownFormat is wrapped by FormatError.
var ErrUnknownFormat = errors.New("unknown format")

// FormatError names a format that cannot be written or read.
type FormatError struct {
	Format string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%v %q (want one of %s)", ErrUnknownFormat, e.Format, strings.Join(Formats, ", "))
}

func (e *FormatError) Unwrap() error {
	return ErrUnknownFormat
}

// naBits stands in for a missing float cell.
const naBits = 0x7ff8dead0000beef

// Hash returns an eight-character hex digest of the column names and cell values of df.  Float
// cells contribute their exact bits.
func Hash(df dataframe.DataFrame) string {
	h := jody.HashString64("")
	for _, name := range df.Names() {
		h = jody.AddString64(h, name)
	}
	for _, name := range df.Names() {
		s := df.Col(name)
		for i := 0; i < s.Len(); i++ {
			e := s.Elem(i)
			if s.Type() == series.Float {
				bits := uint64(naBits)
				if !e.IsNA() {
					bits = math.Float64bits(e.Float())
				}
				h = jody.AddUint64(h, bits)
				continue
			}
			cell := e.String()
			h = jody.AddUint64(h, uint64(len(cell)))
			h = jody.AddString64(h, cell)
		}
	}
	return fmt.Sprintf("%08x", uint32(h>>32)^uint32(h))
}

// Archiver writes tables into a directory and, optionally, a Firestore database.
type Archiver struct {
	Dir       string
	Firestore *firestore.Client
	Log       *zap.Logger
}

// New builds an Archiver.  fs may be nil if the firestore format is never requested.
func New(dir string, fs *firestore.Client, log *zap.Logger) *Archiver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Archiver{Dir: dir, Firestore: fs, Log: log}
}

// Name returns the archive name of df under base, without an extension.
func Name(df dataframe.DataFrame, base string) string {
	return fmt.Sprintf("%s-%s", base, Hash(df))
}

// Archive writes df in each of the given formats and returns the paths (or, for firestore, the
// document paths) in the same order.  The base name is the file name of name without its
// extension.  Outputs that already exist are not rewritten.
func (a *Archiver) Archive(ctx context.Context, df dataframe.DataFrame, name string, formats ...string) ([]string, error) {
	if df.Err != nil {
		return nil, fmt.Errorf("Archive: %w", df.Err)
	}
	for _, f := range formats {
		if !known(f) {
			return nil, fmt.Errorf("Archive: %w", &FormatError{Format: f})
		}
		if f == Firestore && a.Firestore == nil {
			return nil, fmt.Errorf("Archive: firestore requested but no client configured")
		}
	}
	if err := os.MkdirAll(a.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("Archive: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	name = Name(df, base)
	paths := make([]string, len(formats))
	for i, f := range formats {
		var (
			path  string
			wrote bool
			err   error
		)
		switch f {
		case Firestore:
			path, wrote, err = a.writeFirestore(ctx, df, base, name)
		default:
			path = filepath.Join(a.Dir, name+"."+f)
			wrote, err = a.writeFile(df, path, f)
		}
		if err != nil {
			return nil, fmt.Errorf("Archive: %s: %w", f, err)
		}
		if wrote {
			a.Log.Info("wrote table", zap.String("path", path), zap.Int("rows", df.Nrow()), zap.Int("cols", df.Ncol()))
		} else {
			a.Log.Info("table already archived", zap.String("path", path))
		}
		paths[i] = path
	}
	return paths, nil
}

func known(format string) bool {
	for _, f := range Formats {
		if f == format {
			return true
		}
	}
	return false
}

// writeFile writes to a temporary file beside path and renames it into place.  path exists only
// once it is complete.
func (a *Archiver) writeFile(df dataframe.DataFrame, path, format string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, err
	}

	tmp, err := ioutil.TempFile(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return false, err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	switch format {
	case JSON:
		err = df.WriteJSON(tmp)
	case CSV:
		err = df.WriteCSV(tmp)
	case Parquet:
		err = writeParquet(df, tmp)
	case SQLite:
		// the driver opens the file itself
		if err = tmp.Close(); err == nil {
			err = writeSQLite(df, tmpName, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
		}
	}
	if format != SQLite {
		if cerr := tmp.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		return false, err
	}
	return true, os.Rename(tmpName, path)
}

// Read loads a table written by Archive, choosing the format from the file extension.
func Read(path string) (dataframe.DataFrame, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	var df dataframe.DataFrame
	switch ext {
	case JSON, CSV:
		f, err := os.Open(path)
		if err != nil {
			return df, fmt.Errorf("Read: %w", err)
		}
		defer f.Close()
		df = readDelimited(f, ext)
	case SQLite, "db":
		var err error
		df, err = readSQLite(path)
		if err != nil {
			return df, fmt.Errorf("Read: %s: %w", path, err)
		}
	case Parquet:
		var err error
		df, err = readParquet(path)
		if err != nil {
			return df, fmt.Errorf("Read: %s: %w", path, err)
		}
	default:
		return df, fmt.Errorf("Read: %s: %w", path, &FormatError{Format: ext})
	}
	if df.Err != nil {
		return df, fmt.Errorf("Read: %s: %w", path, df.Err)
	}
	return df, nil
}

func readDelimited(r io.Reader, format string) dataframe.DataFrame {
	if format == JSON {
		return dataframe.ReadJSON(r)
	}
	return dataframe.ReadCSV(r)
}
