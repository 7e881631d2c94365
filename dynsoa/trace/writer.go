package trace

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

func itoa(v int) string      { return strconv.Itoa(v) }
func utoa(v uint64) string   { return strconv.FormatUint(v, 10) }
func ftoa(v float64) string  { return strconv.FormatFloat(v, 'f', 3, 64) }

// Row is anything that can render itself as a CSV row (ApplyRecord,
// LearnRecord).
type Row interface {
	Row() []string
}

// Writer appends decision-trace rows to a CSV file, opened on first use,
// and optionally mirrors each row through logrus when verbose tracing is
// enabled. Failures to open or write are silent best-effort, matching the
// reference's "best-effort, silently skipped on failure" file I/O policy.
type Writer struct {
	path    string
	verbose bool

	file *os.File
	csv  *csv.Writer
}

// NewWriter creates a Writer for the given learn-log path (may be empty,
// meaning no file sink) and verbosity flag.
func NewWriter(path string, verbose bool) *Writer {
	return &Writer{path: path, verbose: verbose}
}

func (w *Writer) ensureOpen() bool {
	if w.path == "" {
		return false
	}
	if w.csv != nil {
		return true
	}
	f, err := os.Create(w.path)
	if err != nil {
		logrus.WithError(err).Debugf("dynsoa: trace: could not open learn log %q", w.path)
		w.path = "" // stop retrying every call, matching "silently skipped"
		return false
	}
	cw := csv.NewWriter(f)
	if err := cw.Write(Header); err != nil {
		logrus.WithError(err).Debug("dynsoa: trace: could not write learn log header")
		_ = f.Close()
		w.path = ""
		return false
	}
	cw.Flush()
	w.file = f
	w.csv = cw
	return true
}

// Emit writes r to the learn-log sink (if enabled) and, if verbose, logs it
// via logrus (replacing the reference's raw stderr fprintf, DYNSOA_VERBOSE).
func (w *Writer) Emit(r Row) {
	if w.verbose {
		logrus.WithField("trace", r.Row()).Debug("dynsoa: scheduler decision")
	}
	if w.ensureOpen() {
		if err := w.csv.Write(r.Row()); err != nil {
			logrus.WithError(err).Debug("dynsoa: trace: write failed")
			return
		}
		w.csv.Flush()
	}
}

// Close releases the underlying file, if any.
func (w *Writer) Close() {
	if w.file != nil {
		if w.csv != nil {
			w.csv.Flush()
		}
		_ = w.file.Close()
		w.file = nil
		w.csv = nil
	}
}
