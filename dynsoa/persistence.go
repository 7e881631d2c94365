package dynsoa

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// defaultPersistPath is the reference's default LearnState persistence
// file name.
const defaultPersistPath = "dynsoa_learn.json"

// LoadState reads the scheduler's persisted LearnState from its configured
// path, tolerating a missing file or missing keys: this function degrades
// silently on any I/O or parse problem.
func (rt *Runtime) LoadState() {
	data, err := os.ReadFile(rt.scheduler.persistPath)
	if err != nil {
		logrus.WithError(err).Debugf("dynsoa: persistence: no learn state at %q", rt.scheduler.persistPath)
		return
	}
	s := string(data)

	if v, ok := findNum(s, `"a_div"`); ok {
		rt.scheduler.learn.ADiv = v
	}
	if v, ok := findNum(s, `"a_mem"`); ok {
		rt.scheduler.learn.AMem = v
	}
	if v, ok := findNum(s, `"a_tail"`); ok {
		rt.scheduler.learn.ATail = v
	}
}

// findNum implements the reference's tolerant substring scan: find the
// key, then the next ':', then the number up to the next ',' or '}'.
func findNum(s, key string) (float64, bool) {
	pos := strings.Index(s, key)
	if pos < 0 {
		return 0, false
	}
	colon := strings.Index(s[pos:], ":")
	if colon < 0 {
		return 0, false
	}
	start := pos + colon + 1
	rest := s[start:]
	end := strings.IndexAny(rest, ",}")
	if end < 0 {
		end = len(rest)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(rest[:end]), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// SaveState writes a small three-key JSON-ish object to the scheduler's
// configured persistence path. Failures are silent.
func (rt *Runtime) SaveState() {
	l := rt.scheduler.learn
	body := fmt.Sprintf("{\n \"a_div\": %v,\n \"a_mem\": %v,\n \"a_tail\": %v\n}\n", l.ADiv, l.AMem, l.ATail)
	if err := os.WriteFile(rt.scheduler.persistPath, []byte(body), 0o644); err != nil {
		logrus.WithError(err).Debugf("dynsoa: persistence: could not save learn state to %q", rt.scheduler.persistPath)
	}
}
