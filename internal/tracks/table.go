// Package tracks loads and persists the per-position track table: one row per
// particle per frame, with an enabled flag shared by all rows of a particle.
package tracks

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"trackview/internal/models"
)

// FileName is the track table inside a position folder.
const FileName = "tracks.csv"

// Column names of the track table.
const (
	ColParticle   = "particle"
	ColFrame      = "frame"
	ColX          = "x"
	ColY          = "y"
	ColArea       = "area"
	ColLabel      = "label"
	ColEnabled    = "enabled"
	brightnessPfx = "brightness_"
)

var requiredColumns = []string{ColParticle, ColFrame, ColX, ColY, ColArea, ColLabel, ColEnabled, BrightnessColumn(0)}

// BrightnessColumn names the brightness column of a fluorescence channel.
func BrightnessColumn(channel int) string {
	return brightnessPfx + strconv.Itoa(channel)
}

// Row is one particle observation at one frame.
type Row struct {
	Particle   int64
	Frame      int
	X          float64
	Y          float64
	Area       float64
	Brightness []float64
	Label      int32
	Enabled    string
}

type seriesKey struct {
	particle int64
	column   string
}

// Table is the loaded track table of a position.
type Table struct {
	mu sync.RWMutex

	path    string
	header  []string
	columns map[string]int
	bright  []int

	records [][]string
	rows    []Row

	particles []int64
	byID      map[int64][]int

	series map[seriesKey][2][]float64
}

// Load reads the track table of the position folder dir.
func Load(dir string) (*Table, error) {
	path := filepath.Join(dir, FileName)

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("track table %s: %w", path, models.ErrNotFound)
		}
		return nil, fmt.Errorf("open track table %s: %w: %v", path, models.ErrIO, err)
	}
	defer f.Close()

	t, err := parse(f)
	if err != nil {
		return nil, fmt.Errorf("track table %s: %w", path, err)
	}
	t.path = path
	return t, nil
}

func parse(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty file: %w", models.ErrInvalidData)
		}
		return nil, fmt.Errorf("read header: %w: %v", models.ErrInvalidData, err)
	}

	// Tables written with a leading unnamed index column carry it as ""
	// or "Unnamed: 0"; it is dropped here and never written back.
	skipIndex := len(header) > 0 && (header[0] == "" || strings.HasPrefix(header[0], "Unnamed"))
	if skipIndex {
		header = header[1:]
	}

	t := &Table{
		header:  append([]string(nil), header...),
		columns: make(map[string]int, len(header)),
		byID:    make(map[int64][]int),
		series:  make(map[seriesKey][2][]float64),
	}
	for i, name := range t.header {
		t.columns[name] = i
	}
	for _, name := range requiredColumns {
		if _, ok := t.columns[name]; !ok {
			return nil, fmt.Errorf("missing column %q: %w", name, models.ErrInvalidData)
		}
	}
	t.bright = brightnessColumns(t.columns)

	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w: %v", line, models.ErrInvalidData, err)
		}
		if skipIndex && len(record) > 0 {
			record = record[1:]
		}
		if len(record) != len(t.header) {
			return nil, fmt.Errorf("line %d: %d fields, want %d: %w", line, len(record), len(t.header), models.ErrInvalidData)
		}

		row, err := t.decodeRow(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		if _, seen := t.byID[row.Particle]; !seen {
			t.particles = append(t.particles, row.Particle)
		}
		t.byID[row.Particle] = append(t.byID[row.Particle], len(t.rows))
		t.rows = append(t.rows, row)
		t.records = append(t.records, record)
	}

	return t, nil
}

// brightnessColumns returns the column positions of brightness_0..n in
// channel order.
func brightnessColumns(columns map[string]int) []int {
	type col struct{ channel, index int }
	var found []col
	for name, idx := range columns {
		if !strings.HasPrefix(name, brightnessPfx) {
			continue
		}
		ch, err := strconv.Atoi(strings.TrimPrefix(name, brightnessPfx))
		if err != nil {
			continue
		}
		found = append(found, col{ch, idx})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].channel < found[j].channel })

	out := make([]int, len(found))
	for i, c := range found {
		out[i] = c.index
	}
	return out
}

func (t *Table) decodeRow(record []string) (Row, error) {
	var row Row
	var err error

	num := func(col string) float64 {
		if err != nil {
			return 0
		}
		var v float64
		v, err = parseNumber(record[t.columns[col]])
		if err != nil {
			err = fmt.Errorf("column %s: %w", col, err)
		}
		return v
	}

	row.Particle = int64(num(ColParticle))
	row.Frame = int(num(ColFrame))
	row.X = num(ColX)
	row.Y = num(ColY)
	row.Area = num(ColArea)
	row.Label = int32(num(ColLabel))
	if err != nil {
		return Row{}, err
	}

	row.Brightness = make([]float64, len(t.bright))
	for i, idx := range t.bright {
		v, perr := parseNumber(record[idx])
		if perr != nil {
			return Row{}, fmt.Errorf("column %s: %w", t.header[idx], perr)
		}
		row.Brightness[i] = v
	}

	row.Enabled = record[t.columns[ColEnabled]]
	return row, nil
}

// parseNumber accepts integers and floats ("12", "12.0"). Empty cells are
// NaN-like in upstream tables and read as zero.
func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", models.ErrInvalidData, s)
	}
	return v, nil
}

// Path is the file the table was loaded from.
func (t *Table) Path() string {
	return t.path
}

// Particles returns the distinct particle ids in first-appearance order.
func (t *Table) Particles() []int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]int64(nil), t.particles...)
}

// Len is the number of rows.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// Channels is the number of brightness columns.
func (t *Table) Channels() int {
	return len(t.bright)
}

// Rows returns the rows of one particle in table order.
func (t *Table) Rows(particle int64) []Row {
	t.mu.RLock()
	defer t.mu.RUnlock()

	idx := t.byID[particle]
	out := make([]Row, len(idx))
	for i, r := range idx {
		out[i] = t.rows[r]
	}
	return out
}

// FrameRows returns every row observed at frame.
func (t *Table) FrameRows(frame int) []Row {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []Row
	for _, r := range t.rows {
		if r.Frame == frame {
			out = append(out, r)
		}
	}
	return out
}

// Label returns the label id of particle at frame.
func (t *Table) Label(particle int64, frame int) (int32, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, r := range t.byID[particle] {
		if t.rows[r].Frame == frame {
			return t.rows[r].Label, true
		}
	}
	return 0, false
}

// Enabled reports the enabled state of particle from its first row.
func (t *Table) Enabled(particle int64) (bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	idx := t.byID[particle]
	if len(idx) == 0 {
		return false, fmt.Errorf("particle %d: %w", particle, models.ErrNotFound)
	}
	return IsEnabled(t.rows[idx[0]].Enabled), nil
}

// Series returns the frames and values of column for particle, in table
// order. Results are cached until the particle is edited.
func (t *Table) Series(particle int64, column string) ([]float64, []float64, error) {
	key := seriesKey{particle, column}

	t.mu.RLock()
	cached, ok := t.series[key]
	t.mu.RUnlock()
	if ok {
		return cached[0], cached[1], nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	col, ok := t.columns[column]
	if !ok {
		return nil, nil, fmt.Errorf("column %q: %w", column, models.ErrNotFound)
	}
	idx := t.byID[particle]
	if len(idx) == 0 {
		return nil, nil, fmt.Errorf("particle %d: %w", particle, models.ErrNotFound)
	}

	frames := make([]float64, len(idx))
	values := make([]float64, len(idx))
	for i, r := range idx {
		frames[i] = float64(t.rows[r].Frame)
		v, err := parseNumber(t.records[r][col])
		if err != nil {
			return nil, nil, fmt.Errorf("particle %d column %s: %w", particle, column, err)
		}
		values[i] = v
	}

	t.series[key] = [2][]float64{frames, values}
	return frames, values, nil
}

// SetEnabled writes the enabled flag into every row of particle and
// persists the whole table. On a failed write the in-memory table is
// restored so it still matches what is on disk.
func (t *Table) SetEnabled(particle int64, enabled bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := t.byID[particle]
	if len(idx) == 0 {
		return fmt.Errorf("particle %d: %w", particle, models.ErrNotFound)
	}

	col := t.columns[ColEnabled]
	value := encodeEnabled(enabled)
	previous := make([]string, len(idx))
	for i, r := range idx {
		previous[i] = t.records[r][col]
		t.records[r][col] = value
		t.rows[r].Enabled = value
	}

	if err := t.saveLocked(); err != nil {
		for i, r := range idx {
			t.records[r][col] = previous[i]
			t.rows[r].Enabled = previous[i]
		}
		return err
	}

	for key := range t.series {
		if key.particle == particle {
			delete(t.series, key)
		}
	}
	return nil
}

// Save rewrites the whole table to its file.
func (t *Table) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.saveLocked()
}

// saveLocked writes to a temporary file next to the table and renames it
// over the original, so readers see either the old or the new table.
func (t *Table) saveLocked() error {
	if t.path == "" {
		return fmt.Errorf("track table has no backing file: %w", models.ErrIO)
	}

	tmp, err := os.CreateTemp(filepath.Dir(t.path), ".tracks-*.csv")
	if err != nil {
		return fmt.Errorf("create temp table: %w: %v", models.ErrIO, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	w := csv.NewWriter(tmp)
	if err := w.Write(t.header); err != nil {
		tmp.Close()
		return fmt.Errorf("write header: %w: %v", models.ErrIO, err)
	}
	if err := w.WriteAll(t.records); err != nil {
		tmp.Close()
		return fmt.Errorf("write rows: %w: %v", models.ErrIO, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync table: %w: %v", models.ErrIO, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close table: %w: %v", models.ErrIO, err)
	}
	if err := os.Rename(tmpName, t.path); err != nil {
		return fmt.Errorf("replace %s: %w: %v", t.path, models.ErrIO, err)
	}
	return nil
}
