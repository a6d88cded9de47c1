package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// 按表头读取的 csv 表
type table struct {
	path   string
	header map[string]int
	rows   [][]string
}

func readTable(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s: empty file", path)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	t := &table{path: path, header: make(map[string]int, len(header))}
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, ok := t.header[name]; ok {
			return nil, fmt.Errorf("%s: duplicate column %q", path, name)
		}
		t.header[name] = i
	}
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		t.rows = append(t.rows, rec)
	}
	return t, nil
}

func (t *table) columns() []string {
	cols := make([]string, len(t.header))
	for name, i := range t.header {
		cols[i] = name
	}
	return cols
}

// 取第一个存在的列
func (t *table) col(names ...string) (int, bool) {
	for _, n := range names {
		if i, ok := t.header[n]; ok {
			return i, true
		}
	}
	return -1, false
}

func (t *table) str(row int, names ...string) string {
	i, ok := t.col(names...)
	if !ok || i >= len(t.rows[row]) {
		return ""
	}
	return strings.TrimSpace(t.rows[row][i])
}

// 缺失或空白时返回 nil
func (t *table) float(row int, names ...string) (*float64, error) {
	s := t.str(row, names...)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("%s row %d column %s: %w", t.path, row+1, names[0], err)
	}
	return &v, nil
}

func (t *table) floatOr(row int, fallback float64, names ...string) (float64, error) {
	v, err := t.float(row, names...)
	if err != nil || v == nil {
		return fallback, err
	}
	return *v, nil
}

func (t *table) boolOr(row int, fallback bool, names ...string) (bool, error) {
	s := t.str(row, names...)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return fallback, fmt.Errorf("%s row %d column %s: %w", t.path, row+1, names[0], err)
	}
	return v, nil
}

func writeTable(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
