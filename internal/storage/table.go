package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/naka-gawa/repo-insights/internal/domain"
)

// table is a parsed CSV file addressed by column name.
type table struct {
	columns map[string]int
	rows    [][]string
}

func (t *table) get(row []string, col string) string {
	i, ok := t.columns[col]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

func (t *table) int64Col(row []string, col string) (int64, error) {
	v := t.get(row, col)
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("column %s: invalid integer %q", col, v)
	}
	return n, nil
}

func (t *table) intCol(row []string, col string) (int, error) {
	n, err := t.int64Col(row, col)
	return int(n), err
}

func (t *table) summary(row []string) (domain.RepositorySummary, error) {
	s := domain.RepositorySummary{
		Name:        t.get(row, "name"),
		FullName:    t.get(row, "full_name"),
		Description: t.get(row, "description"),
		Language:    t.get(row, "language"),
		CreatedAt:   domain.ParseTimestamp(t.get(row, "created_at")),
		UpdatedAt:   domain.ParseTimestamp(t.get(row, "updated_at")),
	}
	var errs []error
	var err error
	if s.StarCount, err = t.intCol(row, "stargazers_count"); err != nil {
		errs = append(errs, err)
	}
	if s.ForkCount, err = t.intCol(row, "forks_count"); err != nil {
		errs = append(errs, err)
	}
	if s.OpenIssuesCount, err = t.intCol(row, "open_issues_count"); err != nil {
		errs = append(errs, err)
	}
	if s.StarCount < 0 || s.ForkCount < 0 || s.OpenIssuesCount < 0 {
		errs = append(errs, errors.New("counts must be non-negative"))
	}
	return s, errors.Join(errs...)
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

func readTable(path string, required []string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s has no header", path)
	}
	t := &table{columns: make(map[string]int, len(records[0])), rows: records[1:]}
	for i, name := range records[0] {
		t.columns[name] = i
	}
	for _, col := range required {
		if _, ok := t.columns[col]; !ok {
			return nil, fmt.Errorf("%s is missing column %q", path, col)
		}
	}
	return t, nil
}
