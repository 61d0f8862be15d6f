package verification

import (
	"bytes"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// Course is one row of the course catalog.
type Course struct {
	Name     string
	Duration string
	Fee      string
}

// Catalog answers course name lookups against the reference catalog.
type Catalog struct {
	courses []Course
	byName  map[string]Course
}

func NewCatalog(courses ...Course) *Catalog {
	c := &Catalog{byName: make(map[string]Course, len(courses))}
	for _, course := range courses {
		key := normalizeName(course.Name)
		if key == "" {
			continue
		}
		if _, found := c.byName[key]; found {
			continue
		}
		c.byName[key] = course
		c.courses = append(c.courses, course)
	}
	return c
}

// LoadCatalog reads the catalog from an xlsx workbook.
func LoadCatalog(path string, sheet string) (*Catalog, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read catalog %q", path)
	}
	return ParseCatalog(content, sheet)
}

// ParseCatalog reads courses from the given sheet. The first row is the header and must name a course column;
// duration and fee columns are optional.
func ParseCatalog(content []byte, sheet string) (*Catalog, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, errors.Wrap(err, "error opening catalog workbook")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if !slices.Contains(sheets, sheet) {
		return nil, errors.Errorf("catalog sheet %q not found", sheet)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read sheet %q", sheet)
	}
	if len(rows) == 0 {
		return NewCatalog(), nil
	}

	colMap := buildColumnMap(rows[0])
	nameCol := firstColumn(colMap, "course", "course name", "name", "program")
	if nameCol == "" {
		return nil, errors.Errorf("catalog sheet %q has no course column", sheet)
	}
	durationCol := firstColumn(colMap, "duration", "course duration", "length")
	feeCol := firstColumn(colMap, "fee", "fees", "course fee", "price", "cost")

	courses := make([]Course, 0, len(rows)-1)
	for _, row := range rows[1:] {
		name := getColumnValue(row, colMap, nameCol)
		if name == "" {
			continue
		}
		courses = append(courses, Course{
			Name:     name,
			Duration: getColumnValue(row, colMap, durationCol),
			Fee:      getColumnValue(row, colMap, feeCol),
		})
	}

	zap.S().Named("catalog").Infow("catalog loaded", "sheet", sheet, "courses", len(courses))
	return NewCatalog(courses...), nil
}

func (c *Catalog) Lookup(name string) (Course, bool) {
	course, found := c.byName[normalizeName(name)]
	return course, found
}

func (c *Catalog) Len() int {
	return len(c.courses)
}

// byLongestName returns the courses with the longest names first, so that a course whose name contains another
// course's name is matched before it.
func (c *Catalog) byLongestName() []Course {
	courses := slices.Clone(c.courses)
	sort.SliceStable(courses, func(i, j int) bool { return len(courses[i].Name) > len(courses[j].Name) })
	return courses
}

func normalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

func buildColumnMap(headers []string) map[string]int {
	colMap := make(map[string]int)
	for i, header := range headers {
		key := strings.ToLower(strings.TrimSpace(header))
		colMap[key] = i
	}
	return colMap
}

func firstColumn(colMap map[string]int, keys ...string) string {
	for _, key := range keys {
		if _, exists := colMap[key]; exists {
			return key
		}
	}
	return ""
}

func getColumnValue(row []string, colMap map[string]int, key string) string {
	if idx, exists := colMap[key]; exists && idx < len(row) {
		return strings.TrimSpace(row[idx])
	}
	return ""
}
