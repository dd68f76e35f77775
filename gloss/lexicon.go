// Package gloss maps gloss labels and sample directory names to the
// numeric identifiers of the sign lexicon.
package gloss

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Column names of the lexicon tables.
const (
	GlossColumn = "Glosse"
	IDColumn    = "Nr"
)

var (
	// ErrInvalidRow is returned for a table row without a usable identifier.
	ErrInvalidRow = errors.New("invalid lexicon row")
	// ErrMissingColumn is returned when a table header lacks a required column.
	ErrMissingColumn = errors.New("missing lexicon column")
)

// Entry is a single gloss of a lexicon table.
type Entry struct {
	Gloss string
	ID    int
}

// Table holds the entries of one lexicon source in file order.
type Table struct {
	Name    string
	Entries []Entry
	// Swapped counts the rows whose gloss and id columns were found swapped and repaired.
	Swapped int
}

// Lexicon resolves lower cased glosses to identifiers. Every gloss is
// stored twice: verbatim and with its umlauts stripped.
type Lexicon struct {
	ids map[string]int
}

// NewLexicon merges the tables in the given order. On a key collision the
// later table wins.
func NewLexicon(tables ...*Table) *Lexicon {
	l := &Lexicon{ids: make(map[string]int)}
	for _, t := range tables {
		l.Merge(t)
	}
	return l
}

// Merge adds the entries of t, overriding existing keys.
func (l *Lexicon) Merge(t *Table) {
	for _, e := range t.Entries {
		l.Add(e.Gloss, e.ID)
	}
}

// Add stores a gloss under its lower cased and its stripped form.
func (l *Lexicon) Add(gloss string, id int) {
	gloss = strings.ToLower(gloss)
	l.ids[gloss] = id
	l.ids[ASCII(gloss)] = id
}

// Lookup returns the identifier stored for key. The key is used as is.
func (l *Lexicon) Lookup(key string) (int, bool) {
	id, ok := l.ids[key]
	return id, ok
}

// Len returns the number of stored keys.
func (l *Lexicon) Len() int {
	return len(l.ids)
}

// ReadTable reads a tab separated lexicon table with a header row naming
// at least the Glosse and Nr columns. A row whose Nr is not a number but
// whose Glosse is, is taken to have the two values swapped.
func ReadTable(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading lexicon header: %w", err)
	}
	glossCol, idCol := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")) {
		case GlossColumn:
			glossCol = i
		case IDColumn:
			idCol = i
		}
	}
	if glossCol < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, GlossColumn)
	}
	if idCol < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, IDColumn)
	}

	t := &Table{}
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading lexicon: %w", err)
		}
		line, _ := cr.FieldPos(0)

		gloss, nr := field(record, glossCol), field(record, idCol)
		id, err := parseID(nr)
		if err != nil {
			swapped, serr := parseID(gloss)
			if serr != nil {
				return nil, fmt.Errorf("%w: line %d: gloss %q, id %q", ErrInvalidRow, line, gloss, nr)
			}
			gloss, id = nr, swapped
			t.Swapped++
		}
		if id <= 0 {
			return nil, fmt.Errorf("%w: line %d: id %d is not positive", ErrInvalidRow, line, id)
		}
		t.Entries = append(t.Entries, Entry{Gloss: gloss, ID: id})
	}
	return t, nil
}

// ReadGlossMap reads the legacy gloss list: one gloss<TAB>id pair per line.
func ReadGlossMap(r io.Reader) (*Table, error) {
	t := &Table{}
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		parts := strings.Split(text, "\t")
		if len(parts) != 2 {
			return nil, fmt.Errorf("%w: line %d: expected 2 columns, got %d", ErrInvalidRow, line, len(parts))
		}
		id, err := parseID(parts[1])
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%w: line %d: id %q", ErrInvalidRow, line, parts[1])
		}
		t.Entries = append(t.Entries, Entry{Gloss: parts[0], ID: id})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

// LoadTable reads a lexicon file. Files with a .tsv extension are read as
// tables with a header, anything else as a legacy gloss list.
func LoadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var t *Table
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		t, err = ReadTable(f)
	} else {
		t, err = ReadGlossMap(f)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	t.Name = path

	if t.Swapped > 0 {
		log.WithFields(log.Fields{
			"table": path,
			"rows":  t.Swapped,
		}).Warn("repaired lexicon rows with swapped gloss and id")
	}
	return t, nil
}

// LoadLexicon loads the files in order and merges them, later files winning.
func LoadLexicon(paths ...string) (*Lexicon, error) {
	tables := make([]*Table, 0, len(paths))
	for _, path := range paths {
		t, err := LoadTable(path)
		if err != nil {
			return nil, err
		}
		log.WithFields(log.Fields{
			"table":   path,
			"entries": len(t.Entries),
		}).Debug("loaded lexicon table")
		tables = append(tables, t)
	}
	return NewLexicon(tables...), nil
}

func field(record []string, i int) string {
	if i < len(record) {
		return record[i]
	}
	return ""
}

func parseID(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}
