// Package source reads the inputs of a dispatch run from a directory tree.
package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/chainguard-dev/clog"

	"github.com/ahrav/gavel-bench/internal/domain"
	"github.com/ahrav/gavel-bench/internal/ports"
)

// readers maps a lower-case file extension to its item reader.
// Files with any other extension are ignored.
var readers = map[string]func(io.Reader) ([]string, error){
	".txt":  readText,
	".json": readJSON,
	".csv":  readCSV,
}

// Collect walks dir recursively in lexical order and returns one WorkItem
// per input found, indexed in collection order.
func Collect(ctx context.Context, dir string) ([]domain.WorkItem, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ports.NewConfigError("input_dir",
				fmt.Errorf("input directory %s does not exist: %w", dir, ports.ErrLocationNotFound))
		}
		return nil, ports.NewConfigError("input_dir", err)
	}
	if !info.IsDir() {
		return nil, ports.NewConfigError("input_dir", fmt.Errorf("%s is not a directory", dir))
	}

	log := clog.FromContext(ctx)

	var texts []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		read, ok := readers[strings.ToLower(filepath.Ext(path))]
		if !ok {
			return nil
		}

		found, err := readFile(path, read)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		log.With("path", path, "items", len(found)).Debug("collected inputs")
		texts = append(texts, found...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return domain.NewWorkItems(texts), nil
}

func readFile(path string, read func(io.Reader) ([]string, error)) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return read(f)
}

// readText yields each non-blank line, trimmed.
func readText(r io.Reader) ([]string, error) {
	var items []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			items = append(items, line)
		}
	}
	return items, scanner.Err()
}

// readJSON yields every element of a top-level array. For a top-level
// object it yields, in document order, each string value and each element
// of each array value; other values are skipped.
func readJSON(r io.Reader) ([]string, error) {
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return nil, nil
	}

	switch delim {
	case '[':
		return readJSONElements(dec)
	case '{':
		var items []string
		for dec.More() {
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			var value json.RawMessage
			if err := dec.Decode(&value); err != nil {
				return nil, err
			}

			switch trimmed := bytes.TrimSpace(value); {
			case len(trimmed) > 0 && trimmed[0] == '"':
				var s string
				if err := json.Unmarshal(trimmed, &s); err != nil {
					return nil, err
				}
				items = append(items, s)
			case len(trimmed) > 0 && trimmed[0] == '[':
				var elems []json.RawMessage
				if err := json.Unmarshal(trimmed, &elems); err != nil {
					return nil, err
				}
				for _, e := range elems {
					s, err := renderJSON(e)
					if err != nil {
						return nil, err
					}
					items = append(items, s)
				}
			}
		}
		return items, nil
	default:
		return nil, fmt.Errorf("unexpected JSON delimiter %v", delim)
	}
}

func readJSONElements(dec *json.Decoder) ([]string, error) {
	var items []string
	for dec.More() {
		var elem json.RawMessage
		if err := dec.Decode(&elem); err != nil {
			return nil, err
		}
		s, err := renderJSON(elem)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, nil
}

// renderJSON returns a string value as-is and any other value, null
// included, as compact JSON.
func renderJSON(raw json.RawMessage) (string, error) {
	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// readCSV yields one item per non-empty row: the cell itself for single
// column rows, otherwise the cells joined by ", ".
func readCSV(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var items []string
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return items, nil
		}
		if err != nil {
			return nil, err
		}
		switch len(row) {
		case 0:
		case 1:
			items = append(items, row[0])
		default:
			items = append(items, strings.Join(row, ", "))
		}
	}
}
