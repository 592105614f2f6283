// Package store persists invocation and judgment records one JSON object
// per record, on the local filesystem or in an S3 bucket.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/chainguard-dev/clog"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/gavel-bench/internal/domain"
	"github.com/ahrav/gavel-bench/internal/ports"
)

const (
	// ManifestName is the object written by SaveManifest. Record readers skip it.
	ManifestName = "manifest.json"

	invocationPrefix = "result_"
	judgmentPrefix   = "judgment_"

	// writeConcurrency bounds the number of records written at once.
	writeConcurrency = 8
)

// backend is the object-level storage a recordStore encodes records onto.
type backend interface {
	location() string
	// list returns the names of the .json objects directly under the location.
	list(ctx context.Context) ([]string, error)
	read(ctx context.Context, name string) ([]byte, error)
	write(ctx context.Context, name string, data []byte) error
}

// recordStore implements ports.ResultStore over a backend.
type recordStore struct {
	b backend
}

// Open returns a store bound to location. Locations of the form
// s3://bucket/prefix use the S3 backend built from opts; anything else is
// a local directory.
func Open(ctx context.Context, location string, opts S3Options) (ports.ResultStore, error) {
	if strings.HasPrefix(location, s3Scheme) {
		bucket, prefix, err := parseS3Location(location)
		if err != nil {
			return nil, ports.NewConfigError("location", err)
		}
		client, err := NewS3Client(ctx, opts)
		if err != nil {
			return nil, err
		}
		return NewS3Store(client, bucket, prefix), nil
	}
	return NewFileStore(location), nil
}

func (s *recordStore) Location() string { return s.b.location() }

// SaveInvocations writes result_<i+1>.json for every result.
func (s *recordStore) SaveInvocations(ctx context.Context, results []domain.InvocationResult) error {
	return s.writeAll(ctx, invocationPrefix, len(results), func(i int) (string, any) {
		return fmt.Sprintf("%s%d.json", invocationPrefix, results[i].Index+1), results[i]
	})
}

// SaveJudgments writes judgment_<i+1>.json for every record, in slice order.
func (s *recordStore) SaveJudgments(ctx context.Context, records []domain.JudgmentRecord) error {
	return s.writeAll(ctx, judgmentPrefix, len(records), func(i int) (string, any) {
		return fmt.Sprintf("%s%d.json", judgmentPrefix, i+1), records[i]
	})
}

func (s *recordStore) SaveManifest(ctx context.Context, manifest ports.RunManifest) error {
	data, err := encode(manifest)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return s.b.write(ctx, ManifestName, data)
}

func (s *recordStore) writeAll(ctx context.Context, prefix string, n int, record func(i int) (string, any)) error {
	names := make([]string, n)
	for i := range n {
		names[i], _ = record(i)
	}
	s.warnLeftovers(ctx, prefix, names)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(writeConcurrency)

	for i := range n {
		name, v := record(i)
		g.Go(func() error {
			data, err := encode(v)
			if err != nil {
				return fmt.Errorf("encode %s: %w", name, err)
			}
			if err := s.b.write(ctx, name, data); err != nil {
				return fmt.Errorf("write %s: %w", name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// warnLeftovers logs the prefix objects already at the location that this
// write will not replace. Readers cannot tell them apart from the new run.
func (s *recordStore) warnLeftovers(ctx context.Context, prefix string, writing []string) {
	existing, err := s.b.list(ctx)
	if err != nil {
		// A location that does not exist yet has nothing left over.
		return
	}
	replaced := make(map[string]bool, len(writing))
	for _, name := range writing {
		replaced[name] = true
	}
	var stale []string
	for _, name := range existing {
		if strings.HasPrefix(name, prefix) && !replaced[name] {
			stale = append(stale, name)
		}
	}
	if len(stale) == 0 {
		return
	}
	slices.SortFunc(stale, naturalCompare)
	clog.FromContext(ctx).With("location", s.b.location(), "objects", stale).
		Warnf("%d existing %s*.json records are not overwritten by this run and will be read with it", len(stale), prefix)
}

// LoadPairs returns the input and response of every record carrying both
// as strings. Other objects are skipped with a warning.
func (s *recordStore) LoadPairs(ctx context.Context) ([]domain.ResponsePair, error) {
	var pairs []domain.ResponsePair
	err := s.readAll(ctx, func(name string, data []byte) error {
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		in, okIn := raw["input"]
		out, okOut := raw["response"]
		if !okIn || !okOut {
			clog.FromContext(ctx).With("object", name).Debug("skipping record without input and response")
			return nil
		}

		var pair domain.ResponsePair
		if err := json.Unmarshal(in, &pair.Input); err != nil {
			return fmt.Errorf("input: %w", err)
		}
		if err := json.Unmarshal(out, &pair.Response); err != nil {
			return fmt.Errorf("response: %w", err)
		}
		pairs = append(pairs, pair)
		return nil
	})
	return pairs, err
}

// LoadJudgments decodes every record as a domain.JudgmentRecord.
func (s *recordStore) LoadJudgments(ctx context.Context) ([]domain.JudgmentRecord, error) {
	var records []domain.JudgmentRecord
	err := s.readAll(ctx, func(_ string, data []byte) error {
		var rec domain.JudgmentRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		records = append(records, rec)
		return nil
	})
	return records, err
}

// readAll feeds every record object to decode in natural name order.
// A decode failure skips that object with a warning.
func (s *recordStore) readAll(ctx context.Context, decode func(name string, data []byte) error) error {
	names, err := s.b.list(ctx)
	if err != nil {
		return err
	}
	names = slices.DeleteFunc(names, func(name string) bool { return name == ManifestName })
	slices.SortFunc(names, naturalCompare)

	for _, name := range names {
		data, err := s.b.read(ctx, name)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if err := decode(name, data); err != nil {
			clog.WarnContextf(ctx, "Could not parse %s: %v", path.Join(s.b.location(), name), err)
		}
	}
	return nil
}

// encode renders v as indented JSON without HTML escaping.
func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// naturalCompare orders names so that embedded numbers compare by value:
// result_2.json sorts before result_10.json.
func naturalCompare(a, b string) int {
	for a != "" && b != "" {
		ca, cb := a[0], b[0]
		if isDigit(ca) && isDigit(cb) {
			na, restA := leadingNumber(a)
			nb, restB := leadingNumber(b)
			if c := compareNumeric(na, nb); c != 0 {
				return c
			}
			a, b = restA, restB
			continue
		}
		if ca != cb {
			return int(ca) - int(cb)
		}
		a, b = a[1:], b[1:]
	}
	return len(a) - len(b)
}

func leadingNumber(s string) (digits, rest string) {
	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	return s[:i], s[i:]
}

func compareNumeric(a, b string) int {
	ta := strings.TrimLeft(a, "0")
	tb := strings.TrimLeft(b, "0")
	if len(ta) != len(tb) {
		return len(ta) - len(tb)
	}
	if c := strings.Compare(ta, tb); c != 0 {
		return c
	}
	return len(a) - len(b)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
