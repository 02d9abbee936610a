package dataset

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Read opens a dataset root and indexes every series, subject and
// array under it. Payloads are left on disk; see SampleArray.Values.
func Read(dir string) (*Dataset, error) {
	ds := &Dataset{
		Name: filepath.Base(filepath.Clean(dir)),
		Dir:  dir,
	}

	names, err := subdirs(dir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read dataset root")
	}

	for _, name := range names {
		series, err := readSeries(filepath.Join(dir, name), name)
		if err != nil {
			return nil, errors.Wrapf(err, "series %s", name)
		}

		ds.Series = append(ds.Series, series)
	}

	return ds, nil
}

func readSeries(dir, name string) (*Series, error) {
	series := &Series{Name: name}

	names, err := subdirs(dir)
	if err != nil {
		return nil, err
	}

	for _, sub := range names {
		subject, err := readSubject(filepath.Join(dir, sub))
		if err != nil {
			return nil, errors.Wrapf(err, "subject %s", sub)
		}

		series.Subjects = append(series.Subjects, subject)
	}

	return series, nil
}

func readSubject(dir string) (*Subject, error) {
	subject := &Subject{
		ID:     filepath.Base(dir),
		Dir:    dir,
		arrays: make(map[string]*SampleArray),
	}

	if err := applyMetadata(subject); err != nil {
		return nil, err
	}

	names, err := subdirs(dir)
	if err != nil {
		return nil, err
	}

	for _, name := range names {
		arrayDir := filepath.Join(dir, name)

		attrs, ok, err := readAttributes(arrayDir)
		if err != nil {
			return nil, err
		}

		// directories without attributes are not arrays
		if !ok {
			continue
		}

		subject.arrays[name] = &SampleArray{Attributes: attrs, dir: arrayDir}
		subject.names = append(subject.names, name)
	}

	return subject, nil
}

// applyMetadata overrides the directory derived subject ID with the
// one recorded in metadata.json, when there is one.
func applyMetadata(subject *Subject) error {
	b, err := os.ReadFile(filepath.Join(subject.Dir, metaFile))
	if os.IsNotExist(err) {
		return nil
	}

	if err != nil {
		return errors.Wrap(err, "failed to read subject metadata")
	}

	var meta struct {
		SubjectID string `json:"subject_id"`
	}

	if err := json.Unmarshal(b, &meta); err != nil {
		return errors.Wrap(err, "failed to parse subject metadata")
	}

	if meta.SubjectID != "" {
		subject.ID = meta.SubjectID
	}

	return nil
}

func readAttributes(dir string) (ArrayAttributes, bool, error) {
	var attrs ArrayAttributes

	b, err := os.ReadFile(filepath.Join(dir, attrsFile))
	if os.IsNotExist(err) {
		return attrs, false, nil
	}

	if err != nil {
		return attrs, false, errors.Wrap(err, "failed to read array attributes")
	}

	if err := json.Unmarshal(b, &attrs); err != nil {
		return attrs, false, errors.Wrapf(err, "failed to parse %s", filepath.Join(dir, attrsFile))
	}

	return attrs, true, nil
}

// subdirs lists the visible subdirectories of dir. os.ReadDir returns
// entries sorted by name, which fixes the iteration order of the whole
// dataset.
func subdirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string

	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			names = append(names, e.Name())
		}
	}

	return names, nil
}
