package dataset

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sbinet/npyio"
)

// WriteArray persists one sample array under a subject directory,
// attributes as indented JSON beside the payload in NumPy format. An
// existing array of the same name is overwritten, so derivation runs
// are safe to repeat.
func WriteArray(subjectDir string, attrs ArrayAttributes, data any) error {
	if attrs.Name == "" {
		return errors.New("array name must not be empty")
	}

	dir := filepath.Join(subjectDir, attrs.Name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create array directory")
	}

	b, err := json.MarshalIndent(attrs, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s attributes", attrs.Name)
	}

	if err := os.WriteFile(filepath.Join(dir, attrsFile), b, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s attributes", attrs.Name)
	}

	f, err := os.Create(filepath.Join(dir, payloadFile))
	if err != nil {
		return errors.Wrapf(err, "failed to create the %s payload", attrs.Name)
	}

	if err := npyio.Write(f, data); err != nil {
		f.Close()
		return errors.Wrapf(err, "failed to write the %s payload", attrs.Name)
	}

	return errors.Wrapf(f.Close(), "failed to close the %s payload", attrs.Name)
}
