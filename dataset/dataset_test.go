package dataset

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
)

var testStart = time.Date(2024, 3, 14, 22, 5, 0, 0, time.UTC)

func writeTestArray(t *testing.T, subjectDir, name string, data any) {
	t.Helper()

	err := WriteArray(subjectDir, ArrayAttributes{
		Name:     name,
		StartTS:  testStart,
		Sampling: RegularSampling(64),
		Unit:     "mV",
	}, data)
	if err != nil {
		t.Fatalf("WriteArray(%s): %v", name, err)
	}
}

func TestWriteReadRoundtrip(t *testing.T) {
	root := t.TempDir()
	subjectDir := filepath.Join(root, "wave1", "sub01")
	values := []float64{1.5, 2.25, -3, 0, 42}

	writeTestArray(t, subjectDir, "Pleth", values)

	ds, err := Read(root)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if ds.Name != filepath.Base(root) {
		t.Errorf("dataset name = %q, want %q", ds.Name, filepath.Base(root))
	}

	if len(ds.Series) != 1 || ds.Series[0].Name != "wave1" {
		t.Fatalf("got %d series, want just wave1", len(ds.Series))
	}

	subjects := ds.Series[0].Subjects
	if len(subjects) != 1 || subjects[0].ID != "sub01" {
		t.Fatalf("got %d subjects, want just sub01", len(subjects))
	}

	arr, err := subjects[0].Array("Pleth")
	if err != nil {
		t.Fatalf("Array: %v", err)
	}

	attrs := arr.Attributes
	if attrs.Name != "Pleth" || attrs.Unit != "mV" {
		t.Errorf("attributes = %+v", attrs)
	}

	if !attrs.StartTS.Equal(testStart) {
		t.Errorf("start_ts = %v, want %v", attrs.StartTS, testStart)
	}

	if rate, ok := attrs.Sampling.Rate(); !ok || rate != 64 {
		t.Errorf("sampling = %v, want regular 64 Hz", attrs.Sampling)
	}

	got, err := arr.Values()
	if err != nil {
		t.Fatalf("Values: %v", err)
	}

	if len(got) != len(values) {
		t.Fatalf("got %d values, want %d", len(got), len(values))
	}

	for i := range values {
		if got[i] != values[i] {
			t.Errorf("values[%d] = %g, want %g", i, got[i], values[i])
		}
	}
}

func TestPayloadTypes(t *testing.T) {
	root := t.TempDir()
	subjectDir := filepath.Join(root, "wave1", "sub01")

	writeTestArray(t, subjectDir, "f32", []float32{1.5, -2.5, 0})
	writeTestArray(t, subjectDir, "i64", []int64{3, 70000, -12})
	writeTestArray(t, subjectDir, "i32", []int32{5, -9})

	ds, err := Read(root)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	subject := ds.Series[0].Subjects[0]

	cases := map[string][]float64{
		"f32": {1.5, -2.5, 0},
		"i64": {3, 70000, -12},
		"i32": {5, -9},
	}

	for name, want := range cases {
		arr, err := subject.Array(name)
		if err != nil {
			t.Fatalf("Array(%s): %v", name, err)
		}

		got, err := arr.Values()
		if err != nil {
			t.Fatalf("Values(%s): %v", name, err)
		}

		if len(got) != len(want) {
			t.Fatalf("%s: got %d values, want %d", name, len(got), len(want))
		}

		for i := range want {
			if got[i] != want[i] {
				t.Errorf("%s[%d] = %g, want %g", name, i, got[i], want[i])
			}
		}
	}
}

func TestArrayNotFound(t *testing.T) {
	root := t.TempDir()
	writeTestArray(t, filepath.Join(root, "wave1", "sub01"), "Pleth", []float64{1, 2, 3})

	ds, err := Read(root)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	_, err = ds.Series[0].Subjects[0].Array("ECG")
	if !errors.Is(err, ErrArrayNotFound) {
		t.Errorf("err = %v, want ErrArrayNotFound", err)
	}
}

func TestSubjectMetadataOverride(t *testing.T) {
	root := t.TempDir()
	subjectDir := filepath.Join(root, "wave1", "sub01")
	writeTestArray(t, subjectDir, "Pleth", []float64{1, 2, 3})

	meta := []byte(`{"subject_id": "S-077", "site": "lab-b"}`)
	if err := os.WriteFile(filepath.Join(subjectDir, "metadata.json"), meta, 0o644); err != nil {
		t.Fatalf("write metadata: %v", err)
	}

	ds, err := Read(root)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if id := ds.Series[0].Subjects[0].ID; id != "S-077" {
		t.Errorf("subject ID = %q, want S-077", id)
	}
}

func TestIterationOrder(t *testing.T) {
	root := t.TempDir()

	writeTestArray(t, filepath.Join(root, "wave2", "sub02"), "Pleth", []float64{1})
	writeTestArray(t, filepath.Join(root, "wave1", "sub03"), "Pleth", []float64{1})
	writeTestArray(t, filepath.Join(root, "wave1", "sub01"), "Pleth", []float64{1})

	ds, err := Read(root)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if len(ds.Series) != 2 || ds.Series[0].Name != "wave1" || ds.Series[1].Name != "wave2" {
		t.Fatalf("series out of order: %v, %v", ds.Series[0].Name, ds.Series[1].Name)
	}

	subjects := ds.Series[0].Subjects
	if len(subjects) != 2 || subjects[0].ID != "sub01" || subjects[1].ID != "sub03" {
		t.Fatalf("subjects out of order: %v, %v", subjects[0].ID, subjects[1].ID)
	}
}

func TestNonArrayDirsSkipped(t *testing.T) {
	root := t.TempDir()
	subjectDir := filepath.Join(root, "wave1", "sub01")
	writeTestArray(t, subjectDir, "Pleth", []float64{1, 2})

	if err := os.MkdirAll(filepath.Join(subjectDir, "notes"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	ds, err := Read(root)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	names := ds.Series[0].Subjects[0].ArrayNames()
	if len(names) != 1 || names[0] != "Pleth" {
		t.Errorf("array names = %v, want [Pleth]", names)
	}
}

func TestReadMissingRoot(t *testing.T) {
	if _, err := Read(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected an error for a missing root")
	}
}

func TestSamplingJSON(t *testing.T) {
	b, err := json.Marshal(RegularSampling(5))
	if err != nil || string(b) != "5" {
		t.Errorf("regular marshal = %s (%v), want 5", b, err)
	}

	b, err = json.Marshal(IrregularSampling())
	if err != nil || string(b) != `"irregular"` {
		t.Errorf(`irregular marshal = %s (%v), want "irregular"`, b, err)
	}

	var s Sampling
	if err := json.Unmarshal([]byte("64"), &s); err != nil {
		t.Fatalf("unmarshal 64: %v", err)
	}

	if rate, ok := s.Rate(); !ok || rate != 64 {
		t.Errorf("got %v, want regular 64 Hz", s)
	}

	if err := json.Unmarshal([]byte(`"irregular"`), &s); err != nil {
		t.Fatalf("unmarshal irregular: %v", err)
	}

	if _, ok := s.Rate(); ok {
		t.Errorf("got %v, want irregular", s)
	}

	for _, bad := range []string{"-1", "0", `"fast"`} {
		if err := json.Unmarshal([]byte(bad), &s); err == nil {
			t.Errorf("unmarshal %s: expected an error", bad)
		}
	}
}

func TestLegacyAttributes(t *testing.T) {
	// interval form with a naive timestamp
	raw := []byte(`{
		"name": "Pleth",
		"start_ts": "2019-06-01T21:30:00",
		"sampling_interval": 0.015625,
		"unit": "mV"
	}`)

	var attrs ArrayAttributes
	if err := json.Unmarshal(raw, &attrs); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if rate, ok := attrs.Sampling.Rate(); !ok || rate != 64 {
		t.Errorf("sampling = %v, want regular 64 Hz", attrs.Sampling)
	}

	want := time.Date(2019, 6, 1, 21, 30, 0, 0, time.UTC)
	if !attrs.StartTS.Equal(want) {
		t.Errorf("start_ts = %v, want %v", attrs.StartTS, want)
	}

	// the negative interval marker means irregular
	raw = []byte(`{"name": "marks", "sampling_interval": -1.0, "unit": "ms"}`)

	var marks ArrayAttributes
	if err := json.Unmarshal(raw, &marks); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if _, ok := marks.Sampling.Rate(); ok {
		t.Errorf("sampling = %v, want irregular", marks.Sampling)
	}

	// an explicit rate wins over a stale interval
	raw = []byte(`{"name": "Pleth", "sampling_rate": 32, "sampling_interval": 0.015625, "unit": "mV"}`)

	var mixed ArrayAttributes
	if err := json.Unmarshal(raw, &mixed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if rate, ok := mixed.Sampling.Rate(); !ok || rate != 32 {
		t.Errorf("sampling = %v, want regular 32 Hz", mixed.Sampling)
	}
}

func TestAttributesOmitProvenanceWhenEmpty(t *testing.T) {
	b, err := json.Marshal(ArrayAttributes{
		Name:     "Pleth",
		StartTS:  testStart,
		Sampling: RegularSampling(64),
		Unit:     "mV",
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	for _, key := range []string{"source_key", "method"} {
		if _, present := m[key]; present {
			t.Errorf("%s should be omitted when empty", key)
		}
	}
}
