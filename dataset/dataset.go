// Package dataset reads and writes signal datasets laid out as nested
// series/subject/array directories, with JSON attributes beside NumPy
// formatted payloads.
package dataset

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/sbinet/npyio"
)

// ErrArrayNotFound marks a sample array lookup that found nothing.
var ErrArrayNotFound = errors.New("sample array not found")

const (
	attrsFile   = "attributes.json"
	payloadFile = "data.npy"
	metaFile    = "metadata.json"
)

// Dataset is one recording collection, series of subjects each holding
// named sample arrays.
type Dataset struct {
	// Name is the dataset directory name
	Name string
	// Dir is the dataset root path
	Dir string
	// Series holds every recording series, in directory name order
	Series []*Series
}

// Series groups the subjects recorded in one wave.
type Series struct {
	Name     string
	Subjects []*Subject
}

// Subject is one recorded person and their sample arrays.
type Subject struct {
	// ID identifies the subject, from metadata when present, otherwise
	// the directory name
	ID string
	// Dir is the subject directory path
	Dir string

	arrays map[string]*SampleArray
	names  []string
}

// ArrayNames lists the subject's arrays in directory name order.
func (s *Subject) ArrayNames() []string {
	return append([]string(nil), s.names...)
}

// Array returns the named sample array. The error matches
// ErrArrayNotFound when the subject has no such array.
func (s *Subject) Array(name string) (*SampleArray, error) {
	a, ok := s.arrays[name]
	if !ok {
		return nil, errors.Wrapf(ErrArrayNotFound, "subject %s has no array %q", s.ID, name)
	}

	return a, nil
}

// SampleArray is one named value series. The payload stays on disk
// until Values is called.
type SampleArray struct {
	Attributes ArrayAttributes

	dir string
}

// Values reads the array payload. Every call reads from disk again, so
// callers keep the slice if they need it more than once.
func (a *SampleArray) Values() ([]float64, error) {
	f, err := os.Open(filepath.Join(a.dir, payloadFile))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open the %s payload", a.Attributes.Name)
	}
	defer f.Close()

	r, err := npyio.NewReader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse the %s payload", a.Attributes.Name)
	}

	switch t := r.Header.Descr.Type; t {
	case "<f8":
		var v []float64
		err = r.Read(&v)
		return v, wrapPayload(err, a.Attributes.Name)

	case "<f4":
		var v []float32
		if err := r.Read(&v); err != nil {
			return nil, wrapPayload(err, a.Attributes.Name)
		}

		return toFloats(v), nil

	case "<i8":
		var v []int64
		if err := r.Read(&v); err != nil {
			return nil, wrapPayload(err, a.Attributes.Name)
		}

		return toFloats(v), nil

	case "<i4":
		var v []int32
		if err := r.Read(&v); err != nil {
			return nil, wrapPayload(err, a.Attributes.Name)
		}

		return toFloats(v), nil

	default:
		return nil, errors.Errorf("unsupported payload type %q in %s", t, a.Attributes.Name)
	}
}

func wrapPayload(err error, name string) error {
	return errors.Wrapf(err, "failed to read the %s payload", name)
}

func toFloats[T float32 | int64 | int32](v []T) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}

	return out
}

// Sampling describes how an array is spaced in time: regularly at a
// fixed rate, or irregularly like event positions.
type Sampling struct {
	rate    float64
	regular bool
}

// RegularSampling returns a Sampling at a fixed rate in Hz.
func RegularSampling(rate float64) Sampling {
	return Sampling{rate: rate, regular: true}
}

// IrregularSampling returns the Sampling of event-like arrays that
// have no rate.
func IrregularSampling() Sampling {
	return Sampling{}
}

// Rate returns the sampling rate in Hz. ok is false for irregularly
// sampled arrays.
func (s Sampling) Rate() (rate float64, ok bool) {
	return s.rate, s.regular
}

func (s Sampling) String() string {
	if !s.regular {
		return "irregular"
	}

	return strconv.FormatFloat(s.rate, 'g', -1, 64) + " Hz"
}

// MarshalJSON encodes a regular rate as a bare number and irregular
// sampling as the string "irregular".
func (s Sampling) MarshalJSON() ([]byte, error) {
	if !s.regular {
		return []byte(`"irregular"`), nil
	}

	return json.Marshal(s.rate)
}

func (s *Sampling) UnmarshalJSON(b []byte) error {
	if string(b) == `"irregular"` {
		*s = IrregularSampling()
		return nil
	}

	var rate float64
	if err := json.Unmarshal(b, &rate); err != nil {
		return errors.Wrap(err, "invalid sampling rate")
	}

	if rate <= 0 {
		return errors.Errorf("invalid sampling rate %g", rate)
	}

	*s = RegularSampling(rate)
	return nil
}

// ArrayAttributes is the metadata stored beside every array payload.
type ArrayAttributes struct {
	// Name is the array name, matching its directory
	Name string `json:"name"`
	// StartTS is the recording time of the first sample
	StartTS time.Time `json:"start_ts"`
	// Sampling is the time spacing of the samples
	Sampling Sampling `json:"sampling_rate"`
	// Unit is the physical unit of the samples
	Unit string `json:"unit"`

	// SourceKey names the array a derived series was computed from
	SourceKey string `json:"source_key,omitempty"`
	// Method names the algorithm that derived the series
	Method string `json:"method,omitempty"`
}

// UnmarshalJSON also accepts two older attribute forms: a
// sampling_interval in seconds with negative values marking irregular
// arrays, and start_ts timestamps without a zone, which are taken as
// UTC.
func (a *ArrayAttributes) UnmarshalJSON(b []byte) error {
	type plain ArrayAttributes

	aux := struct {
		*plain
		StartTS  json.RawMessage `json:"start_ts"`
		Interval *float64        `json:"sampling_interval"`
	}{plain: (*plain)(a)}

	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}

	ts, err := parseTimestamp(aux.StartTS)
	if err != nil {
		return err
	}
	a.StartTS = ts

	if aux.Interval != nil && *aux.Interval > 0 {
		if _, ok := a.Sampling.Rate(); !ok {
			a.Sampling = RegularSampling(1 / *aux.Interval)
		}
	}

	return nil
}

var tsLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	if len(raw) == 0 {
		return time.Time{}, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, errors.Wrap(err, "invalid start_ts")
	}

	for _, layout := range tsLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}

	return time.Time{}, errors.Errorf("invalid start_ts %q", s)
}
