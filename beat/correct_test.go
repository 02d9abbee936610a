package beat

import (
	"testing"
)

// regularPeaks returns count peaks 800 ms apart starting at 700 ms.
func regularPeaks(count int) []int {
	peaks := make([]int, count)
	for i := range peaks {
		peaks[i] = 700 + 800*i
	}

	return peaks
}

func applyAndList(t *testing.T, cfg CorrectorConfig, peaks []int, n int) []int {
	t.Helper()

	mask := NewCorrector(cfg).Apply(peaks, n)
	if len(mask) != n {
		t.Fatalf("mask length = %d, want %d", len(mask), n)
	}

	return Indices(mask)
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

func TestCorrectorKeepsRegularSeries(t *testing.T) {
	peaks := regularPeaks(21)

	got := applyAndList(t, CorrectorConfig{Iterations: 2}, peaks, 18000)
	if !equalInts(got, peaks) {
		t.Errorf("got %v, want the series unchanged", got)
	}
}

func TestCorrectorDropsSpuriousBeat(t *testing.T) {
	truth := regularPeaks(21)

	// a spurious detection 120 ms after a true beat
	noisy := make([]int, 0, len(truth)+1)
	for _, p := range truth {
		noisy = append(noisy, p)
		if p == 4700 {
			noisy = append(noisy, 4820)
		}
	}

	got := applyAndList(t, CorrectorConfig{Iterations: 2}, noisy, 18000)
	if !equalInts(got, truth) {
		t.Errorf("got %v, want the spurious beat at 4820 removed", got)
	}
}

func TestCorrectorRestoresMissedBeats(t *testing.T) {
	truth := regularPeaks(21)

	cases := []struct {
		name    string
		missing map[int]bool
	}{
		{"one beat", map[int]bool{8700: true}},
		{"two in a row", map[int]bool{8700: true, 9500: true}},
	}

	for _, tc := range cases {
		gappy := make([]int, 0, len(truth))
		for _, p := range truth {
			if !tc.missing[p] {
				gappy = append(gappy, p)
			}
		}

		got := applyAndList(t, CorrectorConfig{Iterations: 2}, gappy, 18000)
		if !equalInts(got, truth) {
			t.Errorf("%s: got %v, want the full series restored", tc.name, got)
		}
	}
}

func TestCorrectorIterationsKnob(t *testing.T) {
	truth := regularPeaks(21)

	noisy := append([]int(nil), truth...)
	noisy = append(noisy[:6], append([]int{4820}, truth[6:]...)...)

	// zero iterations passes everything through untouched
	got := applyAndList(t, CorrectorConfig{Iterations: 0}, noisy, 18000)
	if !equalInts(got, noisy) {
		t.Errorf("got %v, want the raw series", got)
	}
}

func TestCorrectorShortSeries(t *testing.T) {
	// under three peaks there is nothing to screen against
	got := applyAndList(t, CorrectorConfig{Iterations: 2}, []int{500, 900}, 2000)
	if !equalInts(got, []int{500, 900}) {
		t.Errorf("got %v, want the pair unchanged", got)
	}

	if got := applyAndList(t, CorrectorConfig{Iterations: 2}, nil, 1000); len(got) != 0 {
		t.Errorf("got %v, want no peaks", got)
	}
}

func TestCorrectorIgnoresOutOfRangePeaks(t *testing.T) {
	got := applyAndList(t, CorrectorConfig{Iterations: 1}, []int{500, 900}, 600)
	if !equalInts(got, []int{500}) {
		t.Errorf("got %v, want only the in-range peak", got)
	}
}
