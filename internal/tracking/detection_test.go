package tracking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_Apply(t *testing.T) {
	t.Parallel()

	low := det("car", 10, 10)
	low.Confidence = 0.3
	dets := []Detection{det("car", 0, 0), low, det("person", 5, 5), det("bus", 1, 1)}

	tests := []struct {
		name    string
		filter  Filter
		classes []string
	}{
		{"allow list", NewFilter(0.5, []string{"car", "truck", "bus"}), []string{"car", "bus"}},
		{"empty allow list", NewFilter(0.5, nil), []string{"car", "person", "bus"}},
		{"zero threshold", NewFilter(0, []string{"car"}), []string{"car", "car"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, d := range tt.filter.Apply(dets) {
				got = append(got, d.Class)
			}
			assert.Equal(t, tt.classes, got)
		})
	}
}

func TestFilter_ThresholdIsInclusive(t *testing.T) {
	t.Parallel()

	d := det("car", 0, 0)
	d.Confidence = 0.5
	assert.True(t, NewFilter(0.5, nil).Allows(d))
}
