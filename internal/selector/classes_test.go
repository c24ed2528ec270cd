package selector

import (
	"reflect"
	"strings"
	"testing"
)

func TestMeaningfulClasses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		classes []string
		want    []string
	}{
		{
			name:    "generated prefixes dropped",
			classes: []string{"atm_7h_1a2b", "css-1q2w3e", "style-xyz99", "login-form"},
			want:    []string{"login-form"},
		},
		{
			name:    "minified single letter plus digits dropped",
			classes: []string{"a11", "x0", "btn-primary"},
			want:    []string{"btn-primary"},
		},
		{
			name:    "too short dropped",
			classes: []string{"a", "ab", "nav"},
			want:    []string{"nav"},
		},
		{
			name:    "too long dropped",
			classes: []string{strings.Repeat("x", 31), strings.Repeat("y", 30)},
			want:    []string{strings.Repeat("y", 30)},
		},
		{
			name:    "order preserved",
			classes: []string{"css-abc", "sidebar", "content-area"},
			want:    []string{"sidebar", "content-area"},
		},
		{
			name:    "nothing survives",
			classes: []string{"atm_x", "b2", "z"},
			want:    nil,
		},
		{
			name:    "empty input",
			classes: nil,
			want:    nil,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := MeaningfulClasses(tt.classes); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("MeaningfulClasses(%v) = %v, want %v", tt.classes, got, tt.want)
			}
		})
	}
}
