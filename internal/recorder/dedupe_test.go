package recorder

import (
	"reflect"
	"testing"

	"uirecorder/internal/models"
)

func navAt(url string, ts int64) models.Action {
	return models.Action{Type: models.ActionNavigate, URL: url, Timestamp: ts}
}

func clickAt(value string, ts int64) models.Action {
	return models.Action{
		Type:          models.ActionClick,
		Selector:      models.LocatorID,
		SelectorValue: value,
		Timestamp:     ts,
	}
}

func TestDeduplicate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []models.Action
		want []models.Action
	}{
		{
			name: "repeated navigations to one URL collapse",
			in: []models.Action{
				navAt("http://app.local/", 1000),
				navAt("http://app.local/", 1200),
				navAt("http://app.local/results", 2000),
				navAt("http://app.local/results", 2100),
			},
			want: []models.Action{
				navAt("http://app.local/", 1000),
				navAt("http://app.local/results", 2000),
			},
		},
		{
			name: "click echo within the window is dropped",
			in: []models.Action{
				clickAt("save", 1000),
				clickAt("save", 1300),
			},
			want: []models.Action{
				clickAt("save", 1000),
			},
		},
		{
			name: "deliberate re-click outside the window survives",
			in: []models.Action{
				clickAt("next", 1000),
				clickAt("next", 1600),
			},
			want: []models.Action{
				clickAt("next", 1000),
				clickAt("next", 1600),
			},
		},
		{
			name: "clicks on different elements both survive",
			in: []models.Action{
				clickAt("save", 1000),
				clickAt("cancel", 1100),
			},
			want: []models.Action{
				clickAt("save", 1000),
				clickAt("cancel", 1100),
			},
		},
		{
			name: "only consecutive duplicates are considered",
			in: []models.Action{
				clickAt("tab", 1000),
				navAt("http://app.local/tab2", 1050),
				clickAt("tab", 1100),
			},
			want: []models.Action{
				clickAt("tab", 1000),
				navAt("http://app.local/tab2", 1050),
				clickAt("tab", 1100),
			},
		},
		{
			name: "typing followed by Enter commit is kept whole",
			// SendKeys then SendKeysEnter on one control replays as type
			// then type-and-submit; collapsing the pair would lose the
			// submission.
			in: []models.Action{
				{Type: models.ActionSendKeys, Selector: models.LocatorName, SelectorValue: "q", Value: "golang", Timestamp: 1000},
				{Type: models.ActionSendKeysEnter, Selector: models.LocatorName, SelectorValue: "q", Value: "golang", Key: "Enter", Timestamp: 1100},
			},
			want: []models.Action{
				{Type: models.ActionSendKeys, Selector: models.LocatorName, SelectorValue: "q", Value: "golang", Timestamp: 1000},
				{Type: models.ActionSendKeysEnter, Selector: models.LocatorName, SelectorValue: "q", Value: "golang", Key: "Enter", Timestamp: 1100},
			},
		},
		{
			name: "empty log stays empty",
			in:   nil,
			want: []models.Action{},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Deduplicate(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Deduplicate() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
