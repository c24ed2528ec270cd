package recorder

// RawEvent is one trusted browser event as buffered by the capture script.
// Rid identifies the event target through the tracking attribute; Path holds
// the rids of the full composed ancestor chain starting at the target, so
// events retargeted out of shadow roots stay attributable.
type RawEvent struct {
	Type    string   `json:"type"` // click, input, change, blur, keydown, submit
	Rid     string   `json:"rid"`
	Path    []string `json:"path,omitempty"`
	Key     string   `json:"key,omitempty"`
	Value   string   `json:"value,omitempty"`
	Checked bool     `json:"checked,omitempty"`
	X       float64  `json:"x,omitempty"` // viewport click coordinates
	Y       float64  `json:"y,omitempty"`
	URL     string   `json:"url,omitempty"`
	TS      int64    `json:"ts"` // milliseconds, page clock
}

const (
	evClick   = "click"
	evInput   = "input"
	evChange  = "change"
	evBlur    = "blur"
	evKeydown = "keydown"
	evSubmit  = "submit"
)
