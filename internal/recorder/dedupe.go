package recorder

import "uirecorder/internal/models"

// clickEchoWindowMS bounds how far apart two identical clicks can be and
// still count as one physical interaction echoed twice.
const clickEchoWindowMS = 500

// Deduplicate removes recording echoes in one forward pass without touching
// order: repeated navigations to the page already navigated to, and repeated
// clicks of the same element in quick succession. A SendKeys followed by a
// SendKeysEnter on the same control is not an echo; the Enter press replays
// real behavior the plain typing does not, so both survive.
func Deduplicate(actions []models.Action) []models.Action {
	out := make([]models.Action, 0, len(actions))
	for i := range actions {
		a := actions[i]
		if len(out) > 0 {
			last := &out[len(out)-1]
			if a.Type == models.ActionNavigate && last.Type == models.ActionNavigate && a.URL == last.URL {
				continue
			}
			if a.Type == models.ActionClick && last.Type == models.ActionClick &&
				a.SameLocator(last) && a.Timestamp-last.Timestamp < clickEchoWindowMS {
				continue
			}
		}
		out = append(out, a)
	}
	return out
}
