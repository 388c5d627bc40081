package lookat

type sample struct {
	t float64
	a Angles
}

// history is a rolling window of target angles used to delay the head
// behind the eyes.
type history struct {
	window  float64
	samples []sample
}

func newHistory(window float64) *history {
	return &history{window: window}
}

func (h *history) reset() {
	h.samples = h.samples[:0]
}

func (h *history) push(t float64, a Angles) {
	h.samples = append(h.samples, sample{t: t, a: a})
	// Keep one sample older than the window so at() can always answer.
	cut := 0
	for cut+1 < len(h.samples) && h.samples[cut+1].t <= t-h.window {
		cut++
	}
	if cut > 0 {
		h.samples = append(h.samples[:0], h.samples[cut:]...)
	}
}

// at returns the newest sample recorded at or before t. Before the window
// has filled it returns the zero offset, so the head waits for the eyes.
func (h *history) at(t float64) Angles {
	for i := len(h.samples) - 1; i >= 0; i-- {
		if h.samples[i].t <= t {
			return h.samples[i].a
		}
	}
	return Angles{}
}
