package bot

import "sync"

// cachedMessage is one entry of the recent-message window.
type cachedMessage struct {
	user string
	text string
}

// PyramidDetector watches for the 1-2-3 repeated-token spam pattern across
// consecutive messages from one user. It keeps a bounded FIFO of recent
// messages; the window is not persisted and resets on restart. Detection is
// a heuristic: a pyramid built across the cache boundary is missed, which
// is acceptable since the cache size is operator-tunable.
type PyramidDetector struct {
	mu     sync.Mutex
	recent []cachedMessage
}

// NewPyramidDetector returns an empty detector.
func NewPyramidDetector() *PyramidDetector {
	return &PyramidDetector{}
}

// Observe appends the message to the window (evicting the oldest beyond
// capacity) and reports whether this message completes a pyramid: the text
// is exactly "token token token" and, scanning backward, the same user
// previously sent "token token" and before that the bare token. The
// completing message itself triggers; a single triple-repetition without
// the two setup messages never does.
func (d *PyramidDetector) Observe(user, text string, capacity int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.recent = append(d.recent, cachedMessage{user: user, text: text})
	for len(d.recent) > capacity {
		d.recent = d.recent[1:]
	}

	token := firstWord(text)
	if text != token+" "+token+" "+token {
		return false
	}

	stage := 3
	for i := len(d.recent) - 2; i >= 0; i-- {
		cm := d.recent[i]
		if cm.user != user {
			continue
		}
		switch {
		case stage == 3 && cm.text == token+" "+token:
			stage = 2
		case stage == 2 && cm.text == token:
			return true
		}
	}
	return false
}
