package overlay

import "sync"

// Recorder is a Surface that keeps the commands currently visible. A Clear
// command drops everything before it, so the recorded state is what a real
// surface would show after applying the same lists.
type Recorder struct {
	mu   sync.Mutex
	cmds []Command
}

func (r *Recorder) Apply(cmds []Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range cmds {
		if c.Kind == KindClear {
			r.cmds = nil
			continue
		}
		r.cmds = append(r.cmds, c)
	}
	return nil
}

// Commands returns a copy of the visible commands.
func (r *Recorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Command, len(r.cmds))
	copy(out, r.cmds)
	return out
}

// HasContent reports whether anything is drawn.
func (r *Recorder) HasContent() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cmds) > 0
}
