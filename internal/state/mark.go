package state

import "github.com/vireolabs/playpulse/internal/chrono"

// mark records the instant a milestone last occurred. The zero value is
// unset; setting it again overwrites the previous instant.
type mark struct {
	c *chrono.Chrono
}

func (m *mark) set() {
	if m.c == nil {
		m.c = chrono.New()
		return
	}
	m.c.Mark()
}

// since returns the milliseconds since the mark was last set, and whether
// the mark has ever been set.
func (m *mark) since() (int64, bool) {
	if m.c == nil {
		return 0, false
	}
	return m.c.Elapsed(), true
}
