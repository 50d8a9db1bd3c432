package messages

// Cursor walks a list of lines in order and wraps around, so every line is
// said once before any repeats.
type Cursor struct {
	lines []string
	next  int
}

// NewCursor starts a cursor at the first line.
func NewCursor(lines []string) *Cursor {
	return &Cursor{lines: lines}
}

// Next returns the current line and advances. An empty cursor returns "".
func (c *Cursor) Next() string {
	if len(c.lines) == 0 {
		return ""
	}
	line := c.lines[c.next]
	c.next = (c.next + 1) % len(c.lines)
	return line
}

// Position is the index of the line Next will return.
func (c *Cursor) Position() int { return c.next }

// Len is the number of lines in the cycle.
func (c *Cursor) Len() int { return len(c.lines) }
