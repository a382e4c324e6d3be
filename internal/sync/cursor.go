package sync

// frame is one open level of the live tree: the sorted child names of dir
// and the position of the next unconsumed one.
type frame struct {
	dir   string
	names []string
	pos   int
	// absent marks a directory that only exists once a dry run's changes
	// would be applied. Nothing below it is looked up on disk.
	absent bool
}

func (f *frame) peek() (string, bool) {
	if f.pos >= len(f.names) {
		return "", false
	}
	return f.names[f.pos], true
}

func (f *frame) advance() {
	f.pos++
}

// next returns the next unconsumed name and consumes it.
func (f *frame) next() (string, bool) {
	name, ok := f.peek()
	if ok {
		f.advance()
	}
	return name, ok
}

// cursor is the stack of frames from the first walked directory down to
// the parent of the current manifest path.
type cursor struct {
	frames []*frame
}

func (c *cursor) push(f *frame) {
	c.frames = append(c.frames, f)
}

func (c *cursor) top() *frame {
	if len(c.frames) == 0 {
		return nil
	}
	return c.frames[len(c.frames)-1]
}

func (c *cursor) pop() {
	c.frames[len(c.frames)-1] = nil
	c.frames = c.frames[:len(c.frames)-1]
}

func (c *cursor) depth() int {
	return len(c.frames)
}

// listFrame reads the children of the directory at real, which is dir in
// manifest terms. os.ReadDir omits "." and ".." and sorts by name, which
// for single path segments matches manifest.Compare.
func listFrame(dir, real string) (*frame, error) {
	entries, err := readDir(real)
	if err != nil {
		return nil, ioError("scandir", real, err)
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return &frame{dir: dir, names: names}, nil
}
