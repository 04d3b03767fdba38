package recognition

import "bytes"

// lineBuffer splits a stream of chunks into complete lines,
// an incomplete tail waits for the next chunk.
type lineBuffer struct {
	rest []byte
}

// Feed appends the chunk and returns every completed non-empty line
// without the line break.
func (b *lineBuffer) Feed(chunk []byte) (lines [][]byte) {
	data := chunk
	if len(b.rest) > 0 {
		data = append(b.rest, chunk...)
	}
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		line := bytes.TrimSpace(data[:i])
		if len(line) > 0 {
			lines = append(lines, append([]byte(nil), line...))
		}
		data = data[i+1:]
	}
	b.rest = append(b.rest[:0], data...)
	return
}
