package recognition

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
)

// frameHeaderLen is the size of the big-endian payload length prefix.
const frameHeaderLen = 4

var ErrFrameTooBig = errors.New("frame is too big")

// WriteFrame writes a length-prefixed frame: 4 bytes of big-endian
// unsigned payload length and then the payload itself.
func WriteFrame(w io.Writer, payload []byte) error {
	if uint64(len(payload)) > math.MaxUint32 {
		return ErrFrameTooBig
	}
	var header [frameHeaderLen]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(payload)))
	if _, err := w.Write(header[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}
