package api

import (
	"encoding/binary"
	"errors"
)

var ErrBadFrame = errors.New("malformed frame")

// DecodeFrame splits a binary frame message:
// token length (uint16, big-endian), token, image.
// The image shares the memory of the message.
func DecodeFrame(data []byte) (token string, image []byte, err error) {
	if len(data) < 2 {
		return "", nil, ErrBadFrame
	}
	n := int(binary.BigEndian.Uint16(data))
	if len(data) < 2+n {
		return "", nil, ErrBadFrame
	}
	return string(data[2 : 2+n]), data[2+n:], nil
}
