package ump

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrUnalignedBytes indicates a UMP byte stream whose length is not a multiple of 4.
var ErrUnalignedBytes = errors.New("UMP byte stream not word aligned")

// WordsToBytes serializes words big-endian, four bytes per word.
func WordsToBytes(words []uint32) []byte {
	return AppendWords(make([]byte, 0, len(words)*4), words)
}

// AppendWords appends the big-endian serialization of words to dst.
func AppendWords(dst []byte, words []uint32) []byte {
	for _, w := range words {
		dst = binary.BigEndian.AppendUint32(dst, w)
	}
	return dst
}

// BytesToWords parses a big-endian UMP byte stream into words.
func BytesToWords(b []byte) ([]uint32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrUnalignedBytes, len(b))
	}
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = binary.BigEndian.Uint32(b[i*4:])
	}
	return words, nil
}
