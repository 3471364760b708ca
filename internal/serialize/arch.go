// Package serialize encodes signed and unsigned machine words to bytes,
// honoring a target ELF class (32/64-bit) and byte order.
package serialize

import (
	"debug/elf"
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrIntegerConversion is returned when a value does not fit in the
// narrowed word width of the target ELF class.
var ErrIntegerConversion = errors.New("value does not fit in target word width")

// Serializer is pure and stateless once constructed: given the same class,
// order, and input it always produces the same bytes.
type Serializer struct {
	class elf.Class
	order binary.ByteOrder
}

// New builds a Serializer for the given ELF class and byte order.
func New(class elf.Class, order binary.ByteOrder) *Serializer {
	return &Serializer{class: class, order: order}
}

// WordWidth returns 4 for ELFCLASS32 and 8 for ELFCLASS64.
func (s *Serializer) WordWidth() int {
	if s.class == elf.ELFCLASS32 {
		return 4
	}
	return 8
}

// EncodeSignedWord narrows val to int32 on ELF32, failing with
// ErrIntegerConversion if that narrowing loses information.
func (s *Serializer) EncodeSignedWord(val int64) ([]byte, error) {
	if s.class == elf.ELFCLASS32 {
		narrowed := int32(val)
		if int64(narrowed) != val {
			return nil, fmt.Errorf("signed word %d: %w", val, ErrIntegerConversion)
		}
		buf := make([]byte, s.WordWidth())
		s.order.PutUint32(buf, uint32(narrowed))
		return buf, nil
	}
	buf := make([]byte, s.WordWidth())
	s.order.PutUint64(buf, uint64(val))
	return buf, nil
}

// EncodeUnsignedWord narrows val to uint32 on ELF32, failing with
// ErrIntegerConversion if that narrowing loses information.
func (s *Serializer) EncodeUnsignedWord(val uint64) ([]byte, error) {
	if s.class == elf.ELFCLASS32 {
		narrowed := uint32(val)
		if uint64(narrowed) != val {
			return nil, fmt.Errorf("unsigned word %d: %w", val, ErrIntegerConversion)
		}
		buf := make([]byte, s.WordWidth())
		s.order.PutUint32(buf, narrowed)
		return buf, nil
	}
	buf := make([]byte, s.WordWidth())
	s.order.PutUint64(buf, val)
	return buf, nil
}
