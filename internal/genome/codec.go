package genome

import (
	"errors"
	"fmt"
)

// Word is the atomic unit of genome storage.
type Word = uint64

// Value is the content of a single channel inside a Word.
type Value = uint16

const (
	NumChannels = 4
	ChannelBits = 16

	channelMask Word = 1<<ChannelBits - 1
)

var ErrSpliceRange = errors.New("splice range out of bounds")

// ReadChannel returns the value stored in channel c of word.
// It panics if c is outside [0, NumChannels).
func ReadChannel(word Word, c int) Value {
	checkChannel(c)
	return Value((word >> (uint(c) * ChannelBits)) & channelMask)
}

// WriteChannel returns word with channel c replaced by value. Bits of the
// other channels are left untouched.
// It panics if c is outside [0, NumChannels).
func WriteChannel(word Word, c int, value Value) Word {
	checkChannel(c)
	shift := uint(c) * ChannelBits
	cleared := word &^ (channelMask << shift)
	return cleared | Word(value)<<shift
}

func checkChannel(c int) {
	if c < 0 || c >= NumChannels {
		panic(fmt.Sprintf("genome: channel %d out of range [0, %d)", c, NumChannels))
	}
}

// Splice returns a copy of seq with [start, end) replaced by replacement.
// seq is never modified.
func Splice(seq []Word, start, end int, replacement []Word) ([]Word, error) {
	if start < 0 || end > len(seq) || start > end {
		return nil, fmt.Errorf("%w: [%d, %d) of len %d", ErrSpliceRange, start, end, len(seq))
	}
	out := make([]Word, 0, len(seq)-(end-start)+len(replacement))
	out = append(out, seq[:start]...)
	out = append(out, replacement...)
	out = append(out, seq[end:]...)
	return out, nil
}

// Insert returns a copy of seq with value inserted at pos.
func Insert(seq []Word, pos int, value Word) ([]Word, error) {
	return Splice(seq, pos, pos, []Word{value})
}

// Remove returns a copy of seq without the word at pos.
func Remove(seq []Word, pos int) ([]Word, error) {
	if pos < 0 || pos >= len(seq) {
		return nil, fmt.Errorf("%w: position %d of len %d", ErrSpliceRange, pos, len(seq))
	}
	return Splice(seq, pos, pos+1, nil)
}

func Clone(seq []Word) []Word {
	if seq == nil {
		return nil
	}
	out := make([]Word, len(seq))
	copy(out, seq)
	return out
}
