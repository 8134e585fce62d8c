package genome

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"
)

func TestChannelRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		word := rng.Uint64()
		c := rng.Intn(NumChannels)
		v := RandomValue(rng)

		written := WriteChannel(word, c, v)
		if got := ReadChannel(written, c); got != v {
			t.Fatalf("read back channel %d: got=%d want=%d", c, got, v)
		}
		for other := 0; other < NumChannels; other++ {
			if other == c {
				continue
			}
			if ReadChannel(written, other) != ReadChannel(word, other) {
				t.Fatalf("channel %d disturbed by write to %d: word=%#x written=%#x", other, c, word, written)
			}
		}
	}
}

func TestWriteChannelLayout(t *testing.T) {
	word := WriteChannel(0, 2, 0xBEEF)
	if word != 0x0000BEEF00000000 {
		t.Fatalf("unexpected layout: %#x", word)
	}
	if ReadChannel(0x1111222233334444, 0) != 0x4444 {
		t.Fatal("channel 0 should hold the low 16 bits")
	}
	if ReadChannel(0x1111222233334444, 3) != 0x1111 {
		t.Fatal("channel 3 should hold the high 16 bits")
	}
}

func TestChannelOutOfRangePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for channel out of range")
		}
	}()
	_ = ReadChannel(0, NumChannels)
}

func TestSplice(t *testing.T) {
	seq := []Word{1, 2, 3, 4, 5}
	got, err := Splice(seq, 1, 3, []Word{9, 9, 9})
	if err != nil {
		t.Fatalf("splice: %v", err)
	}
	if !reflect.DeepEqual(got, []Word{1, 9, 9, 9, 4, 5}) {
		t.Fatalf("unexpected splice result: %v", got)
	}
	if !reflect.DeepEqual(seq, []Word{1, 2, 3, 4, 5}) {
		t.Fatalf("input mutated: %v", seq)
	}

	got, err = Splice(seq, 5, 5, []Word{6})
	if err != nil {
		t.Fatalf("append splice: %v", err)
	}
	if !reflect.DeepEqual(got, []Word{1, 2, 3, 4, 5, 6}) {
		t.Fatalf("unexpected append result: %v", got)
	}
}

func TestSpliceRejectsBadRanges(t *testing.T) {
	seq := []Word{1, 2, 3}
	cases := []struct {
		name       string
		start, end int
	}{
		{"negative start", -1, 1},
		{"end past len", 0, 4},
		{"start after end", 2, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Splice(seq, tc.start, tc.end, nil); !errors.Is(err, ErrSpliceRange) {
				t.Fatalf("expected ErrSpliceRange, got %v", err)
			}
		})
	}
}

func TestInsertThenRemoveRestoresSequence(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 100; i++ {
		seq := RandomWords(rng, rng.Intn(20))
		pos := rng.Intn(len(seq) + 1)
		inserted, err := Insert(seq, pos, rng.Uint64())
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		restored, err := Remove(inserted, pos)
		if err != nil {
			t.Fatalf("remove: %v", err)
		}
		if len(seq) == 0 && len(restored) == 0 {
			continue
		}
		if !reflect.DeepEqual(restored, seq) {
			t.Fatalf("insert/remove not inverse: seq=%v restored=%v", seq, restored)
		}
	}
}

func TestRemoveOutOfRange(t *testing.T) {
	if _, err := Remove([]Word{1}, 1); !errors.Is(err, ErrSpliceRange) {
		t.Fatalf("expected ErrSpliceRange, got %v", err)
	}
}
