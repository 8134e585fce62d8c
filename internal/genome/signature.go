package genome

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math/rand"
)

// Fingerprint is a stable content hash of a raw word sequence.
func Fingerprint(raw []Word) string {
	h := sha256.New()
	var buf [8]byte
	for _, w := range raw {
		binary.LittleEndian.PutUint64(buf[:], w)
		_, _ = h.Write(buf[:])
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

func RandomWord(rng *rand.Rand) Word {
	return rng.Uint64()
}

func RandomValue(rng *rand.Rand) Value {
	return Value(rng.Intn(1 << ChannelBits))
}

// RandomWords returns n uniformly random words.
func RandomWords(rng *rand.Rand, n int) []Word {
	out := make([]Word, n)
	for i := range out {
		out[i] = rng.Uint64()
	}
	return out
}
