package bloomfilter

import (
	"crypto/sha256"
	"encoding/binary"
	"math"

	"github.com/bits-and-blooms/bitset"
)

// classical is a single classical Bloom filter: an m-bit array probed by h
// independent-looking positions derived from one double hash (the
// Kirsch-Mitzenmacher construction), sized for a target capacity and false
// positive rate.
type classical struct {
	bits *bitset.BitSet
	m    uint
	h    uint
}

func newClassical(capacity uint, errorRate float64) *classical {
	m := optimalM(capacity, errorRate)
	h := optimalH(m, capacity)
	return &classical{bits: bitset.New(m), m: m, h: h}
}

func optimalM(n uint, p float64) uint {
	if n == 0 {
		n = 1
	}
	m := math.Ceil(-(float64(n) * math.Log(p)) / (math.Ln2 * math.Ln2))
	if m < 8 {
		m = 8
	}
	return uint(m)
}

func optimalH(m, n uint) uint {
	if n == 0 {
		n = 1
	}
	h := math.Round((float64(m) / float64(n)) * math.Ln2)
	if h < 1 {
		h = 1
	}
	return uint(h)
}

// locations returns the h bit positions a member maps to.
func (c *classical) locations(data []byte) []uint {
	sum := sha256.Sum256(data)
	h1 := binary.BigEndian.Uint64(sum[0:8])
	h2 := binary.BigEndian.Uint64(sum[8:16])
	if h2 == 0 {
		h2 = 1
	}
	locs := make([]uint, c.h)
	for i := uint(0); i < c.h; i++ {
		locs[i] = uint((h1 + uint64(i)*h2) % uint64(c.m))
	}
	return locs
}

// add inserts data's membership into the filter.
func (c *classical) add(data []byte) {
	for _, loc := range c.locations(data) {
		c.bits.Set(loc)
	}
}

// test reports whether data's membership has possibly been added.
func (c *classical) test(data []byte) bool {
	for _, loc := range c.locations(data) {
		if !c.bits.Test(loc) {
			return false
		}
	}
	return true
}

// words returns the bitset's backing 64-bit words, for persistence.
func (c *classical) words() []uint64 {
	return c.bits.Bytes()
}

// loadWords rebuilds the bitset from persisted 64-bit words.
func (c *classical) loadWords(words []uint64) {
	c.bits = bitset.From(words)
}
