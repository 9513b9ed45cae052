package services

import (
	"math/rand"
	"sync"
	"time"
)

const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 6
	codeAttempts = 8
)

// codeSource generates short join codes. Ambiguous glyphs (0/O, 1/I) are left out.
type codeSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newCodeSource(seed int64) *codeSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &codeSource{rng: rand.New(rand.NewSource(seed))}
}

func (c *codeSource) next() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	b := make([]byte, codeLength)
	for i := range b {
		b[i] = codeAlphabet[c.rng.Intn(len(codeAlphabet))]
	}
	return string(b)
}
