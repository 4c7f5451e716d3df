package ids

import (
	crand "crypto/rand"
	"fmt"
	"io"
	"sync"
)

// alphabet is the nanoid URL-safe alphabet; 64 symbols, so masking a byte with 63 is unbiased.
const alphabet = "_-0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Generator produces random identifiers out of a byte source.
//
// Identifiers are not secrets, any source will do; tests use deterministic ones.
type Generator struct {
	mu  sync.Mutex
	src io.Reader
}

func NewGenerator(src io.Reader) *Generator {
	return &Generator{src: src}
}

// Default draws from crypto/rand.
var Default = NewGenerator(crand.Reader)

func (g *Generator) fill(dst []byte) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, err := io.ReadFull(g.src, dst); err != nil {
		panic(fmt.Sprintf("unable to read random bytes: %v", err))
	}

	for i, b := range dst {
		dst[i] = alphabet[b&63]
	}
}

func (g *Generator) Lobby() (l LobbyUid) {
	g.fill(l[:])
	return
}

func (g *Generator) Player() (u PlayerUid) {
	g.fill(u[:])
	return
}
