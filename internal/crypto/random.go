package crypto

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"sync"

	"golang.org/x/crypto/chacha20"
)

var ErrInvalidBound = errors.New("random bound must be positive")

// Source yields uniformly distributed indices. Implementations must be safe
// for concurrent use.
type Source interface {
	// Intn returns a uniform random int in [0, n).
	Intn(n int) (int, error)
}

// CryptoSource draws from crypto/rand, or from Reader when it is set.
type CryptoSource struct {
	Reader io.Reader
}

func (s CryptoSource) Intn(n int) (int, error) {
	if n <= 0 {
		return 0, ErrInvalidBound
	}
	r := s.Reader
	if r == nil {
		r = rand.Reader
	}
	v, err := rand.Int(r, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("reading random index: %w", err)
	}
	return int(v.Int64()), nil
}

const chachaBufSize = 512

// ChaChaSource is a ChaCha20 keystream generator with fast key erasure: every
// refill produces a fresh key followed by a buffer of output, and the old key
// is discarded. A cipher instance never encrypts more than one refill, so the
// block counter cannot wrap.
type ChaChaSource struct {
	mu     sync.Mutex
	cipher *chacha20.Cipher
	buf    [chachaBufSize]byte
	off    int
}

// NewChaChaSource returns a ChaChaSource keyed from crypto/rand.
func NewChaChaSource() (*ChaChaSource, error) {
	key := make([]byte, chacha20.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generating chacha20 key: %w", err)
	}
	return NewChaChaSourceFromKey(key)
}

// NewChaChaSourceFromKey returns a ChaChaSource with a caller supplied key.
// The same key always yields the same sequence, which is only useful for
// tests and reproducible fixtures.
func NewChaChaSourceFromKey(key []byte) (*ChaChaSource, error) {
	if len(key) != chacha20.KeySize {
		return nil, fmt.Errorf("chacha20 key must be %d bytes, got %d", chacha20.KeySize, len(key))
	}
	s := &ChaChaSource{}
	if err := s.rekey(key); err != nil {
		return nil, err
	}
	if err := s.refill(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ChaChaSource) rekey(key []byte) error {
	var nonce [chacha20.NonceSize]byte
	c, err := chacha20.NewUnauthenticatedCipher(key, nonce[:])
	if err != nil {
		return fmt.Errorf("initializing chacha20: %w", err)
	}
	s.cipher = c
	return nil
}

func (s *ChaChaSource) refill() error {
	var block [chacha20.KeySize + chachaBufSize]byte
	s.cipher.XORKeyStream(block[:], block[:])
	if err := s.rekey(block[:chacha20.KeySize]); err != nil {
		return err
	}
	copy(s.buf[:], block[chacha20.KeySize:])
	clear(block[:])
	s.off = 0
	return nil
}

func (s *ChaChaSource) next32() (uint32, error) {
	if s.off+4 > len(s.buf) {
		if err := s.refill(); err != nil {
			return 0, err
		}
	}
	v := binary.LittleEndian.Uint32(s.buf[s.off:])
	clear(s.buf[s.off : s.off+4])
	s.off += 4
	return v, nil
}

// Intn uses rejection sampling so every index in [0, n) is equally likely.
func (s *ChaChaSource) Intn(n int) (int, error) {
	if n <= 0 {
		return 0, ErrInvalidBound
	}
	if uint64(n) > math.MaxUint32 {
		return 0, fmt.Errorf("random bound %d exceeds %d", n, uint32(math.MaxUint32))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	const span = uint64(1) << 32
	limit := span - span%uint64(n)
	for {
		v, err := s.next32()
		if err != nil {
			return 0, err
		}
		if uint64(v) < limit {
			return int(uint64(v) % uint64(n)), nil
		}
	}
}

// NewSource returns the named random source. Only cryptographically secure
// sources are available.
func NewSource(name string) (Source, error) {
	switch name {
	case "", "crypto":
		return CryptoSource{}, nil
	case "chacha20":
		return NewChaChaSource()
	}
	return nil, fmt.Errorf("unknown random source %q", name)
}
