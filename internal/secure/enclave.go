package secure

import (
	"errors"
	"sync"

	"github.com/awnumar/memguard"
)

// ErrBufferDestroyed is returned by Open after Destroy.
var ErrBufferDestroyed = errors.New("secure buffer already destroyed")

// Buffer holds decrypted secrets that never need to exist as a file.
// It wraps memguard.Enclave: the plaintext is encrypted at rest in
// memory, mlocked where the OS allows it, and fenced by guard pages.
//
// memguard degrades gracefully when RLIMIT_MEMLOCK is exhausted, so
// constructing a Buffer never fails for resource reasons.
type Buffer struct {
	enclave *memguard.Enclave
	mu      sync.RWMutex
	// destroyed allows idempotent Destroy calls and blocks use-after-destroy.
	destroyed bool
}

// NewBuffer seals the given bytes into protected memory. The input
// slice is consumed: memguard wipes it as part of enclave creation, so
// callers must not reuse it.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{enclave: memguard.NewEnclave(data)}
}

// Open decrypts the sealed plaintext into a locked buffer. The caller
// must Destroy the returned LockedBuffer when done; that wipe is what
// bounds the plaintext's exposure window.
func (b *Buffer) Open() (*memguard.LockedBuffer, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.destroyed {
		return nil, ErrBufferDestroyed
	}
	return b.enclave.Open()
}

// Destroy drops the enclave and prevents further use. Idempotent.
// The sealed data is encrypted at rest, so letting the garbage
// collector reap it afterwards is safe; call memguard.Purge at process
// exit for a full sweep.
func (b *Buffer) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.destroyed {
		return
	}
	b.enclave = nil
	b.destroyed = true
}
