// Package hasher derives cache keys from file content.
//
// A file is streamed in fixed-size chunks into a 256-bit cryptographic digest
// and the result is returned as lowercase hex. The chunk size bounds memory use
// and never changes the result.
package hasher

import (
	"encoding/hex"
	"errors"
	"hash"
	"io"
	"io/fs"
	"os"
	"sync"

	"github.com/opencontainers/go-digest"
	"golang.org/x/crypto/blake2b"

	"github.com/saiset-co/sai-filecache/types"
)

type Algorithm string

const (
	SHA256     Algorithm = "sha256"
	BLAKE2b256 Algorithm = "blake2b"
)

// DefaultChunkSize is the read size used when none is configured.
const DefaultChunkSize = 8192

// EmptySHA256 is the SHA-256 digest of zero bytes.
const EmptySHA256 = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

type Hasher struct {
	algorithm Algorithm
	chunkSize int
	buffers   sync.Pool
}

func New(config *types.HasherConfig) (*Hasher, error) {
	algorithm := SHA256
	chunkSize := DefaultChunkSize

	if config != nil {
		if config.Algorithm != "" {
			algorithm = Algorithm(config.Algorithm)
		}
		if config.ChunkSize != 0 {
			chunkSize = config.ChunkSize
		}
	}

	switch algorithm {
	case SHA256, BLAKE2b256:
	default:
		return nil, types.Errorf(types.ErrHashAlgorithmUnknown, "algorithm: %s", algorithm)
	}

	if chunkSize <= 0 {
		return nil, types.Errorf(types.ErrChunkSizeInvalid, "chunk size: %d", chunkSize)
	}

	h := &Hasher{
		algorithm: algorithm,
		chunkSize: chunkSize,
	}
	h.buffers.New = func() interface{} {
		buf := make([]byte, h.chunkSize)
		return &buf
	}

	return h, nil
}

func (h *Hasher) Algorithm() Algorithm {
	return h.algorithm
}

func (h *Hasher) ChunkSize() int {
	return h.chunkSize
}

// Digest returns the lowercase hex digest of the file at path.
func (h *Hasher) Digest(path string) (string, error) {
	sum, _, err := h.DigestFile(path)
	return sum, err
}

// DigestFile is Digest that also reports how many bytes were read.
func (h *Hasher) DigestFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", 0, types.NewNotFoundError("hash", path, err)
		}
		return "", 0, types.NewIOError("hash", path, err)
	}
	defer f.Close()

	sum, n, err := h.DigestReader(f)
	if err != nil {
		return "", 0, types.NewIOError("hash", path, err)
	}
	return sum, n, nil
}

// DigestReader folds r into a digest chunk by chunk until EOF. Read errors are
// returned unwrapped and no partial digest is produced.
func (h *Hasher) DigestReader(r io.Reader) (string, int64, error) {
	bufPtr := h.buffers.Get().(*[]byte)
	defer h.buffers.Put(bufPtr)
	buf := *bufPtr

	state := h.newHash()
	var total int64

	for {
		n, err := r.Read(buf)
		if n > 0 {
			state.Write(buf[:n])
			total += int64(n)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", 0, err
		}
	}

	return hex.EncodeToString(state.Sum(nil)), total, nil
}

func (h *Hasher) newHash() hash.Hash {
	if h.algorithm == BLAKE2b256 {
		// New256 only fails for keys longer than 64 bytes.
		state, _ := blake2b.New256(nil)
		return state
	}
	return digest.SHA256.Hash()
}
