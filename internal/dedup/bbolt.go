package dedup

import (
	"encoding/binary"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.etcd.io/bbolt"

	"github.com/kenneth/zffcore/internal/zfflog"
)

var (
	bboltIndexBucket  = []byte("dedup_xxhash_index")
	bboltVerifyBucket = []byte("dedup_verify_hash")
)

// BboltBackend is a persistent Dedup backend on top of go.etcd.io/bbolt,
// the embedded key-value store the rest of this corpus (k3s, rclone, moby)
// uses for exactly this shape of problem: a durable, single-process index
// that outlives one run.
//
// The xxhash index bucket keys on the 8-byte big-endian xxh3 value and
// stores a flat list of 8-byte big-endian chunk numbers, with no length
// prefix, as the value; the verify bucket keys on the 8-byte chunk number and stores the
// raw 32-byte BLAKE3 digest.
type BboltBackend struct {
	db *bbolt.DB
}

// OpenBboltBackend opens (creating if absent) a bbolt-backed dedup index
// at path.
func OpenBboltBackend(path string) (*BboltBackend, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("dedup: open bbolt database: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bboltIndexBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bboltVerifyBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("dedup: initialize bbolt buckets: %w", err)
	}
	zfflog.WithFields(logrus.Fields{"path": path}).Info("dedup: bbolt backend opened")
	return &BboltBackend{db: db}, nil
}

func xxhashKey(xxhash uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], xxhash)
	return k[:]
}

func chunkKey(chunkNumber uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], chunkNumber)
	return k[:]
}

// Lookup returns every chunk number previously recorded under xxhash.
func (b *BboltBackend) Lookup(xxhash uint64) ([]uint64, bool) {
	var out []uint64
	_ = b.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bboltIndexBucket).Get(xxhashKey(xxhash))
		out = decodeChunkList(v)
		return nil
	})
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

// AppendEntry records that xxhash was observed at chunkNumber.
func (b *BboltBackend) AppendEntry(xxhash uint64, chunkNumber uint64) {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bboltIndexBucket)
		existing := decodeChunkList(bucket.Get(xxhashKey(xxhash)))
		existing = append(existing, chunkNumber)
		return bucket.Put(xxhashKey(xxhash), encodeChunkList(existing))
	})
	if err != nil {
		zfflog.WithFields(logrus.Fields{"chunk_number": chunkNumber, "error": err}).
			Warn("dedup: bbolt append entry failed")
	}
}

// VerificationHash returns the BLAKE3 digest recorded for chunkNumber, if any.
func (b *BboltBackend) VerificationHash(chunkNumber uint64) ([32]byte, bool) {
	var out [32]byte
	var found bool
	_ = b.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bboltVerifyBucket).Get(chunkKey(chunkNumber))
		if len(v) == 32 {
			copy(out[:], v)
			found = true
		}
		return nil
	})
	return out, found
}

// AppendVerificationHash records hash as chunkNumber's strong verifier.
func (b *BboltBackend) AppendVerificationHash(chunkNumber uint64, hash [32]byte) {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bboltVerifyBucket).Put(chunkKey(chunkNumber), hash[:])
	})
	if err != nil {
		zfflog.WithFields(logrus.Fields{"chunk_number": chunkNumber, "error": err}).
			Warn("dedup: bbolt append verification hash failed")
	}
}

// Close releases the underlying bbolt database file.
func (b *BboltBackend) Close() error {
	zfflog.Logger().Debug("dedup: bbolt backend closing")
	return b.db.Close()
}

func encodeChunkList(chunks []uint64) []byte {
	out := make([]byte, len(chunks)*8)
	for i, c := range chunks {
		binary.BigEndian.PutUint64(out[i*8:], c)
	}
	return out
}

func decodeChunkList(data []byte) []uint64 {
	if len(data) == 0 || len(data)%8 != 0 {
		return nil
	}
	out := make([]uint64, len(data)/8)
	for i := range out {
		out[i] = binary.BigEndian.Uint64(data[i*8:])
	}
	return out
}
