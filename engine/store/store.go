// Package store persists edited chunk voxels in badger, compressed with
// zstd, and serves them back to the streaming manager in place of freshly
// generated data.
package store

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v3"
	"github.com/gekko3d/voxworld/engine/blocks"
	"github.com/gekko3d/voxworld/engine/chunks"
	"github.com/gekko3d/voxworld/engine/logging"
	"github.com/klauspost/compress/zstd"
)

const formatVersion = 1

var ErrCorrupt = errors.New("store: corrupt chunk record")

type Options struct {
	// Path is the badger directory. Ignored when InMemory is set.
	Path     string
	InMemory bool
	Logger   logging.Logger
}

// Store is safe for concurrent use.
type Store struct {
	db     *badger.DB
	enc    *zstd.Encoder
	dec    *zstd.Decoder
	logger logging.Logger
}

// badgerLogger routes badger's internal logging to the engine logger.
type badgerLogger struct{ l logging.Logger }

func (b badgerLogger) Errorf(f string, args ...interface{})   { b.l.Errorf("badger: "+f, args...) }
func (b badgerLogger) Warningf(f string, args ...interface{}) { b.l.Warnf("badger: "+f, args...) }
func (b badgerLogger) Infof(f string, args ...interface{})    { b.l.Debugf("badger: "+f, args...) }
func (b badgerLogger) Debugf(f string, args ...interface{})   { b.l.Debugf("badger: "+f, args...) }

func Open(opts Options) (*Store, error) {
	logger := logging.OrNop(opts.Logger)
	bopts := badger.DefaultOptions(opts.Path).WithLogger(badgerLogger{logger})
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true).WithLogger(badgerLogger{logger})
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("store: open badger: %w", err)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, fmt.Errorf("store: zstd decoder: %w", err)
	}
	if opts.InMemory {
		logger.Infof("chunk store opened in memory")
	} else {
		logger.Infof("chunk store opened at %s", opts.Path)
	}
	return &Store{db: db, enc: enc, dec: dec, logger: logger}, nil
}

func (s *Store) Close() error {
	s.dec.Close()
	err := errors.Join(s.enc.Close(), s.db.Close())
	s.logger.Infof("chunk store closed")
	return err
}

func worldPrefix(world string) []byte {
	return []byte("chunk/" + world + "/")
}

func chunkKey(id chunks.RequestID) []byte {
	return fmt.Appendf(worldPrefix(id.World), "%d/%d/%d", id.I, id.J, id.K)
}

// encode lays out a record as version, size and the zstd-compressed
// little-endian voxel IDs.
func (s *Store) encode(size int, voxels []blocks.ID) []byte {
	raw := make([]byte, 2*len(voxels))
	for ix, id := range voxels {
		binary.LittleEndian.PutUint16(raw[2*ix:], uint16(id))
	}
	out := []byte{formatVersion, 0, 0}
	binary.LittleEndian.PutUint16(out[1:], uint16(size))
	return s.enc.EncodeAll(raw, out)
}

func (s *Store) decode(val []byte, size int) ([]blocks.ID, error) {
	if len(val) < 3 || val[0] != formatVersion {
		return nil, ErrCorrupt
	}
	if got := int(binary.LittleEndian.Uint16(val[1:])); got != size {
		return nil, fmt.Errorf("store: record holds size %d chunk, want %d: %w", got, size, ErrCorrupt)
	}
	raw, err := s.dec.DecodeAll(val[3:], nil)
	if err != nil {
		return nil, fmt.Errorf("store: %w: %v", ErrCorrupt, err)
	}
	if len(raw) != 2*size*size*size {
		return nil, ErrCorrupt
	}
	voxels := make([]blocks.ID, size*size*size)
	for ix := range voxels {
		voxels[ix] = blocks.ID(binary.LittleEndian.Uint16(raw[2*ix:]))
	}
	return voxels, nil
}

// SaveChunk writes the voxels of one chunk, replacing any earlier record.
func (s *Store) SaveChunk(id chunks.RequestID, size int, voxels []blocks.ID) error {
	if len(voxels) != size*size*size {
		return fmt.Errorf("store: %d voxels for size %d chunk", len(voxels), size)
	}
	val := s.encode(size, voxels)
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(chunkKey(id), val)
	})
	if err != nil {
		return fmt.Errorf("store: save chunk %d,%d,%d: %w", id.I, id.J, id.K, err)
	}
	return nil
}

// Save writes a chunk if it was edited since its data arrived.
func (s *Store) Save(c *chunks.Chunk) error {
	if !c.Modified() {
		return nil
	}
	return s.SaveChunk(c.ID, c.Size(), c.Voxels())
}

// LoadChunk reads a saved chunk. ok is false when nothing was saved.
func (s *Store) LoadChunk(id chunks.RequestID, size int) (voxels []blocks.ID, ok bool, err error) {
	var val []byte
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(chunkKey(id))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: load chunk %d,%d,%d: %w", id.I, id.J, id.K, err)
	}
	voxels, err = s.decode(val, size)
	if err != nil {
		return nil, false, err
	}
	return voxels, true, nil
}

func (s *Store) DeleteChunk(id chunks.RequestID) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(chunkKey(id))
	})
}

// keys lists the saved chunk keys of a world.
func (s *Store) keys(world string) ([][]byte, error) {
	prefix := worldPrefix(world)
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	return keys, err
}

// Count returns how many chunks are saved for a world.
func (s *Store) Count(world string) (int, error) {
	keys, err := s.keys(world)
	return len(keys), err
}

// DropWorld deletes every chunk saved for a world.
func (s *Store) DropWorld(world string) error {
	keys, err := s.keys(world)
	if err != nil {
		return err
	}
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return fmt.Errorf("store: drop world %q: %w", world, err)
		}
	}
	return wb.Flush()
}
