package vector

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// StorageError wraps a snapshot or restore failure. Restore failures are
// fatal at startup; snapshot failures only degrade durability.
type StorageError struct {
	Op  string // "save" or "load"
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("index %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// snapshotData is the entries artifact layout.
type snapshotData struct {
	Dimensions int     `json:"dimensions"`
	Entries    []Entry `json:"entries"`
}

// snapshotLocked writes both artifacts. Callers hold the write lock. A
// failure is logged and swallowed: the in-memory index stays correct and
// authoritative until process restart.
func (ix *Index) snapshotLocked(op string) {
	if ix.dataPath == "" || ix.vectorPath == "" {
		return
	}
	if err := ix.writeLocked(); err != nil {
		if ix.logger != nil {
			ix.logger.Warn("index snapshot failed",
				zap.String("after", op), zap.Error(err))
		}
	}
}

// Save writes both artifacts and returns any failure. Used at shutdown;
// mutations snapshot automatically.
func (ix *Index) Save() error {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.dataPath == "" || ix.vectorPath == "" {
		return nil
	}
	if err := ix.writeLocked(); err != nil {
		return &StorageError{Op: "save", Err: err}
	}
	return nil
}

// writeLocked writes the entries artifact and the vector artifact, each via
// temp file + rename so a crash mid-write never corrupts the previous
// snapshot.
func (ix *Index) writeLocked() error {
	data, err := json.Marshal(snapshotData{Dimensions: ix.dims, Entries: ix.entries})
	if err != nil {
		return fmt.Errorf("encode entries: %w", err)
	}
	if err := writeFileAtomic(ix.dataPath, data); err != nil {
		return fmt.Errorf("write entries artifact: %w", err)
	}
	if err := writeFileAtomic(ix.vectorPath, ix.encodeVectors()); err != nil {
		return fmt.Errorf("write vector artifact: %w", err)
	}
	return nil
}

// encodeVectors serializes vectors as little-endian: dims (4), count (4),
// then count*dims float32 values.
func (ix *Index) encodeVectors() []byte {
	var buf bytes.Buffer
	buf.Grow(8 + len(ix.vectors)*ix.dims*4)
	_ = binary.Write(&buf, binary.LittleEndian, uint32(ix.dims))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(ix.vectors)))
	scratch := make([]byte, 4)
	for _, vec := range ix.vectors {
		for _, v := range vec {
			binary.LittleEndian.PutUint32(scratch, math.Float32bits(v))
			buf.Write(scratch)
		}
	}
	return buf.Bytes()
}

// load restores both artifacts. When neither exists the index starts empty.
// Any other inconsistency (one artifact missing, dimension disagreement,
// entry count disagreeing with vector count) is a *StorageError: a stale
// or corrupt snapshot must surface, or search results would no longer match
// stored entries.
func (ix *Index) load() error {
	if ix.dataPath == "" || ix.vectorPath == "" {
		return nil
	}
	dataRaw, dataErr := os.ReadFile(ix.dataPath)
	vecRaw, vecErr := os.ReadFile(ix.vectorPath)
	if os.IsNotExist(dataErr) && os.IsNotExist(vecErr) {
		return nil
	}
	if dataErr != nil {
		return &StorageError{Op: "load", Err: fmt.Errorf("read entries artifact: %w", dataErr)}
	}
	if vecErr != nil {
		return &StorageError{Op: "load", Err: fmt.Errorf("read vector artifact: %w", vecErr)}
	}

	var data snapshotData
	if err := json.Unmarshal(dataRaw, &data); err != nil {
		return &StorageError{Op: "load", Err: fmt.Errorf("decode entries artifact: %w", err)}
	}
	dims, vectors, err := decodeVectors(vecRaw)
	if err != nil {
		return &StorageError{Op: "load", Err: err}
	}
	if dims != data.Dimensions {
		return &StorageError{Op: "load", Err: fmt.Errorf(
			"artifact dimensions disagree: entries say %d, vectors say %d", data.Dimensions, dims)}
	}
	if len(vectors) != len(data.Entries) {
		return &StorageError{Op: "load", Err: fmt.Errorf(
			"artifact counts disagree: %d entries, %d vectors", len(data.Entries), len(vectors))}
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.dims = data.Dimensions
	ix.entries = data.Entries
	ix.vectors = vectors
	return nil
}

func decodeVectors(raw []byte) (dims int, vectors [][]float32, err error) {
	if len(raw) < 8 {
		return 0, nil, fmt.Errorf("vector artifact truncated: %d bytes", len(raw))
	}
	dims = int(binary.LittleEndian.Uint32(raw[0:4]))
	count := int(binary.LittleEndian.Uint32(raw[4:8]))
	want := 8 + count*dims*4
	if len(raw) != want {
		return 0, nil, fmt.Errorf("vector artifact size mismatch: have %d bytes, want %d", len(raw), want)
	}
	vectors = make([][]float32, count)
	off := 8
	for i := 0; i < count; i++ {
		vec := make([]float32, dims)
		for j := 0; j < dims; j++ {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(raw[off : off+4]))
			off += 4
		}
		vectors[i] = vec
	}
	return dims, vectors, nil
}

// writeFileAtomic writes data to path via a temp file in the same directory
// and an atomic rename. Parent directories are created as needed.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
