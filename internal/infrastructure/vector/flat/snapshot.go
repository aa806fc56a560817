package flat

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/changsoo-Shin/ktds-jinseop/internal/core/domain"
)

const (
	vectorsFile  = "index.bin"
	metadataFile = "metadata.json"

	snapshotMagic   = uint32(0x464c4154)
	snapshotVersion = uint32(1)
)

// Snapshot writes the vectors to a binary file and the metadata array
// to a JSON sidecar in the index directory. Both files go through a
// temp-then-rename so a crash mid-write never leaves a torn pair that
// passes the load consistency check.
func (x *Index) Snapshot() error {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if err := os.MkdirAll(x.dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	if err := writeAtomic(filepath.Join(x.dir, vectorsFile), func(w io.Writer) error {
		return writeVectors(w, x.dim, x.vectors)
	}); err != nil {
		return fmt.Errorf("snapshot vectors: %w", err)
	}

	if err := writeAtomic(filepath.Join(x.dir, metadataFile), func(w io.Writer) error {
		enc := json.NewEncoder(w)
		return enc.Encode(x.metadata)
	}); err != nil {
		return fmt.Errorf("snapshot metadata: %w", err)
	}

	x.logger.Info("index snapshot written",
		"dir", x.dir,
		"entries", len(x.vectors),
	)
	return nil
}

// load restores the snapshot pair if both files are present. A missing
// pair is a fresh index; a half-present or inconsistent pair is
// corruption.
func (x *Index) load() error {
	vecPath := filepath.Join(x.dir, vectorsFile)
	metaPath := filepath.Join(x.dir, metadataFile)

	_, vecErr := os.Stat(vecPath)
	_, metaErr := os.Stat(metaPath)
	if errors.Is(vecErr, os.ErrNotExist) && errors.Is(metaErr, os.ErrNotExist) {
		return nil
	}
	if vecErr != nil || metaErr != nil {
		return domain.WrapError(domain.ErrIndexCorrupted, "index load",
			fmt.Errorf("snapshot pair incomplete: vectors=%v metadata=%v", vecErr, metaErr))
	}

	f, err := os.Open(vecPath)
	if err != nil {
		return fmt.Errorf("open vectors file: %w", err)
	}
	defer f.Close()

	dim, vectors, err := readVectors(f)
	if err != nil {
		return domain.WrapError(domain.ErrIndexCorrupted, "index load", err)
	}

	metaRaw, err := os.ReadFile(metaPath)
	if err != nil {
		return fmt.Errorf("read metadata file: %w", err)
	}
	var metadata []domain.ChunkMeta
	if err := json.Unmarshal(metaRaw, &metadata); err != nil {
		return domain.WrapError(domain.ErrIndexCorrupted, "index load", err)
	}

	if len(metadata) != len(vectors) {
		return domain.WrapError(domain.ErrIndexCorrupted, "index load",
			fmt.Errorf("metadata entries %d, vectors %d", len(metadata), len(vectors)))
	}

	// documents are not stored separately; the metadata text field is
	// the single source of truth after a restore.
	documents := make([]string, len(metadata))
	for i, m := range metadata {
		documents[i] = m.Text
		metadata[i].EmbeddingID = i
	}

	x.mu.Lock()
	x.dim = dim
	x.vectors = vectors
	x.documents = documents
	x.metadata = metadata
	x.generation++
	x.mu.Unlock()

	x.logger.Info("index snapshot restored",
		"dir", x.dir,
		"entries", len(vectors),
	)
	return nil
}

func writeVectors(w io.Writer, dim int, vectors [][]float32) error {
	header := []uint32{snapshotMagic, snapshotVersion, uint32(dim), uint32(len(vectors))}
	for _, v := range header {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	for _, vec := range vectors {
		if err := binary.Write(w, binary.LittleEndian, vec); err != nil {
			return err
		}
	}
	return nil
}

func readVectors(r io.Reader) (int, [][]float32, error) {
	var magic, version, dim, count uint32
	for _, dst := range []*uint32{&magic, &version, &dim, &count} {
		if err := binary.Read(r, binary.LittleEndian, dst); err != nil {
			return 0, nil, fmt.Errorf("read snapshot header: %w", err)
		}
	}
	if magic != snapshotMagic {
		return 0, nil, fmt.Errorf("bad snapshot magic %#x", magic)
	}
	if version != snapshotVersion {
		return 0, nil, fmt.Errorf("unsupported snapshot version %d", version)
	}

	vectors := make([][]float32, 0, count)
	for i := uint32(0); i < count; i++ {
		vec := make([]float32, dim)
		if err := binary.Read(r, binary.LittleEndian, vec); err != nil {
			return 0, nil, fmt.Errorf("read vector %d: %w", i, err)
		}
		vectors = append(vectors, vec)
	}
	return int(dim), vectors, nil
}

func writeAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
