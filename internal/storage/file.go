package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperjump/kotae/internal/vector"
)

const fileHeaderSize = 8

// FileStore keeps the embedding matrix in a binary file (count uint32, dimension uint32,
// then row-major little-endian float32) and the texts in a JSON array alongside it.
type FileStore struct {
	EmbeddingsPath string
	TextsPath      string
}

// NewFileStore returns a store bound to the two artifact paths.
func NewFileStore(embeddingsPath, textsPath string) *FileStore {
	return &FileStore{EmbeddingsPath: embeddingsPath, TextsPath: textsPath}
}

// Save writes both files, creating parent directories.
func (s *FileStore) Save(ctx context.Context, vectors [][]float32, texts []string) error {
	dims, err := validatePair(vectors, texts)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	buf := make([]byte, fileHeaderSize, fileHeaderSize+len(vectors)*dims*4)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(vectors)))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(dims))
	for _, v := range vectors {
		buf = append(buf, vector.EncodeFloat32s(v)...)
	}
	if err := writeFile(s.EmbeddingsPath, buf); err != nil {
		return fmt.Errorf("write embeddings: %w", err)
	}

	if texts == nil {
		texts = []string{}
	}
	textsJSON, err := json.Marshal(texts)
	if err != nil {
		return fmt.Errorf("marshal texts: %w", err)
	}
	if err := writeFile(s.TextsPath, textsJSON); err != nil {
		return fmt.Errorf("write texts: %w", err)
	}
	return nil
}

// Load reads both files and verifies the header against the payload and the text count.
func (s *FileStore) Load(ctx context.Context) ([][]float32, []string, error) {
	raw, err := os.ReadFile(s.EmbeddingsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read embeddings: %w", err)
	}
	if len(raw) < fileHeaderSize {
		return nil, nil, &CorruptStoreError{Path: s.EmbeddingsPath, Reason: "file shorter than header"}
	}
	count := int(binary.LittleEndian.Uint32(raw[0:4]))
	dims := int(binary.LittleEndian.Uint32(raw[4:8]))
	if count > 0 && dims == 0 {
		return nil, nil, &CorruptStoreError{Path: s.EmbeddingsPath, Reason: "zero dimension"}
	}
	payload := raw[fileHeaderSize:]
	if !payloadMatches(len(payload), count, dims) {
		return nil, nil, &CorruptStoreError{
			Path:   s.EmbeddingsPath,
			Reason: fmt.Sprintf("header declares %d×%d vectors, payload has %d bytes", count, dims, len(payload)),
		}
	}

	textsRaw, err := os.ReadFile(s.TextsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read texts: %w", err)
	}
	var texts []string
	if err := json.Unmarshal(textsRaw, &texts); err != nil {
		return nil, nil, &CorruptStoreError{Path: s.TextsPath, Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if len(texts) != count {
		return nil, nil, &CorruptStoreError{
			Path:   s.TextsPath,
			Reason: fmt.Sprintf("%d texts for %d vectors", len(texts), count),
		}
	}

	flat := vector.DecodeFloat32s(payload)
	vectors := make([][]float32, count)
	for i := range vectors {
		vectors[i] = flat[i*dims : (i+1)*dims : (i+1)*dims]
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return vectors, texts, nil
}

// Close is a no-op.
func (s *FileStore) Close() error { return nil }

// payloadMatches reports whether n bytes hold exactly count float32 rows of dims.
// It divides rather than multiplies so header values cannot overflow.
func payloadMatches(n, count, dims int) bool {
	if n%4 != 0 {
		return false
	}
	if dims == 0 {
		return n == 0 && count == 0
	}
	floats := n / 4
	return floats%dims == 0 && floats/dims == count
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
