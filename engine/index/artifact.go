package index

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/YojanaSetu/yojana-mvp/engine/domain"
)

// Artifact layout, little-endian:
//
//	magic [8]byte, version uint32, dims uint32, count uint32,
//	modelLen uint32, model [modelLen]byte, count*dims float32.
var magic = [8]byte{'Y', 'J', 'N', 'I', 'D', 'X', '0', '1'}

const (
	artifactVersion = 1

	// maxModelLen bounds the model-name allocation when reading a header, so
	// a corrupt length field cannot demand gigabytes.
	maxModelLen = 4096
)

// Save writes the index to path atomically: the full artifact is written to a
// temp file in the same directory, synced, then renamed over the destination.
// A reader can never observe a partially written index.
func (f *Flat) Save(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".index-*")
	if err != nil {
		return fmt.Errorf("index: create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	if _, err := w.Write(magic[:]); err != nil {
		return fmt.Errorf("index: write header: %w", err)
	}
	for _, v := range []uint32{artifactVersion, uint32(f.dims), uint32(len(f.vectors)), uint32(len(f.model))} {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("index: write header: %w", err)
		}
	}
	if _, err := w.WriteString(f.model); err != nil {
		return fmt.Errorf("index: write header: %w", err)
	}

	buf := make([]byte, 4)
	for _, vec := range f.vectors {
		for _, x := range vec {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(x))
			if _, err := w.Write(buf); err != nil {
				return fmt.Errorf("index: write vectors: %w", err)
			}
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("index: flush: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("index: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("index: close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("index: rename: %w", err)
	}
	return nil
}

// Load reads a persisted index. A missing artifact is domain.ErrIndexNotBuilt;
// any other failure means the artifact is corrupt.
func Load(path string) (*Flat, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("index: %s: %w", path, domain.ErrIndexNotBuilt)
		}
		return nil, fmt.Errorf("index: open: %w", err)
	}
	defer file.Close()

	r := bufio.NewReader(file)
	var gotMagic [8]byte
	if _, err := io.ReadFull(r, gotMagic[:]); err != nil {
		return nil, fmt.Errorf("index: read header: %w", err)
	}
	if gotMagic != magic {
		return nil, fmt.Errorf("index: %s is not an index artifact", path)
	}

	var version, dims, count, modelLen uint32
	for _, p := range []*uint32{&version, &dims, &count, &modelLen} {
		if err := binary.Read(r, binary.LittleEndian, p); err != nil {
			return nil, fmt.Errorf("index: read header: %w", err)
		}
	}
	if version != artifactVersion {
		return nil, fmt.Errorf("index: unsupported artifact version %d", version)
	}
	if dims == 0 {
		return nil, fmt.Errorf("index: artifact has zero dimensionality")
	}
	if modelLen > maxModelLen {
		return nil, fmt.Errorf("index: model name length %d exceeds %d", modelLen, maxModelLen)
	}

	model := make([]byte, modelLen)
	if _, err := io.ReadFull(r, model); err != nil {
		return nil, fmt.Errorf("index: read model name: %w", err)
	}

	f := &Flat{dims: int(dims), model: string(model)}
	f.vectors = make([][]float32, count)
	buf := make([]byte, 4*dims)
	for i := range f.vectors {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("index: truncated at vector %d: %w", i, err)
		}
		vec := make([]float32, dims)
		for j := range vec {
			vec[j] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*j:]))
		}
		f.vectors[i] = vec
	}
	return f, nil
}
