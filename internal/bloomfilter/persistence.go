package bloomfilter

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/edsrzf/mmap-go"
)

// filterFileName returns the on-disk name for the i-th bloom filter.
func filterFileName(i int) string {
	return fmt.Sprintf("%d.sfbl.bin", i)
}

// writeFilter serialises a classical filter to <dir>/<i>.sfbl.bin. Layout:
// an 8-byte m, an 8-byte h, an 8-byte word count, then the words
// themselves, all little-endian. Construction is not performance critical
// so this writes with a plain file, not a mapping; readers mmap it
// afterwards.
func writeFilter(dir string, i int, c *classical) error {
	words := c.words()
	buf := make([]byte, 24+8*len(words))
	binary.LittleEndian.PutUint64(buf[0:8], uint64(c.m))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(c.h))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(len(words)))
	for idx, w := range words {
		binary.LittleEndian.PutUint64(buf[24+8*idx:32+8*idx], w)
	}
	path := filepath.Join(dir, filterFileName(i))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("bloomfilter: create cache dir: %w", err)
	}
	return os.WriteFile(path, buf, 0o644)
}

// mappedFilter is a classical filter backed by a read-only memory mapping
// of its on-disk file, opened once after construction per the concurrency
// model (§5): readers never write back.
type mappedFilter struct {
	region mmap.MMap
	file   *os.File
	filt   *classical
}

func openFilter(dir string, i int) (*mappedFilter, error) {
	path := filepath.Join(dir, filterFileName(i))
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	region, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("bloomfilter: mmap %s: %w", path, err)
	}
	if len(region) < 24 {
		region.Unmap()
		f.Close()
		return nil, fmt.Errorf("bloomfilter: truncated cache file %s", path)
	}
	m := binary.LittleEndian.Uint64(region[0:8])
	h := binary.LittleEndian.Uint64(region[8:16])
	wordCount := binary.LittleEndian.Uint64(region[16:24])
	words := make([]uint64, wordCount)
	for idx := uint64(0); idx < wordCount; idx++ {
		off := 24 + 8*idx
		words[idx] = binary.LittleEndian.Uint64(region[off : off+8])
	}
	c := &classical{m: uint(m), h: uint(h)}
	c.loadWords(words)
	return &mappedFilter{region: region, file: f, filt: c}, nil
}

func (m *mappedFilter) close() error {
	if err := m.region.Unmap(); err != nil {
		m.file.Close()
		return err
	}
	return m.file.Close()
}

// cacheFileCount returns how many "<i>.sfbl.bin" files exist in dir,
// used for the §4.2 integrity check ("cache is reused iff exactly K files
// are present").
func cacheFileCount(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	count := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sfbl.bin") {
			count++
		}
	}
	return count, nil
}
