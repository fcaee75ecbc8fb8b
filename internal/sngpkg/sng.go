// Package sngpkg reads the .sng container format used to distribute whole
// chart folders (notes.chart/notes.mid, song.ini, audio, art) as a single
// XOR-masked archive. The core never sees .sng directly; this package
// extracts the member files a caller then hands to chartfmt/midfmt/ini.
package sngpkg

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

const (
	fileIdentifier = "SNGPKG"
	headerSize     = 26
)

// header is the fixed-size prefix: magic, format version, and the 16-byte
// mask seed every member file's bytes are XORed against.
type header struct {
	Identifier [6]byte
	Version    uint32
	XorMask    [16]byte
}

// FileEntry locates one member file inside the archive.
type FileEntry struct {
	Filename string
	Size     uint64
	Offset   uint64
}

// Archive is an opened .sng file: its header, key/value metadata block,
// and file index, ready for random-access ReadFile calls.
type Archive struct {
	header   header
	Metadata map[string]string
	Files    []FileEntry
	reader   *os.File
}

// Open reads and validates an .sng file's header, metadata block, and
// file index, leaving the underlying file handle open for ReadFile.
func Open(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sng archive: %w", err)
	}

	a := &Archive{reader: f, Metadata: make(map[string]string)}
	if err := a.readHeader(); err != nil {
		f.Close()
		return nil, fmt.Errorf("read sng header: %w", err)
	}
	if err := a.readMetadata(); err != nil {
		f.Close()
		return nil, fmt.Errorf("read sng metadata: %w", err)
	}
	if err := a.readFileIndex(); err != nil {
		f.Close()
		return nil, fmt.Errorf("read sng file index: %w", err)
	}
	return a, nil
}

// Close releases the underlying file handle.
func (a *Archive) Close() error {
	if a.reader != nil {
		return a.reader.Close()
	}
	return nil
}

func (a *Archive) readHeader() error {
	if _, err := a.reader.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if err := binary.Read(a.reader, binary.LittleEndian, &a.header); err != nil {
		return err
	}
	if string(a.header.Identifier[:]) != fileIdentifier {
		return fmt.Errorf("invalid file identifier: %q", a.header.Identifier[:])
	}
	return nil
}

func (a *Archive) readMetadata() error {
	var blockLength uint64
	if err := binary.Read(a.reader, binary.LittleEndian, &blockLength); err != nil {
		return err
	}
	var count uint64
	if err := binary.Read(a.reader, binary.LittleEndian, &count); err != nil {
		return err
	}

	for i := uint64(0); i < count; i++ {
		var keyLen int32
		if err := binary.Read(a.reader, binary.LittleEndian, &keyLen); err != nil {
			return err
		}
		if keyLen < 0 || keyLen > 1024 {
			return fmt.Errorf("invalid metadata key length: %d", keyLen)
		}
		key := make([]byte, keyLen)
		if _, err := io.ReadFull(a.reader, key); err != nil {
			return err
		}

		var valLen int32
		if err := binary.Read(a.reader, binary.LittleEndian, &valLen); err != nil {
			return err
		}
		if valLen < 0 || valLen > 10240 {
			return fmt.Errorf("invalid metadata value length: %d", valLen)
		}
		val := make([]byte, valLen)
		if _, err := io.ReadFull(a.reader, val); err != nil {
			return err
		}

		a.Metadata[string(key)] = string(val)
	}
	return nil
}

func (a *Archive) readFileIndex() error {
	var indexLength uint64
	if err := binary.Read(a.reader, binary.LittleEndian, &indexLength); err != nil {
		return err
	}
	var count uint64
	if err := binary.Read(a.reader, binary.LittleEndian, &count); err != nil {
		return err
	}

	for i := uint64(0); i < count; i++ {
		var nameLen uint8
		if err := binary.Read(a.reader, binary.LittleEndian, &nameLen); err != nil {
			return err
		}
		name := make([]byte, nameLen)
		if _, err := io.ReadFull(a.reader, name); err != nil {
			return err
		}
		var size, offset uint64
		if err := binary.Read(a.reader, binary.LittleEndian, &size); err != nil {
			return err
		}
		if err := binary.Read(a.reader, binary.LittleEndian, &offset); err != nil {
			return err
		}
		a.Files = append(a.Files, FileEntry{Filename: string(name), Size: size, Offset: offset})
	}
	return nil
}

// ListFiles returns every member filename, in archive order.
func (a *Archive) ListFiles() []string {
	names := make([]string, len(a.Files))
	for i, e := range a.Files {
		names[i] = e.Filename
	}
	return names
}

// ReadFile extracts and unmasks one member file's contents by name.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	var entry *FileEntry
	for i := range a.Files {
		if a.Files[i].Filename == name {
			entry = &a.Files[i]
			break
		}
	}
	if entry == nil {
		return nil, fmt.Errorf("member file not found: %s", name)
	}

	if _, err := a.reader.Seek(int64(entry.Offset), io.SeekStart); err != nil {
		return nil, err
	}
	masked := make([]byte, entry.Size)
	if _, err := io.ReadFull(a.reader, masked); err != nil {
		return nil, err
	}
	return a.unmask(masked), nil
}

// unmask reverses the archive-wide XOR mask: a 256-entry lookup table is
// derived once from the 16-byte header seed, then applied cyclically over
// the member file's bytes.
func (a *Archive) unmask(masked []byte) []byte {
	lookup := make([]byte, 256)
	for i := range lookup {
		lookup[i] = byte(i) ^ a.header.XorMask[i&0x0F]
	}
	out := make([]byte, len(masked))
	for i, b := range masked {
		out[i] = b ^ lookup[i&0xFF]
	}
	return out
}
