package kvstore

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

// snapshotMagic tags the file format so Load can fail fast on a foreign
// or corrupted file rather than misinterpreting garbage as key-value
// pairs. The WAL is never compressed (§4.3: it must stay byte-identical
// to wire frames); only this snapshot body is, per the collaborator
// contract's "opaque binary" allowance in §6.
var snapshotMagic = [4]byte{'V', 'K', 'V', '1'}

// Dump writes the entire table to path as a zstd-compressed sequence of
// length-prefixed key/value records, atomically (write to a temp file,
// then rename) so a crash mid-dump never corrupts the previous snapshot.
func (s *Store) Dump(path string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return ErrSystem(fmt.Errorf("creating snapshot temp file: %w", err))
	}

	if err := s.writeTo(f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return ErrSystem(err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return ErrSystem(fmt.Errorf("closing snapshot temp file: %w", err))
	}
	if err := os.Rename(tmp, path); err != nil {
		return ErrSystem(fmt.Errorf("renaming snapshot into place: %w", err))
	}
	return nil
}

func (s *Store) writeTo(w io.Writer) error {
	if _, err := w.Write(snapshotMagic[:]); err != nil {
		return err
	}

	enc, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("creating zstd encoder: %w", err)
	}

	bw := bufio.NewWriter(enc)
	var lenBuf [8]byte
	for key, value := range s.snapshot() {
		if err := writeRecord(bw, lenBuf[:], []byte(key)); err != nil {
			return err
		}
		if err := writeRecord(bw, lenBuf[:], value); err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flushing snapshot body: %w", err)
	}
	return enc.Close()
}

func writeRecord(w io.Writer, lenBuf []byte, b []byte) error {
	binary.BigEndian.PutUint64(lenBuf, uint64(len(b)))
	if _, err := w.Write(lenBuf); err != nil {
		return err
	}
	if len(b) > 0 {
		if _, err := w.Write(b); err != nil {
			return err
		}
	}
	return nil
}

// Load reads a snapshot previously written by Dump into a fresh Store. A
// missing file is not an error: it means this is a brand-new database
// with nothing to import yet.
func Load(name, path string) (*Store, error) {
	s := New(name)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, ErrSystem(fmt.Errorf("opening snapshot %s: %w", path, err))
	}
	defer f.Close()

	if err := s.readFrom(f); err != nil {
		return nil, ErrSystem(fmt.Errorf("importing snapshot %s: %w", path, err))
	}
	return s, nil
}

func (s *Store) readFrom(r io.Reader) error {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return fmt.Errorf("reading snapshot magic: %w", err)
	}
	if magic != snapshotMagic {
		return fmt.Errorf("unrecognized snapshot format %v", magic)
	}

	dec, err := zstd.NewReader(r)
	if err != nil {
		return fmt.Errorf("creating zstd decoder: %w", err)
	}
	defer dec.Close()

	br := bufio.NewReader(dec)
	var lenBuf [8]byte
	for {
		key, err := readRecord(br, lenBuf[:])
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		value, err := readRecord(br, lenBuf[:])
		if err != nil {
			return fmt.Errorf("reading value for key %q: %w", key, err)
		}
		s.data[string(key)] = value
	}
}

func readRecord(r io.Reader, lenBuf []byte) ([]byte, error) {
	if _, err := io.ReadFull(r, lenBuf); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint64(lenBuf)
	if n == 0 {
		return []byte{}, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("reading %d-byte record: %w", n, err)
	}
	return buf, nil
}
