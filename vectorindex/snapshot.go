package vectorindex

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/klauspost/compress/zstd"
)

// snapshotMagic tags the file format, mirroring kvstore's snapshot guard.
var snapshotMagic = [4]byte{'V', 'I', 'D', '1'}

// Export writes the index's full committed state to path as a
// zstd-compressed sequence of id/vector records, atomically. This is the
// collaborator's export(path) of §6; what the file actually contains is
// opaque to the rest of the system (§1 Non-goals excludes the on-disk
// index layout itself) — Export/Import just need to round-trip this
// package's own Index.
func (ix *Index) Export(path string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return ErrSystem(fmt.Errorf("creating snapshot temp file: %w", err))
	}

	if err := ix.writeTo(f); err != nil {
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

func (ix *Index) writeTo(w io.Writer) error {
	if _, err := w.Write(snapshotMagic[:]); err != nil {
		return err
	}

	var hdr [12]byte
	binary.BigEndian.PutUint32(hdr[0:4], uint32(ix.typ))
	binary.BigEndian.PutUint32(hdr[4:8], uint32(ix.method))
	binary.BigEndian.PutUint32(hdr[8:12], uint32(ix.dims))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}

	enc, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("creating zstd encoder: %w", err)
	}

	bw := bufio.NewWriter(enc)
	var idBuf [8]byte
	it := ix.live.bm.Iterator()
	for it.HasNext() {
		id := it.Next()
		vec, _ := ix.backend.vector(id)
		binary.BigEndian.PutUint64(idBuf[:], id)
		if _, werr := bw.Write(idBuf[:]); werr != nil {
			err = werr
			break
		}
		for _, f := range vec {
			var fb [4]byte
			binary.BigEndian.PutUint32(fb[:], math.Float32bits(f))
			if _, werr := bw.Write(fb[:]); werr != nil {
				err = werr
				break
			}
		}
		if err != nil {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("writing snapshot body: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flushing snapshot body: %w", err)
	}
	return enc.Close()
}

// Import allocates a fresh Index of the given type/method/dims and
// populates it from a snapshot previously written by Export. A missing
// file is not an error: it means this is a brand-new database with
// nothing to import yet, matching kvstore.Load's contract.
func Import(typ Type, method Method, dims int, path string) (*Index, error) {
	ix, err := New(typ, method, dims)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ix, nil
		}
		return nil, ErrSystem(fmt.Errorf("opening snapshot %s: %w", path, err))
	}
	defer f.Close()

	if err := ix.readFrom(f); err != nil {
		return nil, ErrSystem(fmt.Errorf("importing snapshot %s: %w", path, err))
	}
	return ix, nil
}

func (ix *Index) readFrom(r io.Reader) error {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return fmt.Errorf("reading snapshot magic: %w", err)
	}
	if magic != snapshotMagic {
		return fmt.Errorf("unrecognized snapshot format %v", magic)
	}

	var hdr [12]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return fmt.Errorf("reading snapshot header: %w", err)
	}
	dims := int(binary.BigEndian.Uint32(hdr[8:12]))
	if dims != ix.dims {
		return fmt.Errorf("snapshot dimensionality %d does not match configured %d", dims, ix.dims)
	}

	dec, err := zstd.NewReader(r)
	if err != nil {
		return fmt.Errorf("creating zstd decoder: %w", err)
	}
	defer dec.Close()

	br := bufio.NewReader(dec)
	for {
		var idBuf [8]byte
		if _, err := io.ReadFull(br, idBuf[:]); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("reading record id: %w", err)
		}
		id := binary.BigEndian.Uint64(idBuf[:])

		vec := make([]float32, ix.dims)
		for i := range vec {
			var fb [4]byte
			if _, err := io.ReadFull(br, fb[:]); err != nil {
				return fmt.Errorf("reading vector component %d for id %d: %w", i, id, err)
			}
			vec[i] = math.Float32frombits(binary.BigEndian.Uint32(fb[:]))
		}

		ix.backend.insert(id, vec)
		ix.live.add(id)
	}
}
