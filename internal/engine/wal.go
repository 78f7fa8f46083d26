package engine

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const walFileName = "wal.log"

// wal is the write-ahead log backing the memtable. Each Write call appends
// one frame: a record count followed by the records in the table entry
// wire format. A frame is replayed all or not at all, so a torn tail write
// never resurrects half a batch.
type wal struct {
	file *os.File
}

func walPath(dir string) string {
	return filepath.Join(dir, walFileName)
}

func openWAL(dir string) (*wal, error) {
	file, err := os.OpenFile(walPath(dir), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
	if err != nil {
		return nil, errors.Wrap(err, "open wal")
	}
	return &wal{file: file}, nil
}

func (w *wal) logBatch(batch *Batch, sync bool) error {
	buf := &bytes.Buffer{}
	var count [4]byte
	binary.LittleEndian.PutUint32(count[:], uint32(len(batch.records)))
	buf.Write(count[:])
	for _, r := range batch.records {
		encodeEntry(buf, tableEntry{
			key:       string(r.key),
			value:     r.value,
			tombstone: r.tombstone,
		})
	}
	if _, err := w.file.Write(buf.Bytes()); err != nil {
		return errors.Wrap(err, "append wal")
	}
	if sync {
		return errors.Wrap(w.file.Sync(), "sync wal")
	}
	return nil
}

// reset truncates the log once its contents are safe in a table file. The
// file is opened with O_APPEND, so the next write lands at the new end.
func (w *wal) reset() error {
	return errors.Wrap(w.file.Truncate(0), "truncate wal")
}

func (w *wal) close() error {
	return w.file.Close()
}

// replayWAL returns the logged records in append order. A truncated tail
// frame is dropped: its Write never returned, so it was never
// acknowledged.
func replayWAL(dir string) ([]tableEntry, error) {
	data, err := os.ReadFile(walPath(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "read wal")
	}
	var out []tableEntry
	for len(data) >= 4 {
		count := binary.LittleEndian.Uint32(data[:4])
		entries, consumed, ok := decodeWALFrame(data[4:], count)
		if !ok {
			break
		}
		out = append(out, entries...)
		data = data[4+consumed:]
	}
	return out, nil
}

func decodeWALFrame(data []byte, count uint32) ([]tableEntry, int, bool) {
	var out []tableEntry
	off := 0
	for i := uint32(0); i < count; i++ {
		if len(data)-off < 9 {
			return nil, 0, false
		}
		op := data[off]
		klen := int(binary.LittleEndian.Uint32(data[off+1 : off+5]))
		vlen := int(binary.LittleEndian.Uint32(data[off+5 : off+9]))
		off += 9
		if len(data)-off < klen+vlen {
			return nil, 0, false
		}
		key := string(data[off : off+klen])
		value := append([]byte(nil), data[off+klen:off+klen+vlen]...)
		off += klen + vlen
		switch op {
		case entryOpPut:
			out = append(out, tableEntry{key: key, value: value})
		case entryOpDelete:
			out = append(out, tableEntry{key: key, tombstone: true})
		default:
			return nil, 0, false
		}
	}
	return out, off, true
}
