package caskdb

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// appendRecord writes [8-byte LE length][payload] at the tracked end of the
// active log and returns the offset at which payload begins. The caller must
// hold writeMu.
func (db *DB) appendRecord(payload []byte) (int64, error) {
	buf := make([]byte, prefixSize+len(payload))
	binary.LittleEndian.PutUint64(buf[:prefixSize], uint64(len(payload)))
	copy(buf[prefixSize:], payload)

	if _, err := db.writer.WriteAt(buf, db.size); err != nil {
		return 0, fmt.Errorf("failed to append record: %w", err)
	}
	pos := db.size + prefixSize
	db.size += int64(len(buf))

	if db.config.SyncWrites {
		if err := fdatasync(db.writer); err != nil {
			return 0, fmt.Errorf("failed to sync log: %w", err)
		}
	}
	return pos, nil
}

// readAt reads exactly size bytes starting at pos from f.
func readAt(f *os.File, pos, size int64) ([]byte, error) {
	buf := make([]byte, size)
	n, err := f.ReadAt(buf, pos)
	if int64(n) == size {
		return buf, nil
	}
	if err == nil || err == io.EOF || err == io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("%w: %d of %d bytes at offset %d", ErrShortRead, n, size, pos)
	}
	return nil, fmt.Errorf("failed to read %d bytes at offset %d: %w", size, pos, err)
}

// rebuild sequentially scans the log from offset 0 and reconstructs the
// keydir. Later offsets win because the log is append-only. A torn record at
// the tail is truncated away; corruption anywhere earlier is an error.
func (db *DB) rebuild() error {
	f, err := os.Open(db.path)
	if err != nil {
		return fmt.Errorf("failed to open log for rebuild: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat log: %w", err)
	}
	fileSize := info.Size()

	reader := bufio.NewReader(f)
	prefix := make([]byte, prefixSize)
	var off int64
	torn := false

	for {
		if _, err := io.ReadFull(reader, prefix); err != nil {
			if err == io.EOF {
				break
			}
			if err == io.ErrUnexpectedEOF {
				// 长度前缀不完整，尾部撕裂
				torn = true
				break
			}
			return fmt.Errorf("failed to read length prefix at offset %d: %w", off, err)
		}

		payloadLen := int64(binary.LittleEndian.Uint64(prefix))
		pos := off + prefixSize
		if payloadLen < 0 || pos+payloadLen > fileSize {
			// 声明的长度超出文件末尾，尾部撕裂
			torn = true
			break
		}

		payload := make([]byte, payloadLen)
		if _, err := io.ReadFull(reader, payload); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				torn = true
				break
			}
			return fmt.Errorf("failed to read payload at offset %d: %w", pos, err)
		}

		rec, err := decodeRecord(payload)
		if err != nil {
			if pos+payloadLen == fileSize {
				// 最后一条记录解码失败，按撕裂写处理
				torn = true
				break
			}
			return fmt.Errorf("record at offset %d: %w", off, err)
		}

		if rec.tombstone() {
			delete(db.keydir, string(rec.key))
		} else {
			db.keydir[string(rec.key)] = entry{pos: pos, size: payloadLen}
		}
		off = pos + payloadLen
	}

	if torn {
		if err := db.writer.Truncate(off); err != nil {
			return fmt.Errorf("failed to truncate torn tail: %w", err)
		}
	}
	db.size = off
	return nil
}

// copyFile copies src to dst, creating or replacing dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	_, err = io.Copy(destFile, sourceFile)
	return err
}
