// Package binlog reads and writes the framed binary logs exported next to a
// session database: detection logs (one fixed-size record per sample) and
// image logs (a header per frame followed by its pixels). All integers are
// little endian and times are Unix nanoseconds.
package binlog

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"sealhits/internal/application"
)

const version = 1

var (
	detectionMagic = [4]byte{'S', 'H', 'D', 'L'}
	imageMagic     = [4]byte{'S', 'H', 'I', 'L'}
)

var byteOrder = binary.LittleEndian

func writeHeader(w io.Writer, magic [4]byte) error {
	if _, err := w.Write(magic[:]); err != nil {
		return err
	}
	return binary.Write(w, byteOrder, uint8(version))
}

func readHeader(r io.Reader, path string, magic [4]byte) error {
	var got [4]byte
	if _, err := io.ReadFull(r, got[:]); err != nil {
		return &application.SourceDefectError{Path: path, Reason: fmt.Sprintf("cannot read header: %v", err)}
	}
	if got != magic {
		return &application.SourceDefectError{Path: path, Reason: fmt.Sprintf("bad magic %q", got[:])}
	}
	var v uint8
	if err := binary.Read(r, byteOrder, &v); err != nil {
		return &application.SourceDefectError{Path: path, Reason: fmt.Sprintf("cannot read version: %v", err)}
	}
	if v != version {
		return &application.SourceDefectError{Path: path, Reason: fmt.Sprintf("unsupported version %d", v)}
	}
	return nil
}

func openLog(path string, magic [4]byte) (*os.File, *bufio.Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	br := bufio.NewReader(f)
	if err := readHeader(br, path, magic); err != nil {
		f.Close()
		return nil, nil, err
	}
	return f, br, nil
}

// truncated maps a short read in the middle of a record onto a source defect.
func truncated(path string, err error) error {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return &application.SourceDefectError{Path: path, Reason: "truncated record"}
	}
	return fmt.Errorf("failed to read %s: %w", path, err)
}
