package elf

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Read decodes one little-endian fixed-layout record from the start of data.
// The buffer is validated against the record size before any byte is read;
// input files are never trusted to be self-consistent.
func Read[T any](data []byte) (val T, err error) {
	sz := binary.Size(val)
	if sz < 0 {
		err = fmt.Errorf("elf: type is not fixed-size")
		return
	}
	if len(data) < sz {
		err = fmt.Errorf("elf: truncated record: need %d bytes, have %d", sz, len(data))
		return
	}
	err = binary.Read(bytes.NewReader(data[:sz]), binary.LittleEndian, &val)
	return
}

// ReadSlice decodes a whole table of records. The buffer length must be an
// exact multiple of entSize.
func ReadSlice[T any](data []byte, entSize int) (vals []T, err error) {
	if entSize <= 0 {
		err = fmt.Errorf("elf: invalid entry size %d", entSize)
		return
	}
	if len(data)%entSize != 0 {
		err = fmt.Errorf("elf: table size %d is not a multiple of entry size %d",
			len(data), entSize)
		return
	}
	vals = make([]T, 0, len(data)/entSize)
	for len(data) > 0 {
		var val T
		if val, err = Read[T](data[:entSize]); err != nil {
			vals = nil
			return
		}
		vals = append(vals, val)
		data = data[entSize:]
	}
	return
}

// Write encodes one little-endian fixed-layout record into buf, which must
// be large enough to hold it. Output buffers are sized by the writer itself,
// so a short buffer is a programming error, not an input error.
func Write[T any](buf []byte, val T) {
	w := &bytes.Buffer{}
	if err := binary.Write(w, binary.LittleEndian, val); err != nil {
		panic(err)
	}
	if len(buf) < w.Len() {
		panic(fmt.Sprintf("elf: write of %d bytes into %d-byte buffer", w.Len(), len(buf)))
	}
	copy(buf, w.Bytes())
}
