//go:build !tinygo

package hal

import (
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	hostEEPROMSizeBytes = 4096
	hostEEPROMPageBytes = 32
)

// hostEEPROM emulates an AT24C32: two address bytes, page writes that wrap inside the
// 32-byte page, sequential reads that wrap at the end of memory. With a backing file every
// page write goes through to disk.
type hostEEPROM struct {
	mem []byte
	f   *os.File
}

func newHostEEPROM(path string, size int) (*hostEEPROM, error) {
	e := &hostEEPROM{mem: make([]byte, size)}
	for i := range e.mem {
		e.mem[i] = 0xFF
	}
	if path == "" {
		return e, nil
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if st.Size() < int64(size) {
		if _, err := f.WriteAt(e.mem, 0); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("eeprom init %s: %w", path, err)
		}
	} else if _, err := f.ReadAt(e.mem, 0); err != nil && !errors.Is(err, io.EOF) {
		_ = f.Close()
		return nil, fmt.Errorf("eeprom read %s: %w", path, err)
	}
	e.f = f
	return e, nil
}

func (e *hostEEPROM) tx(w, r []byte) error {
	if len(w) < 2 {
		return errors.New("at24c32: need two address bytes")
	}
	size := len(e.mem)
	addr := (int(w[0])<<8 | int(w[1])) % size

	if data := w[2:]; len(data) > 0 {
		page := addr &^ (hostEEPROMPageBytes - 1)
		off := addr
		for _, v := range data {
			e.mem[off] = v
			off = page | (off+1)&(hostEEPROMPageBytes-1)
		}
		if e.f != nil {
			if _, err := e.f.WriteAt(e.mem[page:page+hostEEPROMPageBytes], int64(page)); err != nil {
				return fmt.Errorf("eeprom write at %d: %w", page, err)
			}
		}
	}

	for i := range r {
		r[i] = e.mem[(addr+i)%size]
	}
	return nil
}

func (e *hostEEPROM) close() error {
	if e.f == nil {
		return nil
	}
	err := e.f.Close()
	e.f = nil
	return err
}
