// Package eelog keeps a ring of fixed-size log records in an I2C EEPROM.
//
// The memory is split into 32-byte slots. The last slot holds the metadata (write cursor
// and record count) so the ring survives a reset; every other slot holds one record.
//
//	record: u32 BE unix seconds | u8 text length | text (up to 27 bytes)
//	meta:   "RLG1" | u16 BE cursor | u16 BE count
package eelog

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/at24cx"
)

const (
	SlotSize = 32
	TextSize = SlotSize - 5

	metaMagic = "RLG1"
)

var (
	ErrOutOfRange = errors.New("eelog: record index out of range")
	ErrTooSmall   = errors.New("eelog: device too small")
)

// Store is random-access non-volatile memory. *at24cx.Device satisfies it.
type Store interface {
	ReadAt(p []byte, off int64) (int, error)
	WriteAt(p []byte, off int64) (int, error)
}

// Record is one log entry. Text longer than TextSize is truncated on Append.
type Record struct {
	At   time.Time
	Text string
}

// Log is the record ring. Not safe for concurrent use.
type Log struct {
	dev    Store
	slots  int
	meta   int64
	cursor int
	count  int
	buf    [SlotSize]byte
}

// NewAT24 opens a log on an AT24Cxx EEPROM of sizeBytes on bus.
func NewAT24(bus drivers.I2C, sizeBytes int) (*Log, error) {
	dev := at24cx.New(bus)
	dev.Configure(at24cx.Config{PageSize: SlotSize, EndRAMAddress: uint16(sizeBytes)})
	return Open(&dev, sizeBytes)
}

// Open loads the metadata from dev. A device without valid metadata is reset.
func Open(dev Store, sizeBytes int) (*Log, error) {
	slots := sizeBytes/SlotSize - 1
	if slots < 1 {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooSmall, sizeBytes)
	}
	l := &Log{dev: dev, slots: slots, meta: int64(slots * SlotSize)}

	if _, err := dev.ReadAt(l.buf[:8], l.meta); err != nil {
		return nil, fmt.Errorf("eelog: read meta: %w", err)
	}
	cursor := int(binary.BigEndian.Uint16(l.buf[4:6]))
	count := int(binary.BigEndian.Uint16(l.buf[6:8]))
	if string(l.buf[:4]) != metaMagic || cursor >= slots || count > slots {
		if err := l.Reset(); err != nil {
			return nil, err
		}
		return l, nil
	}
	l.cursor = cursor
	l.count = count
	return l, nil
}

// Capacity returns the number of record slots.
func (l *Log) Capacity() int { return l.slots }

// Len returns the number of stored records.
func (l *Log) Len() int { return l.count }

// Cursor returns the slot the next record goes to.
func (l *Log) Cursor() int { return l.cursor }

// Append writes r over the oldest record once the ring is full.
func (l *Log) Append(r Record) error {
	text := r.Text
	if len(text) > TextSize {
		text = text[:TextSize]
	}
	for i := range l.buf {
		l.buf[i] = 0
	}
	binary.BigEndian.PutUint32(l.buf[0:4], uint32(r.At.Unix()))
	l.buf[4] = byte(len(text))
	copy(l.buf[5:], text)

	if _, err := l.dev.WriteAt(l.buf[:], int64(l.cursor*SlotSize)); err != nil {
		return fmt.Errorf("eelog: write slot %d: %w", l.cursor, err)
	}

	cursor := (l.cursor + 1) % l.slots
	count := l.count
	if count < l.slots {
		count++
	}
	if err := l.writeMeta(cursor, count); err != nil {
		return err
	}
	l.cursor = cursor
	l.count = count
	return nil
}

// Read returns record i, 0 being the oldest.
func (l *Log) Read(i int) (Record, error) {
	if i < 0 || i >= l.count {
		return Record{}, ErrOutOfRange
	}
	slot := (l.cursor - l.count + i + l.slots) % l.slots
	if _, err := l.dev.ReadAt(l.buf[:], int64(slot*SlotSize)); err != nil {
		return Record{}, fmt.Errorf("eelog: read slot %d: %w", slot, err)
	}
	n := int(l.buf[4])
	if n > TextSize {
		n = TextSize
	}
	return Record{
		At:   time.Unix(int64(binary.BigEndian.Uint32(l.buf[0:4])), 0).UTC(),
		Text: string(l.buf[5 : 5+n]),
	}, nil
}

// ReadRange returns up to n records starting at from, oldest first.
func (l *Log) ReadRange(from, n int) ([]Record, error) {
	if from < 0 || from > l.count || n < 0 {
		return nil, ErrOutOfRange
	}
	if from+n > l.count {
		n = l.count - from
	}
	out := make([]Record, 0, n)
	for i := from; i < from+n; i++ {
		r, err := l.Read(i)
		if err != nil {
			return out, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Reset empties the log. Record slots are left as they are.
func (l *Log) Reset() error {
	if err := l.writeMeta(0, 0); err != nil {
		return err
	}
	l.cursor = 0
	l.count = 0
	return nil
}

func (l *Log) writeMeta(cursor, count int) error {
	var m [8]byte
	copy(m[:4], metaMagic)
	binary.BigEndian.PutUint16(m[4:6], uint16(cursor))
	binary.BigEndian.PutUint16(m[6:8], uint16(count))
	if _, err := l.dev.WriteAt(m[:], l.meta); err != nil {
		return fmt.Errorf("eelog: write meta: %w", err)
	}
	return nil
}
