package cache

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"math"
	"time"

	"github.com/five82/apodesk/internal/apod"
)

const (
	slotMagic   = "APOD"
	slotVersion = 2

	// headerSize covers magic and version.
	headerSize   = len(slotMagic) + 1
	checksumSize = 4
	maxFieldSize = 256 << 20
)

var errMalformed = errors.New("malformed slot")

// Encode serializes r into the slot container.
func Encode(r apod.Record) ([]byte, error) {
	fetchedAt, err := r.FetchedAt.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode fetched time: %w", err)
	}
	fields := [][]byte{
		fetchedAt,
		[]byte(r.Title),
		[]byte(r.Date),
		[]byte(r.Explanation),
		[]byte(r.ImageURL),
		[]byte(r.Copyright),
		r.ImageBytes(),
	}

	size := headerSize + checksumSize
	for _, f := range fields {
		if len(f) > maxFieldSize {
			return nil, fmt.Errorf("field of %d bytes exceeds slot limit", len(f))
		}
		size += 4 + len(f)
	}

	buf := bytes.NewBuffer(make([]byte, 0, size))
	buf.WriteString(slotMagic)
	buf.WriteByte(slotVersion)
	for _, f := range fields {
		_ = binary.Write(buf, binary.LittleEndian, uint32(len(f)))
		buf.Write(f)
	}
	_ = binary.Write(buf, binary.LittleEndian, crc32.ChecksumIEEE(buf.Bytes()))
	return buf.Bytes(), nil
}

// Decode parses a slot container. Any structural problem yields an error
// wrapping errMalformed.
func Decode(data []byte) (apod.Record, error) {
	if len(data) < headerSize+checksumSize {
		return apod.Record{}, fmt.Errorf("%w: %d bytes is too short", errMalformed, len(data))
	}
	body := data[:len(data)-checksumSize]
	want := binary.LittleEndian.Uint32(data[len(data)-checksumSize:])
	if got := crc32.ChecksumIEEE(body); got != want {
		return apod.Record{}, fmt.Errorf("%w: checksum %08x, want %08x", errMalformed, got, want)
	}
	if string(body[:len(slotMagic)]) != slotMagic {
		return apod.Record{}, fmt.Errorf("%w: bad magic", errMalformed)
	}
	if v := body[len(slotMagic)]; v != slotVersion {
		return apod.Record{}, fmt.Errorf("%w: unsupported version %d", errMalformed, v)
	}
	rest := body[headerSize:]
	fields := make([][]byte, 7)
	for i := range fields {
		if len(rest) < 4 {
			return apod.Record{}, fmt.Errorf("%w: field %d header truncated", errMalformed, i)
		}
		n := binary.LittleEndian.Uint32(rest[:4])
		rest = rest[4:]
		if uint64(n) > uint64(len(rest)) || n > math.MaxInt32 {
			return apod.Record{}, fmt.Errorf("%w: field %d length %d overruns slot", errMalformed, i, n)
		}
		fields[i] = rest[:n]
		rest = rest[n:]
	}
	if len(rest) != 0 {
		return apod.Record{}, fmt.Errorf("%w: %d trailing bytes", errMalformed, len(rest))
	}

	var fetchedAt time.Time
	if err := fetchedAt.UnmarshalBinary(fields[0]); err != nil {
		return apod.Record{}, fmt.Errorf("%w: fetched time: %v", errMalformed, err)
	}
	meta := apod.Metadata{
		Title:       string(fields[1]),
		Date:        string(fields[2]),
		Explanation: string(fields[3]),
		ImageURL:    string(fields[4]),
		Copyright:   string(fields[5]),
	}
	return apod.NewRecord(meta, fields[6], fetchedAt), nil
}
