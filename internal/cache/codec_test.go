package cache

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_Layout(t *testing.T) {
	data, err := Encode(sampleRecord())
	require.NoError(t, err)

	assert.Equal(t, "APOD", string(data[:4]))
	assert.Equal(t, byte(slotVersion), data[4])

	body := data[:len(data)-checksumSize]
	assert.Equal(t, crc32.ChecksumIEEE(body), binary.LittleEndian.Uint32(data[len(data)-checksumSize:]))

	timeLen := int(binary.LittleEndian.Uint32(data[headerSize : headerSize+4]))
	titleAt := headerSize + 4 + timeLen
	titleLen := int(binary.LittleEndian.Uint32(data[titleAt : titleAt+4]))
	assert.Equal(t, "The Horsehead Nebula", string(data[titleAt+4:titleAt+4+titleLen]))
}

func TestDecode_RejectsStructuralProblems(t *testing.T) {
	valid, err := Encode(sampleRecord())
	require.NoError(t, err)

	reseal := func(body []byte) []byte {
		out := append([]byte(nil), body...)
		return binary.LittleEndian.AppendUint32(out, crc32.ChecksumIEEE(body))
	}
	body := valid[:len(valid)-checksumSize]

	badMagic := append([]byte("NOPE"), body[4:]...)
	badVersion := append([]byte(nil), body...)
	badVersion[4] = 9
	overrun := append([]byte(nil), body...)
	binary.LittleEndian.PutUint32(overrun[headerSize:], 0xFFFFFFF0)
	trailing := append(append([]byte(nil), body...), 0x00)
	badTime := append([]byte(nil), body...)
	badTime[headerSize+4] = 0xEE // time.Time encoding version

	cases := map[string][]byte{
		"bad magic":      reseal(badMagic),
		"bad version":    reseal(badVersion),
		"length overrun": reseal(overrun),
		"trailing bytes": reseal(trailing),
		"bad fetched at": reseal(badTime),
		"short":          valid[:8],
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(data)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errMalformed), "err = %v", err)
		})
	}
}
