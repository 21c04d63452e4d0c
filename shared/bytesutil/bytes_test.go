package bytesutil_test

import (
	"testing"

	"github.com/oraculum-network/oraculum/shared/bytesutil"
	"github.com/oraculum-network/oraculum/shared/testutil/assert"
)

func TestToBytes32(t *testing.T) {
	short := bytesutil.ToBytes32([]byte{0x01, 0x02})
	assert.Equal(t, byte(0x01), short[0])
	assert.Equal(t, byte(0x02), short[1])
	assert.Equal(t, byte(0x00), short[31])

	long := make([]byte, 40)
	long[39] = 0xff
	truncated := bytesutil.ToBytes32(long)
	assert.Equal(t, byte(0x00), truncated[31])
}

func TestUint32BigEndianRoundTrip(t *testing.T) {
	for _, v := range []uint32{0, 1, 255, 1 << 20, ^uint32(0)} {
		enc := bytesutil.Uint32ToBytesBigEndian(v)
		assert.Equal(t, 4, len(enc))
		assert.Equal(t, v, bytesutil.BytesToUint32BigEndian(enc))
	}
	assert.Equal(t, uint32(0), bytesutil.BytesToUint32BigEndian([]byte{0x01}))
}

func TestSafeCopyBytes(t *testing.T) {
	assert.Equal(t, 0, len(bytesutil.SafeCopyBytes(nil)))
	src := []byte{1, 2, 3}
	cp := bytesutil.SafeCopyBytes(src)
	cp[0] = 9
	assert.Equal(t, byte(1), src[0])
}
