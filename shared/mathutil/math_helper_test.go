package mathutil_test

import (
	"testing"

	"github.com/oraculum-network/oraculum/shared/mathutil"
	"github.com/oraculum-network/oraculum/shared/testutil/assert"
)

func TestMinMax(t *testing.T) {
	assert.Equal(t, uint64(2), mathutil.Min(2, 5))
	assert.Equal(t, uint64(5), mathutil.Max(2, 5))
}

func TestCeilDiv32(t *testing.T) {
	assert.Equal(t, uint32(3), mathutil.CeilDiv32(5, 2))
	assert.Equal(t, uint32(1), mathutil.CeilDiv32(2, 2))
	assert.Equal(t, uint32(0), mathutil.CeilDiv32(5, 0))
}
