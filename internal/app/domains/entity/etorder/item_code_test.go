package etorder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseItemCode(t *testing.T) {
	code, err := ParseItemCode("CMD1A2B3_1_1")
	require.NoError(t, err)
	assert.Equal(t, ItemCode{OrderNumber: "CMD1A2B3", Line: 1, Unit: 1}, code)
	assert.Equal(t, "CMD1A2B3_1_1", code.String())

	code, err = ParseItemCode("CMDZZ999_12_30")
	require.NoError(t, err)
	assert.Equal(t, 12, code.Line)
	assert.Equal(t, 30, code.Unit)
}

func TestParseItemCodeRejectsMalformed(t *testing.T) {
	for _, raw := range []string{
		"cmd1a2b3_1_1",
		"CMD1A2B3-1-1",
		"CMD1A2B3_1",
		"CMD1A2B_1_1",
		"CMD1A2B34_1_1",
		"ABC1A2B3_1_1",
		"CMD1A2B3_0_1",
		"CMD1A2B3_1_0",
		"CMD1A2B3_x_1",
		" CMD1A2B3_1_1",
		"CMD1A2B3_1_99999999999999999999999",
		"",
	} {
		_, err := ParseItemCode(raw)
		assert.ErrorIs(t, err, ErrInvalidItemCode, raw)
		assert.False(t, IsItemCode(raw), raw)
	}
}

func TestBuildItemCodeRoundTrip(t *testing.T) {
	raw := BuildItemCode("CMDQ7W2E", 3, 2)
	assert.Equal(t, "CMDQ7W2E_3_2", raw)

	code, err := ParseItemCode(raw)
	require.NoError(t, err)
	assert.Equal(t, "CMDQ7W2E", code.OrderNumber)
}

func TestIsOrderNumber(t *testing.T) {
	assert.True(t, IsOrderNumber("CMD1A2B3"))
	assert.False(t, IsOrderNumber("CMD1a2b3"))
	assert.False(t, IsOrderNumber("CMD1A2B3_1_1"))
}
