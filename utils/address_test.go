package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsAddress(t *testing.T) {
	assert.True(t, IsAddress("0x55d398326f99059fF775485246999027B3197955"))
	assert.False(t, IsAddress("55d398326f99059fF775485246999027B3197955"))
	assert.False(t, IsAddress("0x55d398326f99059fF775485246999027B319795"))
	assert.False(t, IsAddress("0xZZd398326f99059fF775485246999027B3197955"))
	assert.False(t, IsAddress(""))
}

func TestIsTxHash(t *testing.T) {
	assert.True(t, IsTxHash("0x"+"ab"+"0000000000000000000000000000000000000000000000000000000000000000"[:62]))
	assert.False(t, IsTxHash("0x1234"))
}

func TestNormalizeAddress(t *testing.T) {
	assert.Equal(t, "0xabc", NormalizeAddress("  0xABC "))
}
