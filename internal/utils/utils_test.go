package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsVirtualInterface(t *testing.T) {
	assert.True(t, IsVirtualInterface("docker0"))
	assert.True(t, IsVirtualInterface("veth12ab"))
	assert.False(t, IsVirtualInterface("eth0"))
	assert.False(t, IsVirtualInterface("en0"))
}

func TestMatchesAny(t *testing.T) {
	patterns := []string{"lo*", "br-*", "[invalid"}
	assert.True(t, MatchesAny("lo", patterns))
	assert.True(t, MatchesAny("br-1234", patterns))
	assert.False(t, MatchesAny("eth0", patterns))
	assert.False(t, MatchesAny("eth0", nil))
}

func TestConvertPlaceholders(t *testing.T) {
	q := "UPDATE clients SET last_fetch_time = ? WHERE id IN (?,?)"
	converted := ConvertPlaceholders(q)
	assert.Equal(t, "UPDATE clients SET last_fetch_time = $1 WHERE id IN ($2,$3)", converted)
	assert.Equal(t, q, ConvertPlaceholders(converted, true))
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", Placeholders(0))
	assert.Equal(t, "?", Placeholders(1))
	assert.Equal(t, "?,?,?", Placeholders(3))
}
