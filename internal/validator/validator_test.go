package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	ID     string `json:"id" validate:"required,uuid"`
	Name   string `json:"new_name" validate:"required,max=5"`
	Offset string `mapstructure:"utc_offset" validate:"utcoffset"`
	Target string `mapstructure:"server_uri" validate:"wsurl"`
}

func TestStruct(t *testing.T) {
	v := New()

	require.NoError(t, v.Struct(sample{
		ID:     "0b5f4f49-4f7e-4bd0-9d38-2b0ac0a3e6f1",
		Name:   "nas",
		Offset: "+08:00",
		Target: "ws://localhost:3030/expose",
	}))

	err := v.Struct(sample{ID: "nope", Name: "too-long", Offset: "8", Target: "http://x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id must be a valid UUID")
	assert.Contains(t, err.Error(), "new_name must be at most 5")
	assert.Contains(t, err.Error(), "utc_offset must be a UTC offset")
	assert.Contains(t, err.Error(), "server_uri must be a ws:// or wss:// URL")
}

func TestVar(t *testing.T) {
	v := New()
	assert.NoError(t, v.Var("-05:30", "utcoffset"))
	assert.Error(t, v.Var("+25:00", "utcoffset"))
	assert.NoError(t, v.Var("wss://example.com/expose", "wsurl"))
	assert.Error(t, v.Var("wss://", "wsurl"))
}
