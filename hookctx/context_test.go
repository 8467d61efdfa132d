package hookctx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContext_SideChannel(t *testing.T) {
	c := New("pkg/a", "Process")

	assert.Equal(t, "pkg/a", c.PackageName())
	assert.Equal(t, "Process", c.FunctionName())

	_, ok := c.Get("start")
	assert.False(t, ok)

	c.Set("start", "t0")
	v, ok := c.Get("start")
	require.True(t, ok)
	assert.Equal(t, "t0", v)
}

func TestContext_PayloadAndSkip(t *testing.T) {
	c := New("pkg/a", "Process")

	assert.Nil(t, c.Payload())
	c.SetPayload(42)
	assert.Equal(t, 42, c.Payload())

	assert.False(t, c.Skipped())
	c.SkipOriginal()
	assert.True(t, c.Skipped())
}

func TestLookup_ExactTripleMatch(t *testing.T) {
	table := []Registration{
		{Package: "pkg/a", Function: "Process", BeforeName: "BeforeProcess", AfterName: "AfterProcess"},
		{Package: "pkg/a", Function: "Process", Receiver: "Worker", BeforeName: "BeforeProcess", AfterName: "AfterProcess"},
	}

	r, ok := Lookup(table, "pkg/a", "Process", "Worker")
	require.True(t, ok)
	assert.Equal(t, "Worker", r.Receiver)

	_, ok = Lookup(table, "pkg/a", "Process", "Other")
	assert.False(t, ok)
}
