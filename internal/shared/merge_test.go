package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeString(t *testing.T) {
	assert.Equal(t, "current", MergeString("", "current"))
	assert.Equal(t, "current", MergeString("   ", "current"))
	assert.Equal(t, "new", MergeString("new", "current"))
	assert.Equal(t, "new", MergeString("  new  ", "current"))
}

func TestMergeBool(t *testing.T) {
	assert.True(t, MergeBool(nil, true))
	assert.False(t, MergeBool(nil, false))

	yes, no := true, false
	assert.True(t, MergeBool(&yes, false))
	assert.False(t, MergeBool(&no, true))
}
