package netutil_test

import (
	"testing"

	"github.com/fcchbjm/dnslisten/internal/netutil"
	"github.com/stretchr/testify/assert"
)

func TestV6Only_String(t *testing.T) {
	assert.Equal(t, "unset", netutil.V6OnlyUnset.String())
	assert.Equal(t, "enforce", netutil.V6OnlyEnforce.String())
	assert.Equal(t, "disable", netutil.V6OnlyDisable.String())
	assert.Equal(t, "invalid", netutil.V6Only(250).String())
}
