package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dcrandall/hetrt/internal/platform"
)

func TestDeviceIdRoundTrip(t *testing.T) {
	cases := []struct {
		tag   platform.Tag
		index int
	}{
		{platform.TagHost, 0},
		{platform.TagCUDA, 0},
		{platform.TagCUDA, 3},
		{platform.TagHSA, 7},
		{platform.TagOpenCL, 1 << 20},
	}

	for _, c := range cases {
		id := Encode(c.tag, c.index)
		gotTag, gotIndex := Decode(id)
		assert.Equal(t, c.tag, gotTag)
		assert.Equal(t, c.index, gotIndex)
	}
}

func TestDecodeUnknownTagIsStillTotal(t *testing.T) {
	id := Encode(platform.Tag(7), 0)
	tag, index := Decode(id)
	assert.Equal(t, platform.Tag(7), tag)
	assert.Equal(t, 0, index)
}
