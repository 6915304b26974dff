package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHash40(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want Key
	}{
		{"sound/bank/fighter/se_mario.nus3audio", 0x25d35afc69},
		{"foo:bar.nus3audio", 0x111e60cf8b},
		{"stream:/sound/bgm/bgm_crs2_01.nus3audio", 0x27535da71a},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Hash40(tt.path))
			assert.Equal(t, Hash40(tt.path), Hash40(tt.path))
		})
	}
}

func TestLogicalPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "foo:bar.nus3audio", LogicalPath("foo;bar.nus3audio"))
	assert.Equal(t, "stream:/sound/bgm/x.nus3audio", LogicalPath("stream;/sound/bgm/x.nus3audio"))
	assert.Equal(t, "plain/path.nus3audio", LogicalPath("plain/path.nus3audio"))
	assert.Equal(t, Hash40("foo:bar.nus3audio"), KeyForPath("foo;bar.nus3audio"))
}

func TestParseKey(t *testing.T) {
	t.Parallel()

	k := Hash40("sound/bank/fighter/se_mario.nus3audio")
	assert.Equal(t, "0x25d35afc69", k.String())

	for _, s := range []string{"0x25d35afc69", "25d35afc69", "0X25D35AFC69"} {
		got, err := ParseKey(s)
		require.NoError(t, err, s)
		assert.Equal(t, k, got, s)
	}

	_, err := ParseKey("not-hex")
	assert.Error(t, err)
}

func TestNormalizeLogicalPath(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"leading slash", "/sound/bank", "sound/bank"},
		{"trailing slash", "sound/bank/", "sound/bank"},
		{"empty string", "", "."},
		{"root slash", "/", "."},
		{"only slashes", "///", "."},
		{"simple", "se.nus3audio", "se.nus3audio"},
		{"internal double slashes", "sound//bank///se.nus3audio", "sound/bank/se.nus3audio"},
		{"stream prefix", "/stream:/sound/bgm/x.nus3audio", "stream:/sound/bgm/x.nus3audio"},
		{"dotdot preserved", "//a//..//b//", "a/../b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeLogicalPath(tt.input))
		})
	}
}
