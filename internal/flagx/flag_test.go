package flagx

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		allowedFlags []string
		want         []string
	}{
		{
			name:         "short flag with separate value",
			args:         []string{"-c", "conf.json", "-a", "https://api.local"},
			allowedFlags: []string{"-c", "-config"},
			want:         []string{"-c", "conf.json"},
		},
		{
			name:         "combined form",
			args:         []string{"-p=4", "-a", "https://api.local"},
			allowedFlags: []string{"-p"},
			want:         []string{"-p=4"},
		},
		{
			name:         "unknown flags ignored",
			args:         []string{"-x", "1", "--y=2", "positional"},
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
		{
			name:         "flag without value at end is kept as-is",
			args:         []string{"-c"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c"},
		},
		{
			name:         "dash-prefixed token is not a value",
			args:         []string{"-c", "-config=alt.json"},
			allowedFlags: []string{"-c", "-config"},
			want:         []string{"-c", "-config=alt.json"},
		},
		{
			name:         "several allowed flags keep order",
			args:         []string{"-a", "https://api.local", "-p", "3", "--other", "x", "-u", "16"},
			allowedFlags: []string{"-a", "-p", "-u"},
			want:         []string{"-a", "https://api.local", "-p", "3", "-u", "16"},
		},
		{
			name:         "empty args",
			args:         []string{},
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterArgs(tt.args, tt.allowedFlags)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("FilterArgs() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestConfigPath(t *testing.T) {
	assert.Equal(t, "/path/short.json", ConfigPath([]string{"-c", "/path/short.json"}))
	assert.Equal(t, "/path/long.json", ConfigPath([]string{"-p", "2", "-config", "/path/long.json"}))
	assert.Empty(t, ConfigPath([]string{"-x", "1", "-y", "2"}))
	assert.Equal(t, "/path/2.json", ConfigPath([]string{"-c", "/path/1.json", "-config", "/path/2.json"}))
}

func TestSplitKeyValues(t *testing.T) {
	pos, kv, err := SplitKeyValues([]string{"cards/", "game=Pokemon", "set = Base Set ", "a.jpg", "game=Magic"})
	require.NoError(t, err)

	assert.Equal(t, []string{"cards/", "a.jpg"}, pos)
	assert.Equal(t, map[string]string{"game": "Magic", "set": "Base Set"}, kv)
}

func TestSplitKeyValues_DashTokensArePositional(t *testing.T) {
	pos, kv, err := SplitKeyValues([]string{"-p=2", "x.zip"})
	require.NoError(t, err)

	assert.Equal(t, []string{"-p=2", "x.zip"}, pos)
	assert.Empty(t, kv)
}

func TestSplitKeyValues_EmptyKey(t *testing.T) {
	_, _, err := SplitKeyValues([]string{"=oops"})
	require.ErrorIs(t, err, ErrEmptyKey)
}
