package confkit_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockpipe/pkg/confkit"
)

func TestResolvePath(t *testing.T) {
	t.Setenv("STOCKPIPE_ETC", "/opt/stockpipe/etc")

	tests := []struct {
		name string
		base string
		file string
		want string
	}{
		{name: "absolute", base: "/base", file: "/etc/source.yaml", want: "/etc/source.yaml"},
		{name: "relative", base: "/base", file: "source.yaml", want: "/base/source.yaml"},
		{name: "env absolute", base: "/base", file: "${STOCKPIPE_ETC}/source.yaml", want: "/opt/stockpipe/etc/source.yaml"},
		{name: "nested relative", base: "etc", file: "providers/source.yaml", want: filepath.Join("etc", "providers", "source.yaml")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, confkit.ResolvePath(tt.base, tt.file))
		})
	}
}

func TestSectionHydrate(t *testing.T) {
	t.Run("empty file skips loader", func(t *testing.T) {
		var section confkit.Section[string]
		err := section.Hydrate("/base", func(string) (*string, error) {
			t.Fatal("loader must not run")
			return nil, nil
		})
		require.NoError(t, err)
		assert.False(t, section.Configured())
	})

	t.Run("loads resolved path", func(t *testing.T) {
		section := confkit.Section[string]{File: "source.yaml"}
		value := "loaded"
		err := section.Hydrate("/base", func(p string) (*string, error) {
			assert.Equal(t, "/base/source.yaml", p)
			return &value, nil
		})
		require.NoError(t, err)
		assert.True(t, section.Configured())
		assert.Equal(t, "/base/source.yaml", section.File)
		assert.Equal(t, "loaded", *section.Value)
	})

	t.Run("loader error", func(t *testing.T) {
		section := confkit.Section[string]{File: "broken.yaml"}
		err := section.Hydrate("/base", func(string) (*string, error) {
			return nil, errors.New("boom")
		})
		require.EqualError(t, err, "boom")
		assert.Nil(t, section.Value)
	})
}

func TestProjectRootHasGoMod(t *testing.T) {
	root, err := confkit.ProjectRoot()
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, "go.mod"))
	assert.NoError(t, err)
}
