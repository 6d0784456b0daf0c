package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/auto-marketplace/cmd/amc/cmd"
)

func TestGenerate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format string
		files  []string
	}{
		{format: "md", files: []string{"amc.md", "amc_listings_list.md", "amc_favorites_toggle.md"}},
		{format: "man", files: []string{"amc.1", "amc-listings-list.1", "amc-favorites-toggle.1"}},
		{format: "openapi", files: []string{"openapi.json", "openapi.yaml"}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			require.NoError(t, generate(cmd.Root(), dir, tt.format))
			for _, f := range tt.files {
				_, err := os.Stat(filepath.Join(dir, f))
				assert.NoError(t, err, f)
			}
		})
	}
}

func TestGenerate_UnknownFormat(t *testing.T) {
	t.Parallel()

	err := generate(cmd.Root(), t.TempDir(), "html")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}
