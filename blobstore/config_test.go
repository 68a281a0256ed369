package blobstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
backend: filesystem
root: /tmp/warehouse
cache_dir: /tmp/cache
throttle_bytes_per_second: 1048576
`))
	require.NoError(t, err)
	assert.Equal(t, BackendFilesystem, cfg.Backend)
	assert.Equal(t, "/tmp/warehouse", cfg.Root)
	assert.Equal(t, "/tmp/cache", cfg.CacheDir)
	assert.Equal(t, 1048576, cfg.ThrottleBytesPerSecond)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "missing backend",
			cfg:     Config{},
			wantErr: "backend is required",
		},
		{
			name:    "unknown backend",
			cfg:     Config{Backend: "tape"},
			wantErr: "unknown backend",
		},
		{
			name:    "filesystem without root",
			cfg:     Config{Backend: BackendFilesystem},
			wantErr: "requires root",
		},
		{
			name: "memory ok",
			cfg:  Config{Backend: BackendMemory},
		},
		{
			name:    "s3 without bucket",
			cfg:     Config{Backend: BackendS3},
			wantErr: "requires bucket",
		},
		{
			name:    "minio without endpoint",
			cfg:     Config{Backend: BackendMinIO, Bucket: "tables"},
			wantErr: "requires bucket and endpoint",
		},
		{
			name: "minio ok",
			cfg:  Config{Backend: BackendMinIO, Bucket: "tables", Endpoint: "localhost:9000"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: memory\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.Backend)
}

func TestOpenNativeBackends(t *testing.T) {
	ctx := context.Background()

	mem, err := Open(ctx, Config{Backend: BackendMemory})
	require.NoError(t, err)
	require.NoError(t, mem.Put(ctx, "x", []byte("1")))

	local, err := Open(ctx, Config{Backend: BackendFilesystem, Root: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, local.Put(ctx, "x", []byte("1")))
}

func TestOpenDriverBackendRejected(t *testing.T) {
	_, err := Open(context.Background(), Config{Backend: BackendS3, Bucket: "tables"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "driver package")
}

func TestDecorate(t *testing.T) {
	ctx := context.Background()
	store, err := Decorate(NewMemoryStore(), Config{
		Backend:                BackendMemory,
		CacheDir:               t.TempDir(),
		ThrottleBytesPerSecond: 1 << 20,
	})
	require.NoError(t, err)

	_, ok := store.(*ThrottledStore)
	assert.True(t, ok, "throttle is the outermost decorator")

	require.NoError(t, store.Put(ctx, "metadata/m1.avro", []byte("entries")))
	got, err := ReadAll(ctx, store, "metadata/m1.avro")
	require.NoError(t, err)
	assert.Equal(t, "entries", string(got))
}
