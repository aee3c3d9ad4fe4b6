package s3

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExportStoreValidates(t *testing.T) {
	_, err := NewExportStore(Config{Bucket: "exports"}, nil)
	assert.Error(t, err)

	_, err = NewExportStore(Config{Endpoint: "http://minio:9000"}, nil)
	assert.Error(t, err)

	_, err = NewExportStore(Config{Endpoint: "http://minio:9000", Bucket: "exports", PublicEndpoint: "::bad"}, nil)
	assert.Error(t, err)

	store, err := NewExportStore(Config{Endpoint: "http://minio:9000", PublicEndpoint: "https://files.example.com", Bucket: "exports"}, nil)
	require.NoError(t, err)
	assert.NotSame(t, store.client, store.presigner)
	assert.Equal(t, defaultLinkExpiry, store.linkExpiry)
}

func TestParseEndpoint(t *testing.T) {
	assert.Equal(t, "minio:9000", parseEndpoint("http://minio:9000"))
	assert.Equal(t, "minio:9000", parseEndpoint("minio:9000"))
}
