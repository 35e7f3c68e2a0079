package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metrolog/internal/config"
	"metrolog/internal/shared/testutil"
)

func TestValidateKey(t *testing.T) {
	for _, key := range []string{"registry-20240312T080000.000Z.json", "a", "r_1-x.json"} {
		assert.NoError(t, ValidateKey(key), key)
	}
	for _, key := range []string{"", ".", "..", "../etc/passwd", "a/b", ".hidden", "a..b", "é.json"} {
		assert.Error(t, ValidateKey(key), key)
	}
}

func TestNewKey(t *testing.T) {
	at := time.Date(2024, 3, 12, 8, 30, 5, 0, time.FixedZone("CET", 3600))

	assert.Equal(t, "registry-20240312T073005.000Z.json", NewKey(at, ""))
	assert.Equal(t, "registry-20240312T073005.000Z-ligne_2cire.json", NewKey(at, " ligne 2/cire "))
	assert.NoError(t, ValidateKey(NewKey(at, "../../x")))
}

func TestOpen(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)

	store, err := Open(context.Background(), config.SnapshotConfig{Backend: "file", Dir: t.TempDir()}, logger)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, store)

	_, err = Open(context.Background(), config.SnapshotConfig{Backend: "s3"}, logger)
	assert.Error(t, err, "bucket is required")

	_, err = Open(context.Background(), config.SnapshotConfig{Backend: "ftp"}, logger)
	assert.Error(t, err)
}
