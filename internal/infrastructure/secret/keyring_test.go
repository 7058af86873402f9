package secret

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestKeyringStoreCreatesKeyOnce(t *testing.T) {
	keyring.MockInit()
	store := NewKeyringStore()

	first, err := store.GetOrCreateKey()
	require.NoError(t, err)
	assert.Len(t, first, AESKeySize)

	second, err := store.GetOrCreateKey()
	require.NoError(t, err)
	assert.Equal(t, first, second, "key is created lazily once and then reused")
}
