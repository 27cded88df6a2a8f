package middleware_test

import (
	"context"
	"crypto/rand"
	"io"
	"strings"
	"testing"

	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/persistence/middleware"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		t.Fatal(err)
	}
	return k
}

func secretDocument(text string) *schema.Document {
	zero := 0
	return &schema.Document{
		Version: schema.CurrentVersion,
		Name:    "vault",
		Records: map[int]*schema.Record{
			0: {ID: 0, ChildIDs: []int{1}, Data: &schema.RecordData{Type: domain.NodeTypeLine, Text: "The guard leans closer."}},
			1: {ID: 1, ParentID: &zero, Data: &schema.RecordData{Type: domain.NodeTypeLine, Speaker: "guard", Text: text}},
		},
	}
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)
	ports.RunTreeStoreContract(t, mw(memory.NewStore()))
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlying := memory.NewStore()
	mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)
	secure := mw(underlying)
	ctx := context.Background()

	require.NoError(t, secure.Save(ctx, "vault", secretDocument("The password is swordfish.")))

	stored, err := underlying.Load(ctx, "vault")
	require.NoError(t, err)
	require.Len(t, stored.Records, 1, "the backend only sees the envelope")
	assert.Equal(t, "vault", stored.Name)
	assert.NotContains(t, stored.Records[0].Data.Text, "swordfish")
	_, err = schema.Import(stored)
	assert.NoError(t, err, "an envelope is itself a valid document")

	loaded, err := secure.Load(ctx, "vault")
	require.NoError(t, err)
	require.Len(t, loaded.Records, 2)
	assert.Equal(t, "The password is swordfish.", loaded.Records[1].Data.Text)
	assert.Equal(t, "guard", loaded.Records[1].Data.Speaker)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlying := memory.NewStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)
	ctx := context.Background()

	mwOld, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: oldKey})
	require.NoError(t, err)
	oldStore := mwOld(underlying)
	require.NoError(t, oldStore.Save(ctx, "vault", secretDocument("old secret")))

	mwNew, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})
	require.NoError(t, err)
	newStore := mwNew(underlying)

	loaded, err := newStore.Load(ctx, "vault")
	require.NoError(t, err, "fallback key decrypts data written before rotation")
	assert.Equal(t, "old secret", loaded.Records[1].Data.Text)

	loaded.Records[1].Data.Text = "new secret"
	require.NoError(t, newStore.Save(ctx, "vault", loaded))

	_, err = oldStore.Load(ctx, "vault")
	assert.Error(t, err, "old key alone cannot read data written with the new key")
}

func TestEncryptionMiddleware_RejectsPlainTree(t *testing.T) {
	underlying := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, underlying.Save(ctx, "vault", secretDocument("in the clear")))

	mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)

	_, err = mw(underlying).Load(ctx, "vault")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	assert.Error(t, err)

	_, err = middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    generateKey(t),
		FallbackKeys: [][]byte{[]byte("short")},
	})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "fallback key 0"))
}
