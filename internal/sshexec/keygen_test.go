package sshexec

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

func TestGenerateKeyPair(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	signer, err := ssh.ParsePrivateKey([]byte(kp.PrivatePEM))
	require.NoError(t, err, "private key must parse as an SSH key")
	assert.Equal(t, "ssh-ed25519", signer.PublicKey().Type())

	assert.True(t, strings.HasPrefix(kp.PublicKey, "ssh-ed25519 "),
		"public key must be an authorized_keys line")

	pub, _, _, _, err := ssh.ParseAuthorizedKey([]byte(kp.PublicKey))
	require.NoError(t, err)
	assert.Equal(t, signer.PublicKey().Marshal(), pub.Marshal(),
		"public half must match the private key")
}

func TestGenerateKeyPair_Unique(t *testing.T) {
	a, err := GenerateKeyPair()
	require.NoError(t, err)
	b, err := GenerateKeyPair()
	require.NoError(t, err)
	assert.NotEqual(t, a.PublicKey, b.PublicKey)
}

func TestGenerateToken(t *testing.T) {
	token, err := GenerateToken()
	require.NoError(t, err)
	assert.Len(t, token, 64)

	_, err = hex.DecodeString(token)
	assert.NoError(t, err)

	other, err := GenerateToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}
