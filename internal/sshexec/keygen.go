package sshexec

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"encoding/pem"
	"fmt"

	"golang.org/x/crypto/ssh"
)

// KeyPair holds a freshly generated SSH keypair in the formats the
// provider (authorized_keys line) and the SSH client (PEM) expect.
type KeyPair struct {
	PrivatePEM string
	PublicKey  string
}

// GenerateKeyPair creates an ed25519 keypair for cluster node access.
func GenerateKeyPair() (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate keypair: %w", err)
	}

	pemBlock, err := ssh.MarshalPrivateKey(priv, "")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal private key: %w", err)
	}

	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("failed to convert public key: %w", err)
	}

	return &KeyPair{
		PrivatePEM: string(pem.EncodeToMemory(pemBlock)),
		PublicKey:  string(ssh.MarshalAuthorizedKey(sshPub)),
	}, nil
}

// GenerateToken returns a random hex token used as the k3s cluster
// join secret.
func GenerateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
