package keystore

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"fmt"

	"github.com/dmitrijs2005/shareify/internal/cryptox"
)

type rsaHandle struct {
	priv *rsa.PrivateKey
}

func (h *rsaHandle) Public() *rsa.PublicKey { return &h.priv.PublicKey }

func (h *rsaHandle) Decrypt(ciphertext []byte) ([]byte, error) {
	return cryptox.DecryptOAEP(h.priv, ciphertext)
}

var _ cryptox.KeyHandle = (*rsaHandle)(nil)

func generate(bits int) (*rsa.PrivateKey, []byte, error) {
	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, nil, fmt.Errorf("generate rsa key: %w", err)
	}
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal private key: %w", err)
	}
	return priv, der, nil
}

func parse(der []byte) (*rsa.PrivateKey, error) {
	k, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	priv, ok := k.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: stored key is not RSA", cryptox.ErrInvalidKey)
	}
	return priv, nil
}
