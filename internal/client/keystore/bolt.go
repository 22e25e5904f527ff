package keystore

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/dmitrijs2005/shareify/internal/cryptox"
)

var bucketKeys = []byte("rsa_keys")

// BoltKeyStore keeps key pairs in a bbolt database file.
type BoltKeyStore struct {
	db *bbolt.DB
}

// OpenBolt opens (creating if needed) the key database at path.
func OpenBolt(path string) (*BoltKeyStore, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open keystore: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketKeys)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create keys bucket: %w", err)
	}

	return &BoltKeyStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltKeyStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *BoltKeyStore) Load(ctx context.Context, alias string) (cryptox.KeyHandle, error) {
	var der []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketKeys).Get([]byte(alias))
		if v == nil {
			return cryptox.ErrKeyNotFound
		}
		// v is only valid inside the transaction
		der = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	priv, err := parse(der)
	if err != nil {
		return nil, err
	}
	return &rsaHandle{priv: priv}, nil
}

// Generate creates a key pair under alias. If another process stored one in
// the meantime, the stored key wins and is returned instead.
func (s *BoltKeyStore) Generate(ctx context.Context, alias string, bits int) (cryptox.KeyHandle, error) {
	priv, der, err := generate(bits)
	if err != nil {
		return nil, err
	}

	var existing []byte
	err = s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketKeys)
		if v := b.Get([]byte(alias)); v != nil {
			existing = append([]byte(nil), v...)
			return nil
		}
		return b.Put([]byte(alias), der)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store key: %w", err)
	}

	if existing != nil {
		priv, err = parse(existing)
		if err != nil {
			return nil, err
		}
	}
	return &rsaHandle{priv: priv}, nil
}

var _ cryptox.KeyStore = (*BoltKeyStore)(nil)
