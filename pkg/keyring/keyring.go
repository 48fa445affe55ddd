// Package keyring stores betting-site API keys in a local Badger
// database, encrypted at rest when a master key is provided.
// Encryption comes from Badger's options (value log + key registry),
// not from this wrapper.
package keyring

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
)

const apiKeyPrefix = "apikey/"

type Keyring struct {
	db *badger.DB
}

type OpenOptions struct {
	Path      string
	MasterKey []byte // 32 bytes; nil opens the DB unencrypted
	ReadOnly  bool
}

func Open(opts OpenOptions) (*Keyring, error) {
	if strings.TrimSpace(opts.Path) == "" {
		return nil, errors.New("keyring: path is required")
	}
	bopts := badger.DefaultOptions(opts.Path).
		WithLogger(nil).
		WithReadOnly(opts.ReadOnly)
	if len(opts.MasterKey) > 0 {
		// Badger requires an index cache for encrypted workloads.
		bopts = bopts.
			WithEncryptionKey(opts.MasterKey).
			WithIndexCacheSize(100 << 20)
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, err
	}
	return &Keyring{db: db}, nil
}

func (k *Keyring) Close() error {
	if k == nil || k.db == nil {
		return nil
	}
	return k.db.Close()
}

// APIKey returns the stored key for a site. The second return reports
// whether the site was present at all.
func (k *Keyring) APIKey(site string) (string, bool, error) {
	if k == nil || k.db == nil {
		return "", false, errors.New("keyring: not opened")
	}
	site = strings.ToLower(strings.TrimSpace(site))
	if site == "" {
		return "", false, errors.New("keyring: site is empty")
	}

	var (
		out   string
		found bool
	)
	err := k.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(apiKeyPrefix + site))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			out = string(val)
			return nil
		})
	})
	if err != nil {
		return "", false, err
	}
	return out, found, nil
}

func (k *Keyring) SetAPIKey(site, apiKey string) error {
	if k == nil || k.db == nil {
		return errors.New("keyring: not opened")
	}
	site = strings.ToLower(strings.TrimSpace(site))
	if site == "" {
		return errors.New("keyring: site is empty")
	}
	if strings.TrimSpace(apiKey) == "" {
		return errors.New("keyring: api key is empty")
	}
	return k.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(apiKeyPrefix+site), []byte(apiKey))
	})
}

// Sites lists every site that has a stored API key.
func (k *Keyring) Sites() ([]string, error) {
	if k == nil || k.db == nil {
		return nil, errors.New("keyring: not opened")
	}
	var sites []string
	err := k.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(apiKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key := string(it.Item().Key())
			sites = append(sites, strings.TrimPrefix(key, apiKeyPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sites, nil
}

// ParseMasterKey accepts 32 bytes as hex (with or without 0x) or
// base64. Empty input means no encryption and returns nil.
func ParseMasterKey(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	rawHex := strings.TrimPrefix(raw, "0x")
	if b, err := hex.DecodeString(rawHex); err == nil {
		if len(b) == 32 {
			return b, nil
		}
		return nil, fmt.Errorf("decoded key length must be 32, got %d", len(b))
	}
	if b, err := base64.StdEncoding.DecodeString(raw); err == nil {
		if len(b) != 32 {
			return nil, fmt.Errorf("decoded key length must be 32, got %d", len(b))
		}
		return b, nil
	}
	return nil, errors.New("master key must be base64(32 bytes) or hex(32 bytes)")
}
