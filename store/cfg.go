package store

import (
	"database/sql"

	"github.com/keys-pub/keys/encoding"
	"github.com/pkg/errors"
)

func (s *Store) setConfig(key string, value string) error {
	if _, err := s.db.Exec("INSERT OR REPLACE INTO config (key, value) VALUES ($1, $2)", key, value); err != nil {
		return errors.Wrapf(err, "failed to set config")
	}
	return nil
}

func (s *Store) getConfig(key string) (string, error) {
	var value string
	if err := s.db.Get(&value, "SELECT value FROM config WHERE key=$1", key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", errors.Wrapf(err, "failed to get config")
	}
	return value, nil
}

func (s *Store) setConfigBytes(key string, b []byte) error {
	if len(b) == 0 {
		return s.setConfig(key, "")
	}
	return s.setConfig(key, encoding.MustEncode(b, encoding.Base64))
}

func (s *Store) getConfigBytes(key string) ([]byte, error) {
	v, err := s.getConfig(key)
	if err != nil {
		return nil, err
	}
	if len(v) == 0 {
		return nil, nil
	}
	b, err := encoding.DecodeBase64(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}
