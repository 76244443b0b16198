package store

import (
	"time"

	"github.com/vmihailenco/msgpack/v4"
)

// legacyConfigKey is where older releases kept the wallet record.
const legacyConfigKey = "legacyWallet"

// LegacyRecord is the historical signature-derived wallet format.
//
// The secret is encrypted under a key derived directly from an assertion
// signature, with no independent random wallet key. It is read-only legacy
// input: records are migrated to the canonical format on first successful
// unlock and never written back.
type LegacyRecord struct {
	CredentialID    []byte `msgpack:"cid"`
	PublicKey       string `msgpack:"pub"`
	EncryptedSecret []byte `msgpack:"sec"`
	EncryptedPhrase []byte `msgpack:"phr,omitempty"`

	CreatedAt time.Time `msgpack:"cts"`
}

// LoadLegacy returns the legacy record, or nil if there is none or it is
// malformed.
func (s *Store) LoadLegacy() (*LegacyRecord, error) {
	b, err := s.getConfigBytes(legacyConfigKey)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, nil
	}
	var record LegacyRecord
	if err := msgpack.Unmarshal(b, &record); err != nil {
		logger.Infof("Malformed legacy record: %s", err)
		return nil, nil
	}
	if len(record.CredentialID) == 0 || len(record.EncryptedSecret) == 0 {
		logger.Infof("Malformed legacy record")
		return nil, nil
	}
	return &record, nil
}

// SaveLegacy writes a legacy record.
// Exists only to import records written by older releases (and for tests),
// new wallets are never saved in this format.
func (s *Store) SaveLegacy(record *LegacyRecord) error {
	b, err := msgpack.Marshal(record)
	if err != nil {
		return err
	}
	return s.setConfigBytes(legacyConfigKey, b)
}

// ClearLegacy removes the legacy record.
func (s *Store) ClearLegacy() error {
	return s.setConfigBytes(legacyConfigKey, nil)
}
