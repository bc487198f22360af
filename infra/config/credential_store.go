package config

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/paybridge/paybridge/connector"
)

// CredentialRecord is the externally supplied credential set for one
// merchant/connector pair. It is serialized, encrypted and persisted as a
// single blob; the plaintext never touches disk or logs.
type CredentialRecord struct {
	AuthKind         connector.AuthKind           `json:"auth_kind"`
	APIKey           string                       `json:"api_key,omitempty"`
	Key1             string                       `json:"key1,omitempty"`
	APISecret        string                       `json:"api_secret,omitempty"`
	CurrencyKeys     map[string]map[string]string `json:"currency_keys,omitempty"`
	WebhookSecret    string                       `json:"webhook_secret,omitempty"`
	AdditionalSecret string                       `json:"additional_secret,omitempty"`
}

// AuthType converts the stored record into the tagged credential union.
func (r CredentialRecord) AuthType() connector.AuthType {
	switch r.AuthKind {
	case connector.AuthHeaderKey:
		return connector.NewHeaderKeyAuth(connector.Secret(r.APIKey))
	case connector.AuthBodyKey:
		return connector.NewBodyKeyAuth(connector.Secret(r.APIKey), connector.Secret(r.Key1))
	case connector.AuthSignatureKey:
		return connector.NewSignatureKeyAuth(connector.Secret(r.APIKey), connector.Secret(r.Key1), connector.Secret(r.APISecret))
	case connector.AuthCurrencyKey:
		keys := make(map[connector.Currency]connector.CredentialMap, len(r.CurrencyKeys))
		for currency, blob := range r.CurrencyKeys {
			creds := make(connector.CredentialMap, len(blob))
			for k, v := range blob {
				creds[k] = connector.Secret(v)
			}
			keys[connector.Currency(currency)] = creds
		}
		return connector.NewCurrencyAuth(keys)
	default:
		return connector.NoAuth()
	}
}

// CredentialStore handles persistent storage of merchant connector
// credentials in SQLite. Blobs are encrypted at rest with AES-GCM; the key is
// derived from the configured encryption passphrase.
type CredentialStore struct {
	db   *sql.DB
	path string
	aead cipher.AEAD
	mu   sync.Mutex
}

var _ connector.CredentialStore = (*CredentialStore)(nil)

// NewCredentialStore opens (or creates) the store at dbPath. The passphrase
// must not be empty; losing it makes every stored credential unreadable.
func NewCredentialStore(dbPath, passphrase string) (*CredentialStore, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("credential encryption key must be set")
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	// SQLite connection string with multi-process optimizations
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000&_timeout=20000&_txlock=immediate", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(0)

	key := sha256.Sum256([]byte(passphrase))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to build cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to build AEAD: %w", err)
	}

	store := &CredentialStore{
		db:   db,
		path: dbPath,
		aead: aead,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the necessary tables
func (s *CredentialStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS merchant_credentials (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		merchant_id TEXT NOT NULL,
		connector_name TEXT NOT NULL,
		credential_blob BLOB NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(merchant_id, connector_name)
	);

	CREATE INDEX IF NOT EXISTS idx_merchant_connector ON merchant_credentials(merchant_id, connector_name);
	`

	_, err := s.db.Exec(query)
	return err
}

// retryOperation executes a database operation with retry logic for SQLITE_BUSY errors
func (s *CredentialStore) retryOperation(operation func() error, maxRetries int) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}

		if strings.Contains(err.Error(), "SQLITE_BUSY") || strings.Contains(err.Error(), "database is locked") {
			lastErr = err
			if attempt < maxRetries {
				// Exponential backoff: 10ms, 20ms, 40ms, 80ms
				backoff := time.Duration(10*(1<<attempt)) * time.Millisecond
				log.Printf("SQLite busy, retrying in %v (attempt %d/%d)", backoff, attempt+1, maxRetries+1)
				time.Sleep(backoff)
				continue
			}
		} else {
			return err
		}
	}

	return fmt.Errorf("operation failed after %d retries, last error: %w", maxRetries+1, lastErr)
}

func (s *CredentialStore) encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (s *CredentialStore) decrypt(blob []byte) ([]byte, error) {
	if len(blob) < s.aead.NonceSize() {
		return nil, fmt.Errorf("credential blob too short")
	}
	nonce, ciphertext := blob[:s.aead.NonceSize()], blob[s.aead.NonceSize():]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt credential blob: %w", err)
	}
	return plaintext, nil
}

// Save stores (or replaces) the credentials for a merchant/connector pair.
func (s *CredentialStore) Save(merchantID, connectorName string, record CredentialRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	plaintext, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}
	blob, err := s.encrypt(plaintext)
	if err != nil {
		return err
	}

	return s.retryOperation(func() error {
		query := `
		INSERT INTO merchant_credentials (merchant_id, connector_name, credential_blob, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(merchant_id, connector_name)
		DO UPDATE SET
			credential_blob = excluded.credential_blob,
			updated_at = CURRENT_TIMESTAMP
		`

		if _, err := s.db.Exec(query, merchantID, connectorName, blob); err != nil {
			return fmt.Errorf("failed to save credentials: %w", err)
		}
		return nil
	}, 3)
}

// Load reads and decrypts the credentials for a merchant/connector pair.
func (s *CredentialStore) Load(merchantID, connectorName string) (CredentialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var record CredentialRecord
	err := s.retryOperation(func() error {
		query := `
		SELECT credential_blob
		FROM merchant_credentials
		WHERE merchant_id = ? AND connector_name = ?
		`

		var blob []byte
		err := s.db.QueryRow(query, merchantID, connectorName).Scan(&blob)
		if err != nil {
			if err == sql.ErrNoRows {
				return fmt.Errorf("no credentials found for merchant %s on %s", merchantID, connectorName)
			}
			return fmt.Errorf("failed to load credentials: %w", err)
		}

		plaintext, err := s.decrypt(blob)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(plaintext, &record); err != nil {
			return fmt.Errorf("failed to unmarshal credentials: %w", err)
		}
		return nil
	}, 3)

	return record, err
}

// Delete removes the credentials for a merchant/connector pair.
func (s *CredentialStore) Delete(merchantID, connectorName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.retryOperation(func() error {
		query := `
		DELETE FROM merchant_credentials
		WHERE merchant_id = ? AND connector_name = ?
		`

		result, err := s.db.Exec(query, merchantID, connectorName)
		if err != nil {
			return fmt.Errorf("failed to delete credentials: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return fmt.Errorf("no credentials found for merchant %s on %s", merchantID, connectorName)
		}
		return nil
	}, 3)
}

// ConnectorsFor returns the connector names a merchant has credentials for.
func (s *CredentialStore) ConnectorsFor(merchantID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
	SELECT connector_name
	FROM merchant_credentials
	WHERE merchant_id = ?
	ORDER BY connector_name
	`

	rows, err := s.db.Query(query, merchantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query merchant connectors: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan connector name: %w", err)
		}
		names = append(names, name)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return names, nil
}

// AuthFor resolves the call-scoped credential union and webhook secrets for
// one merchant/connector pair.
func (s *CredentialStore) AuthFor(_ context.Context, merchantID, connectorName string) (connector.AuthType, connector.WebhookSecrets, error) {
	record, err := s.Load(merchantID, connectorName)
	if err != nil {
		return connector.AuthType{}, connector.WebhookSecrets{}, err
	}
	secrets := connector.WebhookSecrets{
		Secret:           connector.Secret(record.WebhookSecret),
		AdditionalSecret: connector.Secret(record.AdditionalSecret),
	}
	return record.AuthType(), secrets, nil
}

// Ping verifies the database connection is alive.
func (s *CredentialStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Stats exposes the connection pool statistics for health reporting.
func (s *CredentialStore) Stats() sql.DBStats {
	return s.db.Stats()
}

// Close closes the database connection
func (s *CredentialStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
