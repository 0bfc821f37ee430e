package storage

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/igorofyeshuasete/authgate/domain/model"
	"github.com/igorofyeshuasete/authgate/domain/port/outbound"
)

// EncryptedUserFile is the on-disk envelope of the user store.
type EncryptedUserFile struct {
	Version  uint32   `json:"version"`
	Nonce    []byte   `json:"nonce"`
	Data     []byte   `json:"data"`
	Checksum [32]byte `json:"checksum"`
}

// secureUserRepository keeps the user database encrypted at rest with a
// machine-bound key. Writes go to a temp file first and replace the live
// file by rename; the previous content survives as <path>.bak until the
// replacement is committed.
type secureUserRepository struct {
	filePath string
	crypto   outbound.CryptoService
	logger   outbound.Logger
	key      [32]byte
	mu       sync.Mutex
}

func NewSecureUserRepository(
	filePath string,
	crypto outbound.CryptoService,
	machineID outbound.MachineIDService,
	logger outbound.Logger,
) (outbound.UserRepository, error) {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create user store directory: %w", err)
	}

	id, err := machineID.GetMachineID()
	if err != nil {
		return nil, err
	}

	return &secureUserRepository{
		filePath: filePath,
		crypto:   crypto,
		logger:   logger,
		key:      crypto.DeriveKey(id),
	}, nil
}

func (r *secureUserRepository) backupPath() string { return r.filePath + ".bak" }
func (r *secureUserRepository) tempPath() string   { return r.filePath + ".tmp" }

func (r *secureUserRepository) Save(db *model.UserDatabase) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	jsonData, err := json.Marshal(db)
	if err != nil {
		return model.NewStorageError("save", r.filePath, err)
	}

	encrypted, nonce, err := r.crypto.Encrypt(jsonData, r.key)
	if err != nil {
		return model.NewStorageError("save", r.filePath, err)
	}

	fileData := EncryptedUserFile{
		Version:  1,
		Nonce:    nonce,
		Data:     encrypted,
		Checksum: sha256.Sum256(encrypted),
	}

	fileJSON, err := json.Marshal(fileData)
	if err != nil {
		return model.NewStorageError("save", r.filePath, err)
	}

	// full content goes to the temp file before the live file is touched
	if err := os.WriteFile(r.tempPath(), fileJSON, 0600); err != nil {
		os.Remove(r.tempPath())
		return model.NewStorageError("save", r.filePath, err)
	}

	hadPrevious := r.existsLocked()
	if hadPrevious {
		if err := os.Rename(r.filePath, r.backupPath()); err != nil {
			os.Remove(r.tempPath())
			return model.NewStorageError("save", r.filePath, err)
		}
	}

	if err := os.Rename(r.tempPath(), r.filePath); err != nil {
		os.Remove(r.tempPath())
		if hadPrevious {
			if restoreErr := os.Rename(r.backupPath(), r.filePath); restoreErr != nil {
				r.logger.Error("failed to restore user store backup", "path", r.backupPath(), "error", restoreErr)
			}
		}
		return model.NewStorageError("save", r.filePath, err)
	}

	if hadPrevious {
		os.Remove(r.backupPath())
	}

	r.logger.Debug("user store saved", "path", r.filePath, "user_count", len(db.Users))
	return nil
}

func (r *secureUserRepository) Load() (*model.UserDatabase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fileData, err := os.ReadFile(r.filePath)
	if os.IsNotExist(err) {
		// a crash between the two renames leaves only the backup behind
		fileData, err = os.ReadFile(r.backupPath())
		if err != nil {
			return nil, model.ErrUserStoreNotFound
		}
		r.logger.Warn("user store missing, recovering from backup", "path", r.backupPath())
	} else if err != nil {
		return nil, model.NewStorageError("load", r.filePath, err)
	}

	var encFile EncryptedUserFile
	if err := json.Unmarshal(fileData, &encFile); err != nil {
		return nil, model.ErrUserStoreCorrupted
	}

	if sha256.Sum256(encFile.Data) != encFile.Checksum {
		return nil, model.ErrInvalidChecksum
	}

	decrypted, err := r.crypto.Decrypt(encFile.Data, encFile.Nonce, r.key)
	if err != nil {
		return nil, model.ErrUserStoreCorrupted
	}

	var db model.UserDatabase
	if err := json.Unmarshal(decrypted, &db); err != nil {
		return nil, model.ErrUserStoreCorrupted
	}

	if db.Users == nil {
		db.Users = make(map[string]*model.User)
	}

	r.logger.Debug("user store loaded", "path", r.filePath, "user_count", len(db.Users))
	return &db, nil
}

func (r *secureUserRepository) Exists() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.existsLocked()
}

func (r *secureUserRepository) existsLocked() bool {
	_, err := os.Stat(r.filePath)
	return !os.IsNotExist(err)
}

func (r *secureUserRepository) Path() string { return r.filePath }
