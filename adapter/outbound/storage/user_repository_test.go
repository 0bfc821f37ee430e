package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/igorofyeshuasete/authgate/adapter/outbound/crypto"
	"github.com/igorofyeshuasete/authgate/domain/model"
	"github.com/igorofyeshuasete/authgate/domain/port/outbound"
)

type fixedMachineID struct{}

func (fixedMachineID) GetMachineID() (string, error) { return "test-machine-id", nil }

func newTestRepo(t *testing.T, path string) outbound.UserRepository {
	t.Helper()
	cryptoSvc := crypto.NewArgon2CryptoService(crypto.Argon2Params{Time: 1, MemoryKB: 64, Parallelism: 1})
	repo, err := NewSecureUserRepository(path, cryptoSvc, fixedMachineID{}, nopLogger{})
	require.NoError(t, err)
	return repo
}

func testDatabase(n int) *model.UserDatabase {
	db := &model.UserDatabase{Users: make(map[string]*model.User)}
	created := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	names := []string{"admin", "alice", "bob", "carol", "dave"}
	for i := 0; i < n && i < len(names); i++ {
		role := model.RoleUser
		if i == 0 {
			role = model.RoleAdmin
		}
		db.Users[names[i]] = &model.User{
			ID:           int64(i + 1),
			Username:     names[i],
			PasswordHash: "argon2id$t=1,m=64,p=1$deadbeef",
			Salt:         [16]byte{byte(i)},
			Name:         names[i],
			Role:         role,
			CreatedAt:    created,
		}
	}
	return db
}

func TestSecureUserRepository_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	repo := newTestRepo(t, path)

	db := testDatabase(4)
	require.NoError(t, repo.Save(db))
	require.True(t, repo.Exists())

	loaded, err := repo.Load()
	require.NoError(t, err)
	require.Len(t, loaded.Users, 4)

	for key, want := range db.Users {
		got := loaded.Users[key]
		require.NotNil(t, got, "missing user %q", key)
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.Username, got.Username)
		assert.Equal(t, want.PasswordHash, got.PasswordHash)
		assert.Equal(t, want.Salt, got.Salt)
		assert.Equal(t, want.Name, got.Name)
		assert.Equal(t, want.Role, got.Role)
	}
}

func TestSecureUserRepository_LoadMissing(t *testing.T) {
	repo := newTestRepo(t, filepath.Join(t.TempDir(), "users.json"))

	_, err := repo.Load()
	assert.ErrorIs(t, err, model.ErrUserStoreNotFound)
	assert.False(t, repo.Exists())
}

func TestSecureUserRepository_LoadCorrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	repo := newTestRepo(t, path)

	require.NoError(t, os.WriteFile(path, []byte("not json at all"), 0600))

	_, err := repo.Load()
	assert.ErrorIs(t, err, model.ErrUserStoreCorrupted)
}

func TestSecureUserRepository_ChecksumMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	repo := newTestRepo(t, path)

	require.NoError(t, repo.Save(testDatabase(2)))

	// corrupt the encrypted payload inside the JSON envelope
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	tampered := replaceOnce(string(raw), `"data":"`, `"data":"AAAA`)
	require.NoError(t, os.WriteFile(path, []byte(tampered), 0600))

	_, err = repo.Load()
	assert.ErrorIs(t, err, model.ErrInvalidChecksum)
}

func TestSecureUserRepository_WrongMachineKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	repo := newTestRepo(t, path)
	require.NoError(t, repo.Save(testDatabase(1)))

	cryptoSvc := crypto.NewArgon2CryptoService(crypto.Argon2Params{Time: 1, MemoryKB: 64, Parallelism: 1})
	otherRepo, err := NewSecureUserRepository(path, cryptoSvc, otherMachineID{}, nopLogger{})
	require.NoError(t, err)

	_, err = otherRepo.Load()
	assert.ErrorIs(t, err, model.ErrUserStoreCorrupted)
}

type otherMachineID struct{}

func (otherMachineID) GetMachineID() (string, error) { return "other-machine", nil }

func TestSecureUserRepository_OverwritePreservesNothingStale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	repo := newTestRepo(t, path)

	require.NoError(t, repo.Save(testDatabase(3)))
	require.NoError(t, repo.Save(testDatabase(1)))

	loaded, err := repo.Load()
	require.NoError(t, err)
	assert.Len(t, loaded.Users, 1)

	// no backup or temp leftovers after a committed write
	_, err = os.Stat(path + ".bak")
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestSecureUserRepository_RecoversFromBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	repo := newTestRepo(t, path)

	require.NoError(t, repo.Save(testDatabase(2)))

	// simulate a crash between the two renames: only the backup remains
	require.NoError(t, os.Rename(path, path+".bak"))

	loaded, err := repo.Load()
	require.NoError(t, err)
	assert.Len(t, loaded.Users, 2)
}

func replaceOnce(s, old, new string) string {
	for i := 0; i+len(old) <= len(s); i++ {
		if s[i:i+len(old)] == old {
			return s[:i] + new + s[i+len(old):]
		}
	}
	return s
}
