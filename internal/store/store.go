// Package store implements the engine façade (spec.md §4.10): it owns the
// data root directory and a cache of open table handles keyed by
// "<keyspace>.<table>", and exposes keyspace/table lifecycle operations to
// the command layer. It is the nearest analogue to the teacher's
// internal/storage/manager package, generalized from a flat database
// directory to a two-level keyspace/table hierarchy with LSM tables
// underneath instead of a single meta.json.
package store

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/leengari/ksdb/internal/keyspace"
	"github.com/leengari/ksdb/internal/schema"
	"github.com/leengari/ksdb/internal/storeerr"
	"github.com/leengari/ksdb/internal/tableengine"
)

// Store is the engine façade: the data root plus a cache of open tables.
type Store struct {
	mu sync.Mutex

	dataDir  string
	settings tableengine.Settings
	open     map[string]*tableengine.Engine // key: "<keyspace>.<table>"
}

// New returns a façade rooted at dataDir, creating it if necessary.
func New(dataDir string, settings tableengine.Settings) (*Store, error) {
	const op = "store_new"
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, storeerr.Wrap(op, storeerr.KindWriteFailed, err)
	}
	return &Store{
		dataDir:  dataDir,
		settings: settings,
		open:     make(map[string]*tableengine.Engine),
	}, nil
}

func cacheKey(keyspaceName, table string) string { return keyspaceName + "." + table }

func (s *Store) keyspaceDir(keyspaceName string) string {
	return filepath.Join(s.dataDir, keyspaceName)
}

func (s *Store) schemaPath(keyspaceName string) string {
	return filepath.Join(s.keyspaceDir(keyspaceName), "schema.bin")
}

// CreateKeyspace creates the keyspace directory. Idempotent: creating an
// already-existing keyspace is not an error (mkdir -p semantics).
func (s *Store) CreateKeyspace(keyspaceName string) error {
	const op = "create_keyspace"
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.keyspaceDir(keyspaceName), 0o755); err != nil {
		return storeerr.Wrap(op, storeerr.KindWriteFailed, err)
	}
	return nil
}

// CreateTable allocates a new table UUID, registers it in the keyspace's
// schema.bin, creates its on-disk files, recovers it, and caches the handle.
// If the table already exists: ifNotExists=false reports table_exists;
// ifNotExists=true is a no-op when sch matches the stored schema, and
// reports schema_mismatch otherwise.
func (s *Store) CreateTable(keyspaceName, table string, sch *schema.Schema, ifNotExists bool) (string, error) {
	const op = "create_table"
	s.mu.Lock()
	defer s.mu.Unlock()

	schemaPath := s.schemaPath(keyspaceName)
	if _, found := keyspace.FindTableUUIDFromSchema(schemaPath, table); found {
		if !ifNotExists {
			return "", storeerr.New(op, storeerr.KindTableExists)
		}
		engine, err := s.openTableLocked(op, keyspaceName, table)
		if err != nil {
			return "", err
		}
		if !sch.Equal(engine.Schema()) {
			return "", storeerr.New(op, storeerr.KindSchemaMismatch)
		}
		return engine.Dir(), nil
	}

	rawUUID := uuid.New()
	tableUUID := hex.EncodeToString(rawUUID[:])
	if err := keyspace.UpsertTableUUID(schemaPath, table, tableUUID); err != nil {
		return "", err
	}

	dir := filepath.Join(s.keyspaceDir(keyspaceName), table+"-"+tableUUID)
	engine, err := tableengine.CreateNewFiles(dir, tableUUID, keyspaceName, table, sch, s.settings)
	if err != nil {
		return "", err
	}
	if err := engine.Recover(); err != nil {
		return "", err
	}

	s.open[cacheKey(keyspaceName, table)] = engine
	return dir, nil
}

// OpenTable returns the cached handle for keyspace.table, opening and
// recovering it from disk (via the registry, falling back to a directory
// scan) if it is not already cached.
func (s *Store) OpenTable(keyspaceName, table string) (*tableengine.Engine, error) {
	const op = "open_table"
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openTableLocked(op, keyspaceName, table)
}

func (s *Store) openTableLocked(op, keyspaceName, table string) (*tableengine.Engine, error) {
	key := cacheKey(keyspaceName, table)
	if engine, ok := s.open[key]; ok {
		return engine, nil
	}

	dir, err := s.locateTableDirLocked(keyspaceName, table)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return nil, storeerr.New(op, storeerr.KindTableNotFound)
	}

	engine, err := tableengine.OpenExistingFiles(dir, s.settings)
	if err != nil {
		return nil, err
	}
	if err := engine.Recover(); err != nil {
		return nil, err
	}

	s.open[key] = engine
	return engine, nil
}

// locateTableDirLocked resolves table's directory: the registry first, then
// a directory-scan fallback that re-registers the UUID it finds. Returns ""
// if neither source has the table.
func (s *Store) locateTableDirLocked(keyspaceName, table string) (string, error) {
	schemaPath := s.schemaPath(keyspaceName)
	if tableUUID, found := keyspace.FindTableUUIDFromSchema(schemaPath, table); found {
		return filepath.Join(s.keyspaceDir(keyspaceName), table+"-"+tableUUID), nil
	}

	tableUUID, found := keyspace.FindTableUUIDByScan(s.keyspaceDir(keyspaceName), table)
	if !found {
		return "", nil
	}
	if err := keyspace.UpsertTableUUID(schemaPath, table, tableUUID); err != nil {
		return "", err
	}
	return filepath.Join(s.keyspaceDir(keyspaceName), table+"-"+tableUUID), nil
}

// DropTable evicts and shuts down table's cached handle, removes it from
// the registry, and deletes its directory. ifExists suppresses
// table_not_found when the table does not exist.
func (s *Store) DropTable(keyspaceName, table string, ifExists bool) error {
	const op = "drop_table"
	s.mu.Lock()
	defer s.mu.Unlock()

	key := cacheKey(keyspaceName, table)
	dir := ""
	if engine, ok := s.open[key]; ok {
		dir = engine.Dir()
		_ = engine.Shutdown()
		delete(s.open, key)
	} else {
		var err error
		dir, err = s.locateTableDirLocked(keyspaceName, table)
		if err != nil {
			return err
		}
	}

	schemaPath := s.schemaPath(keyspaceName)
	existed, err := keyspace.RemoveTableFromSchema(schemaPath, table)
	if err != nil {
		return err
	}
	if dir == "" && !existed {
		if ifExists {
			return nil
		}
		return storeerr.New(op, storeerr.KindTableNotFound)
	}

	if dir == "" {
		return nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return storeerr.Wrap(op, storeerr.KindWriteFailed, err)
	}
	return nil
}

// DropKeyspace shuts down and evicts every cached table in keyspaceName and
// removes the keyspace directory. ifExists suppresses keyspace_not_found.
func (s *Store) DropKeyspace(keyspaceName string, ifExists bool) error {
	const op = "drop_keyspace"
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.keyspaceDir(keyspaceName)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if ifExists {
			return nil
		}
		return storeerr.New(op, storeerr.KindKeyspaceNotFound)
	}

	prefix := keyspaceName + "."
	for key, engine := range s.open {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			_ = engine.Shutdown()
			delete(s.open, key)
		}
	}

	if err := os.RemoveAll(dir); err != nil {
		return storeerr.Wrap(op, storeerr.KindWriteFailed, err)
	}
	return nil
}

// TruncateTable opens keyspaceName.table (if needed) and truncates it.
func (s *Store) TruncateTable(keyspaceName, table string) error {
	const op = "truncate_table"
	s.mu.Lock()
	engine, err := s.openTableLocked(op, keyspaceName, table)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return engine.Truncate()
}

// ListKeyspaces returns the sorted list of keyspace directories.
func (s *Store) ListKeyspaces() []string {
	return keyspace.ListKeyspaces(s.dataDir)
}

// ListTables returns the sorted, deduplicated list of table names in
// keyspaceName.
func (s *Store) ListTables(keyspaceName string) []string {
	return keyspace.ListTables(s.dataDir, keyspaceName)
}

// Shutdown closes every cached table handle. Intended for server shutdown.
func (s *Store) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, engine := range s.open {
		_ = engine.Shutdown()
		delete(s.open, key)
	}
}
