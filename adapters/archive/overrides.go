package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"hostcost/core/override"
	"hostcost/core/types"
	"hostcost/internal/errors"
	"hostcost/internal/logging"
)

// OverrideVault persists override collections as one JSON file per
// scope and provider. Unlike snapshots, override files are rewritten
// on every flush; the override store is the source of truth.
type OverrideVault struct {
	mu  sync.Mutex
	dir string
	log *zap.Logger
}

// NewOverrideVault opens a vault rooted at dir, creating it if needed
func NewOverrideVault(dir string) (*OverrideVault, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Storage("creating override vault directory", err)
	}
	return &OverrideVault{
		dir: dir,
		log: logging.Named("override-vault"),
	}, nil
}

// Flush writes every collection in the store to disk and removes files
// for collections that no longer exist
func (v *OverrideVault) Flush(store *override.Store) error {
	if store == nil {
		return errors.Validation("override store required")
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	grouped := make(map[string][]*override.Override)
	for _, o := range store.All() {
		name := collectionFileName(o.Scope, o.Provider)
		grouped[name] = append(grouped[name], o)
	}

	names := make([]string, 0, len(grouped))
	for name := range grouped {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		data, err := json.MarshalIndent(grouped[name], "", "  ")
		if err != nil {
			return errors.Storage("serializing overrides", err)
		}
		path := filepath.Join(v.dir, name)
		tempPath := path + ".tmp"
		if err := os.WriteFile(tempPath, data, 0644); err != nil {
			return errors.Storage("writing override file", err)
		}
		if err := os.Rename(tempPath, path); err != nil {
			return errors.Storage("replacing override file", err)
		}
	}

	// Drop files for collections emptied since the last flush
	existing, err := filepath.Glob(filepath.Join(v.dir, "*.json"))
	if err != nil {
		return errors.Storage("listing override files", err)
	}
	for _, path := range existing {
		name := filepath.Base(path)
		if _, keep := grouped[name]; !keep {
			if err := os.Remove(path); err != nil {
				return errors.Storage("removing stale override file", err)
			}
			v.log.Debug("Removed stale override file", zap.String("file", name))
		}
	}

	v.log.Debug("Flushed overrides", zap.Int("collections", len(grouped)))
	return nil
}

// Load reads every override file in the vault into the store,
// replacing its contents
func (v *OverrideVault) Load(store *override.Store) error {
	if store == nil {
		return errors.Validation("override store required")
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	paths, err := filepath.Glob(filepath.Join(v.dir, "*.json"))
	if err != nil {
		return errors.Storage("listing override files", err)
	}
	sort.Strings(paths)

	var records []*override.Override
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.Storage("reading override file", err)
		}
		var collection []*override.Override
		if err := json.Unmarshal(data, &collection); err != nil {
			return errors.Parsing(fmt.Sprintf("decoding override file %s", filepath.Base(path)), err)
		}
		records = append(records, collection...)
	}

	if err := store.Load(records); err != nil {
		return err
	}
	v.log.Debug("Loaded overrides", zap.Int("count", len(records)))
	return nil
}

func collectionFileName(scope override.Scope, provider types.Provider) string {
	if scope == override.ScopeGlobal {
		return "global.json"
	}
	return fmt.Sprintf("%s-%s.json", scope, strings.ToLower(provider.String()))
}
