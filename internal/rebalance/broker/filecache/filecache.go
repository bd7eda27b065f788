// Package filecache implements the persisted, adapter-local mapping caches
// named in spec §6 (robinhood_instruments.json, webull_tickers.json, ...):
// a simple key->string JSON dictionary under the user's cache directory.
// Corruption resets the cache to empty rather than failing the caller.
package filecache

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Store is a single adapter-private key->string JSON file.
type Store struct {
	path string
	log  zerolog.Logger
}

// Open opens (without yet reading) the named cache file under the app's
// cache directory (e.g. "robinhood_instruments.json").
func Open(appName, filename string, log zerolog.Logger) (*Store, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return nil, err
	}
	full := filepath.Join(dir, appName)
	if err := os.MkdirAll(full, 0o755); err != nil {
		return nil, err
	}
	return &Store{
		path: filepath.Join(full, filename),
		log:  log.With().Str("component", "filecache").Str("file", filename).Logger(),
	}, nil
}

// Load reads the cache file. On a missing file it returns an empty map; on
// a corrupt file it logs a warning and resets to an empty map rather than
// erroring, per spec §6 "corruption ⇒ reset to empty and refresh".
func (s *Store) Load() map[string]string {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return map[string]string{}
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		s.log.Warn().Err(err).Msg("cache file corrupt, resetting to empty")
		return map[string]string{}
	}
	if m == nil {
		m = map[string]string{}
	}
	return m
}

// Save writes the map back to the cache file.
func (s *Store) Save(m map[string]string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}
