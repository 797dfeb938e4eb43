package metadata

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/schoolgrid/schoolgrid-engine/pkg/apperrors"
)

//go:embed bundles/*.yaml
var bundleFS embed.FS

const commonBundle = "common.yaml"

// Store loads and caches the metadata bundles for the process lifetime.
// It is an explicitly constructed value injected into every pipeline
// component; it is read-only after Load and safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	loaded  bool
	common  *CommonMetadata
	domains map[string]*DomainMetadata
}

// NewStore creates an unloaded store. Load is called lazily by the
// accessors, so constructing a store is cheap.
func NewStore() *Store {
	return &Store{}
}

// Load parses the embedded bundles. Memoized; subsequent calls are
// no-ops until Reset. Fails if the common bundle is absent.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() error {
	if s.loaded {
		return nil
	}

	entries, err := bundleFS.ReadDir("bundles")
	if err != nil {
		return fmt.Errorf("read bundles: %w", err)
	}

	var common *CommonMetadata
	domains := make(map[string]*DomainMetadata)

	for _, entry := range entries {
		data, err := bundleFS.ReadFile(path.Join("bundles", entry.Name()))
		if err != nil {
			return fmt.Errorf("read bundle %s: %w", entry.Name(), err)
		}

		if entry.Name() == commonBundle {
			var c CommonMetadata
			if err := yaml.Unmarshal(data, &c); err != nil {
				return fmt.Errorf("parse %s: %w", entry.Name(), err)
			}
			common = &c
			continue
		}

		var d DomainMetadata
		if err := yaml.Unmarshal(data, &d); err != nil {
			return fmt.Errorf("parse %s: %w", entry.Name(), err)
		}
		d.Name = strings.TrimSuffix(entry.Name(), ".yaml")
		domains[d.Name] = &d
	}

	if common == nil {
		return apperrors.ErrMetadataMissing
	}

	s.common = common
	s.domains = domains
	s.loaded = true
	return nil
}

// Reset clears the cache so the next access reloads. Only used by tests.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = false
	s.common = nil
	s.domains = nil
}

// ensure loads lazily under a write lock when needed.
func (s *Store) ensure() error {
	s.mu.RLock()
	if s.loaded {
		s.mu.RUnlock()
		return nil
	}
	s.mu.RUnlock()
	return s.Load()
}

// Common returns the cross-domain bundle.
func (s *Store) Common() (*CommonMetadata, error) {
	if err := s.ensure(); err != nil {
		return nil, err
	}
	return s.common, nil
}

// Domain returns a domain bundle by name.
func (s *Store) Domain(name string) (*DomainMetadata, bool) {
	if err := s.ensure(); err != nil {
		return nil, false
	}
	d, ok := s.domains[name]
	return d, ok
}

// Domains returns all domain names, sorted for deterministic iteration.
func (s *Store) Domains() []string {
	if err := s.ensure(); err != nil {
		return nil
	}
	names := make([]string, 0, len(s.domains))
	for name := range s.domains {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Synonym resolves a phrase to a column synonym. The named domain is
// checked first; if the phrase is not found there, all domains are
// scanned in sorted order.
func (s *Store) Synonym(term, domain string) (*ColumnSynonym, bool) {
	if d, ok := s.Domain(domain); ok {
		if syn, ok := d.ColumnSynonyms[term]; ok {
			return &syn, true
		}
	}
	for _, name := range s.Domains() {
		if name == domain {
			continue
		}
		d := s.domains[name]
		if syn, ok := d.ColumnSynonyms[term]; ok {
			return &syn, true
		}
	}
	return nil, false
}

// BusinessLogic resolves a business-logic key with the same precedence
// as Synonym: named domain first, then all domains in sorted order.
func (s *Store) BusinessLogic(key, domain string) (*BusinessLogic, bool) {
	if d, ok := s.Domain(domain); ok {
		if bl, ok := d.BusinessLogic[key]; ok {
			return &bl, true
		}
	}
	for _, name := range s.Domains() {
		if name == domain {
			continue
		}
		d := s.domains[name]
		if bl, ok := d.BusinessLogic[key]; ok {
			return &bl, true
		}
	}
	return nil, false
}

// TemporalPattern resolves a temporal phrase.
func (s *Store) TemporalPattern(term string) (*TemporalPattern, bool) {
	common, err := s.Common()
	if err != nil {
		return nil, false
	}
	tp, ok := common.TemporalPatterns[term]
	if !ok {
		return nil, false
	}
	return &tp, true
}

// Entity resolves an entity name to its table reference.
func (s *Store) Entity(name string) (*EntityRef, bool) {
	common, err := s.Common()
	if err != nil {
		return nil, false
	}
	ref, ok := common.CommonEntities[name]
	if !ok {
		return nil, false
	}
	return &ref, true
}
