package schema

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/microsoftarchive/semantic-logging-sub002/event"
)

var (
	// ErrNotFound is returned by a Source that has no metadata for a query.
	ErrNotFound = errors.New(`schema: no metadata for event`)

	// ErrSealed is returned when adding to a Database after first use.
	ErrSealed = errors.New(`schema: database is sealed`)
)

// Query identifies the metadata of one event kind at one version.
type Query struct {
	Key     event.Key
	Version event.Version
}

// QueryOf returns the query for the kind and version of rec.
func QueryOf(rec *event.Record) Query {
	return Query{Key: rec.Key(), Version: rec.Version}
}

// String implements fmt.Stringer.
func (q Query) String() string {
	return fmt.Sprintf(`%v/v%d`, q.Key, q.Version)
}

// Source is a provider of event metadata.
type Source interface {

	// Lookup returns the metadata for q, or an error with the cause
	// ErrNotFound when there is none.
	Lookup(ctx context.Context, q Query) (*Metadata, error)
}

// Metadata describes the payload of one event kind and version.
type Metadata struct {
	ProviderName string
	Name         string
	OpcodeName   string
	Properties   []Property
}

// EventSchema is the description of an event in a manifest.
type EventSchema struct {
	ID         uint16     `yaml:"id"`
	Opcode     uint8      `yaml:"opcode"`
	Version    uint8      `yaml:"version"`
	Name       string     `yaml:"name"`
	OpcodeName string     `yaml:"opcode_name"`
	Properties []Property `yaml:"properties"`
}

// Manifest describes the events of one provider.
type Manifest struct {
	Provider string        `yaml:"provider"`
	GUID     string        `yaml:"guid"`
	Events   []EventSchema `yaml:"events"`
}

// ID returns the parsed provider GUID.
func (m *Manifest) ID() (uuid.UUID, error) {
	id, err := uuid.Parse(m.GUID)
	if err != nil {
		return uuid.Nil, errors.Wrapf(err, `schema: manifest %q guid`, m.Provider)
	}
	return id, nil
}

func (m *Manifest) lookup(q Query) (*Metadata, error) {
	for _, e := range m.Events {
		if e.ID == q.Key.ID && e.Opcode == q.Key.Opcode && event.Version(e.Version) == q.Version {
			return &Metadata{
				ProviderName: m.Provider,
				Name:         e.Name,
				OpcodeName:   e.OpcodeName,
				Properties:   append([]Property(nil), e.Properties...),
			}, nil
		}
	}
	return nil, errors.Wrapf(ErrNotFound, `schema: %v`, q)
}

// ParseManifest decodes a YAML manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	m := new(Manifest)
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, errors.Wrap(err, `schema: decoding manifest`)
	}
	if _, err := m.ID(); err != nil {
		return nil, err
	}
	return m, nil
}

// Sidecar is a Source reading one YAML manifest per provider from a
// directory, named by the provider GUID with a .yaml or .yml extension. A
// manifest is read the first time its provider is looked up.
type Sidecar struct {
	dir string

	mu        sync.Mutex
	manifests map[uuid.UUID]*Manifest
}

// NewSidecar returns a Sidecar reading from dir.
func NewSidecar(dir string) *Sidecar {
	return &Sidecar{dir: dir, manifests: make(map[uuid.UUID]*Manifest)}
}

// Lookup implements Source.
func (s *Sidecar) Lookup(ctx context.Context, q Query) (*Metadata, error) {
	m, err := s.manifest(q.Key.Provider)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errors.Wrapf(ErrNotFound, `schema: no sidecar for %v`, q.Key.Provider)
	}
	return m.lookup(q)
}

func (s *Sidecar) manifest(id uuid.UUID) (*Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.manifests[id]; ok {
		return m, nil
	}

	var m *Manifest
	for _, ext := range []string{`.yaml`, `.yml`} {
		data, err := os.ReadFile(filepath.Join(s.dir, id.String()+ext))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, `schema: reading sidecar for %v`, id)
		}
		if m, err = ParseManifest(data); err != nil {
			return nil, err
		}
		if got, _ := m.ID(); got != id {
			return nil, errors.Errorf(`schema: sidecar for %v declares guid %v`, id, got)
		}
		break
	}
	s.manifests[id] = m
	return m, nil
}

// Database is an in-memory Source of manifests. Manifests are added during
// setup; the first lookup seals the database and builds its indexes.
type Database struct {
	mu        sync.Mutex
	manifests []*Manifest
	sealed    bool

	once   sync.Once
	byID   map[uuid.UUID]*Manifest
	byName map[string]uuid.UUID
	err    error
}

// NewDatabase returns a Database holding the given manifests.
func NewDatabase(manifests ...*Manifest) *Database {
	return &Database{manifests: manifests}
}

// Add adds a manifest. It fails once the database was used.
func (db *Database) Add(m *Manifest) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.sealed {
		return ErrSealed
	}
	db.manifests = append(db.manifests, m)
	return nil
}

func (db *Database) index() error {
	db.once.Do(func() {
		db.mu.Lock()
		defer db.mu.Unlock()
		db.sealed = true

		byID := make(map[uuid.UUID]*Manifest, len(db.manifests))
		byName := make(map[string]uuid.UUID, len(db.manifests))
		for _, m := range db.manifests {
			id, err := m.ID()
			if err != nil {
				db.err = err
				return
			}
			if _, dup := byID[id]; dup {
				db.err = errors.Errorf(`schema: provider %v registered twice`, id)
				return
			}
			byID[id] = m
			byName[strings.ToLower(m.Provider)] = id
		}
		db.byID, db.byName = byID, byName
	})
	return db.err
}

// ProviderGUID returns the GUID of the named provider, case insensitive.
func (db *Database) ProviderGUID(name string) (uuid.UUID, bool) {
	if db.index() != nil {
		return uuid.Nil, false
	}
	id, ok := db.byName[strings.ToLower(name)]
	return id, ok
}

// ProviderName returns the name of the provider with the given GUID.
func (db *Database) ProviderName(id uuid.UUID) (string, bool) {
	if db.index() != nil {
		return ``, false
	}
	m, ok := db.byID[id]
	if !ok {
		return ``, false
	}
	return m.Provider, true
}

// Lookup implements Source.
func (db *Database) Lookup(ctx context.Context, q Query) (*Metadata, error) {
	if err := db.index(); err != nil {
		return nil, err
	}
	m, ok := db.byID[q.Key.Provider]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, `schema: provider %v not registered`, q.Key.Provider)
	}
	return m.lookup(q)
}

// Sources is a Source consulting each of its elements in order until one
// has metadata for a query.
type Sources []Source

// Lookup implements Source.
func (s Sources) Lookup(ctx context.Context, q Query) (*Metadata, error) {
	for _, src := range s {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		md, err := src.Lookup(ctx, q)
		if err == nil {
			return md, nil
		}
		if errors.Cause(err) != ErrNotFound {
			return nil, err
		}
	}
	return nil, errors.Wrapf(ErrNotFound, `schema: %v`, q)
}
