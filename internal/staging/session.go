// Package staging implements the staged editing workflow for field
// configurations: per-field pending values that override the saved
// configuration for preview, with explicit save/discard semantics and
// discard-on-navigation.
package staging

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jmcnally/provisor/internal/fieldcfg"
)

// ConfigStore is the persistence collaborator a session promotes saved
// edits into. Satisfied by *fieldcfg.Store.
type ConfigStore interface {
	Load(ctx context.Context, tenant string) (map[fieldcfg.FieldKey]fieldcfg.Config, error)
	Save(ctx context.Context, tenant string, key fieldcfg.FieldKey, cfg fieldcfg.Config) error
}

// MappingSaveFunc persists a sub-editor's independent unsaved state (the
// department/employee-type mapping tables) as part of a field save.
type MappingSaveFunc func(ctx context.Context) error

// ErrUnknownField is returned for operations on a field key outside the
// closed set.
var ErrUnknownField = errors.New("unknown field key")

// Session tracks unsaved per-field edits for one open configuration editor.
// A field with no pending entry is clean. The saved snapshot is read once at
// session start; the external store is the source of truth across sessions.
//
// Save and discard are mutually exclusive, user-initiated actions on the
// same pending entry; the session serializes them with its mutex, last
// action wins.
type Session struct {
	mu sync.Mutex

	tenant  string
	store   ConfigStore
	saved   map[fieldcfg.FieldKey]fieldcfg.Config
	pending map[fieldcfg.FieldKey]fieldcfg.Config

	// mappingEditors holds save callbacks registered by the department/
	// employee-type mapping sub-editors. Registration signals independent
	// unsaved state that survives focus changes.
	mappingEditors map[fieldcfg.FieldKey]MappingSaveFunc

	focused fieldcfg.FieldKey
}

// NewSession creates a session over the tenant's saved configuration.
func NewSession(ctx context.Context, store ConfigStore, tenant string) (*Session, error) {
	saved, err := store.Load(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("starting edit session: %w", err)
	}
	return &Session{
		tenant:         tenant,
		store:          store,
		saved:          saved,
		pending:        make(map[fieldcfg.FieldKey]fieldcfg.Config),
		mappingEditors: make(map[fieldcfg.FieldKey]MappingSaveFunc),
	}, nil
}

// Tenant returns the tenant this session edits.
func (s *Session) Tenant() string { return s.tenant }

// SetPending records or overwrites the pending value for a field.
func (s *Session) SetPending(key fieldcfg.FieldKey, cfg fieldcfg.Config) error {
	if !key.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownField, key)
	}
	// Reject variant mismatches up front so Effective never returns a
	// config of the wrong shape.
	if _, err := fieldcfg.Encode(key, cfg); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[key] = cfg
	return nil
}

// Effective returns the pending value if one exists, else the saved value.
// All preview reads go through here so edits are visible before save.
func (s *Session) Effective(key fieldcfg.FieldKey) (fieldcfg.Config, error) {
	if !key.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg, ok := s.pending[key]; ok {
		return cfg, nil
	}
	if cfg, ok := s.saved[key]; ok {
		return cfg, nil
	}
	return fieldcfg.Default(key), nil
}

// EffectiveSnapshot returns the effective config for every field key.
func (s *Session) EffectiveSnapshot() map[fieldcfg.FieldKey]fieldcfg.Config {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[fieldcfg.FieldKey]fieldcfg.Config, len(fieldcfg.AllKeys()))
	for _, key := range fieldcfg.AllKeys() {
		if cfg, ok := s.pending[key]; ok {
			out[key] = cfg
		} else if cfg, ok := s.saved[key]; ok {
			out[key] = cfg
		} else {
			out[key] = fieldcfg.Default(key)
		}
	}
	return out
}

// HasUnsavedChanges reports whether the field has a pending entry or, for
// the department/employee-type fields only, a registered mapping sub-editor
// with its own unsaved state.
func (s *Session) HasUnsavedChanges(key fieldcfg.FieldKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasUnsavedLocked(key)
}

func (s *Session) hasUnsavedLocked(key fieldcfg.FieldKey) bool {
	if _, ok := s.pending[key]; ok {
		return true
	}
	if key == fieldcfg.KeyDepartment || key == fieldcfg.KeyEmployeeType {
		_, registered := s.mappingEditors[key]
		return registered
	}
	return false
}

// SaveField promotes the field's pending value to the store and runs any
// registered mapping-editor save for that field. With no pending entry and
// no registered editor it is a no-op success. On failure the pending entry
// is retained so the edit stays visible for retry.
func (s *Session) SaveField(ctx context.Context, key fieldcfg.FieldKey) error {
	if !key.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownField, key)
	}

	s.mu.Lock()
	cfg, hasPending := s.pending[key]
	saveFn, hasEditor := s.mappingEditors[key]
	s.mu.Unlock()

	if hasPending {
		if err := s.store.Save(ctx, s.tenant, key, cfg); err != nil {
			return err
		}
		s.mu.Lock()
		s.saved[key] = cfg
		delete(s.pending, key)
		s.mu.Unlock()
	}

	if hasEditor {
		if err := saveFn(ctx); err != nil {
			return fmt.Errorf("saving %s mapping edits: %w", key, err)
		}
		s.mu.Lock()
		delete(s.mappingEditors, key)
		s.mu.Unlock()
	}

	return nil
}

// DiscardField clears the field's pending entry without persisting it.
// Mapping sub-editor state is not touched: it persists independently until
// saved or unregistered.
func (s *Session) DiscardField(key fieldcfg.FieldKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, key)
}

// Focus records that the operator moved focus to the given field. Moving
// away from a field with unsaved changes discards its pending entry: edits
// never carry across navigation without an explicit save.
func (s *Session) Focus(key fieldcfg.FieldKey) error {
	if !key.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownField, key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.focused != "" && s.focused != key && s.hasUnsavedLocked(s.focused) {
		delete(s.pending, s.focused)
	}
	s.focused = key
	return nil
}

// RegisterMappingEditor attaches a sub-editor save callback to the
// department or employee-type field. Only those two fields have mapping
// sub-editors.
func (s *Session) RegisterMappingEditor(key fieldcfg.FieldKey, fn MappingSaveFunc) error {
	if key != fieldcfg.KeyDepartment && key != fieldcfg.KeyEmployeeType {
		return fmt.Errorf("field %q does not support a mapping editor", key)
	}
	if fn == nil {
		return errors.New("mapping editor save function is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappingEditors[key] = fn
	return nil
}

// UnregisterMappingEditor detaches the sub-editor from a field.
func (s *Session) UnregisterMappingEditor(key fieldcfg.FieldKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.mappingEditors, key)
}

// Close discards all pending edits and registrations. Nothing was persisted,
// so there is nothing to undo.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = make(map[fieldcfg.FieldKey]fieldcfg.Config)
	s.mappingEditors = make(map[fieldcfg.FieldKey]MappingSaveFunc)
	s.focused = ""
}
