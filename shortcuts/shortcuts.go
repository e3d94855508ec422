package shortcuts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mcsmanager/mcsm_bot/logger"
	"github.com/mcsmanager/mcsm_bot/models"
	"github.com/mcsmanager/mcsm_bot/store"
)

var (
	ErrExists     = errors.New("shortcut already exists")
	ErrNotFound   = errors.New("shortcut not found")
	ErrIncomplete = errors.New("shortcut id, description, title and message are required")
)

// Backend is the subset of store.Store the registry needs.
type Backend interface {
	InsertShortcut(ctx context.Context, shortcut models.Shortcut) error
	DeleteShortcut(ctx context.Context, id string) error
	GetShortcut(ctx context.Context, id string) (*models.Shortcut, error)
	ListShortcuts(ctx context.Context) ([]models.Shortcut, error)
	CountShortcuts(ctx context.Context) (int, error)
}

var _ Backend = (store.Store)(nil)

// document is the on-disk shape of shortcuts.json.
type document struct {
	Shortcuts []models.Shortcut `json:"shortcuts"`
}

// Registry is a case-insensitive shortcut lookup backed by the store.
type Registry struct {
	backend Backend
	logger  logger.Logger
}

type Params struct {
	Backend Backend
	Logger  logger.Logger
}

func New(p Params) *Registry {
	return &Registry{
		backend: p.Backend,
		logger:  logger.OrNop(p.Logger),
	}
}

func (r *Registry) Add(ctx context.Context, sc models.Shortcut) error {
	if !sc.Complete() {
		return ErrIncomplete
	}
	sc.ID = sc.NormalizedID()
	if err := r.backend.InsertShortcut(ctx, sc); err != nil {
		if errors.Is(err, store.ErrExists) {
			return ErrExists
		}
		return fmt.Errorf("add shortcut %q: %w", sc.ID, err)
	}
	r.logger.InfoW("shortcut added", "id", sc.ID)
	return nil
}

func (r *Registry) Remove(ctx context.Context, id string) error {
	id = models.NormalizeID(id)
	if err := r.backend.DeleteShortcut(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("remove shortcut %q: %w", id, err)
	}
	r.logger.InfoW("shortcut removed", "id", id)
	return nil
}

func (r *Registry) Get(ctx context.Context, id string) (models.Shortcut, error) {
	sc, err := r.backend.GetShortcut(ctx, models.NormalizeID(id))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Shortcut{}, ErrNotFound
		}
		return models.Shortcut{}, err
	}
	return *sc, nil
}

// List returns all shortcuts ordered by id.
func (r *Registry) List(ctx context.Context) ([]models.Shortcut, error) {
	return r.backend.ListShortcuts(ctx)
}

func (r *Registry) Count(ctx context.Context) (int, error) {
	return r.backend.CountShortcuts(ctx)
}

// ImportJSON loads a legacy shortcuts.json into an empty registry. It is a
// no-op when the file is missing or shortcuts already exist, and returns the
// number of shortcuts imported.
func (r *Registry) ImportJSON(ctx context.Context, path string) (int, error) {
	if path == "" {
		return 0, nil
	}
	n, err := r.backend.CountShortcuts(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}

	imported := 0
	for _, sc := range doc.Shortcuts {
		if err := r.Add(ctx, sc); err != nil {
			r.logger.WarnW("skipping legacy shortcut", "id", sc.ID, "error", err)
			continue
		}
		imported++
	}
	r.logger.InfoW("legacy shortcuts imported", "path", path, "count", imported)
	return imported, nil
}

// ExportJSON writes every shortcut to path in the legacy document format.
func (r *Registry) ExportJSON(ctx context.Context, path string) error {
	list, err := r.backend.ListShortcuts(ctx)
	if err != nil {
		return err
	}
	if list == nil {
		list = []models.Shortcut{}
	}

	data, err := json.MarshalIndent(document{Shortcuts: list}, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
