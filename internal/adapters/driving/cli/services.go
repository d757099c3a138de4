package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/config/env"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/core/services"
)

// IndexInspector reads the persisted index without opening it for search.
type IndexInspector interface {
	Location() string
	Exists() bool
	ReadInfo(ctx context.Context) (domain.IndexInfo, error)
}

// HealthCheck is the result of checking one provider.
type HealthCheck struct {
	Name     string
	Provider domain.AIProvider
	Model    string
	Err      error
	Skipped  bool
}

// Services holds everything the commands need, wired from settings.
type Services struct {
	Settings  domain.Settings
	Query     driving.QueryService
	Retrieval driving.RetrievalService
	Index     driving.IndexService
	Store     IndexInspector
	Watcher   driven.CorpusWatcher
	Health    func(ctx context.Context) []HealthCheck
	Warnings  []string

	closers []func() error
}

// Close releases resources in reverse order of acquisition.
func (s *Services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// servicesFactory builds services from settings. Tests replace it.
var servicesFactory = buildServices

// current is the lazily built service set shared by the commands of one run.
var current *Services

// loadServices resolves settings and builds the services once per run.
func loadServices() (*Services, error) {
	if current != nil {
		return current, nil
	}

	settings, err := loadSettings(configPath)
	if err != nil {
		return nil, err
	}

	svc, err := servicesFactory(settings, offline)
	if err != nil {
		return nil, err
	}
	current = svc
	return current, nil
}

// closeServices closes the service set, if one was built.
func closeServices() {
	if current == nil {
		return
	}
	_ = current.Close()
	current = nil
}

// openIndex loads or builds the index once, before any query is served.
// Queries never open it themselves, so a missing or corrupt index fails
// the command here.
func openIndex(ctx context.Context, svc *Services) error {
	if svc.Index == nil {
		return errors.New("index service not configured")
	}
	if _, err := svc.Index.CreateOrLoad(ctx); err != nil {
		return explain(err)
	}
	return nil
}

// openConfig opens the config file at path layered under the environment.
func openConfig(path string) (*file.ConfigStore, *env.Overlay, error) {
	store, err := file.NewConfigStore(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open config: %w", err)
	}
	return store, env.NewOverlay(store), nil
}

// loadSettings resolves validated settings from the file and environment.
func loadSettings(path string) (domain.Settings, error) {
	_, overlay, err := openConfig(path)
	if err != nil {
		return domain.Settings{}, err
	}
	return services.NewSettingsService(overlay).Get()
}
