// Package wiring builds the provider, dataset source and session described by
// a config.Config.
package wiring

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/stupiduntilnot/notesassist/internal/anthropic"
	"github.com/stupiduntilnot/notesassist/internal/config"
	"github.com/stupiduntilnot/notesassist/internal/dataset"
	"github.com/stupiduntilnot/notesassist/internal/db"
	"github.com/stupiduntilnot/notesassist/internal/dummy"
	modelpkg "github.com/stupiduntilnot/notesassist/internal/model"
	"github.com/stupiduntilnot/notesassist/internal/openai"
	"github.com/stupiduntilnot/notesassist/internal/sampler"
	"github.com/stupiduntilnot/notesassist/internal/session"
)

// App is one assistant session with its backing store and dataset source.
type App struct {
	Config  config.Config
	DB      *sql.DB
	Source  dataset.Source
	Session *session.Session
}

// Open creates the database, provider and session. The example table is
// empty until Reload is called.
func Open(cfg config.Config) (*App, error) {
	database, err := db.OpenDB(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := db.InitSchema(database); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	provider, err := NewProvider(cfg)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to init model provider: %w", err)
	}

	sess := session.New(session.Options{
		Provider: provider,
		Rand:     sampler.NewRand(cfg.Seed),
		Events:   &db.Recorder{DB: database},
	})
	return &App{
		Config:  cfg,
		DB:      database,
		Source:  NewSource(cfg, database),
		Session: sess,
	}, nil
}

func (a *App) Close() error {
	return a.DB.Close()
}

// Reload replaces the session's table from the dataset source and samples
// the configured number of examples. A table with no usable rows leaves the
// transcript empty and is not an error. On failure the previous table stays.
func (a *App) Reload(ctx context.Context) (dataset.Result, error) {
	res, err := a.Source.Load(ctx)
	if err != nil {
		a.Session.DatasetFailed(a.Source.Name(), err)
		return dataset.Result{}, fmt.Errorf("load dataset: %w", err)
	}
	if res.Coerced {
		log.Printf("[wiring] dataset columns renamed to tweet_content/summary source=%s", res.Source)
	}
	a.Session.SetTable(res.Pairs, res.Source)

	if _, err := a.Session.SampleExamples(a.Config.ExampleCount); err != nil {
		if !errors.Is(err, sampler.ErrEmptyTable) {
			return res, err
		}
		log.Printf("[wiring] dataset has no usable rows source=%s skipped=%d", res.Source, res.Skipped)
	}
	return res, nil
}

// NewProvider builds the generation provider named by cfg.ModelProvider.
func NewProvider(cfg config.Config) (modelpkg.Provider, error) {
	switch cfg.ModelProvider {
	case config.ProviderAnthropic:
		return anthropic.NewClient(cfg.AnthropicAPIKey, "", cfg.AnthropicModel, cfg.SystemPrompt, cfg.MaxTokens, cfg.RequestTimeout), nil
	case config.ProviderOpenAI:
		return openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.SystemPrompt, cfg.MaxTokens, cfg.RequestTimeout), nil
	case config.ProviderDummy:
		return dummy.NewProvider(cfg.DummyProviderScript)
	default:
		return nil, fmt.Errorf("unsupported model provider: %s", cfg.ModelProvider)
	}
}

// NewSource returns a cached source reading the local file when
// cfg.DatasetPath is set and the URL otherwise.
func NewSource(cfg config.Config, database *sql.DB) dataset.Source {
	var primary dataset.Source = &dataset.HTTPSource{URL: cfg.DatasetURL}
	if cfg.DatasetPath != "" {
		primary = &dataset.FileSource{Path: cfg.DatasetPath}
	}
	return &dataset.CachedSource{Primary: primary, DB: database}
}
