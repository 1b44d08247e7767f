// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/toughchat/tough/internal/backend"
	"github.com/toughchat/tough/internal/config"
	"github.com/toughchat/tough/internal/persona"
	"github.com/toughchat/tough/internal/provider"
	"github.com/toughchat/tough/internal/session"
	"github.com/toughchat/tough/internal/settings"
	"github.com/toughchat/tough/internal/storage"
	"github.com/toughchat/tough/internal/transport"
)

// App is the wired-up client shared by every command.
type App struct {
	Config        *config.Config
	Controller    *session.Controller
	Conversations *storage.ConversationStore
	Backend       *backend.Client
	Renderer      *Renderer

	kv      storage.KV
	watcher *storage.Watcher
	logFile *os.File
}

// loadConfig reads the config file named by --config, or the default one,
// and layers the command-line flags on top.
func loadConfig(args Args) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if args.ConfigPath != "" {
		cfg, err = config.LoadFromPath(args.ConfigPath)
		if err != nil {
			return nil, err
		}
	} else {
		cfg, err = config.Load()
		if cfg == nil {
			return nil, err
		}
		if err != nil && !args.Quiet {
			fmt.Fprintf(os.Stderr, "%s %v (using defaults)\n", WarningStyle.Render("Warning:"), err)
		}
	}

	if args.Store != "" {
		cfg.Storage.Backend = strings.ToLower(args.Store)
	}
	if args.Backend {
		cfg.Backend.Enabled = true
		if args.BackendURL != "" {
			cfg.Backend.URL = args.BackendURL
		}
	}
	if args.Verbose {
		cfg.Log.Verbose = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// configureLogging sends the log package to the configured file, to
// stderr when verbose, or nowhere.
func configureLogging(cfg *config.Config) (*os.File, error) {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		log.SetOutput(f)
		return f, nil
	}
	if cfg.Log.Verbose {
		log.SetOutput(os.Stderr)
		return nil, nil
	}
	log.SetOutput(io.Discard)
	return nil, nil
}

// NewApp loads configuration, opens storage and builds the session
// controller. The caller must Close the App.
func NewApp(args Args) (*App, error) {
	return newApp(args, false)
}

// newApp builds the App. With ephemeral set, conversations live in memory
// only while settings are still read from and written to storage.
func newApp(args Args, ephemeral bool) (*App, error) {
	cfg, err := loadConfig(args)
	if err != nil {
		return nil, err
	}

	logFile, err := configureLogging(cfg)
	if err != nil {
		return nil, err
	}

	kv, err := storage.Open(cfg.Storage.Backend, cfg.Storage.DataDir)
	if err != nil {
		if logFile != nil {
			logFile.Close()
		}
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	app := &App{
		Config:        cfg,
		Conversations: storage.NewConversationStore(kv),
		Backend:       backend.NewClient(cfg.Backend.URL).WithTimeout(cfg.Timeout()),
		Renderer:      NewRenderer(cfg.UI.Markdown && !args.JSON, cfg.UI.WordWrap),
		kv:            kv,
		logFile:       logFile,
	}

	var sender session.Sender
	if cfg.Backend.Enabled {
		sender = session.SenderFunc(app.Backend.Relay)
	} else {
		sender = transport.NewClient().
			WithTimeout(cfg.Timeout()).
			WithRateLimit(cfg.HTTP.RequestsPerMinute)
	}

	var rewriter *persona.Rewriter
	if cfg.Persona.Enabled && !args.NoRewrite {
		rewriter = persona.New(cfg.PersonaIdentity())
	}

	convStore := app.Conversations
	if ephemeral {
		convStore = storage.NewConversationStore(storage.NewMemoryKV())
	}

	ctrl, err := session.New(session.Options{
		Persister:       settings.NewKVPersister(kv),
		Store:           convStore,
		Sender:          sender,
		Rewriter:        rewriter,
		DefaultProvider: cfg.Provider(),
		DefaultModel:    cfg.DefaultModel,
		SeedCredentials: cfg.Credentials,
		Proxied:         cfg.Backend.Enabled,
	})
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Controller = ctrl

	// A configured Ollama URL applies until the user picks one.
	if ctrl.Settings().OllamaURL == provider.DefaultOllamaURL && cfg.Ollama.URL != provider.DefaultOllamaURL {
		ctrl.SetOllamaURL(cfg.Ollama.URL)
	}

	if err := app.applySelection(args); err != nil {
		app.Close()
		return nil, err
	}

	log.Printf("tough %s: provider=%s model=%s store=%s backend=%t",
		Version, ctrl.Provider(), ctrl.Model(), cfg.Storage.Backend, cfg.Backend.Enabled)
	return app, nil
}

// applySelection switches provider and model from --provider/--model.
func (a *App) applySelection(args Args) error {
	if args.Provider != "" {
		p, err := provider.Parse(args.Provider)
		if err != nil {
			return err
		}
		if p != a.Controller.Provider() {
			if err := a.Controller.SetProvider(p); err != nil {
				return err
			}
		}
	}
	if args.Model != "" {
		if err := a.Controller.SetModel(args.Model); err != nil {
			return fmt.Errorf("%w: %q is not a %s model (see 'tough models')",
				err, args.Model, a.Controller.Provider().DisplayName())
		}
	}
	return nil
}

// WatchSettings reloads settings whenever another process rewrites the
// file store. Other backends are not watched.
func (a *App) WatchSettings(onReload func()) {
	if a.watcher != nil || strings.ToLower(a.Config.Storage.Backend) != storage.BackendFile {
		return
	}

	w, err := storage.NewWatcher(storage.Path(a.Config.Storage.Backend, a.Config.Storage.DataDir), 0)
	if err != nil {
		log.Printf("settings watch disabled: %v", err)
		return
	}
	a.watcher = w
	w.Start(func() {
		if err := a.Controller.ReloadSettings(); err != nil {
			log.Printf("settings reload failed: %v", err)
			return
		}
		if onReload != nil {
			onReload()
		}
	})
}

// Close releases storage, the watcher and the log file.
func (a *App) Close() error {
	var firstErr error
	if a.watcher != nil {
		if err := a.watcher.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.kv != nil {
		if err := a.kv.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.logFile != nil {
		log.SetOutput(io.Discard)
		a.logFile.Close()
	}
	return firstErr
}
