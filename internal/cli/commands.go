// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/toughchat/tough/internal/config"
	"github.com/toughchat/tough/internal/provider"
)

// =============================================================================
// MODELS
// =============================================================================

const (
	colModelID   = 44
	colModelName = 28
)

// formatModelList renders the registry entries for p as a table, marking
// the active model.
func formatModelList(p provider.Provider, active string) string {
	models := provider.ListModels(p)
	if len(models) == 0 {
		return "No models registered for " + string(p) + ".\n"
	}

	var sb strings.Builder
	sb.WriteString(TitleStyle.Render(p.DisplayName()) + "\n")
	for _, m := range models {
		marker := "  "
		if m.ID == active {
			marker = "* "
		}
		sb.WriteString(marker +
			runewidth.FillRight(runewidth.Truncate(m.ID, colModelID, "..."), colModelID) + " " +
			runewidth.Truncate(m.DisplayName, colModelName, "...") + "\n")
	}
	return sb.String()
}

// HandleModels lists the models of one provider, or of all of them.
func HandleModels(args Args) error {
	app, err := NewApp(args)
	if err != nil {
		return err
	}
	defer app.Close()

	providers := provider.All()
	if args.Subcommand != "" {
		p, err := provider.Parse(args.Subcommand)
		if err != nil {
			return err
		}
		providers = []provider.Provider{p}
	}

	if args.JSON {
		var out []provider.ModelDescriptor
		for _, p := range providers {
			out = append(out, provider.ListModels(p)...)
		}
		return printJSON(out)
	}

	active := app.Controller.Model()
	for i, p := range providers {
		if i > 0 {
			fmt.Println()
		}
		fmt.Print(formatModelList(p, active))
	}
	return nil
}

// =============================================================================
// PROVIDER
// =============================================================================

// HandleProvider shows the active provider or switches to another one.
func HandleProvider(args Args) error {
	app, err := NewApp(args)
	if err != nil {
		return err
	}
	defer app.Close()
	ctrl := app.Controller

	if args.Subcommand != "" {
		p, err := provider.Parse(args.Subcommand)
		if err != nil {
			return err
		}
		if err := ctrl.SetProvider(p); err != nil {
			return err
		}
	}

	if args.JSON {
		return printJSON(map[string]interface{}{
			"provider":       ctrl.Provider(),
			"model":          ctrl.Model(),
			"has_credential": ctrl.HasCredential(),
		})
	}

	if args.Subcommand != "" {
		fmt.Printf("%s %s (model %s)\n", SuccessStyle.Render("Provider set:"), ctrl.Provider().DisplayName(), ctrl.Model())
		return nil
	}

	s := ctrl.Settings()
	for _, p := range provider.All() {
		marker := "  "
		if p == ctrl.Provider() {
			marker = "* "
		}
		status := ""
		switch {
		case !p.RequiresKey():
			status = s.OllamaURL
		case s.Credentials.Has(p):
			status = "key " + provider.Fingerprint(s.Credentials.Key(p))
		default:
			status = "no key"
		}
		fmt.Printf("%s%s %s\n", marker, runewidth.FillRight(p.DisplayName(), 16), DimStyle.Render(status))
	}
	return nil
}

// =============================================================================
// CREDENTIALS
// =============================================================================

// HandleKey stores an API key. The key is read without echo, or from a
// pipe, never from the command line.
func HandleKey(args Args) error {
	app, err := NewApp(args)
	if err != nil {
		return err
	}
	defer app.Close()
	ctrl := app.Controller

	p := ctrl.Provider()
	if args.Subcommand != "" {
		if p, err = provider.Parse(args.Subcommand); err != nil {
			return err
		}
	}
	if !p.RequiresKey() {
		return fmt.Errorf("%s does not use an API key; set its address with 'tough url'", p.DisplayName())
	}

	key, err := readSecret(fmt.Sprintf("%s API key: ", p.DisplayName()))
	if err != nil {
		return fmt.Errorf("failed to read key: %w", err)
	}
	if key == "" {
		return errors.New("no key entered")
	}

	if err := ctrl.SetCredential(p, key); err != nil {
		return err
	}
	if !args.Quiet {
		fmt.Printf("%s %s key saved (%s)\n", SuccessStyle.Render("OK"), p.DisplayName(), provider.Fingerprint(key))
	}
	return nil
}

// validateURL accepts absolute http and https URLs.
func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid URL %q: want http(s)://host[:port]", raw)
	}
	return nil
}

// HandleURL shows or sets the Ollama endpoint.
func HandleURL(args Args) error {
	app, err := NewApp(args)
	if err != nil {
		return err
	}
	defer app.Close()

	if len(args.Raw) == 0 {
		fmt.Println(app.Controller.Settings().OllamaURL)
		return nil
	}

	raw := strings.TrimSpace(args.Raw[0])
	if err := validateURL(raw); err != nil {
		return err
	}
	app.Controller.SetOllamaURL(raw)
	if !args.Quiet {
		fmt.Printf("%s Ollama URL set to %s\n", SuccessStyle.Render("OK"), raw)
	}
	return nil
}

// =============================================================================
// CONFIG
// =============================================================================

// HandleConfig implements "config show|get|set|path".
func HandleConfig(args Args) error {
	switch args.Subcommand {
	case "", "show":
		cfg, err := loadConfig(args)
		if err != nil {
			return err
		}
		fmt.Println(cfg.String())
		return nil

	case "get":
		if len(args.Raw) < 2 {
			return fmt.Errorf("usage: tough config get <key> (keys: %s)", strings.Join(config.AllKeys(), ", "))
		}
		cfg, err := loadConfig(args)
		if err != nil {
			return err
		}
		v, err := cfg.Get(args.Raw[1])
		if err != nil {
			return err
		}
		fmt.Println(v)
		return nil

	case "set":
		if len(args.Raw) < 3 {
			return errors.New("usage: tough config set <key> <value>")
		}
		return setConfigValue(args.ConfigPath, args.Raw[1], strings.Join(args.Raw[2:], " "), args.Quiet)

	case "path":
		path, err := configPath(args.ConfigPath)
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil

	default:
		return fmt.Errorf("unknown config subcommand %q (use show, get, set or path)", args.Subcommand)
	}
}

func configPath(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	return config.ConfigPathTOML()
}

// setConfigValue edits the file itself, without environment overrides, so
// values from the environment are never written back.
func setConfigValue(override, key, value string, quiet bool) error {
	path, err := configPath(override)
	if err != nil {
		return err
	}
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		return errors.New("config set writes TOML; convert the JSON config first")
	}

	cfg := config.Default()
	if _, err := os.Stat(path); err == nil {
		if err := config.LoadTOML(cfg, path); err != nil {
			return err
		}
	}
	if err := cfg.Set(key, value); err != nil {
		return err
	}

	// Zero means "use the default", as it does when the file is loaded.
	check := cfg.Clone()
	check.SetDefaults()
	if err := check.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if err := config.SaveTOML(cfg, path); err != nil {
		return err
	}
	if !quiet {
		fmt.Printf("%s %s = %s\n", SuccessStyle.Render("OK"), key, value)
	}
	return nil
}
