// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/toughchat/tough/internal/config"
	"github.com/toughchat/tough/internal/model"
	"github.com/toughchat/tough/internal/provider"
	"github.com/toughchat/tough/internal/session"
	"github.com/toughchat/tough/internal/settings"
	"github.com/toughchat/tough/internal/storage"
	"github.com/toughchat/tough/internal/transport"
)

// =============================================================================
// PARSE TESTS
// =============================================================================

func TestParseArgs_Commands(t *testing.T) {
	tests := []struct {
		argv    []string
		wantCmd Command
	}{
		{nil, CmdChat},
		{[]string{"chat"}, CmdChat},
		{[]string{"ask", "hi"}, CmdAsk},
		{[]string{"models"}, CmdModels},
		{[]string{"provider", "groq"}, CmdProvider},
		{[]string{"key", "openai"}, CmdKey},
		{[]string{"url", "http://x:1"}, CmdURL},
		{[]string{"conversations"}, CmdConversations},
		{[]string{"history", "list"}, CmdConversations},
		{[]string{"setup"}, CmdSetup},
		{[]string{"auth"}, CmdAuth},
		{[]string{"tools", "list"}, CmdTools},
		{[]string{"config", "show"}, CmdConfig},
		{[]string{"version"}, CmdVersion},
		{[]string{"--version"}, CmdVersion},
		{[]string{"help"}, CmdHelp},
		{[]string{"-h"}, CmdHelp},
		{[]string{"ASK", "x"}, CmdAsk},
		{[]string{"frobnicate"}, CmdUnknown},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.argv, "_"), func(t *testing.T) {
			cmd, _ := ParseArgs(tt.argv)
			if cmd != tt.wantCmd {
				t.Errorf("ParseArgs(%v) = %v, want %v", tt.argv, cmd, tt.wantCmd)
			}
		})
	}
}

func TestParseArgs_GlobalFlags(t *testing.T) {
	cmd, args := ParseArgs([]string{
		"-p", "anthropic", "ask", "--model=claude-3-opus-20240229",
		"what", "is", "go", "--store", "sqlite", "--config", "/tmp/c.toml",
		"--no-rewrite", "-q", "-v", "--json", "--save",
	})

	if cmd != CmdAsk {
		t.Fatalf("cmd = %v, want ask", cmd)
	}
	if args.Provider != "anthropic" || args.Model != "claude-3-opus-20240229" {
		t.Errorf("provider/model = %q/%q", args.Provider, args.Model)
	}
	if args.Store != "sqlite" || args.ConfigPath != "/tmp/c.toml" {
		t.Errorf("store/config = %q/%q", args.Store, args.ConfigPath)
	}
	if !args.NoRewrite || !args.Quiet || !args.Verbose || !args.JSON || !args.Save {
		t.Errorf("bool flags not all set: %+v", args)
	}
	if args.Query != "what is go" {
		t.Errorf("Query = %q, want %q", args.Query, "what is go")
	}
}

func TestParseArgs_Backend(t *testing.T) {
	_, args := ParseArgs([]string{"--backend", "chat"})
	if !args.Backend || args.BackendURL != "" {
		t.Errorf("--backend: %+v", args)
	}

	_, args = ParseArgs([]string{"--backend=http://b:9/api"})
	if !args.Backend || args.BackendURL != "http://b:9/api" {
		t.Errorf("--backend=url: %+v", args)
	}
}

func TestParseArgs_MissingValue(t *testing.T) {
	cmd, args := ParseArgs([]string{"chat", "--model"})
	if args.Err == nil {
		t.Fatal("expected an error for --model without a value")
	}
	if cmd != CmdHelp {
		t.Errorf("cmd = %v, want help", cmd)
	}
}

func TestParseArgs_DoubleDash(t *testing.T) {
	_, args := ParseArgs([]string{"ask", "--", "-v", "is", "a", "flag"})
	if args.Verbose {
		t.Error("-v after -- must not be a flag")
	}
	if args.Query != "-v is a flag" {
		t.Errorf("Query = %q", args.Query)
	}
}

func TestParseArgs_SubcommandAndRaw(t *testing.T) {
	_, args := ParseArgs([]string{"conversations", "Export", "2", "--format", "html"})
	if args.Subcommand != "export" {
		t.Errorf("Subcommand = %q, want export", args.Subcommand)
	}
	want := []string{"Export", "2", "--format", "html"}
	if strings.Join(args.Raw, " ") != strings.Join(want, " ") {
		t.Errorf("Raw = %v, want %v", args.Raw, want)
	}
}

func TestCommandString(t *testing.T) {
	if CmdConversations.String() != "conversations" || CmdUnknown.String() != "unknown" {
		t.Errorf("unexpected names: %s %s", CmdConversations, CmdUnknown)
	}
}

func TestHandleUnknown(t *testing.T) {
	err := HandleUnknown(Args{Name: "frob"})
	if err == nil || !strings.Contains(err.Error(), `"frob"`) {
		t.Errorf("HandleUnknown() = %v", err)
	}
}

// =============================================================================
// ARG PARSER TESTS
// =============================================================================

func TestArgParser(t *testing.T) {
	p := NewArgParser([]string{"export", "2", "--format", "html", "--dir=/tmp/x", "--yes", "--limit", "5"}, "format", "dir", "limit")

	if p.Subcommand() != "export" {
		t.Errorf("Subcommand() = %q", p.Subcommand())
	}
	if p.Positional(1) != "2" || p.PositionalCount() != 2 {
		t.Errorf("positionals = %q (%d)", p.Positional(1), p.PositionalCount())
	}
	if p.Flag("format") != "html" || p.Flag("dir") != "/tmp/x" {
		t.Errorf("flags = %q %q", p.Flag("format"), p.Flag("dir"))
	}
	if !p.BoolFlag("yes") {
		t.Error("BoolFlag(yes) = false")
	}
	if p.FlagIntOrDefault("limit", 0) != 5 || p.FlagIntOrDefault("missing", 7) != 7 {
		t.Error("FlagIntOrDefault mismatch")
	}
	if p.FlagOrDefault("missing", "md") != "md" {
		t.Error("FlagOrDefault mismatch")
	}
	if p.Positional(9) != "" || p.PositionalFrom(9) != nil {
		t.Error("out of range positionals must be empty")
	}
}

func TestArgParser_BoolFlagDoesNotEatPositional(t *testing.T) {
	p := NewArgParser([]string{"clear", "--yes", "extra"})
	if !p.BoolFlag("yes") || p.Positional(1) != "extra" {
		t.Errorf("got yes=%v pos=%q", p.BoolFlag("yes"), p.Positional(1))
	}
}

func TestParseIndex(t *testing.T) {
	if i, err := parseIndex("2", 3); err != nil || i != 1 {
		t.Errorf("parseIndex(2, 3) = %d, %v", i, err)
	}
	for _, s := range []string{"0", "4", "x", ""} {
		if _, err := parseIndex(s, 3); err == nil {
			t.Errorf("parseIndex(%q, 3) succeeded", s)
		}
	}
	if _, err := parseIndex("1", 0); err == nil || !strings.Contains(err.Error(), "no conversations") {
		t.Errorf("parseIndex on empty list = %v", err)
	}
}

// =============================================================================
// HELPER TESTS
// =============================================================================

func TestBuildQuery(t *testing.T) {
	tests := []struct{ q, piped, want string }{
		{"", "", ""},
		{"hi", "", "hi"},
		{"", "data", "data"},
		{"summarize", "data", "summarize\n\ndata"},
	}
	for _, tt := range tests {
		if got := buildQuery(tt.q, tt.piped); got != tt.want {
			t.Errorf("buildQuery(%q, %q) = %q, want %q", tt.q, tt.piped, got, tt.want)
		}
	}
}

func TestValidateURL(t *testing.T) {
	for _, ok := range []string{"http://localhost:11434", "https://ollama.example.com"} {
		if err := validateURL(ok); err != nil {
			t.Errorf("validateURL(%q) = %v", ok, err)
		}
	}
	for _, bad := range []string{"localhost:11434", "ftp://x", "http://", "::"} {
		if err := validateURL(bad); err == nil {
			t.Errorf("validateURL(%q) succeeded", bad)
		}
	}
}

func TestFormatModelList(t *testing.T) {
	out := formatModelList(provider.OpenAI, "gpt-4o")
	if !strings.Contains(out, "* gpt-4o") {
		t.Errorf("active model not marked:\n%s", out)
	}
	if !strings.Contains(out, "  gpt-3.5-turbo") {
		t.Errorf("inactive model missing:\n%s", out)
	}
	if got := formatModelList(provider.Provider("nope"), ""); !strings.Contains(got, "No models") {
		t.Errorf("unknown provider: %q", got)
	}
}

func TestPrettyJSON(t *testing.T) {
	if got := prettyJSON([]byte(`{"a":1}`)); got != "{\n  \"a\": 1\n}" {
		t.Errorf("prettyJSON = %q", got)
	}
	if got := prettyJSON([]byte("not json")); got != "not json" {
		t.Errorf("prettyJSON passthrough = %q", got)
	}
}

func TestWriteJSONKeepsHTML(t *testing.T) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, map[string]string{"c": "<b>"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "<b>") {
		t.Errorf("writeJSON escaped HTML: %s", buf.String())
	}
}

func TestRendererPassthrough(t *testing.T) {
	r := NewRenderer(false, 80)
	if got := r.Render("**bold**"); got != "**bold**" {
		t.Errorf("disabled renderer changed text: %q", got)
	}
	var nilRenderer *Renderer
	if got := nilRenderer.Render("x"); got != "x" {
		t.Errorf("nil renderer = %q", got)
	}
}

func TestResolveConversation(t *testing.T) {
	a := model.NewConversation("a")
	b := model.NewConversation("b")
	convs := []*model.Conversation{a, b}

	if c, err := resolveConversation(convs, "2"); err != nil || c != b {
		t.Errorf("by number: %v, %v", c, err)
	}
	if c, err := resolveConversation(convs, a.ID); err != nil || c != a {
		t.Errorf("by id: %v, %v", c, err)
	}
	if _, err := resolveConversation(convs, "conv_missing"); err == nil {
		t.Error("missing id resolved")
	}
}

// =============================================================================
// APP WIRING TESTS
// =============================================================================

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"TOUGH_PROVIDER", "TOUGH_MODEL", "TOUGH_BACKEND_URL", "TOUGH_STORE", "TOUGH_DATA_DIR",
		"OLLAMA_HOST", "GROQ_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "TOGETHER_API_KEY",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	t.Setenv("HOME", t.TempDir())
}

func TestLoadConfig_FlagsOverride(t *testing.T) {
	clearProviderEnv(t)
	path := writeConfig(t, "default_provider = \"openai\"\n[storage]\nbackend = \"file\"\n")

	cfg, err := loadConfig(Args{ConfigPath: path, Store: "MEMORY", Backend: true, BackendURL: "http://b:1/api", Verbose: true})
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("Storage.Backend = %q", cfg.Storage.Backend)
	}
	if !cfg.Backend.Enabled || cfg.Backend.URL != "http://b:1/api" {
		t.Errorf("Backend = %+v", cfg.Backend)
	}
	if !cfg.Log.Verbose {
		t.Error("Log.Verbose not set by -v")
	}
	if cfg.DefaultProvider != "openai" {
		t.Errorf("DefaultProvider = %q", cfg.DefaultProvider)
	}
}

func TestLoadConfig_InvalidFlag(t *testing.T) {
	clearProviderEnv(t)
	path := writeConfig(t, "")
	if _, err := loadConfig(Args{ConfigPath: path, Store: "floppy"}); err == nil {
		t.Error("expected a validation error for --store floppy")
	}
}

func TestNewApp_MemoryStore(t *testing.T) {
	clearProviderEnv(t)
	path := writeConfig(t, "default_provider = \"anthropic\"\n")

	app, err := NewApp(Args{ConfigPath: path, Store: "memory", Model: "claude-3-haiku-20240307"})
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	defer app.Close()

	if app.Controller.Provider() != provider.Anthropic {
		t.Errorf("Provider() = %v", app.Controller.Provider())
	}
	if app.Controller.Model() != "claude-3-haiku-20240307" {
		t.Errorf("Model() = %q", app.Controller.Model())
	}
	if app.Controller.HasCredential() {
		t.Error("no key was configured")
	}
}

func TestNewApp_CorruptStateFile(t *testing.T) {
	clearProviderEnv(t)
	dir := t.TempDir()
	state := filepath.Join(dir, "state.json")
	if err := os.WriteFile(state, []byte(`{"conversations": "[bro`), 0600); err != nil {
		t.Fatal(err)
	}
	path := writeConfig(t, fmt.Sprintf("[storage]\nbackend = \"file\"\ndata_dir = %q\n", dir))

	app, err := NewApp(Args{ConfigPath: path})
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	defer app.Close()

	if n := len(app.Controller.Conversations()); n != 0 {
		t.Errorf("Conversations() = %d, want 0", n)
	}
	if _, err := os.Stat(state + ".corrupt"); err != nil {
		t.Errorf("corrupt file was not kept: %v", err)
	}
	app.Controller.CreateConversation("fresh")
	data, err := os.ReadFile(state)
	if err != nil || !strings.Contains(string(data), "fresh") {
		t.Errorf("state.json after write = %q, err = %v", data, err)
	}
}

func TestNewApp_ProviderFlagAndBadModel(t *testing.T) {
	clearProviderEnv(t)
	path := writeConfig(t, "")

	app, err := NewApp(Args{ConfigPath: path, Store: "memory", Provider: "ollama"})
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	if app.Controller.Provider() != provider.Ollama || !app.Controller.HasCredential() {
		t.Errorf("ollama should be active and need no key")
	}
	app.Close()

	_, err = NewApp(Args{ConfigPath: path, Store: "memory", Provider: "groq", Model: "gpt-4o"})
	if !errors.Is(err, session.ErrModelMismatch) {
		t.Errorf("NewApp() error = %v, want ErrModelMismatch", err)
	}

	_, err = NewApp(Args{ConfigPath: path, Store: "memory", Provider: "bogus"})
	if !errors.Is(err, provider.ErrUnknownProvider) {
		t.Errorf("NewApp() error = %v, want ErrUnknownProvider", err)
	}
}

func TestNewApp_EnvKeySeedsCredential(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("GROQ_API_KEY", "gsk_test")
	path := writeConfig(t, "")

	app, err := NewApp(Args{ConfigPath: path, Store: "memory"})
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	defer app.Close()
	if !app.Controller.HasCredential() {
		t.Error("GROQ_API_KEY should satisfy the credential check")
	}
}

func TestSetConfigValue(t *testing.T) {
	clearProviderEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")

	if err := setConfigValue(path, "http.timeout_secs", "30", true); err != nil {
		t.Fatalf("setConfigValue() error = %v", err)
	}
	cfg, err := config.LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	if cfg.HTTP.TimeoutSecs != 30 {
		t.Errorf("TimeoutSecs = %d, want 30", cfg.HTTP.TimeoutSecs)
	}

	if err := setConfigValue(path, "http.timeout_secs", "-5", true); err == nil {
		t.Error("invalid value was saved")
	}
	if err := setConfigValue(path, "http.timeout_secs", "0", true); err != nil {
		t.Fatalf("setConfigValue(0) error = %v", err)
	}
	if cfg, err := config.LoadFromPath(path); err != nil || cfg.HTTP.TimeoutSecs != config.Default().HTTP.TimeoutSecs {
		t.Errorf("zero timeout did not load as the default: cfg=%v err=%v", cfg, err)
	}
	if err := setConfigValue(path, "no.such.key", "1", true); err == nil {
		t.Error("unknown key was accepted")
	}
	if err := setConfigValue(filepath.Join(t.TempDir(), "c.json"), "log.verbose", "true", true); err == nil {
		t.Error("JSON config was written")
	}
}

// =============================================================================
// CHAT REPL TESTS
// =============================================================================

func newTestApp(t *testing.T, reply string) *App {
	t.Helper()
	kv := storage.NewMemoryKV()
	ctrl, err := session.New(session.Options{
		Persister:       settings.NewKVPersister(kv),
		Store:           storage.NewConversationStore(kv),
		DefaultProvider: provider.Ollama,
		Sender: session.SenderFunc(func(ctx context.Context, req transport.Request) (model.Message, error) {
			return model.NewAssistantMessage(reply), nil
		}),
	})
	if err != nil {
		t.Fatalf("session.New() error = %v", err)
	}
	return &App{
		Config:        config.Default(),
		Controller:    ctrl,
		Conversations: storage.NewConversationStore(kv),
		Renderer:      &Renderer{},
		kv:            kv,
	}
}

func newTestREPL(t *testing.T) (*chatREPL, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	return &chatREPL{app: newTestApp(t, "hi there"), out: &out, quiet: true, exportDir: t.TempDir()}, &out
}

func TestChatREPL_SendPrintsReply(t *testing.T) {
	r, out := newTestREPL(t)

	if err := r.send(context.Background(), "hello"); err != nil {
		t.Fatalf("send() error = %v", err)
	}
	if !strings.Contains(out.String(), "hi there") {
		t.Errorf("reply not printed:\n%s", out.String())
	}

	out.Reset()
	if _, err := r.handleCommand("/list"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "hello") {
		t.Errorf("/list missing derived title:\n%s", out.String())
	}
}

func TestChatREPL_ProviderAndModel(t *testing.T) {
	r, out := newTestREPL(t)

	if _, err := r.handleCommand("/provider openai"); err != nil {
		t.Fatalf("/provider error = %v", err)
	}
	if r.app.Controller.Model() != "gpt-4o" {
		t.Errorf("model not reset on provider change: %q", r.app.Controller.Model())
	}

	if _, err := r.handleCommand("/model gpt-3.5-turbo"); err != nil {
		t.Fatalf("/model error = %v", err)
	}
	if _, err := r.handleCommand("/model llama3"); !errors.Is(err, session.ErrModelMismatch) {
		t.Errorf("/model foreign = %v", err)
	}
	if _, err := r.handleCommand("/provider nope"); !errors.Is(err, provider.ErrUnknownProvider) {
		t.Errorf("/provider nope = %v", err)
	}

	out.Reset()
	r.handleCommand("/provider")
	if !strings.Contains(out.String(), "* openai") {
		t.Errorf("/provider listing:\n%s", out.String())
	}

	out.Reset()
	r.handleCommand("/models")
	if !strings.Contains(out.String(), "* gpt-3.5-turbo") {
		t.Errorf("/models listing:\n%s", out.String())
	}
}

func TestChatREPL_Conversations(t *testing.T) {
	r, _ := newTestREPL(t)
	ctrl := r.app.Controller

	r.handleCommand("/new")
	r.handleCommand("/new")
	if n := len(ctrl.Conversations()); n != 2 {
		t.Fatalf("conversations = %d, want 2", n)
	}

	second := ctrl.Conversations()[1].ID
	if _, err := r.handleCommand("/switch 2"); err != nil {
		t.Fatalf("/switch error = %v", err)
	}
	if ctrl.CurrentID() != second {
		t.Errorf("CurrentID() = %q, want %q", ctrl.CurrentID(), second)
	}
	if _, err := r.handleCommand("/switch 5"); err == nil {
		t.Error("/switch 5 succeeded")
	}

	if _, err := r.handleCommand("/delete"); err != nil {
		t.Fatalf("/delete error = %v", err)
	}
	if n := len(ctrl.Conversations()); n != 1 {
		t.Errorf("after /delete = %d, want 1", n)
	}

	r.handleCommand("/clear")
	if n := len(ctrl.Conversations()); n != 0 {
		t.Errorf("after /clear = %d, want 0", n)
	}
	if _, err := r.handleCommand("/delete"); err == nil {
		t.Error("/delete with nothing selected succeeded")
	}
}

func TestChatREPL_Export(t *testing.T) {
	r, out := newTestREPL(t)

	if _, err := r.handleCommand("/export md"); err == nil {
		t.Error("/export with no conversation succeeded")
	}

	if err := r.send(context.Background(), "export me"); err != nil {
		t.Fatal(err)
	}
	out.Reset()
	if _, err := r.handleCommand("/export html"); err != nil {
		t.Fatalf("/export error = %v", err)
	}
	path := filepath.Join(r.exportDir, "export_me.html")
	if _, err := os.Stat(path); err != nil {
		t.Errorf("export file missing: %v (output %q)", err, out.String())
	}
	if _, err := r.handleCommand("/export pdf"); err == nil {
		t.Error("/export pdf succeeded")
	}
}

func TestChatREPL_QuitAndUnknown(t *testing.T) {
	r, _ := newTestREPL(t)

	for _, cmd := range []string{"/quit", "/q", "/exit"} {
		quit, err := r.handleCommand(cmd)
		if !quit || err != nil {
			t.Errorf("%s = %v, %v", cmd, quit, err)
		}
	}
	if quit, err := r.handleCommand("/bogus"); quit || err == nil {
		t.Errorf("/bogus = %v, %v", quit, err)
	}
}

func TestChatREPL_PrintError(t *testing.T) {
	r, out := newTestREPL(t)

	r.printError(&session.ConfigError{Provider: provider.Groq})
	if !strings.Contains(out.String(), "tough key groq") {
		t.Errorf("config error hint missing: %q", out.String())
	}

	out.Reset()
	r.printError(context.Canceled)
	if !strings.Contains(out.String(), "Cancelled") {
		t.Errorf("cancel message missing: %q", out.String())
	}
}

// =============================================================================
// SETUP WIZARD TESTS
// =============================================================================

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func step(m setupModel, msgs ...tea.Msg) setupModel {
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(setupModel)
	}
	return m
}

func TestSetupModel_KeyFlow(t *testing.T) {
	m := newSetupModel(provider.Groq, provider.DefaultOllamaURL)
	if m.selected() != provider.Groq {
		t.Fatalf("cursor starts on %v", m.selected())
	}

	m = step(m, key("down"), key("enter"))
	if m.phase != phaseEnterValue || m.selected() != provider.OpenAI {
		t.Fatalf("phase=%v provider=%v", m.phase, m.selected())
	}

	m = step(m, key("enter"))
	if m.err == "" || m.result != nil {
		t.Error("empty key accepted")
	}

	m = step(m, key("sk-test"), key("enter"))
	if m.result == nil {
		t.Fatal("no result after entering a key")
	}
	if m.result.Provider != provider.OpenAI || m.result.Value != "sk-test" {
		t.Errorf("result = %+v", *m.result)
	}
	if !strings.Contains(m.View(), "Saved") {
		t.Errorf("done view: %q", m.View())
	}
}

func TestSetupModel_OllamaURL(t *testing.T) {
	m := newSetupModel(provider.Ollama, "http://gpu:11434")
	m = step(m, key("enter"))
	if m.input.Value() != "http://gpu:11434" {
		t.Errorf("URL not prefilled: %q", m.input.Value())
	}

	m.input.SetValue("gpu:11434")
	m = step(m, key("enter"))
	if m.result != nil || m.err == "" {
		t.Error("URL without scheme accepted")
	}

	m.input.SetValue("")
	m = step(m, key("enter"))
	if m.result == nil || m.result.Value != provider.DefaultOllamaURL {
		t.Errorf("empty URL should select the default, got %+v", m.result)
	}
}

func TestSetupModel_BackAndCancel(t *testing.T) {
	m := newSetupModel(provider.Anthropic, "")
	m = step(m, key("enter"), key("esc"))
	if m.phase != phasePickProvider {
		t.Errorf("esc did not go back: %v", m.phase)
	}

	m = step(m, key("up"), key("up"), key("up"), key("up"))
	if m.cursor != 0 {
		t.Errorf("cursor = %d, want 0", m.cursor)
	}

	m = step(m, key("ctrl+c"))
	if !m.cancelled || m.result != nil {
		t.Error("ctrl+c did not cancel")
	}

	m = step(newSetupModel(provider.Groq, ""), key("q"))
	if !m.cancelled {
		t.Error("q did not cancel on the provider list")
	}
}

func TestApplySetup(t *testing.T) {
	app := newTestApp(t, "")
	ctrl := app.Controller

	if err := applySetup(app, setupResult{Provider: provider.Together, Value: "tk"}); err != nil {
		t.Fatalf("applySetup() error = %v", err)
	}
	if ctrl.Provider() != provider.Together || !ctrl.HasCredential() {
		t.Errorf("provider=%v hasKey=%v", ctrl.Provider(), ctrl.HasCredential())
	}

	if err := applySetup(app, setupResult{Provider: provider.Ollama, Value: "http://gpu:1"}); err != nil {
		t.Fatal(err)
	}
	if ctrl.Settings().OllamaURL != "http://gpu:1" || ctrl.Provider() != provider.Ollama {
		t.Errorf("ollama settings = %+v", ctrl.Settings())
	}
}
