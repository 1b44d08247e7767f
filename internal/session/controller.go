// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/toughchat/tough/internal/model"
	"github.com/toughchat/tough/internal/persona"
	"github.com/toughchat/tough/internal/provider"
	"github.com/toughchat/tough/internal/settings"
	"github.com/toughchat/tough/internal/storage"
	"github.com/toughchat/tough/internal/transport"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrEmptyPrompt is returned by Send for a blank prompt.
	ErrEmptyPrompt = errors.New("prompt is empty")

	// ErrBusy is returned by Send while another Send is in flight.
	ErrBusy = errors.New("a request is already in progress")

	// ErrMissingCredential is wrapped by ConfigError.
	ErrMissingCredential = errors.New("missing API key")

	// ErrConversationNotFound is returned for an unknown conversation ID.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrModelMismatch is returned when a model is not offered by the
	// active provider.
	ErrModelMismatch = errors.New("model does not belong to the active provider")

	// ErrNoSender is returned by New when Options.Sender is nil.
	ErrNoSender = errors.New("session requires a sender")
)

// ConfigError reports that the active provider cannot be called because
// its API key is not set. No request was sent.
type ConfigError struct {
	Provider provider.Provider
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("please set your %s API key first", e.Provider.DisplayName())
}

func (e *ConfigError) Unwrap() error {
	return ErrMissingCredential
}

// =============================================================================
// COLLABORATORS
// =============================================================================

// Sender executes one chat call.
type Sender interface {
	Chat(ctx context.Context, req transport.Request) (model.Message, error)
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, req transport.Request) (model.Message, error)

// Chat calls f.
func (f SenderFunc) Chat(ctx context.Context, req transport.Request) (model.Message, error) {
	return f(ctx, req)
}

// ConversationStore persists the conversation list and the current
// selection. storage.ConversationStore implements it.
type ConversationStore interface {
	Load() ([]*model.Conversation, error)
	Save([]*model.Conversation) error
	CurrentID() (string, error)
	SetCurrentID(id string) error
}

// Options configures a Controller.
type Options struct {
	// Persister loads and saves settings. Nil keeps settings in memory.
	Persister settings.Persister

	// Store persists conversations. Nil keeps them in memory.
	Store ConversationStore

	// Sender executes chat calls. Required.
	Sender Sender

	// Rewriter post-processes assistant replies. Nil leaves them as sent.
	Rewriter *persona.Rewriter

	// DefaultProvider is used when no provider has been stored yet.
	DefaultProvider provider.Provider

	// DefaultModel selects the initial model if the active provider
	// offers it.
	DefaultModel string

	// SeedCredentials fill in keys that are not stored.
	SeedCredentials provider.Credentials

	// Proxied skips the local credential check; the sender holds the keys.
	Proxied bool
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller is the session state machine. All methods are safe for
// concurrent use.
type Controller struct {
	mu sync.Mutex

	settings  settings.Settings
	modelID   string
	convs     []*model.Conversation
	currentID string

	persister settings.Persister
	store     ConversationStore
	sender    Sender
	rewriter  *persona.Rewriter
	seed      provider.Credentials
	proxied   bool

	loading atomic.Bool
}

// New loads settings and conversations and restores the current
// conversation. Unreadable state is logged and replaced by defaults.
func New(opts Options) (*Controller, error) {
	if opts.Sender == nil {
		return nil, ErrNoSender
	}

	c := &Controller{
		persister: opts.Persister,
		store:     opts.Store,
		sender:    opts.Sender,
		rewriter:  opts.Rewriter,
		seed:      opts.SeedCredentials.Clone(),
		proxied:   opts.Proxied,
	}
	if c.persister == nil || c.store == nil {
		kv := storage.NewMemoryKV()
		if c.persister == nil {
			c.persister = settings.NewKVPersister(kv)
		}
		if c.store == nil {
			c.store = storage.NewConversationStore(kv)
		}
	}

	s, err := c.persister.Load()
	if err != nil {
		log.Printf("Settings: load failed, using defaults where needed: %v", err)
	}
	if s.Credentials == nil {
		s.Credentials = provider.Credentials{}
	}
	if !s.Provider.Valid() {
		s.Provider = provider.Default
	}
	if !s.ProviderStored && opts.DefaultProvider.Valid() {
		s.Provider = opts.DefaultProvider
	}
	s.SeedCredentials(c.seed)
	c.settings = s
	c.modelID = defaultModelID(s.Provider)
	if opts.DefaultModel != "" {
		if _, ok := provider.LookupModel(s.Provider, opts.DefaultModel); ok {
			c.modelID = opts.DefaultModel
		}
	}

	convs, err := c.store.Load()
	if err != nil {
		log.Printf("Conversations: load failed, starting empty: %v", err)
	}
	if convs == nil {
		convs = []*model.Conversation{}
	}
	c.convs = convs

	id, err := c.store.CurrentID()
	if err != nil {
		log.Printf("Conversations: could not read current selection: %v", err)
	}
	if c.indexLocked(id) >= 0 {
		c.currentID = id
	}

	return c, nil
}

func defaultModelID(p provider.Provider) string {
	if m, ok := provider.DefaultModel(p); ok {
		return m.ID
	}
	return ""
}

// =============================================================================
// PROVIDER AND MODEL
// =============================================================================

// Provider returns the active provider.
func (c *Controller) Provider() provider.Provider {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings.Provider
}

// Model returns the active model ID. It always belongs to Provider.
func (c *Controller) Model() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.modelID
}

// Settings returns a copy of the current settings.
func (c *Controller) Settings() settings.Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings.Clone()
}

// SetProvider switches provider, resets the model to that provider's first
// catalog entry and persists the choice.
func (c *Controller) SetProvider(p provider.Provider) error {
	if !p.Valid() {
		return fmt.Errorf("%w: %q", provider.ErrUnknownProvider, string(p))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings.Provider = p
	c.settings.ProviderStored = true
	c.modelID = defaultModelID(p)
	c.saveSettingsLocked()
	return nil
}

// SetModel selects a model of the active provider.
func (c *Controller) SetModel(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := provider.LookupModel(c.settings.Provider, id); !ok {
		return fmt.Errorf("%w: %s is not a %s model", ErrModelMismatch, id, c.settings.Provider.DisplayName())
	}
	c.modelID = id
	return nil
}

// SetCredential stores the API key for p. An empty key removes it.
func (c *Controller) SetCredential(p provider.Provider, key string) error {
	if !p.Valid() {
		return fmt.Errorf("%w: %q", provider.ErrUnknownProvider, string(p))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings.Credentials[p] = strings.TrimSpace(key)
	c.saveSettingsLocked()
	return nil
}

// SetOllamaURL stores the Ollama base URL. Empty restores the default.
func (c *Controller) SetOllamaURL(url string) {
	url = strings.TrimSpace(url)
	if url == "" {
		url = provider.DefaultOllamaURL
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings.OllamaURL = url
	c.saveSettingsLocked()
}

// HasCredential reports whether the active provider can be called.
func (c *Controller) HasCredential() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.proxied || c.settings.HasCredential()
}

// ReloadSettings re-reads persisted settings, picking up changes made by
// another process. The model is reset only if the provider changed.
func (c *Controller) ReloadSettings() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.persister.Load()
	if err != nil {
		if !errors.Is(err, provider.ErrUnknownProvider) {
			return err
		}
		log.Printf("Settings: %v, keeping the active provider", err)
	}
	if s.Credentials == nil {
		s.Credentials = provider.Credentials{}
	}
	if !s.ProviderStored {
		s.Provider = c.settings.Provider
	}
	s.SeedCredentials(c.seed)
	if s.Provider != c.settings.Provider {
		c.modelID = defaultModelID(s.Provider)
	}
	c.settings = s
	return nil
}

func (c *Controller) saveSettingsLocked() {
	if err := c.persister.Save(c.settings); err != nil {
		log.Printf("Settings: save failed: %v", err)
	}
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

// Conversations returns copies of all conversations, newest first.
func (c *Controller) Conversations() []*model.Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*model.Conversation, len(c.convs))
	for i, conv := range c.convs {
		out[i] = conv.Clone()
	}
	return out
}

// Current returns a copy of the current conversation, or nil if none is
// selected.
func (c *Controller) Current() *model.Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexLocked(c.currentID); i >= 0 {
		return c.convs[i].Clone()
	}
	return nil
}

// CurrentID returns the ID of the current conversation, or "".
func (c *Controller) CurrentID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentID
}

// CreateConversation prepends a new conversation and selects it.
func (c *Controller) CreateConversation(title string) *model.Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	conv := c.createLocked(title)
	c.saveConversationsLocked()
	return conv.Clone()
}

func (c *Controller) createLocked(title string) *model.Conversation {
	conv := model.NewConversation(title)
	c.convs = append([]*model.Conversation{conv}, c.convs...)
	c.currentID = conv.ID
	return conv
}

// SelectConversation makes id the current conversation.
func (c *Controller) SelectConversation(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.indexLocked(id) < 0 {
		return fmt.Errorf("%w: %s", ErrConversationNotFound, id)
	}
	c.currentID = id
	c.saveConversationsLocked()
	return nil
}

// DeleteConversation removes a conversation and its persisted record. If it
// was current, the first remaining conversation becomes current, or none.
func (c *Controller) DeleteConversation(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrConversationNotFound, id)
	}
	kept := make([]*model.Conversation, 0, len(c.convs)-1)
	kept = append(kept, c.convs[:i]...)
	c.convs = append(kept, c.convs[i+1:]...)

	if c.currentID == id {
		c.currentID = ""
		if len(c.convs) > 0 {
			c.currentID = c.convs[0].ID
		}
	}
	c.saveConversationsLocked()
	return nil
}

// ClearAll removes every conversation.
func (c *Controller) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.convs = []*model.Conversation{}
	c.currentID = ""
	c.saveConversationsLocked()
}

func (c *Controller) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i, conv := range c.convs {
		if conv.ID == id {
			return i
		}
	}
	return -1
}

func (c *Controller) saveConversationsLocked() {
	if err := c.store.Save(c.convs); err != nil {
		log.Printf("Conversations: save failed: %v", err)
	}
	if err := c.store.SetCurrentID(c.currentID); err != nil {
		log.Printf("Conversations: saving current selection failed: %v", err)
	}
}

// =============================================================================
// SEND
// =============================================================================

// Loading reports whether a Send is in flight.
func (c *Controller) Loading() bool {
	return c.loading.Load()
}

// Send appends prompt to the current conversation (creating one if none is
// selected), calls the provider with the full history and appends the
// rewritten reply.
//
// The user message is persisted before the call and kept if the call fails;
// no assistant message is added then. A missing API key returns
// *ConfigError without appending anything.
func (c *Controller) Send(ctx context.Context, prompt string) (model.Message, error) {
	if strings.TrimSpace(prompt) == "" {
		return model.Message{}, ErrEmptyPrompt
	}
	if !c.loading.CompareAndSwap(false, true) {
		return model.Message{}, ErrBusy
	}
	defer c.loading.Store(false)

	req, convID, err := c.begin(prompt)
	if err != nil {
		return model.Message{}, err
	}

	reply, err := c.sender.Chat(ctx, req)
	if err != nil {
		return model.Message{}, err
	}

	if reply.Role == "" {
		reply.Role = model.RoleAssistant
	}
	if c.rewriter != nil {
		reply.Content = c.rewriter.Rewrite(reply.Content)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// the conversation may have been deleted while the call was running
	if i := c.indexLocked(convID); i >= 0 {
		c.convs[i].Append(reply)
		c.saveConversationsLocked()
	}
	return reply, nil
}

// begin records the user message and snapshots the request.
func (c *Controller) begin(prompt string) (transport.Request, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.proxied && !c.settings.HasCredential() {
		return transport.Request{}, "", &ConfigError{Provider: c.settings.Provider}
	}

	i := c.indexLocked(c.currentID)
	var conv *model.Conversation
	if i < 0 {
		conv = c.createLocked("")
	} else {
		conv = c.convs[i]
	}
	conv.Append(model.NewUserMessage(prompt))
	c.saveConversationsLocked()

	return transport.Request{
		Provider:    c.settings.Provider,
		Model:       c.modelID,
		Messages:    conv.History(),
		Credentials: c.settings.Credentials.Clone(),
		Config:      c.settings.ProviderConfig(),
	}, conv.ID, nil
}
