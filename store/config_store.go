package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/tnicklin/vouchbot/logger"
	"github.com/tnicklin/vouchbot/models"
)

// Store holds the live configuration in memory and writes it through the
// persister after every mutation. Mutations are applied to a clone first;
// the live copy is only replaced once the save succeeded, so memory and
// disk cannot diverge.
type Store struct {
	mu        sync.RWMutex
	persister Persister
	logger    logger.Logger
	cfg       models.GlobalConfig
}

type Params struct {
	Persister Persister
	Logger    logger.Logger
}

func New(p Params) *Store {
	log := p.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &Store{
		persister: p.Persister,
		logger:    log,
	}
}

// Open loads the saved configuration. A configuration written before the
// global defaults block existed gets one synthesized, and that upgrade is
// persisted immediately. Returns ErrNotFound when no saved state exists.
func (s *Store) Open(ctx context.Context) error {
	loaded, err := s.persister.Load(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = *loaded
	if s.cfg.Guilds == nil {
		s.cfg.Guilds = map[string]*models.TenantConfig{}
	}

	if len(s.cfg.Global.GuildCommandPrefixes) == 0 && len(s.cfg.Global.DMCommandPrefixes) == 0 {
		s.logger.InfoW("adding missing global defaults block to config")
		s.cfg.Global = models.DefaultGlobal()
		if err := s.persister.Save(ctx, &s.cfg); err != nil {
			return fmt.Errorf("persist upgraded config: %w", err)
		}
	}
	return nil
}

// Guild returns the settings of one guild, creating an empty entry on
// first access. The returned value is a copy; mutate through Set/Unset.
func (s *Store) Guild(guildID string) models.TenantConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vivify(guildID).Clone()
}

// vivify returns the live entry for a guild, creating it if absent.
// Callers must hold the write lock.
func (s *Store) vivify(guildID string) *models.TenantConfig {
	if g, ok := s.cfg.Guilds[guildID]; ok {
		return g
	}
	g := &models.TenantConfig{}
	s.cfg.Guilds[guildID] = g
	return g
}

// Set stores a single field for a guild and persists the full config
// before returning. On persistence failure the in-memory state is
// unchanged.
func (s *Store) Set(ctx context.Context, guildID string, field Field, value string) error {
	return s.mutate(ctx, guildID, func(g *models.TenantConfig) error {
		switch field {
		case FieldAdminRole:
			g.AdminRoleID = value
		case FieldGrantRole:
			g.GrantRoleID = value
		case FieldLogChannel:
			g.LogChannelID = value
		default:
			return fmt.Errorf("unknown field %d", field)
		}
		return nil
	})
}

// Unset removes a field, reporting ErrNotSet when it was already absent.
func (s *Store) Unset(ctx context.Context, guildID string, field Field) error {
	return s.mutate(ctx, guildID, func(g *models.TenantConfig) error {
		switch field {
		case FieldAdminRole:
			if g.AdminRoleID == "" {
				return ErrNotSet
			}
			g.AdminRoleID = ""
		case FieldGrantRole:
			if g.GrantRoleID == "" {
				return ErrNotSet
			}
			g.GrantRoleID = ""
		case FieldLogChannel:
			if g.LogChannelID == "" {
				return ErrNotSet
			}
			g.LogChannelID = ""
		default:
			return fmt.Errorf("unknown field %d", field)
		}
		return nil
	})
}

// SetPrefixes replaces the guild's command prefixes. Order is preserved;
// dispatch tries prefixes in exactly this order.
func (s *Store) SetPrefixes(ctx context.Context, guildID string, prefixes []string) error {
	return s.mutate(ctx, guildID, func(g *models.TenantConfig) error {
		g.CommandPrefixes = append([]string(nil), prefixes...)
		return nil
	})
}

// UnsetPrefixes removes the guild's prefix override, reporting ErrNotSet
// when none was configured.
func (s *Store) UnsetPrefixes(ctx context.Context, guildID string) error {
	return s.mutate(ctx, guildID, func(g *models.TenantConfig) error {
		if len(g.CommandPrefixes) == 0 {
			return ErrNotSet
		}
		g.CommandPrefixes = nil
		return nil
	})
}

func (s *Store) mutate(ctx context.Context, guildID string, fn func(*models.TenantConfig) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	scratch := s.cfg.Clone()
	g, ok := scratch.Guilds[guildID]
	if !ok {
		g = &models.TenantConfig{}
		scratch.Guilds[guildID] = g
	}
	if err := fn(g); err != nil {
		return err
	}
	if err := s.persister.Save(ctx, &scratch); err != nil {
		return fmt.Errorf("persist config: %w", err)
	}
	s.cfg = scratch
	return nil
}

func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.BotToken
}

func (s *Store) HelpCommand() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.HelpCommand
}

// Defaults returns a copy of the global prefix defaults.
func (s *Store) Defaults() models.GlobalDefaults {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.GlobalDefaults{
		GuildCommandPrefixes: append([]string(nil), s.cfg.Global.GuildCommandPrefixes...),
		DMCommandPrefixes:    append([]string(nil), s.cfg.Global.DMCommandPrefixes...),
	}
}
