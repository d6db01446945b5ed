package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tnicklin/vouchbot/models"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "config.json")

	persister := NewFilePersister(path)
	cfg := models.FirstRunTemplate()
	cfg.BotToken = "test-token"
	if err := persister.Save(ctx, &cfg); err != nil {
		t.Fatalf("seed config: %v", err)
	}

	st := New(Params{Persister: persister})
	if err := st.Open(ctx); err != nil {
		t.Fatalf("open: %v", err)
	}
	return st, path
}

func TestOpenMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")
	st := New(Params{Persister: NewFilePersister(path)})

	err := st.Open(context.Background())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGuildIsEmptyAndIdempotent(t *testing.T) {
	st, _ := newTestStore(t)

	first := st.Guild("42")
	if !first.IsZero() {
		t.Fatalf("expected empty tenant config, got %+v", first)
	}

	second := st.Guild("42")
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("repeated Guild() calls differ (-first +second):\n%s", diff)
	}
}

func TestSetThenUnset(t *testing.T) {
	ctx := context.Background()
	st, _ := newTestStore(t)

	if err := st.Set(ctx, "42", FieldGrantRole, "100"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := st.Guild("42").GrantRoleID; got != "100" {
		t.Fatalf("expected grant role 100, got %q", got)
	}

	if err := st.Unset(ctx, "42", FieldGrantRole); err != nil {
		t.Fatalf("unset: %v", err)
	}
	if got := st.Guild("42").GrantRoleID; got != "" {
		t.Fatalf("expected grant role cleared, got %q", got)
	}

	if err := st.Unset(ctx, "42", FieldGrantRole); !errors.Is(err, ErrNotSet) {
		t.Fatalf("expected ErrNotSet on second unset, got %v", err)
	}
}

func TestUnsetAbsentGuild(t *testing.T) {
	st, _ := newTestStore(t)

	err := st.Unset(context.Background(), "999", FieldAdminRole)
	if !errors.Is(err, ErrNotSet) {
		t.Fatalf("expected ErrNotSet for untouched guild, got %v", err)
	}
}

func TestPrefixOverrides(t *testing.T) {
	ctx := context.Background()
	st, _ := newTestStore(t)

	if err := st.UnsetPrefixes(ctx, "42"); !errors.Is(err, ErrNotSet) {
		t.Fatalf("expected ErrNotSet before any override, got %v", err)
	}

	want := []string{"!", "v!"}
	if err := st.SetPrefixes(ctx, "42", want); err != nil {
		t.Fatalf("set prefixes: %v", err)
	}
	if diff := cmp.Diff(want, st.Guild("42").CommandPrefixes); diff != "" {
		t.Fatalf("prefix order not preserved (-want +got):\n%s", diff)
	}

	if err := st.UnsetPrefixes(ctx, "42"); err != nil {
		t.Fatalf("unset prefixes: %v", err)
	}
	if got := st.Guild("42").CommandPrefixes; len(got) != 0 {
		t.Fatalf("expected prefixes cleared, got %v", got)
	}
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "config.json")
	persister := NewFilePersister(path)

	orig := models.GlobalConfig{
		BotToken:    "token",
		HelpCommand: "vhelp",
		Global: models.GlobalDefaults{
			GuildCommandPrefixes: []string{"<@{bot_id}> ", "<@!{bot_id}> "},
			DMCommandPrefixes:    []string{"<@{bot_id}> ", ""},
		},
		Guilds: map[string]*models.TenantConfig{
			"42": {
				AdminRoleID:     "10",
				GrantRoleID:     "100",
				LogChannelID:    "555",
				CommandPrefixes: []string{"v!", "!", "?"},
			},
			"77": {},
		},
	}

	if err := persister.Save(ctx, &orig); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := persister.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(&orig, loaded); diff != "" {
		t.Fatalf("round-trip mismatch (-orig +loaded):\n%s", diff)
	}
}

func TestWireFormatKeys(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "config.json")
	persister := NewFilePersister(path)

	cfg := models.FirstRunTemplate()
	cfg.Guilds["42"] = &models.TenantConfig{GrantRoleID: "100"}
	if err := persister.Save(ctx, &cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("parse written file: %v", err)
	}
	for _, key := range []string{"bot-token", "help-command", "global", "guilds"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("written file missing top-level key %q", key)
		}
	}

	guilds := raw["guilds"].(map[string]any)
	guild := guilds["42"].(map[string]any)
	if guild["grant-role-id"] != "100" {
		t.Fatalf("expected grant-role-id key, got %v", guild)
	}
	if _, ok := guild["admin-role-id"]; ok {
		t.Fatal("unset fields must be omitted from the written file")
	}
}

func TestOpenUpgradesMissingGlobalBlock(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "config.json")

	// A config written before the global block existed.
	legacy := `{"bot-token": "token", "help-command": "vhelp", "guilds": {}}`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatalf("write legacy config: %v", err)
	}

	persister := NewFilePersister(path)
	st := New(Params{Persister: persister})
	if err := st.Open(ctx); err != nil {
		t.Fatalf("open: %v", err)
	}

	want := models.DefaultGlobal()
	if diff := cmp.Diff(want, st.Defaults()); diff != "" {
		t.Fatalf("synthesized defaults mismatch (-want +got):\n%s", diff)
	}

	// The upgrade must already be on disk.
	reloaded, err := persister.Load(ctx)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if diff := cmp.Diff(want, reloaded.Global); diff != "" {
		t.Fatalf("upgrade not persisted (-want +got):\n%s", diff)
	}
}

// failingPersister accepts the seed save and fails everything after.
type failingPersister struct {
	inner Persister
	saves int
}

func (f *failingPersister) Load(ctx context.Context) (*models.GlobalConfig, error) {
	return f.inner.Load(ctx)
}

func (f *failingPersister) Save(ctx context.Context, cfg *models.GlobalConfig) error {
	f.saves++
	if f.saves > 1 {
		return errors.New("disk full")
	}
	return f.inner.Save(ctx, cfg)
}

func TestFailedSaveLeavesMemoryUntouched(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "config.json")

	inner := NewFilePersister(path)
	cfg := models.FirstRunTemplate()
	if err := inner.Save(ctx, &cfg); err != nil {
		t.Fatalf("seed: %v", err)
	}

	persister := &failingPersister{inner: inner}
	persister.saves = 1 // seed save already happened
	st := New(Params{Persister: persister})
	if err := st.Open(ctx); err != nil {
		t.Fatalf("open: %v", err)
	}

	if err := st.Set(ctx, "42", FieldGrantRole, "100"); err == nil {
		t.Fatal("expected Set to fail when persistence fails")
	}
	if got := st.Guild("42").GrantRoleID; got != "" {
		t.Fatalf("in-memory state committed despite failed save: %q", got)
	}
}

func TestSaveDoesNotCorruptOnOverwrite(t *testing.T) {
	ctx := context.Background()
	st, path := newTestStore(t)

	for i, role := range []string{"1", "2", "3"} {
		if err := st.Set(ctx, "42", FieldGrantRole, role); err != nil {
			t.Fatalf("set %d: %v", i, err)
		}
		loaded, err := NewFilePersister(path).Load(ctx)
		if err != nil {
			t.Fatalf("file unreadable after save %d: %v", i, err)
		}
		if loaded.Guilds["42"].GrantRoleID != role {
			t.Fatalf("save %d: expected %s, got %s", i, role, loaded.Guilds["42"].GrantRoleID)
		}
	}
}
