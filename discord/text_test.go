package discord

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/tnicklin/vouchbot/diag"
)

func TestNoPing(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Set admin role to @everyone", "Set admin role to @​everyone"},
		{"hello @here", "hello @​here"},
		{"plain text", "plain text"},
	}
	for _, tt := range tests {
		if got := noPing(tt.in); got != tt.want {
			t.Errorf("noPing(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStripMention(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"<@123>", "123"},
		{"<@!123>", "123"},
		{"<@&456>", "456"},
		{"<#789>", "789"},
		{"123", "123"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := stripMention(tt.in); got != tt.want {
			t.Errorf("stripMention(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFindRole(t *testing.T) {
	guild := &discordgo.Guild{
		ID: "42",
		Roles: []*discordgo.Role{
			{ID: "42", Name: "@everyone"},
			{ID: "100", Name: "Member"},
			{ID: "200", Name: "Bot Admin"},
		},
	}

	if r := findRole(guild, "<@&100>"); r == nil || r.ID != "100" {
		t.Fatalf("mention lookup failed: %+v", r)
	}
	if r := findRole(guild, "200"); r == nil || r.ID != "200" {
		t.Fatalf("id lookup failed: %+v", r)
	}
	if r := findRole(guild, "member"); r == nil || r.ID != "100" {
		t.Fatalf("name lookup failed: %+v", r)
	}
	if r := findRole(guild, "missing"); r != nil {
		t.Fatalf("expected nil for unknown role, got %+v", r)
	}
}

func TestFindChannel(t *testing.T) {
	guild := &discordgo.Guild{
		Channels: []*discordgo.Channel{
			{ID: "555", Name: "vouch-log"},
			{ID: "556", Name: "general"},
		},
	}

	if ch := findChannel(guild, "<#555>"); ch == nil || ch.ID != "555" {
		t.Fatalf("mention lookup failed: %+v", ch)
	}
	if ch := findChannel(guild, "#general"); ch == nil || ch.ID != "556" {
		t.Fatalf("name lookup failed: %+v", ch)
	}
	if ch := findChannel(guild, "nope"); ch != nil {
		t.Fatalf("expected nil for unknown channel, got %+v", ch)
	}
}

func TestAppendProblems(t *testing.T) {
	msg := appendProblems("Set grant role to Member", nil)
	if msg != "Set grant role to Member" {
		t.Fatalf("no problems must leave message untouched, got %q", msg)
	}

	problems := []diag.Problem{
		{Severity: diag.Error, Message: "Grant role is not set"},
		{Severity: diag.Warning, Message: "Configured log channel does not exist"},
	}
	msg = appendProblems("Removed configured grant role", problems)
	want := "Removed configured grant role\n\n**Warning**\n" +
		"⛔ Grant role is not set\n" +
		"⚠️ Configured log channel does not exist"
	if msg != want {
		t.Fatalf("rendered problems mismatch:\ngot:  %q\nwant: %q", msg, want)
	}
}
