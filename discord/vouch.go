package discord

import (
	"fmt"
	"strings"

	"github.com/tnicklin/vouchbot/diag"
	"github.com/tnicklin/vouchbot/models"
)

// vouchRequest is the live view of one vouch attempt.
type vouchRequest struct {
	ActorID       string
	ActorRoleIDs  []string
	ActorMention  string
	TargetID      string
	TargetIsBot   bool
	TargetRoleIDs []string
	TargetMention string
}

// vouchOutcome is the single decision for a vouch attempt. Exactly one
// branch produces it; Grant and LogMessage are only set on success.
type vouchOutcome struct {
	Message    string
	Grant      bool
	LogMessage string
}

// evaluateVouch runs the vouch state machine. Branch order: self-vouch,
// bot target, config errors (fail closed), actor membership, idempotent
// re-vouch, grant.
func evaluateVouch(req vouchRequest, cfg models.TenantConfig, configErrors []diag.Problem) vouchOutcome {
	if req.TargetID == req.ActorID {
		return vouchOutcome{Message: "You can't vouch for yourself!"}
	}
	if req.TargetIsBot {
		return vouchOutcome{Message: "Bots cannot be vouched."}
	}
	if len(configErrors) > 0 {
		lines := []string{"**Error**"}
		for _, p := range configErrors {
			lines = append(lines, p.Render())
		}
		return vouchOutcome{Message: strings.Join(lines, "\n")}
	}
	if !hasRole(req.ActorRoleIDs, cfg.GrantRoleID) {
		return vouchOutcome{Message: "You must be a member to vouch for someone else."}
	}
	if hasRole(req.TargetRoleIDs, cfg.GrantRoleID) {
		return vouchOutcome{Message: fmt.Sprintf("%s is already vouched.", req.TargetMention)}
	}
	return vouchOutcome{
		Message:    fmt.Sprintf("%s has been vouched as member by %s.", req.TargetMention, req.ActorMention),
		Grant:      true,
		LogMessage: fmt.Sprintf("%s vouched %s as member", req.ActorMention, req.TargetMention),
	}
}

func hasRole(roleIDs []string, roleID string) bool {
	if roleID == "" {
		return false
	}
	for _, id := range roleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}
