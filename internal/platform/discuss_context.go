package platform

import "github.com/alanmeadows/lit-critic/internal/domain"

// maxDiscussionTurns is the window kept when condensing a finding's
// discussion history before it crosses the /v1/discuss boundary.
const maxDiscussionTurns = 8

// condenseDiscussionTurns keeps the last maxDiscussionTurns turns and drops
// malformed entries (unknown role, empty content) so a corrupted or
// hand-edited history never reaches the core service.
func condenseDiscussionTurns(turns []domain.DiscussionTurn) []domain.DiscussionTurn {
	clean := make([]domain.DiscussionTurn, 0, len(turns))
	for _, t := range turns {
		if t.Content == "" {
			continue
		}
		if t.Role != domain.RoleUser && t.Role != domain.RoleAssistant {
			continue
		}
		clean = append(clean, t)
	}
	if len(clean) <= maxDiscussionTurns {
		return clean
	}
	return clean[len(clean)-maxDiscussionTurns:]
}
