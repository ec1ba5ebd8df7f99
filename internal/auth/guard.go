package auth

import "github.com/spec-kit/helpdesk/internal/domain"

// Action names a privileged operation checked against the capability table.
type Action string

const (
	ActionCreateTicket       Action = "ticket:create"
	ActionListTickets        Action = "ticket:list"
	ActionAssignTicket       Action = "ticket:assign"
	ActionUpdateTicketStatus Action = "ticket:update_status"
	ActionViewTicketHistory  Action = "ticket:view_history"
	ActionPostAnnouncement   Action = "announcement:post"
	ActionReadAnnouncements  Action = "announcement:read"
	ActionViewDirectory      Action = "directory:view"
	ActionViewPayments       Action = "payment:view"
	ActionRecordPayment      Action = "payment:record"
)

// capabilities is the static table of which roles may perform which
// actions. Every service mutation consults it before touching storage,
// independent of any transport-level role middleware.
var capabilities = map[Action]map[domain.Role]struct{}{
	ActionCreateTicket:       anyRole(),
	ActionListTickets:        anyRole(),
	ActionAssignTicket:       roles(domain.RoleAdmin),
	ActionUpdateTicketStatus: roles(domain.RoleSupervisor, domain.RoleAdmin),
	ActionViewTicketHistory:  anyRole(),
	ActionPostAnnouncement:   roles(domain.RoleAdmin),
	ActionReadAnnouncements:  anyRole(),
	ActionViewDirectory:      roles(domain.RoleAdmin),
	ActionViewPayments:       anyRole(),
	ActionRecordPayment:      anyRole(),
}

// Authorize reports whether the role may perform the action. Unknown
// roles and unknown actions deny.
func Authorize(role domain.Role, action Action) bool {
	if !domain.IsValidRole(role) {
		return false
	}
	allowed, ok := capabilities[action]
	if !ok {
		return false
	}
	_, ok = allowed[role]
	return ok
}

func roles(list ...domain.Role) map[domain.Role]struct{} {
	set := make(map[domain.Role]struct{}, len(list))
	for _, role := range list {
		set[role] = struct{}{}
	}
	return set
}

func anyRole() map[domain.Role]struct{} {
	return roles(domain.RoleUser, domain.RoleSupervisor, domain.RoleAdmin)
}
