// Package group applies parsed group commands to the local group-state
// projection. Commands arrive in ingestion order per group; the processor
// applies them as-is with last-applied-wins semantics, relying on the
// store's upsert primitives for idempotency.
package group

import (
	"github.com/mrotondi/chatengine/internal/store"
	"go.uber.org/zap"
)

// SelfFunc reports whether a peer id is the local user.
type SelfFunc func(peer string) bool

// Processor mutates group and member rows in response to commands.
// Apply never fails on valid input; malformed or unknown commands are
// no-ops, and storage errors are logged and swallowed so that a bad
// command can never corrupt or abort message ingestion.
type Processor struct {
	db     *store.DB
	isSelf SelfFunc
	logger *zap.Logger
}

// NewProcessor creates a processor. isSelf identifies the local user, which
// is never stored as a member row.
func NewProcessor(db *store.DB, isSelf SelfFunc, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{db: db, isSelf: isSelf, logger: logger}
}

// Apply executes a group command against the group identified by jid.
func (p *Processor) Apply(jid string, cmd *Command) {
	if cmd == nil {
		return
	}
	switch cmd.Kind {
	case CommandCreate:
		p.addMembers(jid, cmd.Members, cmd.Owner)

	case CommandAddRemove:
		if len(cmd.Added) > 0 {
			p.addMembers(jid, cmd.Added, cmd.Owner)
		}
		if len(cmd.Removed) > 0 {
			p.removeMembers(jid, cmd.Removed)
		}

	case CommandSetSubject:
		if err := p.db.SetGroupSubject(jid, cmd.Subject); err != nil {
			p.logger.Error("set group subject", zap.String("group", jid), zap.Error(err))
		}

	case CommandPart:
		if err := p.db.RemoveGroupMember(jid, cmd.From); err != nil {
			p.logger.Error("remove parting member", zap.String("group", jid), zap.String("peer", cmd.From), zap.Error(err))
		}

	default:
		p.logger.Warn("ignoring unknown group command", zap.String("group", jid))
	}
}

// addMembers upserts the listed peers as confirmed members. The local user
// is never stored as a row; its membership is tracked on the group itself.
// The owner is always upserted last, since sending the command makes it a
// member by definition.
func (p *Processor) addMembers(jid string, members []string, owner string) {
	for _, member := range members {
		if p.isSelf(member) {
			if err := p.db.SetMembership(jid, store.MembershipMember); err != nil {
				p.logger.Error("set self membership", zap.String("group", jid), zap.Error(err))
			}
			continue
		}
		if err := p.db.AddGroupMembers(jid, []string{member}, false); err != nil {
			p.logger.Error("add group member", zap.String("group", jid), zap.String("peer", member), zap.Error(err))
		}
	}

	if owner == "" {
		return
	}
	if p.isSelf(owner) {
		if err := p.db.SetMembership(jid, store.MembershipMember); err != nil {
			p.logger.Error("set self membership", zap.String("group", jid), zap.Error(err))
		}
		return
	}
	if err := p.db.AddGroupMembers(jid, []string{owner}, false); err != nil {
		p.logger.Error("add group owner", zap.String("group", jid), zap.String("peer", owner), zap.Error(err))
	}
}

// removeMembers hard-deletes the listed peers and records a kick when the
// local user is among them.
func (p *Processor) removeMembers(jid string, removed []string) {
	if err := p.db.RemoveGroupMembers(jid, removed, false); err != nil {
		p.logger.Error("remove group members", zap.String("group", jid), zap.Error(err))
	}
	for _, peer := range removed {
		if p.isSelf(peer) {
			if err := p.db.SetMembership(jid, store.MembershipKicked); err != nil {
				p.logger.Error("set kicked membership", zap.String("group", jid), zap.Error(err))
			}
			break
		}
	}
}
