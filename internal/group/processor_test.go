package group

import (
	"path/filepath"
	"testing"

	"github.com/mrotondi/chatengine/internal/store"
)

const (
	selfJID  = "me@example.net"
	groupJID = "room@groups.example.net"
)

func testDB(t *testing.T) *store.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := store.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.UpsertGroup(groupJID, "chat", "", 1); err != nil {
		t.Fatal(err)
	}
	return db
}

func testProcessor(t *testing.T, db *store.DB) *Processor {
	t.Helper()
	return NewProcessor(db, func(peer string) bool { return peer == selfJID }, nil)
}

func memberPeers(t *testing.T, db *store.DB, q store.MemberQuery) []string {
	t.Helper()
	members, err := db.ListMembers(groupJID, q)
	if err != nil {
		t.Fatal(err)
	}
	peers := make([]string, len(members))
	for i, m := range members {
		peers[i] = m.Peer
	}
	return peers
}

func TestCreateConvergesWhenReapplied(t *testing.T) {
	db := testDB(t)
	p := testProcessor(t, db)

	cmd := &Command{Kind: CommandCreate, Members: []string{"a@x", "b@x"}, Owner: "owner@x"}
	p.Apply(groupJID, cmd)
	p.Apply(groupJID, cmd)

	got := memberPeers(t, db, store.MembersConfirmed)
	want := []string{"a@x", "b@x", "owner@x"}
	if len(got) != len(want) {
		t.Fatalf("confirmed members = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("member[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCreateOwnerListedInMembers(t *testing.T) {
	db := testDB(t)
	p := testProcessor(t, db)

	// Owner also appears in the member list; the duplicate upsert must not
	// produce a second row.
	cmd := &Command{Kind: CommandCreate, Members: []string{"a@x", "owner@x"}, Owner: "owner@x"}
	p.Apply(groupJID, cmd)

	got := memberPeers(t, db, store.MembersAll)
	if len(got) != 2 {
		t.Errorf("member rows = %v, want exactly {a@x, owner@x}", got)
	}
}

func TestSelfAddSetsMembershipNotRow(t *testing.T) {
	db := testDB(t)
	p := testProcessor(t, db)

	p.Apply(groupJID, &Command{Kind: CommandCreate, Members: []string{selfJID, "a@x"}, Owner: "owner@x"})

	for _, peer := range memberPeers(t, db, store.MembersAll) {
		if peer == selfJID {
			t.Error("local user must not be stored as a member row")
		}
	}
	g, err := db.GetGroup(groupJID)
	if err != nil {
		t.Fatal(err)
	}
	if g.Membership != store.MembershipMember {
		t.Errorf("membership = %d, want member", g.Membership)
	}
}

func TestRemoveSelfKicks(t *testing.T) {
	db := testDB(t)
	p := testProcessor(t, db)

	p.Apply(groupJID, &Command{Kind: CommandCreate, Members: []string{selfJID, "a@x"}, Owner: "owner@x"})
	p.Apply(groupJID, &Command{Kind: CommandAddRemove, Removed: []string{selfJID, "a@x"}})

	g, err := db.GetGroup(groupJID)
	if err != nil {
		t.Fatal(err)
	}
	if g.Membership != store.MembershipKicked {
		t.Errorf("membership = %d, want kicked", g.Membership)
	}
	for _, peer := range memberPeers(t, db, store.MembersAll) {
		if peer == selfJID || peer == "a@x" {
			t.Errorf("removed peer %q still has a row", peer)
		}
	}
}

func TestAddRemoveAddsOwner(t *testing.T) {
	db := testDB(t)
	p := testProcessor(t, db)

	p.Apply(groupJID, &Command{Kind: CommandAddRemove, Added: []string{"new@x"}, Owner: "owner@x"})

	got := memberPeers(t, db, store.MembersConfirmed)
	if len(got) != 2 || got[0] != "new@x" || got[1] != "owner@x" {
		t.Errorf("confirmed members = %v, want [new@x owner@x]", got)
	}
}

func TestSetSubject(t *testing.T) {
	db := testDB(t)
	p := testProcessor(t, db)

	p.Apply(groupJID, &Command{Kind: CommandSetSubject, Subject: "weekend plans"})
	g, err := db.GetGroup(groupJID)
	if err != nil {
		t.Fatal(err)
	}
	if g.Subject != "weekend plans" {
		t.Errorf("subject = %q, want weekend plans", g.Subject)
	}

	// Last-applied-wins.
	p.Apply(groupJID, &Command{Kind: CommandSetSubject, Subject: "changed"})
	g, _ = db.GetGroup(groupJID)
	if g.Subject != "changed" {
		t.Errorf("subject = %q, want changed", g.Subject)
	}
}

func TestPartRemovesSingleMember(t *testing.T) {
	db := testDB(t)
	p := testProcessor(t, db)

	p.Apply(groupJID, &Command{Kind: CommandCreate, Members: []string{"a@x", "b@x"}, Owner: "owner@x"})
	p.Apply(groupJID, &Command{Kind: CommandPart, From: "a@x"})

	got := memberPeers(t, db, store.MembersAll)
	for _, peer := range got {
		if peer == "a@x" {
			t.Error("parted peer still has a row")
		}
	}
	if len(got) != 2 {
		t.Errorf("member rows = %v, want b@x and owner@x", got)
	}
}

func TestUnknownCommandIsNoOp(t *testing.T) {
	db := testDB(t)
	p := testProcessor(t, db)

	p.Apply(groupJID, &Command{Kind: CommandUnknown})
	p.Apply(groupJID, nil)

	if got := memberPeers(t, db, store.MembersAll); len(got) != 0 {
		t.Errorf("member rows = %v, want none", got)
	}
}
