package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/moonhollow/moonhollow/internal/services/gamedata/storage"
)

func TestAddWarningRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	issued := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	store.clock = func() time.Time { return issued }

	target := mustResolve(t, store, storage.ByAccount("alice"))
	sender := mustResolve(t, store, storage.ByAccount("mod"))

	expires := issued.Add(14 * 24 * time.Hour)
	id, err := store.AddWarning(ctx, storage.Warning{
		Target:  target.PersonID,
		Sender:  sender.PersonID,
		Amount:  2,
		Reason:  "spamming village chat",
		Notes:   "second offence",
		Expires: expires,
	})
	if err != nil {
		t.Fatalf("add warning: %v", err)
	}
	if id == 0 {
		t.Fatal("add warning returned zero id")
	}

	records, err := store.ListWarnings(ctx, storage.WarningQuery{
		Target:         target.PersonID,
		All:            true,
		FallbackSender: "moonhollow",
	})
	if err != nil {
		t.Fatalf("list warnings: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("warning records = %d, want 1", len(records))
	}
	rec := records[0]
	if rec.ID != id {
		t.Fatalf("record id = %d, want %d", rec.ID, id)
	}
	if rec.TargetName != "alice" || rec.SenderName != "mod" {
		t.Fatalf("record names = %q/%q, want alice/mod", rec.TargetName, rec.SenderName)
	}
	if rec.Amount != 2 || rec.Reason != "spamming village chat" || rec.Notes != "second offence" {
		t.Fatalf("record = %+v, want amount 2 with reason and notes", rec)
	}
	if !rec.Issued.Equal(issued) {
		t.Fatalf("record issued = %v, want %v", rec.Issued, issued)
	}
	if !rec.Expires.Equal(expires) {
		t.Fatalf("record expires = %v, want %v", rec.Expires, expires)
	}
	if rec.Expired || rec.Acknowledged || rec.Deleted {
		t.Fatalf("record flags = %+v, want all clear", rec)
	}
}

func TestWarningExpiryIsDerivedAtReadTime(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	issued := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	store.clock = func() time.Time { return issued }

	target := mustResolve(t, store, storage.ByAccount("alice"))
	_, err := store.AddWarning(ctx, storage.Warning{
		Target:  target.PersonID,
		Amount:  3,
		Reason:  "ghosting after death",
		Expires: issued.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("add warning: %v", err)
	}

	points, err := store.WarningPoints(ctx, target.PersonID)
	if err != nil {
		t.Fatalf("warning points: %v", err)
	}
	if points != 3 {
		t.Fatalf("warning points = %d, want 3", points)
	}

	// No writes happen; only the clock advances past the expiry.
	store.clock = func() time.Time { return issued.Add(2 * time.Hour) }

	points, err = store.WarningPoints(ctx, target.PersonID)
	if err != nil {
		t.Fatalf("warning points after expiry: %v", err)
	}
	if points != 0 {
		t.Fatalf("warning points after expiry = %d, want 0", points)
	}

	active, err := store.ListWarnings(ctx, storage.WarningQuery{Target: target.PersonID})
	if err != nil {
		t.Fatalf("list active warnings: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("active warnings = %d, want 0 after expiry", len(active))
	}

	all, err := store.ListWarnings(ctx, storage.WarningQuery{Target: target.PersonID, All: true})
	if err != nil {
		t.Fatalf("list all warnings: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("all warnings = %d, want 1", len(all))
	}
	if !all[0].Expired {
		t.Fatal("expired warning must report Expired in the full listing")
	}
}

func TestListWarningsSystemSenderFallback(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	target := mustResolve(t, store, storage.ByAccount("alice"))
	if _, err := store.AddWarning(ctx, storage.Warning{
		Target: target.PersonID,
		Amount: 1,
		Reason: "automated idle warning",
	}); err != nil {
		t.Fatalf("add warning: %v", err)
	}

	records, err := store.ListWarnings(ctx, storage.WarningQuery{
		Target:         target.PersonID,
		All:            true,
		FallbackSender: "moonhollow",
	})
	if err != nil {
		t.Fatalf("list warnings: %v", err)
	}
	if len(records) != 1 || records[0].SenderName != "moonhollow" {
		t.Fatalf("records = %+v, want single system-sent warning", records)
	}
}

func TestListWarningsPagesNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	target := mustResolve(t, store, storage.ByAccount("alice"))
	for i := 0; i < 3; i++ {
		issued := base.Add(time.Duration(i) * time.Hour)
		store.clock = func() time.Time { return issued }
		if _, err := store.AddWarning(ctx, storage.Warning{
			Target: target.PersonID,
			Amount: i + 1,
			Reason: "offence",
		}); err != nil {
			t.Fatalf("add warning %d: %v", i, err)
		}
	}

	page, err := store.ListWarnings(ctx, storage.WarningQuery{
		Target: target.PersonID,
		All:    true,
		Show:   2,
		Skip:   1,
	})
	if err != nil {
		t.Fatalf("list warnings page: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("page size = %d, want 2", len(page))
	}
	if page[0].Amount != 2 || page[1].Amount != 1 {
		t.Fatalf("page amounts = %d,%d, want 2,1", page[0].Amount, page[1].Amount)
	}
}

func TestAcknowledgeAndDeleteWarning(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	target := mustResolve(t, store, storage.ByAccount("alice"))
	id, err := store.AddWarning(ctx, storage.Warning{
		Target: target.PersonID,
		Amount: 2,
		Reason: "quota abuse",
	})
	if err != nil {
		t.Fatalf("add warning: %v", err)
	}

	if err := store.AcknowledgeWarning(ctx, id); err != nil {
		t.Fatalf("acknowledge warning: %v", err)
	}
	if err := store.DeleteWarning(ctx, id); err != nil {
		t.Fatalf("delete warning: %v", err)
	}

	points, err := store.WarningPoints(ctx, target.PersonID)
	if err != nil {
		t.Fatalf("warning points: %v", err)
	}
	if points != 0 {
		t.Fatalf("warning points = %d, want 0 after soft delete", points)
	}

	// Soft delete keeps the row for the audit listing.
	all, err := store.ListWarnings(ctx, storage.WarningQuery{Target: target.PersonID, All: true})
	if err != nil {
		t.Fatalf("list all warnings: %v", err)
	}
	if len(all) != 1 || !all[0].Acknowledged || !all[0].Deleted {
		t.Fatalf("all warnings = %+v, want acknowledged deleted row", all)
	}

	if err := store.AcknowledgeWarning(ctx, id+100); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("acknowledge missing warning err = %v, want %v", err, storage.ErrNotFound)
	}
}

func TestDeniedCommandsCollectsActiveSanctions(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	issued := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	store.clock = func() time.Time { return issued }

	target := mustResolve(t, store, storage.ByAccount("alice"))
	first, err := store.AddWarning(ctx, storage.Warning{
		Target:  target.PersonID,
		Amount:  2,
		Reason:  "vote manipulation",
		Expires: issued.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("add warning: %v", err)
	}
	second, err := store.AddWarning(ctx, storage.Warning{
		Target: target.PersonID,
		Amount: 1,
		Reason: "spam",
	})
	if err != nil {
		t.Fatalf("add warning: %v", err)
	}

	for _, s := range []struct {
		warning int64
		data    string
	}{
		{first, "vote"},
		{first, "join"},
		{second, "vote"},
	} {
		if err := store.AddWarningSanction(ctx, s.warning, storage.SanctionDenyCommand, s.data); err != nil {
			t.Fatalf("add sanction: %v", err)
		}
	}
	if err := store.AddWarningSanction(ctx, second, "stasis", "3"); err != nil {
		t.Fatalf("add stasis sanction: %v", err)
	}

	denied, err := store.DeniedCommands(ctx, target.PersonID)
	if err != nil {
		t.Fatalf("denied commands: %v", err)
	}
	want := []string{"join", "vote"}
	if len(denied) != len(want) {
		t.Fatalf("denied commands = %v, want %v", denied, want)
	}
	for i := range want {
		if denied[i] != want[i] {
			t.Fatalf("denied commands = %v, want %v", denied, want)
		}
	}

	// After the first warning expires only the sanction on the active
	// warning still applies.
	store.clock = func() time.Time { return issued.Add(2 * time.Hour) }
	denied, err = store.DeniedCommands(ctx, target.PersonID)
	if err != nil {
		t.Fatalf("denied commands after expiry: %v", err)
	}
	if len(denied) != 1 || denied[0] != "vote" {
		t.Fatalf("denied commands after expiry = %v, want [vote]", denied)
	}
}

func TestAccessFlagsPreferOwnFlagsOverTemplate(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	person := mustResolve(t, store, storage.ByAccount("alice"))
	tmpl, err := store.AddAccessTemplate(ctx, "moderator", "FWN")
	if err != nil {
		t.Fatalf("add access template: %v", err)
	}

	if err := store.SetAccess(ctx, person.PersonID, tmpl, ""); err != nil {
		t.Fatalf("set access: %v", err)
	}
	flags, err := store.AccessFlags(ctx, person.PersonID)
	if err != nil {
		t.Fatalf("access flags: %v", err)
	}
	if flags != "FWN" {
		t.Fatalf("flags = %q, want template fallback FWN", flags)
	}

	if err := store.SetAccess(ctx, person.PersonID, tmpl, "F"); err != nil {
		t.Fatalf("set access override: %v", err)
	}
	flags, err = store.AccessFlags(ctx, person.PersonID)
	if err != nil {
		t.Fatalf("access flags: %v", err)
	}
	if flags != "F" {
		t.Fatalf("flags = %q, want own flags F", flags)
	}

	other := mustResolve(t, store, storage.ByAccount("bob"))
	if _, err := store.AccessFlags(ctx, other.PersonID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("access flags err = %v, want %v", err, storage.ErrNotFound)
	}

	if _, err := store.AddAccessTemplate(ctx, "moderator", "X"); !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("duplicate template err = %v, want %v", err, storage.ErrAlreadyExists)
	}
}
