package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/moonhollow/moonhollow/internal/services/gamedata/storage"
)

// WarningInput describes one warning to issue. An empty sender identity
// records a system-issued warning. A zero Expires never expires.
type WarningInput struct {
	TargetAccount  string
	TargetHostmask string
	SenderAccount  string
	SenderHostmask string
	Amount         int
	Reason         string
	Notes          string
	Expires        time.Time
	NeedAck        bool
}

// WarnPlayer issues a warning against a target identity, creating the
// target when it has never been seen. It returns the warning id.
func (s *Service) WarnPlayer(ctx context.Context, in WarningInput) (int64, error) {
	targetID, ok := storage.IdentityFrom(in.TargetAccount, in.TargetHostmask)
	if !ok {
		return 0, fmt.Errorf("warning target identity is required")
	}
	target, err := s.store.Resolve(ctx, targetID, true)
	if err != nil {
		return 0, fmt.Errorf("resolve warning target: %w", err)
	}

	// The sender is looked up but never created: an unknown sender
	// records as system-issued.
	sender, err := s.Resolve(ctx, in.SenderAccount, in.SenderHostmask, false)
	if err != nil {
		return 0, fmt.Errorf("resolve warning sender: %w", err)
	}

	return s.store.AddWarning(ctx, storage.Warning{
		Target:       target.PersonID,
		Sender:       sender.PersonID,
		Amount:       in.Amount,
		Reason:       in.Reason,
		Notes:        in.Notes,
		Expires:      in.Expires,
		Acknowledged: !in.NeedAck,
	})
}

// AddSanction attaches an enforcement action to a warning.
func (s *Service) AddSanction(ctx context.Context, warningID int64, sanction, data string) error {
	return s.store.AddWarningSanction(ctx, warningID, sanction, data)
}

// AcknowledgeWarning marks a warning acknowledged.
func (s *Service) AcknowledgeWarning(ctx context.Context, warningID int64) error {
	return s.store.AcknowledgeWarning(ctx, warningID)
}

// DeleteWarning soft-deletes a warning.
func (s *Service) DeleteWarning(ctx context.Context, warningID int64) error {
	return s.store.DeleteWarning(ctx, warningID)
}

// Warnings lists one identity's warnings, newest first. An unknown identity
// lists nothing. With all false only currently-active warnings return.
func (s *Service) Warnings(ctx context.Context, account, hostmask string, all bool, skip, show int) ([]storage.WarningRecord, error) {
	member, err := s.Resolve(ctx, account, hostmask, false)
	if err != nil {
		return nil, err
	}
	if member.PersonID == 0 {
		return nil, nil
	}
	return s.store.ListWarnings(ctx, storage.WarningQuery{
		Target:         member.PersonID,
		All:            all,
		Skip:           skip,
		Show:           show,
		FallbackSender: s.systemName,
	})
}

// AllWarnings lists warnings across every target, newest first.
func (s *Service) AllWarnings(ctx context.Context, all bool, skip, show int) ([]storage.WarningRecord, error) {
	return s.store.ListWarnings(ctx, storage.WarningQuery{
		All:            all,
		Skip:           skip,
		Show:           show,
		FallbackSender: s.systemName,
	})
}

// WarningPoints sums an identity's currently-active warning severity. An
// unknown identity has zero points.
func (s *Service) WarningPoints(ctx context.Context, account, hostmask string) (int64, error) {
	member, err := s.Resolve(ctx, account, hostmask, false)
	if err != nil {
		return 0, err
	}
	return s.store.WarningPoints(ctx, member.PersonID)
}

// DeniedCommands returns the commands an identity is currently sanctioned
// out of. An unknown identity is denied nothing.
func (s *Service) DeniedCommands(ctx context.Context, account, hostmask string) ([]string, error) {
	member, err := s.Resolve(ctx, account, hostmask, false)
	if err != nil {
		return nil, err
	}
	return s.store.DeniedCommands(ctx, member.PersonID)
}

// AccessFlags resolves an identity's effective permission flags; an unknown
// identity or one without an access row has none.
func (s *Service) AccessFlags(ctx context.Context, account, hostmask string) (string, error) {
	member, err := s.Resolve(ctx, account, hostmask, false)
	if err != nil {
		return "", err
	}
	flags, err := s.store.AccessFlags(ctx, member.PersonID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return flags, nil
}
