package contract

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/satlaunch/payloadledger/internal/asset"
	"github.com/satlaunch/payloadledger/internal/auth"
	apperrors "github.com/satlaunch/payloadledger/internal/errors"
	"github.com/satlaunch/payloadledger/internal/events"
	"github.com/satlaunch/payloadledger/internal/identity"
	"github.com/satlaunch/payloadledger/internal/telemetry"
)

// Book creates a payload record in state CREATED with no launcher assigned and
// emits a createPayload event.
func (s *Service) Book(ctx context.Context, tc TxContext, d asset.Details) (_ *asset.Asset, err error) {
	ctx, span, done := s.startSpan(ctx, "Book", d.ID)
	defer func() { done(err) }()

	if err := d.Validate(); err != nil {
		return nil, err
	}

	caller, err := s.resolve(tc, span)
	if err != nil {
		return nil, err
	}
	// Booking is authorized on role alone, before the id is looked up.
	if err := s.authorize(ctx, span, caller, auth.AssetCreate, d.ID, ""); err != nil {
		return nil, err
	}

	if _, err := fetch(ctx, tc.Ledger, d.ID); err == nil {
		return nil, apperrors.Conflict(d.ID)
	} else if !apperrors.IsCode(err, apperrors.CodeNotFound) {
		return nil, err
	}

	a := asset.New(d, caller.Subject)
	if err := save(ctx, tc.Ledger, a); err != nil {
		return nil, err
	}
	s.logger.Info().Str("assetId", a.AssetID).Str("owner", a.Owner).Str("by", caller.Subject).Msg("payload booked")

	if payload, err := events.NewAssetEvent(events.TypeCreatePayload, a); err != nil {
		s.logger.Warn().Err(err).Str("assetId", a.AssetID).Msg("event not encoded")
	} else {
		s.publish(ctx, tc, a.AssetID, payload)
	}
	return a, nil
}

// Verify assigns the calling launcher and moves the record to DETAILS_VERIFIED.
func (s *Service) Verify(ctx context.Context, tc TxContext, id string) (*asset.Asset, error) {
	return s.transition(ctx, tc, "Verify", id, auth.AssetVerify, func(a *asset.Asset, caller identity.Caller) {
		a.Launcher = caller.Subject
		a.State = asset.StateDetailsVerified
	})
}

// Ship moves the record to IN_TRANSIT from any current state.
func (s *Service) Ship(ctx context.Context, tc TxContext, id string) (*asset.Asset, error) {
	return s.transition(ctx, tc, "Ship", id, auth.AssetShip, func(a *asset.Asset, _ identity.Caller) {
		a.State = asset.StateInTransit
	})
}

// Receive moves the record to RECEIVED from any current state.
func (s *Service) Receive(ctx context.Context, tc TxContext, id string) (*asset.Asset, error) {
	return s.transition(ctx, tc, "Receive", id, auth.AssetReceive, func(a *asset.Asset, _ identity.Caller) {
		a.State = asset.StateReceived
	})
}

// ClearForFlight moves the record to CLEAR_FOR_FLIGHT from any current state.
func (s *Service) ClearForFlight(ctx context.Context, tc TxContext, id string) (*asset.Asset, error) {
	return s.transition(ctx, tc, "ClearForFlight", id, auth.AssetClearForFlight, func(a *asset.Asset, _ identity.Caller) {
		a.State = asset.StateClearForFlight
	})
}

// Modify overwrites the mutable payload fields and moves the record to DETAILS_MODIFIED.
// Owner and launcher are left untouched.
func (s *Service) Modify(ctx context.Context, tc TxContext, d asset.Details) (*asset.Asset, error) {
	if err := d.ValidateFields(); err != nil {
		return nil, err
	}
	return s.transition(ctx, tc, "Modify", d.ID, auth.AssetModify, func(a *asset.Asset, _ identity.Caller) {
		a.FrequencyBand = d.FrequencyBand
		a.CubesatSize = d.CubesatSize
		a.Mass = d.Mass
		a.State = asset.StateDetailsModified
	})
}

// Delete removes the record from world state. Its history is kept.
func (s *Service) Delete(ctx context.Context, tc TxContext, id string) (err error) {
	ctx, span, done := s.startSpan(ctx, "Delete", id)
	defer func() { done(err) }()

	id, err = requireID(id)
	if err != nil {
		return err
	}

	a, err := load(ctx, tc.Ledger, id)
	if err != nil {
		return err
	}
	caller, err := s.resolve(tc, span)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, span, caller, auth.AssetDelete, id, a.Owner); err != nil {
		return err
	}

	if err := tc.Ledger.DelState(ctx, id); err != nil {
		return apperrors.Wrap(apperrors.CodeUnknown, err, "delete asset %q", id)
	}
	s.logger.Info().Str("assetId", id).Str("by", caller.Subject).Msg("payload deleted")
	return nil
}

// transition runs the fetch, authorize, mutate and persist sequence shared by
// the state-changing handlers. Existence is checked before authorization.
// No prior-state check is made.
func (s *Service) transition(
	ctx context.Context,
	tc TxContext,
	name, id, action string,
	apply func(a *asset.Asset, caller identity.Caller),
) (_ *asset.Asset, err error) {
	ctx, span, done := s.startSpan(ctx, name, id)
	defer func() { done(err) }()

	id, err = requireID(id)
	if err != nil {
		return nil, err
	}

	a, err := load(ctx, tc.Ledger, id)
	if err != nil {
		return nil, err
	}
	caller, err := s.resolve(tc, span)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, span, caller, action, id, a.Owner); err != nil {
		return nil, err
	}

	from := a.State
	apply(a, caller)
	a.ModifiedBy = caller.Subject

	if err := save(ctx, tc.Ledger, a); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String(telemetry.AttrAssetState, a.State.String()))
	if !asset.InSequence(from, a.State) {
		telemetry.AddEvent(span, "asset.out_of_sequence", attribute.String("asset.from_state", from.String()))
		s.logger.Warn().
			Str("assetId", id).
			Str("from", from.String()).
			Str("to", a.State.String()).
			Msg("payload moved out of workflow sequence")
	}
	s.logger.Info().
		Str("assetId", id).
		Str("from", from.String()).
		Str("to", a.State.String()).
		Str("by", caller.Subject).
		Msg("payload state changed")
	return a, nil
}
