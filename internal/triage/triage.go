// Package triage holds the staff decisions on a maintenance request. Each
// action checks its preconditions against the mirrored record before any
// store call is made.
package triage

import (
	"context"
	"errors"
	"strings"

	"sismanpnr/internal/mirror"
	"sismanpnr/pkg/types"
)

var (
	ErrDenialReasonRequired = errors.New("a reason is required to deny a request")
	ErrNotPending           = errors.New("request is no longer pending")
	ErrNotDecided           = errors.New("request has not been decided yet")
	ErrAlreadyArchived      = errors.New("request is already archived")
	ErrWriteFailed          = errors.New("the change could not be saved, try again")
)

// RequestMirror is the subset of the request mirror triage acts on.
type RequestMirror interface {
	FindByID(id string) (*types.MaintenanceRequest, bool)
	SetStatus(ctx context.Context, id string, status types.RequestStatus, reason string) mirror.Result[*types.MaintenanceRequest]
	SetUrgent(ctx context.Context, id string, urgent bool) mirror.Result[*types.MaintenanceRequest]
	Archive(ctx context.Context, id string) mirror.Result[*types.MaintenanceRequest]
	Delete(ctx context.Context, id string) mirror.Result[*types.MaintenanceRequest]
}

// ImageRemover deletes stored attachments by their public URL.
type ImageRemover interface {
	Delete(ctx context.Context, publicURL string) bool
}

type Service struct {
	requests RequestMirror
	images   ImageRemover
}

// New builds a Service. images may be nil, in which case attachments of
// deleted requests are left in the bucket.
func New(requests RequestMirror, images ImageRemover) *Service {
	return &Service{requests: requests, images: images}
}

func (s *Service) pending(id string) (*types.MaintenanceRequest, error) {
	req, ok := s.requests.FindByID(id)
	if !ok {
		return nil, types.ErrRequestNotFound
	}
	if req.Status != types.StatusPending {
		return nil, ErrNotPending
	}
	return req, nil
}

func (s *Service) Approve(ctx context.Context, id string) (*types.MaintenanceRequest, error) {
	if _, err := s.pending(id); err != nil {
		return nil, err
	}
	return unwrap(s.requests.SetStatus(ctx, id, types.StatusApproved, ""))
}

// Deny requires a non-blank reason, which is stored trimmed.
func (s *Service) Deny(ctx context.Context, id, reason string) (*types.MaintenanceRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrDenialReasonRequired
	}
	if _, err := s.pending(id); err != nil {
		return nil, err
	}
	return unwrap(s.requests.SetStatus(ctx, id, types.StatusDenied, reason))
}

// ToggleUrgent flips the urgency of a pending, unarchived request.
func (s *Service) ToggleUrgent(ctx context.Context, id string) (*types.MaintenanceRequest, error) {
	req, err := s.pending(id)
	if err != nil {
		return nil, err
	}
	if req.IsArchived {
		return nil, ErrAlreadyArchived
	}
	return unwrap(s.requests.SetUrgent(ctx, id, !req.IsUrgent))
}

// Archive hides a decided request from the default dashboard view.
func (s *Service) Archive(ctx context.Context, id string) (*types.MaintenanceRequest, error) {
	req, ok := s.requests.FindByID(id)
	if !ok {
		return nil, types.ErrRequestNotFound
	}
	if !req.Status.Decided() {
		return nil, ErrNotDecided
	}
	if req.IsArchived {
		return nil, ErrAlreadyArchived
	}
	return unwrap(s.requests.Archive(ctx, id))
}

// Delete removes a pending request and, best effort, its attachments.
func (s *Service) Delete(ctx context.Context, id string) (*types.MaintenanceRequest, error) {
	req, err := s.pending(id)
	if err != nil {
		return nil, err
	}

	removed, err := unwrap(s.requests.Delete(ctx, id))
	if err != nil {
		return nil, err
	}

	if s.images != nil {
		for _, url := range req.Images {
			s.images.Delete(ctx, url)
		}
	}

	return removed, nil
}

func unwrap(r mirror.Result[*types.MaintenanceRequest]) (*types.MaintenanceRequest, error) {
	if !r.Applied {
		return nil, ErrWriteFailed
	}
	return r.Value, nil
}
