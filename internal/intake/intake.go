// Package intake turns a resident's submission into a stored maintenance
// request: it resolves the selected housing unit, uploads the attachments
// and writes the request through the mirror.
package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sismanpnr/internal/imaging"
	"sismanpnr/internal/mirror"
	"sismanpnr/pkg/types"

	"github.com/sirupsen/logrus"
)

var (
	ErrDraftInvalid = errors.New("required fields are missing")
	ErrWriteFailed  = errors.New("the request could not be saved, try again")
)

// FieldError lists the draft fields that failed validation.
type FieldError struct {
	Fields []string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", ErrDraftInvalid, strings.Join(e.Fields, ", "))
}

func (e *FieldError) Is(target error) bool {
	return target == ErrDraftInvalid
}

type Housing interface {
	FindByID(id string) (*types.PNR, bool)
}

type Requests interface {
	Create(ctx context.Context, draft types.RequestDraft) mirror.Result[*types.MaintenanceRequest]
}

type Uploader interface {
	UploadAll(ctx context.Context, files []imaging.File) []string
	Delete(ctx context.Context, publicURL string) bool
}

// Submission is what the resident filled in on the request form.
type Submission struct {
	PNRID string
	Draft types.RequestDraft
	Files []imaging.File
}

// Receipt describes a stored submission. FailedUploads counts accepted
// attachments that could not be uploaded; Rejected lists files refused
// before upload.
type Receipt struct {
	Request       *types.MaintenanceRequest
	FailedUploads int
	Rejected      []imaging.Rejection
}

func (r *Receipt) Partial() bool {
	return r.FailedUploads > 0 || len(r.Rejected) > 0
}

type Service struct {
	housing  Housing
	requests Requests
	uploader Uploader
	logger   *logrus.Logger
}

func New(housing Housing, requests Requests, uploader Uploader, logger *logrus.Logger) *Service {
	return &Service{
		housing:  housing,
		requests: requests,
		uploader: uploader,
		logger:   logger,
	}
}

// Submit validates the submission, uploads its attachments and creates the
// request. Nothing is uploaded when validation fails.
func (s *Service) Submit(ctx context.Context, sub Submission) (*Receipt, error) {
	pnr, ok := s.housing.FindByID(sub.PNRID)
	if !ok {
		return nil, types.ErrPNRNotFound
	}

	draft := sub.Draft
	draft.Normalize()
	draft.PNRNumber = pnr.Number
	draft.PNRAddress = pnr.Address
	draft.IsUrgent = false
	draft.Images = nil

	if err := types.Validate(draft); err != nil {
		return nil, &FieldError{Fields: types.InvalidFields(err)}
	}

	var attachments imaging.Attachments
	receipt := &Receipt{Rejected: attachments.AddAll(sub.Files)}

	if attachments.Len() > 0 {
		draft.Images = s.uploader.UploadAll(ctx, attachments.Files())
		receipt.FailedUploads = attachments.Len() - len(draft.Images)
		if receipt.FailedUploads > 0 {
			s.logger.WithFields(logrus.Fields{
				"pnr":    pnr.Number,
				"failed": receipt.FailedUploads,
			}).Warn("some images could not be uploaded")
		}
	}

	result := s.requests.Create(ctx, draft)
	if !result.Applied {
		for _, url := range draft.Images {
			s.uploader.Delete(ctx, url)
		}
		return nil, ErrWriteFailed
	}

	receipt.Request = result.Value
	return receipt, nil
}
