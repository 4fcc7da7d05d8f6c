package service

import (
	"fmt"

	"lumine/internal/dataset/models"
	"lumine/internal/enrollment"
	dErrors "lumine/pkg/domain-errors"
)

// validateOverwrite runs the structural checks that need no storage access.
func validateOverwrite(req OverwriteRequest) error {
	seen := make(map[string]struct{}, len(req.Individuals))
	for i, ind := range req.Individuals {
		if ind.ID == "" {
			return dErrors.New(dErrors.CodeInvalidPayload, fmt.Sprintf("individual at index %d has no id", i))
		}
		if _, dup := seen[ind.ID]; dup {
			return dErrors.New(dErrors.CodeInvalidPayload, fmt.Sprintf("individual %s appears more than once", ind.ID))
		}
		seen[ind.ID] = struct{}{}
	}

	recordIDs := make(map[string]struct{}, len(req.Records))
	for i, rec := range req.Records {
		if rec.ChildInternalID == "" || rec.Date == "" {
			return dErrors.New(dErrors.CodeInvalidPayload, fmt.Sprintf("record at index %d needs childInternalId and date", i))
		}
		id := rec.ID
		if id == "" {
			id = models.RecordID(rec.ChildInternalID, rec.Date)
		}
		if _, dup := recordIDs[id]; dup {
			return dErrors.New(dErrors.CodeInvalidPayload, fmt.Sprintf("record %s appears more than once", id))
		}
		recordIDs[id] = struct{}{}
	}

	if req.ExpectedRevision == nil {
		return dErrors.New(dErrors.CodeMissingRevision, "expectedRevision is required for sync")
	}
	return nil
}

// mergeIndividuals carries stored state forward into the incoming batch and
// checks every status change. One forbidden transition rejects the batch.
func mergeIndividuals(incoming, stored []models.Individual) ([]models.Individual, error) {
	byID := make(map[string]models.Individual, len(stored))
	for _, ind := range stored {
		byID[ind.ID] = ind
	}

	out := make([]models.Individual, 0, len(incoming))
	for _, ind := range incoming {
		next := ind.Clone()
		if prev, ok := byID[ind.ID]; ok {
			next = mergeIndividual(next, prev)
			if err := enrollment.AssertTransition(next.ID, prev.Status, next.Status); err != nil {
				return nil, err
			}
		}
		out = append(out, next)
	}
	return out, nil
}

// mergeIndividual fills the fields a client may legitimately omit: status,
// public id and the append-only status history.
func mergeIndividual(next, prev models.Individual) models.Individual {
	if next.Status == "" || next.Status == enrollment.StatusNone {
		next.Status = prev.Status
	}
	if next.PublicID == "" {
		next.PublicID = prev.PublicID
	}
	if !next.HasHistory() && prev.HasHistory() {
		next.StatusHistory = append(next.StatusHistory[:0:0], prev.StatusHistory...)
	}
	return next
}

func withRecordIDs(records []models.Record) []models.Record {
	out := make([]models.Record, len(records))
	for i, rec := range records {
		if rec.ID == "" {
			rec.ID = models.RecordID(rec.ChildInternalID, rec.Date)
		}
		out[i] = rec
	}
	return out
}
