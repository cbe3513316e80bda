package views

import (
	"context"

	"github.com/mmdatafocus/estate_console/decoder"
	"github.com/mmdatafocus/estate_console/models"
)

// Mutator applies optimistic single-record edits and reconciles them with the backend.
type Mutator struct {
	upstream Upstream
	locks    *recordLocks
	record   func(ctx context.Context, entry models.MutationLog)
}

func NewMutator(upstream Upstream) *Mutator {
	return &Mutator{
		upstream: upstream,
		locks:    newRecordLocks(),
		record:   models.WriteMutationLog,
	}
}

// Apply changes fields of one record of s.
//
// The change is visible in the store before the backend answers. A transport
// failure, a non-2xx status, an unreadable body or an envelope with
// status:false puts the previous values back and returns a *models.MutationError.
// When the backend answers with the record, that canonical copy replaces the
// optimistic one. Edits of the same record run one after another.
func (m *Mutator) Apply(ctx context.Context, s *Session, recordID string, updates map[string]any) (models.Record, error) {
	route := s.Report.Mutation
	if route == nil {
		return nil, &models.MutationError{RecordID: recordID, Err: ErrNotEditable}
	}
	if len(updates) == 0 {
		return nil, &models.ValidationError{Fields: map[string]string{"updates": "required"}}
	}
	invalid := map[string]string{}
	for k := range updates {
		if !route.Allows(k) {
			invalid[k] = "not editable"
		}
	}
	if len(invalid) > 0 {
		return nil, &models.ValidationError{Fields: invalid}
	}

	release, err := m.locks.acquire(ctx, s.ID+":"+recordID)
	if err != nil {
		return nil, &models.MutationError{RecordID: recordID, Err: err}
	}
	defer release()

	previous, err := s.Store.PatchOne(recordID, updates)
	if err != nil {
		return nil, err
	}

	entry := models.MutationLog{Report: s.Report.Name, RecordId: recordID, Updates: updates, Previous: previous}

	resp, err := m.upstream.Send(ctx, route.Method, route.PathFor(recordID), updates)
	if err == nil {
		if msg, failed := decoder.Failed(resp); failed {
			err = &models.RejectedError{Message: msg}
		}
	}
	if err != nil {
		s.Store.RevertOne(recordID, updates, previous)
		entry.Outcome = models.MutationReverted
		entry.Error = err.Error()
		m.record(ctx, entry)
		current, _ := s.Store.Find(recordID)
		return current, &models.MutationError{RecordID: recordID, Err: err}
	}

	entry.Outcome = models.MutationApplied
	if canonical, ok := canonicalRecord(resp, recordID); ok {
		s.Store.ReplaceOne(recordID, canonical)
		entry.Outcome = models.MutationReconciled
	}
	m.record(ctx, entry)

	current, _ := s.Store.Find(recordID)
	return current, nil
}

// canonicalRecord picks the updated record out of a mutation response, if the
// backend returned one for the same id.
func canonicalRecord(v any, id string) (models.Record, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	if inner, ok := obj["data"].(map[string]any); ok {
		obj = inner
	}
	rec := models.Record(obj)
	if _, hasID := rec["id"]; !hasID || rec.ID() != id {
		return nil, false
	}
	return rec, true
}
