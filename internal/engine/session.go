package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/leapstack-labs/leapimport/internal/reconcile"
	"github.com/leapstack-labs/leapimport/internal/source"
	"github.com/leapstack-labs/leapimport/internal/state"
)

// sessionOptions returns the options every engine session gets, followed by
// the engine's configured options and then extra.
func (e *Engine) sessionOptions(extra []reconcile.Option) []reconcile.Option {
	opts := make([]reconcile.Option, 0, 2+len(e.options)+len(extra))
	opts = append(opts, reconcile.WithLogger(e.logger), reconcile.WithImporter(e))
	opts = append(opts, e.options...)
	return append(opts, extra...)
}

// Start bootstraps a new session for a decoded upload. The session is not
// persisted until Save is called.
func (e *Engine) Start(res *source.Result, extra ...reconcile.Option) (*reconcile.Session, error) {
	opts := append([]reconcile.Option{reconcile.WithID(state.NewSessionID())}, e.sessionOptions(extra)...)

	sess, err := reconcile.NewSession(e.schema.Fields, res.Table, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}

	sum := sess.Summary()
	e.logger.Info("session started",
		"session", sess.ID(),
		"file", res.Table.FileName,
		"columns", sum.Columns,
		"matched", sum.Matched,
		"missing_required", sum.MissingRequired)

	return sess, nil
}

// StartFile decodes the file at path and starts a session for it.
func (e *Engine) StartFile(path string, extra ...reconcile.Option) (*reconcile.Session, *source.Result, error) {
	res, err := source.DecodeFile(path, e.SourceOptions())
	if err != nil {
		return nil, nil, err
	}
	for _, w := range res.Warnings {
		e.logger.Warn("decode warning", "file", path, "row", w.Row, "message", w.Message)
	}

	sess, err := e.Start(res, extra...)
	if err != nil {
		return nil, nil, err
	}
	return sess, res, nil
}

// Save persists the session's snapshot.
func (e *Engine) Save(sess *reconcile.Session) error {
	rec := &state.SessionRecord{
		ID:         sess.ID(),
		FileName:   sess.Table().FileName,
		SchemaName: e.schema.Name,
		Snapshot:   sess.Snapshot(),
	}
	if err := e.store.SaveSession(rec); err != nil {
		return err
	}
	e.logger.Debug("session saved", "session", rec.ID, "phase", rec.Phase)
	return nil
}

// Resume restores a persisted session.
func (e *Engine) Resume(id string, extra ...reconcile.Option) (*reconcile.Session, error) {
	rec, err := e.store.GetSession(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	if rec.SchemaName != e.schema.Name {
		e.logger.Warn("resuming session created for another schema",
			"session", id,
			"session_schema", rec.SchemaName,
			"schema", e.schema.Name)
	}

	sess, err := reconcile.Restore(rec.Snapshot, e.sessionOptions(extra)...)
	if err != nil {
		return nil, fmt.Errorf("failed to restore session %s: %w", id, err)
	}
	e.logger.Debug("session resumed", "session", id, "phase", sess.Phase())
	return sess, nil
}

// Delete removes a persisted session. Its import history is kept.
func (e *Engine) Delete(id string) error {
	return e.store.DeleteSession(id)
}

// Sessions lists persisted sessions, optionally filtered by phase.
func (e *Engine) Sessions(phase reconcile.Phase) ([]*state.SessionRecord, error) {
	return e.store.ListSessions(phase)
}

// Proceed runs the completeness gate on sess and, when nothing required is
// missing, imports it. A completed session is saved.
func (e *Engine) Proceed(ctx context.Context, sess *reconcile.Session) (reconcile.ProceedResult, error) {
	res, err := sess.Proceed(ctx)
	if err != nil {
		return res, err
	}
	if res.HandedOff {
		if err := e.Save(sess); err != nil {
			return res, fmt.Errorf("imported but failed to save session: %w", err)
		}
	}
	return res, nil
}

// Import implements reconcile.Importer. It writes the table to the import
// target and records the import in the state store.
func (e *Engine) Import(ctx context.Context, h reconcile.Handoff) error {
	sink, err := e.ensureSink(ctx)
	if err != nil {
		return err
	}
	if err := sink.Import(ctx, h); err != nil {
		return err
	}

	rec := &state.ImportRecord{
		SessionID:   h.SessionID,
		FileName:    h.Table.FileName,
		TargetType:  sink.Name(),
		TargetTable: e.sinkConfig.Table,
		RowCount:    len(h.Table.Rows),
		Mapping:     h.Mapping,
	}
	// Imports of unsaved sessions are recorded without a session link.
	if _, err := e.store.GetSession(h.SessionID); errors.Is(err, state.ErrNotFound) {
		rec.SessionID = ""
	}
	// The rows are already committed to the target, so a lost history row
	// is logged rather than reported as a failed import.
	if err := e.store.RecordImport(rec); err != nil {
		e.logger.Error("failed to record import", "session", h.SessionID, "error", err)
		return nil
	}

	e.logger.Info("import recorded",
		"session", h.SessionID,
		"target", rec.TargetType,
		"table", rec.TargetTable,
		"rows", rec.RowCount)
	return nil
}
