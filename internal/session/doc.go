// Package session holds per-user dataset workspaces in memory.
//
// A Session carries the uploaded table, the cleaned table and action log of
// the last cleaning run, the raw/cleaned selection and the chart selection.
// MemoryStore hands out snapshots: callers read a copy, and change a session
// only through Update, which runs one mutation per session at a time:
//
//	sess, err := store.Update(id, func(s *session.Session) error {
//	    s.UseCleaned = true
//	    return nil
//	})
//
// Sessions idle for longer than the TTL are treated as gone and are removed
// by Sweep, which Start runs on a ticker.
package session
