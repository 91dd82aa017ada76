// Package ingest implements the orchestrator that drives adapters
// against the main store (spec.md §4.2): per-source dedup by the
// adapter's declared strategy, per-file transactional atomicity, and
// live-session-tag reconciliation for adapters that support it.
package ingest

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/kgruel/siftd-sub000/internal/adapter"
	"github.com/kgruel/siftd-sub000/internal/domain"
	"github.com/kgruel/siftd-sub000/internal/idgen"
	"github.com/kgruel/siftd-sub000/internal/store"
)

// Progress is called after each source is processed, for CLI progress
// reporting.
type Progress func(adapterName, path string, err error)

// HarnessCounts tallies per-harness totals for the Stats result.
type HarnessCounts struct {
	Conversations int
	Prompts       int
	Responses     int
	ToolCalls     int
	Replaced      int
}

// Stats is what Run returns (spec.md §4.2 "Stats returned").
type Stats struct {
	FilesFound    int
	FilesIngested int
	FilesReplaced int
	FilesSkipped  int
	ByHarness     map[string]*HarnessCounts
	Errors        []error
}

func (s *Stats) harness(name string) *HarnessCounts {
	if s.ByHarness == nil {
		s.ByHarness = map[string]*HarnessCounts{}
	}
	hc, ok := s.ByHarness[name]
	if !ok {
		hc = &HarnessCounts{}
		s.ByHarness[name] = hc
	}
	return hc
}

func tally(hc *HarnessCounts, conv *domain.Conversation) {
	hc.Conversations++
	for _, p := range conv.Prompts {
		hc.Prompts++
		for _, r := range p.Responses {
			hc.Responses++
			hc.ToolCalls += len(r.ToolCalls)
		}
	}
}

// Run drives every adapter's discovered sources through the dedup and
// persistence rules spec.md §4.2 describes.
func Run(ctx context.Context, st *store.Store, adapters []adapter.Adapter, progress Progress) (*Stats, error) {
	stats := &Stats{ByHarness: map[string]*HarnessCounts{}}

	for _, ad := range adapters {
		harnessID, err := store.GetOrCreateHarness(ctx, st.DB(), ad.Name(), ad.HarnessSource(), ad.HarnessLogFormat(), ad.Name())
		if err != nil {
			stats.Errors = append(stats.Errors, fmt.Errorf("resolving harness %s: %w", ad.Name(), err))
			continue
		}

		sources, err := ad.Discover(nil)
		if err != nil {
			stats.Errors = append(stats.Errors, fmt.Errorf("discovering sources for %s: %w", ad.Name(), err))
			continue
		}

		for _, src := range sources {
			if !ad.CanHandle(src) {
				continue
			}
			stats.FilesFound++

			err := processSource(ctx, st, ad, harnessID, src, stats)
			if progress != nil {
				progress(ad.Name(), src.Path, err)
			}
			if err != nil {
				stats.Errors = append(stats.Errors, fmt.Errorf("%s: %s: %w", ad.Name(), src.Path, err))
			}
		}
	}

	return stats, nil
}

func fileHash(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func processSource(ctx context.Context, st *store.Store, ad adapter.Adapter, harnessID string, src adapter.Source, stats *Stats) error {
	switch ad.DedupStrategy() {
	case adapter.DedupByFile:
		return processFileStrategy(ctx, st, ad, harnessID, src, stats)
	case adapter.DedupBySession:
		return processSessionStrategy(ctx, st, ad, harnessID, src, stats)
	default:
		return fmt.Errorf("unknown dedup strategy %q", ad.DedupStrategy())
	}
}

// processFileStrategy implements spec.md §4.2 step 1: skip a path+hash
// already recorded in ingested_files; otherwise parse, store every
// yielded conversation in one transaction, and record the ingestion.
func processFileStrategy(ctx context.Context, st *store.Store, ad adapter.Adapter, harnessID string, src adapter.Source, stats *Stats) error {
	hash, err := fileHash(src.Path)
	if err != nil {
		return fmt.Errorf("hashing %s: %w", src.Path, err)
	}

	var existing int
	err = st.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM ingested_files WHERE path = ? AND content_hash = ?`, src.Path, hash).Scan(&existing)
	if err != nil {
		return fmt.Errorf("checking ingested_files: %w", err)
	}
	if existing > 0 {
		stats.FilesSkipped++
		return nil
	}

	conversations, parseErr := ad.Parse(src)

	err = st.WithTx(ctx, func(tx *sql.Tx) error {
		if parseErr != nil {
			return recordIngestedFile(ctx, tx, src.Path, hash, "", parseErr.Error())
		}
		var conversationID string
		for _, conv := range conversations {
			conv.HarnessID = harnessID
			if err := store.InsertConversation(ctx, tx, conv); err != nil {
				return err
			}
			if ad.SupportsLiveRegistration() {
				if err := reconcileIfLive(ctx, tx, conv); err != nil {
					return err
				}
			}
			tally(stats.harness(ad.Name()), conv)
			conversationID = conv.ID
		}
		return recordIngestedFile(ctx, tx, src.Path, hash, conversationID, "")
	})
	if err != nil {
		return err
	}
	if parseErr != nil {
		return parseErr
	}
	stats.FilesIngested++
	return nil
}

// processSessionStrategy implements spec.md §4.2 step 2: parse first,
// then per yielded conversation, insert if its external_id is unseen,
// replace if the new copy's ended_at is newer, else skip.
func processSessionStrategy(ctx context.Context, st *store.Store, ad adapter.Adapter, harnessID string, src adapter.Source, stats *Stats) error {
	conversations, err := ad.Parse(src)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", src.Path, err)
	}

	insertedAny := false
	replacedAny := false
	for _, conv := range conversations {
		conv.HarnessID = harnessID
		err := st.WithTx(ctx, func(tx *sql.Tx) error {
			existingID, err := store.FindConversationByExternalID(ctx, tx, harnessID, conv.ExternalID)
			if err != nil {
				return err
			}

			if existingID == "" {
				if err := store.InsertConversation(ctx, tx, conv); err != nil {
					return err
				}
				if ad.SupportsLiveRegistration() {
					if err := reconcileIfLive(ctx, tx, conv); err != nil {
						return err
					}
				}
				tally(stats.harness(ad.Name()), conv)
				insertedAny = true
				return nil
			}

			var existingEnded sql.NullString
			if err := tx.QueryRowContext(ctx, `SELECT ended_at FROM conversations WHERE id = ?`, existingID).Scan(&existingEnded); err != nil {
				return fmt.Errorf("reading existing conversation %s: %w", existingID, err)
			}
			if conv.EndedAt.IsZero() || (existingEnded.Valid && existingEnded.String >= conv.EndedAt.UTC().Format(timeLayout())) {
				stats.FilesSkipped++
				return nil
			}

			if err := store.DeleteConversation(ctx, tx, existingID); err != nil {
				return fmt.Errorf("deleting stale conversation %s: %w", existingID, err)
			}
			conv.ID = ""
			if err := store.InsertConversation(ctx, tx, conv); err != nil {
				return err
			}
			if ad.SupportsLiveRegistration() {
				if err := reconcileIfLive(ctx, tx, conv); err != nil {
					return err
				}
			}
			stats.harness(ad.Name()).Replaced++
			tally(stats.harness(ad.Name()), conv)
			replacedAny = true
			return nil
		})
		if err != nil {
			return err
		}
	}
	if insertedAny {
		stats.FilesIngested++
	}
	if replacedAny {
		stats.FilesReplaced++
	}
	return nil
}

func timeLayout() string { return "2006-01-02T15:04:05.000Z07:00" }

func recordIngestedFile(ctx context.Context, tx *sql.Tx, path, hash, conversationID, errMsg string) error {
	var convArg, errArg any
	if conversationID != "" {
		convArg = conversationID
	}
	if errMsg != "" {
		errArg = errMsg
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO ingested_files (id, path, content_hash, conversation_id, ingested_at, error)
		VALUES (?, ?, ?, ?, ?, ?)`,
		idgen.New("ifile"), path, hash, convArg, time.Now().UTC().Format(timeLayout()), errArg)
	if err != nil {
		return fmt.Errorf("recording ingested file %s: %w", path, err)
	}
	return nil
}

// reconcileIfLive runs live-session reconciliation (spec.md §4.8) when
// a just-inserted conversation's external_id matches a registered
// active session.
func reconcileIfLive(ctx context.Context, tx *sql.Tx, conv *domain.Conversation) error {
	var sessionID string
	err := tx.QueryRowContext(ctx, `SELECT harness_session_id FROM active_sessions WHERE harness_session_id = ?`, conv.ExternalID).Scan(&sessionID)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking active session for %s: %w", conv.ExternalID, err)
	}
	return store.ReconcileSession(ctx, tx, sessionID, conv.ID)
}
