// Package store implements the permanent, multi-dialect SQL-backed
// knowledge/conversation store described in §4.5: postgres, mysql, and
// sqlite all share one code path over database/sql with a blank-imported
// driver per dialect.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/google/uuid"
)

// Dialect identifies the SQL backend in use; placeholder syntax and a
// handful of DDL details differ across the three.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
)

// ConversationTurn is one stored exchange (§3 Data Model).
type ConversationTurn struct {
	ID         string
	UserText   string
	Response   string
	Importance float64
	CreatedAt  time.Time
}

// KnowledgeEntry is one row of the category/key-addressed knowledge table.
type KnowledgeEntry struct {
	Category   string
	Key        string
	Value      string
	Importance float64
	Confidence float64
	Source     string
	UpdatedAt  time.Time

	// AllowDowngrade opts out of the monotonic importance/confidence bump
	// on upsert, for callers that need to correct a previously
	// over-scored entry.
	AllowDowngrade bool
}

// MemoryStats summarizes table sizes for the brain-stats API surface.
type MemoryStats struct {
	Conversations int
	Knowledge     int
	Patterns      int
	Skills        int
}

// Store is the permanent keyed store (§4.5). All writes are atomic
// (single-statement or wrapped in a transaction); reads may be stale with
// respect to concurrent writes.
type Store struct {
	db      *sql.DB
	dialect Dialect
	mu      sync.Mutex
}

// Open connects to dsn using driverName ("sqlite3", "postgres", "mysql")
// and ensures the schema exists.
func Open(driverName, dsn string, dialect Dialect) (*Store, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", driverName, err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("store: ping %s: %w", driverName, err)
	}

	s := &Store{db: db, dialect: dialect}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) initSchema() error {
	autoIncrement := "INTEGER PRIMARY KEY AUTOINCREMENT"
	switch s.dialect {
	case DialectPostgres:
		autoIncrement = "SERIAL PRIMARY KEY"
	case DialectMySQL:
		autoIncrement = "INTEGER PRIMARY KEY AUTO_INCREMENT"
	}

	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS conversations (
			id VARCHAR(64) PRIMARY KEY,
			user_text TEXT NOT NULL,
			response TEXT,
			importance REAL NOT NULL DEFAULT 5,
			metadata TEXT,
			created_at TIMESTAMP NOT NULL
		);`),
		`CREATE INDEX IF NOT EXISTS idx_conversations_created_at ON conversations(created_at);`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS knowledge (
			id %s,
			category VARCHAR(128) NOT NULL,
			key_name VARCHAR(255) NOT NULL,
			value TEXT NOT NULL,
			importance REAL NOT NULL DEFAULT 5,
			confidence REAL NOT NULL DEFAULT 0.8,
			source VARCHAR(255),
			layer VARCHAR(32),
			access_count INTEGER NOT NULL DEFAULT 0,
			last_accessed TIMESTAMP,
			metadata TEXT,
			updated_at TIMESTAMP NOT NULL,
			UNIQUE(category, key_name)
		);`, autoIncrement),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS patterns (
			id %s,
			pattern_type VARCHAR(128) NOT NULL,
			data TEXT NOT NULL,
			success BOOLEAN NOT NULL,
			created_at TIMESTAMP NOT NULL
		);`, autoIncrement),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS skills (
			id %s,
			skill VARCHAR(255) NOT NULL,
			success BOOLEAN NOT NULL,
			notes TEXT,
			created_at TIMESTAMP NOT NULL
		);`, autoIncrement),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS security_findings (
			id %s,
			finding_type VARCHAR(128) NOT NULL,
			detail TEXT NOT NULL,
			severity VARCHAR(32),
			created_at TIMESTAMP NOT NULL
		);`, autoIncrement),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS user_history (
			id %s,
			user_id VARCHAR(255) NOT NULL,
			event TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		);`, autoIncrement),
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("store: schema init: %w", err)
		}
	}
	return nil
}

// StoreConversation appends one conversation turn.
func (s *Store) StoreConversation(ctx context.Context, userText, response string, importance float64, now time.Time) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, user_text, response, importance, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, userText, response, importance, now)
	if err != nil {
		return "", fmt.Errorf("store: store conversation: %w", err)
	}
	return id, nil
}

// StoreKnowledge upserts a (category, key) row. Per §3, importance and
// confidence only ever bump upward across successive calls for the same
// key unless the caller sets entry.AllowDowngrade.
func (s *Store) StoreKnowledge(ctx context.Context, entry KnowledgeEntry) error {
	if entry.Importance == 0 {
		entry.Importance = 5
	}
	if entry.Confidence == 0 {
		entry.Confidence = 0.8
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !entry.AllowDowngrade {
		existing, err := s.recallKnowledgeQuery(ctx, entry.Category, entry.Key)
		if err != nil {
			return fmt.Errorf("store: store knowledge: %w", err)
		}
		if len(existing) == 1 {
			if existing[0].Importance > entry.Importance {
				entry.Importance = existing[0].Importance
			}
			if existing[0].Confidence > entry.Confidence {
				entry.Confidence = existing[0].Confidence
			}
		}
	}

	query := s.upsertKnowledgeQuery()
	_, err := s.db.ExecContext(ctx, query,
		entry.Category, entry.Key, entry.Value, entry.Importance, entry.Confidence, entry.Source, entry.UpdatedAt,
		entry.Value, entry.Importance, entry.Confidence, entry.Source, entry.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: store knowledge: %w", err)
	}
	return nil
}

func (s *Store) upsertKnowledgeQuery() string {
	switch s.dialect {
	case DialectPostgres:
		return `INSERT INTO knowledge (category, key_name, value, importance, confidence, source, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (category, key_name) DO UPDATE SET
				value=$8, importance=$9, confidence=$10, source=$11, updated_at=$12`
	default:
		return `INSERT INTO knowledge (category, key_name, value, importance, confidence, source, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (category, key_name) DO UPDATE SET
				value=?, importance=?, confidence=?, source=?, updated_at=?`
	}
}

// RecallKnowledge fetches a single key, or every key in a category when
// key is empty.
func (s *Store) RecallKnowledge(ctx context.Context, category, key string) ([]KnowledgeEntry, error) {
	return s.recallKnowledgeQuery(ctx, category, key)
}

// recallKnowledgeQuery is the shared query path for RecallKnowledge and
// StoreKnowledge's pre-upsert lookup; it does not itself take s.mu, so
// callers already holding it (StoreKnowledge) can reuse it directly.
func (s *Store) recallKnowledgeQuery(ctx context.Context, category, key string) ([]KnowledgeEntry, error) {
	var rows *sql.Rows
	var err error
	if key != "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT category, key_name, value, importance, confidence, COALESCE(source,''), updated_at FROM knowledge WHERE category=? AND key_name=?`,
			category, key)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT category, key_name, value, importance, confidence, COALESCE(source,''), updated_at FROM knowledge WHERE category=?`,
			category)
	}
	if err != nil {
		return nil, fmt.Errorf("store: recall knowledge: %w", err)
	}
	defer rows.Close()
	return scanKnowledge(rows)
}

// SearchKnowledge ranks entries by naive token overlap between query and
// value, returning up to limit entries.
func (s *Store) SearchKnowledge(ctx context.Context, query string, limit int) ([]KnowledgeEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT category, key_name, value, importance, confidence, COALESCE(source,''), updated_at FROM knowledge`)
	if err != nil {
		return nil, fmt.Errorf("store: search knowledge: %w", err)
	}
	defer rows.Close()

	all, err := scanKnowledge(rows)
	if err != nil {
		return nil, err
	}

	tokens := strings.Fields(strings.ToLower(query))
	scored := make([]struct {
		entry KnowledgeEntry
		score int
	}, 0, len(all))
	for _, e := range all {
		score := tokenOverlap(tokens, strings.ToLower(e.Value))
		if score > 0 {
			scored = append(scored, struct {
				entry KnowledgeEntry
				score int
			}{e, score})
		}
	}

	out := make([]KnowledgeEntry, 0, limit)
	for i := 0; i < len(scored) && len(out) < limit; i++ {
		best := i
		for j := i + 1; j < len(scored); j++ {
			if scored[j].score > scored[best].score {
				best = j
			}
		}
		scored[i], scored[best] = scored[best], scored[i]
		out = append(out, scored[i].entry)
	}
	return out, nil
}

func tokenOverlap(tokens []string, text string) int {
	count := 0
	for _, t := range tokens {
		if strings.Contains(text, t) {
			count++
		}
	}
	return count
}

func scanKnowledge(rows *sql.Rows) ([]KnowledgeEntry, error) {
	var out []KnowledgeEntry
	for rows.Next() {
		var e KnowledgeEntry
		if err := rows.Scan(&e.Category, &e.Key, &e.Value, &e.Importance, &e.Confidence, &e.Source, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: scan knowledge row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SearchConversations returns up to limit turns, newest first, whose
// user_text shares at least one token with query and whose importance is at
// least minImportance.
func (s *Store) SearchConversations(ctx context.Context, query string, limit int, minImportance float64) ([]ConversationTurn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_text, response, importance, created_at FROM conversations WHERE importance >= ? ORDER BY created_at DESC`,
		minImportance)
	if err != nil {
		return nil, fmt.Errorf("store: search conversations: %w", err)
	}
	defer rows.Close()

	var all []ConversationTurn
	for rows.Next() {
		var t ConversationTurn
		if err := rows.Scan(&t.ID, &t.UserText, &t.Response, &t.Importance, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan conversation row: %w", err)
		}
		all = append(all, t)
	}

	tokens := strings.Fields(strings.ToLower(query))
	out := make([]ConversationTurn, 0, limit)
	for _, t := range all {
		if tokenOverlap(tokens, strings.ToLower(t.UserText)) > 0 {
			out = append(out, t)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// GetConversationContext returns the most recent limit turns, newest first.
func (s *Store) GetConversationContext(ctx context.Context, limit int) ([]ConversationTurn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_text, response, importance, created_at FROM conversations ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: get conversation context: %w", err)
	}
	defer rows.Close()

	var out []ConversationTurn
	for rows.Next() {
		var t ConversationTurn
		if err := rows.Scan(&t.ID, &t.UserText, &t.Response, &t.Importance, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan conversation row: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// RecordPattern appends a pattern observation.
func (s *Store) RecordPattern(ctx context.Context, patternType, data string, success bool, now time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO patterns (pattern_type, data, success, created_at) VALUES (?, ?, ?, ?)`,
		patternType, data, success, now)
	if err != nil {
		return fmt.Errorf("store: record pattern: %w", err)
	}
	return nil
}

// TrackSkillUse appends a skill-use observation.
func (s *Store) TrackSkillUse(ctx context.Context, skill string, success bool, notes string, now time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO skills (skill, success, notes, created_at) VALUES (?, ?, ?, ?)`,
		skill, success, notes, now)
	if err != nil {
		return fmt.Errorf("store: track skill use: %w", err)
	}
	return nil
}

// GetMemoryStats reports table row counts.
func (s *Store) GetMemoryStats(ctx context.Context) (MemoryStats, error) {
	var stats MemoryStats
	for table, dest := range map[string]*int{
		"conversations": &stats.Conversations,
		"knowledge":     &stats.Knowledge,
		"patterns":      &stats.Patterns,
		"skills":        &stats.Skills,
	} {
		row := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table))
		if err := row.Scan(dest); err != nil {
			return stats, fmt.Errorf("store: stats for %s: %w", table, err)
		}
	}
	return stats, nil
}

// ConsolidateMemory is an opaque, idempotent optimization pass. It deletes
// unsuccessful pattern rows older than 90 days; skills rows are left as they
// are. It is safe to call repeatedly.
func (s *Store) ConsolidateMemory(ctx context.Context, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-90 * 24 * time.Hour)
	if _, err := s.db.ExecContext(ctx, `DELETE FROM patterns WHERE success = ? AND created_at < ?`, false, cutoff); err != nil {
		return fmt.Errorf("store: consolidate patterns: %w", err)
	}
	return nil
}
