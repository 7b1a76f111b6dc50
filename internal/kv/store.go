// Package kv implements the flat key/value namespace the service persists
// everything domain-related into. Values are JSON documents; keys are
// namespaced strings (see keys.go) so per-user data can be listed and
// removed with a prefix scan.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Entry is one row of the kv_store table.
type Entry struct {
	Key       string         `gorm:"primaryKey;size:255" json:"key"`
	Value     datatypes.JSON `gorm:"not null" json:"value"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (Entry) TableName() string {
	return "kv_store"
}

// Decode unmarshals the entry value into dst.
func (e Entry) Decode(dst interface{}) error {
	if err := json.Unmarshal(e.Value, dst); err != nil {
		return fmt.Errorf("decode %s: %w", e.Key, err)
	}
	return nil
}

var keyColumn = clause.Column{Name: "key"}

// Store reads and writes kv_store rows. A Store obtained inside
// Transaction is bound to that transaction.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle (transaction-bound inside Transaction).
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction runs fn inside a database transaction. fn must only use the
// Store it is given.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// Get loads key into dst. It reports false when the key does not exist.
func (s *Store) Get(ctx context.Context, key string, dst interface{}) (bool, error) {
	return s.get(s.db.WithContext(ctx), key, dst)
}

// GetForUpdate is Get with a row lock held until the surrounding
// transaction ends. On SQLite the lock is implicit (single writer).
func (s *Store) GetForUpdate(ctx context.Context, key string, dst interface{}) (bool, error) {
	return s.get(s.locking(s.db.WithContext(ctx)), key, dst)
}

func (s *Store) get(q *gorm.DB, key string, dst interface{}) (bool, error) {
	var entry Entry
	err := q.Where(clause.Eq{Column: keyColumn, Value: key}).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("kv get %s: %w", key, err)
	}
	if dst != nil {
		if err := entry.Decode(dst); err != nil {
			return false, err
		}
	}
	return true, nil
}

// Exists reports whether key is present.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&Entry{}).
		Where(clause.Eq{Column: keyColumn, Value: key}).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("kv exists %s: %w", key, err)
	}
	return count > 0, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(ctx context.Context, key string, value interface{}) error {
	entry, err := newEntry(key, value)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{keyColumn},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(entry).Error
	if err != nil {
		return fmt.Errorf("kv set %s: %w", key, err)
	}
	return nil
}

// SetIfAbsent stores value only when key does not exist yet and reports
// whether it wrote.
func (s *Store) SetIfAbsent(ctx context.Context, key string, value interface{}) (bool, error) {
	entry, err := newEntry(key, value)
	if err != nil {
		return false, err
	}
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{keyColumn},
		DoNothing: true,
	}).Create(entry)
	if result.Error != nil {
		return false, fmt.Errorf("kv set-if-absent %s: %w", key, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Del removes key and reports whether it existed.
func (s *Store) Del(ctx context.Context, key string) (bool, error) {
	result := s.db.WithContext(ctx).
		Where(clause.Eq{Column: keyColumn, Value: key}).
		Delete(&Entry{})
	if result.Error != nil {
		return false, fmt.Errorf("kv del %s: %w", key, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// MDel removes all given keys and returns how many rows were deleted.
func (s *Store) MDel(ctx context.Context, keys []string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	values := make([]interface{}, len(keys))
	for i, k := range keys {
		values[i] = k
	}
	result := s.db.WithContext(ctx).
		Where(clause.IN{Column: keyColumn, Values: values}).
		Delete(&Entry{})
	if result.Error != nil {
		return 0, fmt.Errorf("kv mdel: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// ScanPrefix returns every entry whose key starts with prefix, ordered by key.
func (s *Store) ScanPrefix(ctx context.Context, prefix string) ([]Entry, error) {
	return s.scan(s.db.WithContext(ctx), prefix)
}

// ScanPrefixForUpdate is ScanPrefix with row locks on the matched rows.
func (s *Store) ScanPrefixForUpdate(ctx context.Context, prefix string) ([]Entry, error) {
	return s.scan(s.locking(s.db.WithContext(ctx)), prefix)
}

func (s *Store) scan(q *gorm.DB, prefix string) ([]Entry, error) {
	var entries []Entry
	err := q.Where(prefixMatch(prefix)).
		Order(clause.OrderByColumn{Column: keyColumn}).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("kv scan %s: %w", prefix, err)
	}
	return entries, nil
}

// ScanOwned is ScanPrefix narrowed to the entries owner attributes to
// userID. A user prefix alone also matches users whose id extends it past a
// colon ("a" and "a:b").
func (s *Store) ScanOwned(ctx context.Context, prefix, userID string, owner OwnerFunc) ([]Entry, error) {
	entries, err := s.ScanPrefix(ctx, prefix)
	if err != nil {
		return nil, err
	}
	return ownedBy(entries, userID, owner), nil
}

// ScanOwnedForUpdate is ScanOwned with row locks on the scanned rows.
func (s *Store) ScanOwnedForUpdate(ctx context.Context, prefix, userID string, owner OwnerFunc) ([]Entry, error) {
	entries, err := s.ScanPrefixForUpdate(ctx, prefix)
	if err != nil {
		return nil, err
	}
	return ownedBy(entries, userID, owner), nil
}

func ownedBy(entries []Entry, userID string, owner OwnerFunc) []Entry {
	out := entries[:0]
	for _, e := range entries {
		if id, ok := owner(e.Key); ok && id == userID {
			out = append(out, e)
		}
	}
	return out
}

// Keys returns the keys of entries in order.
func Keys(entries []Entry) []string {
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	return keys
}

// ScanAs decodes every entry under prefix into a slice of T.
func ScanAs[T any](ctx context.Context, s *Store, prefix string) ([]T, error) {
	entries, err := s.ScanPrefix(ctx, prefix)
	if err != nil {
		return nil, err
	}
	return DecodeAll[T](entries)
}

// DecodeAll decodes entries in order.
func DecodeAll[T any](entries []Entry) ([]T, error) {
	out := make([]T, 0, len(entries))
	for _, e := range entries {
		var v T
		if err := e.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *Store) locking(q *gorm.DB) *gorm.DB {
	if s.db.Dialector.Name() == "sqlite" {
		return q
	}
	return q.Clauses(clause.Locking{Strength: "UPDATE"})
}

func newEntry(key string, value interface{}) (*Entry, error) {
	if key == "" {
		return nil, errors.New("kv: empty key")
	}
	b, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("kv encode %s: %w", key, err)
	}
	return &Entry{Key: key, Value: datatypes.JSON(b)}, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// prefixMatch selects keys starting with prefix. SQLite's LIKE folds ASCII
// case, so the substr comparison is what keeps the match exact there.
func prefixMatch(prefix string) clause.Expr {
	return clause.Expr{
		SQL: `? LIKE ? ESCAPE '\' AND substr(?, 1, ?) = ?`,
		Vars: []interface{}{
			keyColumn, likeEscaper.Replace(prefix) + "%",
			keyColumn, utf8.RuneCountInString(prefix), prefix,
		},
	}
}
