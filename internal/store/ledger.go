package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/budgetbook/budgetbook/internal/category"
	"github.com/budgetbook/budgetbook/internal/dedupe"
	"github.com/budgetbook/budgetbook/internal/id"
	"github.com/budgetbook/budgetbook/internal/logger"
	"github.com/budgetbook/budgetbook/internal/model"
)

// UnknownInstitution labels records saved without an institution.
const UnknownInstitution = "Unknown bank"

// ErrNoTransaction is returned when a transaction id is not stored.
var ErrNoTransaction = errors.New("transaction not found")

// ErrNoCategory is returned when a label is not in the catalog.
var ErrNoCategory = errors.New("category not found")

// Ledger is the transaction repository. Commit is the only writer that
// reads the corpus before writing; it runs under a mutex so concurrent
// imports cannot both miss each other's records.
type Ledger struct {
	kv     KV
	mu     sync.Mutex
	now    func() time.Time
	newKey func() string
}

// NewLedger wraps kv.
func NewLedger(kv KV) *Ledger {
	return &Ledger{kv: kv, now: time.Now, newKey: id.NewTransactionKey}
}

// All returns every stored transaction in creation order.
func (l *Ledger) All(ctx context.Context) ([]model.TransactionRecord, error) {
	keys, err := l.kv.Keys(ctx, id.TransactionPrefix)
	if err != nil {
		return nil, err
	}
	out := make([]model.TransactionRecord, 0, len(keys))
	for _, k := range keys {
		rec, err := l.get(ctx, k)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Get returns one stored transaction.
func (l *Ledger) Get(ctx context.Context, key string) (model.TransactionRecord, error) {
	return l.get(ctx, key)
}

func (l *Ledger) get(ctx context.Context, key string) (model.TransactionRecord, error) {
	data, err := l.kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return model.TransactionRecord{}, fmt.Errorf("%s: %w", key, ErrNoTransaction)
	}
	if err != nil {
		return model.TransactionRecord{}, err
	}
	var rec model.TransactionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return model.TransactionRecord{}, fmt.Errorf("decoding %s: %w", key, err)
	}
	rec.ID = key
	return rec, nil
}

func (l *Ledger) put(ctx context.Context, rec model.TransactionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding transaction: %w", err)
	}
	return l.kv.Set(ctx, rec.ID, data)
}

// prepare assigns a fresh key and normalizes category and institution.
func (l *Ledger) prepare(rec model.TransactionRecord, now time.Time) model.TransactionRecord {
	rec = rec.Clone()
	rec.ID = l.newKey()
	rec.CreatedAt = now
	rec.Category = category.Canonical(rec.Category)
	if strings.TrimSpace(rec.Institution) == "" {
		rec.Institution = UnknownInstitution
	}
	return rec
}

// Save stores records unconditionally and returns them with their keys.
// The batch is written atomically: on error nothing is stored.
func (l *Ledger) Save(ctx context.Context, records []model.TransactionRecord) ([]model.TransactionRecord, error) {
	if len(records) == 0 {
		return []model.TransactionRecord{}, nil
	}
	now := l.now()
	out := make([]model.TransactionRecord, 0, len(records))
	entries := make([]Entry, 0, len(records))
	for _, r := range records {
		rec := l.prepare(r, now)
		data, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("encoding transaction: %w", err)
		}
		entries = append(entries, Entry{Key: rec.ID, Value: data})
		out = append(out, rec)
	}
	if err := l.kv.SetMany(ctx, entries); err != nil {
		return nil, err
	}
	return out, nil
}

// Check partitions records against the stored corpus without saving.
func (l *Ledger) Check(ctx context.Context, records []model.TransactionRecord) (dedupe.Result, error) {
	existing, err := l.All(ctx)
	if err != nil {
		return dedupe.Result{}, err
	}
	return dedupe.Dedupe(existing, normalized(records)), nil
}

// Commit saves the records of incoming that are not already stored. The
// returned Unique records carry their new keys.
func (l *Ledger) Commit(ctx context.Context, incoming []model.TransactionRecord) (dedupe.Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	existing, err := l.All(ctx)
	if err != nil {
		return dedupe.Result{}, err
	}
	res := dedupe.Dedupe(existing, normalized(incoming))
	saved, err := l.Save(ctx, res.Unique)
	if err != nil {
		return dedupe.Result{}, fmt.Errorf("saving transactions: %w", err)
	}
	res.Unique = saved

	log := logger.FromContext(ctx)
	log.Info().
		Int("accepted", len(saved)).
		Int("duplicates", len(res.Duplicates)).
		Msg("committed transactions")
	return res, nil
}

// normalized applies the labels Save would, so duplicates are judged on
// stored form.
func normalized(records []model.TransactionRecord) []model.TransactionRecord {
	out := make([]model.TransactionRecord, len(records))
	for i, r := range records {
		r.Category = category.Canonical(r.Category)
		if strings.TrimSpace(r.Institution) == "" {
			r.Institution = UnknownInstitution
		}
		out[i] = r
	}
	return out
}

// UpdateCategory relabels one transaction.
func (l *Ledger) UpdateCategory(ctx context.Context, key, label string) (model.TransactionRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, err := l.get(ctx, key)
	if err != nil {
		return model.TransactionRecord{}, err
	}
	rec.Category = category.Canonical(label)
	if err := l.put(ctx, rec); err != nil {
		return model.TransactionRecord{}, err
	}
	return rec, nil
}

// Delete removes one transaction.
func (l *Ledger) Delete(ctx context.Context, key string) error {
	if !id.IsTransactionKey(key) {
		return fmt.Errorf("%s: %w", key, ErrNoTransaction)
	}
	if _, err := l.kv.Get(ctx, key); errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%s: %w", key, ErrNoTransaction)
	}
	return l.kv.Delete(ctx, key)
}

// DeleteAll removes every transaction and returns how many were removed.
func (l *Ledger) DeleteAll(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.deleteAll(ctx)
}

func (l *Ledger) deleteAll(ctx context.Context) (int, error) {
	keys, err := l.kv.Keys(ctx, id.TransactionPrefix)
	if err != nil {
		return 0, err
	}
	for i, k := range keys {
		if err := l.kv.Delete(ctx, k); err != nil {
			return i, err
		}
	}
	return len(keys), nil
}

// RemoveDuplicates deletes every stored transaction whose identity was
// already seen earlier in creation order.
func (l *Ledger) RemoveDuplicates(ctx context.Context) (removed, remaining int, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	all, err := l.All(ctx)
	if err != nil {
		return 0, 0, err
	}
	res := dedupe.Collapse(all)
	for _, r := range res.Duplicates {
		if err := l.kv.Delete(ctx, r.ID); err != nil {
			return removed, len(all) - removed, err
		}
		removed++
	}
	return removed, len(res.Unique), nil
}

type catalog struct {
	Categories []string  `json:"categories"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Categories returns the category catalog, seeded with the fixed labels
// when nothing is stored yet.
func (l *Ledger) Categories(ctx context.Context) ([]string, error) {
	data, err := l.kv.Get(ctx, id.CategoriesKey)
	if errors.Is(err, ErrNotFound) {
		return sortedUnique(category.Labels()), nil
	}
	if err != nil {
		return nil, err
	}
	var c catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decoding categories: %w", err)
	}
	return c.Categories, nil
}

// SaveCategories replaces the catalog.
func (l *Ledger) SaveCategories(ctx context.Context, labels []string) ([]string, error) {
	clean := sortedUnique(labels)
	data, err := json.Marshal(catalog{Categories: clean, UpdatedAt: l.now()})
	if err != nil {
		return nil, fmt.Errorf("encoding categories: %w", err)
	}
	if err := l.kv.Set(ctx, id.CategoriesKey, data); err != nil {
		return nil, err
	}
	return clean, nil
}

// AddCategory adds label to the catalog.
func (l *Ledger) AddCategory(ctx context.Context, label string) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	label = category.Canonical(label)
	cats, err := l.Categories(ctx)
	if err != nil {
		return nil, err
	}
	return l.SaveCategories(ctx, append(cats, label))
}

// RenameCategory renames a catalog entry and relabels its transactions.
func (l *Ledger) RenameCategory(ctx context.Context, from, to string) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	to = category.Canonical(to)
	cats, err := l.Categories(ctx)
	if err != nil {
		return nil, err
	}
	i := slices.Index(cats, from)
	if i < 0 {
		return nil, fmt.Errorf("%q: %w", from, ErrNoCategory)
	}
	cats[i] = to

	all, err := l.All(ctx)
	if err != nil {
		return nil, err
	}
	var relabeled []Entry
	for _, r := range all {
		if r.Category != from {
			continue
		}
		r.Category = to
		data, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("encoding transaction: %w", err)
		}
		relabeled = append(relabeled, Entry{Key: r.ID, Value: data})
	}
	if err := l.kv.SetMany(ctx, relabeled); err != nil {
		return nil, err
	}
	return l.SaveCategories(ctx, cats)
}

// DeleteCategory removes a catalog entry. Transactions keep their label.
func (l *Ledger) DeleteCategory(ctx context.Context, label string) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cats, err := l.Categories(ctx)
	if err != nil {
		return nil, err
	}
	i := slices.Index(cats, label)
	if i < 0 {
		return nil, fmt.Errorf("%q: %w", label, ErrNoCategory)
	}
	return l.SaveCategories(ctx, slices.Delete(cats, i, i+1))
}

// Export builds a backup bundle of the whole ledger.
func (l *Ledger) Export(ctx context.Context) (*Bundle, error) {
	txns, err := l.All(ctx)
	if err != nil {
		return nil, err
	}
	cats, err := l.Categories(ctx)
	if err != nil {
		return nil, err
	}
	return NewBundle(txns, cats, l.now()), nil
}

// Restore saves the transactions of a bundle under fresh keys and, when
// the bundle carries one, replaces the category catalog. With replace set
// the stored transactions are removed first.
func (l *Ledger) Restore(ctx context.Context, b *Bundle, replace bool) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if replace {
		if _, err := l.deleteAll(ctx); err != nil {
			return 0, fmt.Errorf("clearing transactions: %w", err)
		}
	}
	saved, err := l.Save(ctx, b.Transactions)
	if err != nil {
		return len(saved), fmt.Errorf("restoring transactions: %w", err)
	}
	if b.Categories != nil {
		if _, err := l.SaveCategories(ctx, b.Categories); err != nil {
			return len(saved), fmt.Errorf("restoring categories: %w", err)
		}
	}
	return len(saved), nil
}

// Clear removes all transactions and the category catalog.
func (l *Ledger) Clear(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n, err := l.deleteAll(ctx)
	if err != nil {
		return n, err
	}
	return n, l.kv.Delete(ctx, id.CategoriesKey)
}

func sortedUnique(labels []string) []string {
	out := make([]string, 0, len(labels))
	for _, s := range labels {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
