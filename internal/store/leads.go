package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"leadhunt-engine/internal/domain"
)

// LeadRow is a persisted lead plus its row identity and dispatch state.
type LeadRow struct {
	ID int64
	domain.Lead
	SMSSent   bool
	SMSDate   string
	CreatedAt string
}

func Migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}

	if v >= 1 {
		return tx.Commit()
	}

	// ---- Schema v1 ----

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS leads (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  address TEXT NOT NULL,
  state TEXT NOT NULL,
  phone TEXT NOT NULL,
  phone_digits TEXT NOT NULL DEFAULT '',
  website TEXT NOT NULL,
  category TEXT NOT NULL,
  rating TEXT NOT NULL,
  search_location TEXT NOT NULL DEFAULT '',
  search_category TEXT NOT NULL DEFAULT '',
  dedup_key TEXT NOT NULL DEFAULT '',
  sms_sent INTEGER NOT NULL DEFAULT 0,
  sms_date TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_leads_phone_digits
ON leads(phone_digits)
WHERE phone_digits != '';
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_leads_dedup_key
ON leads(dedup_key)
WHERE dedup_key != '';
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_leads_sms_sent
ON leads(sms_sent);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`PRAGMA user_version = 1;`); err != nil {
		return err
	}

	return tx.Commit()
}

// SaveLeads inserts new leads, suppressing duplicates of anything already
// stored or of earlier entries in the same batch. A lead is a duplicate
// when its phone digits match, or when name+address match. Returns how
// many rows were added and how many were suppressed.
func SaveLeads(ctx context.Context, db *sql.DB, leads []domain.Lead) (added, skipped int, err error) {
	if len(leads) == 0 {
		return 0, 0, nil
	}

	phones, keys, err := existingDedupSets(ctx, db)
	if err != nil {
		return 0, 0, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO leads (name, address, state, phone, phone_digits, website, category, rating,
                   search_location, search_category, dedup_key, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`)
	if err != nil {
		return 0, 0, err
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, l := range leads {
		digits := domain.PhoneDigits(l.Phone)
		key := l.DedupKey()

		dup := (digits != "" && phones[digits]) || (key != "" && keys[key])
		if dup {
			skipped++
			continue
		}
		if digits != "" {
			phones[digits] = true
		}
		if key != "" {
			keys[key] = true
		}

		if _, err := stmt.ExecContext(ctx,
			l.Name, l.Address, l.State, l.Phone, digits, l.Website, l.Category, l.Rating,
			l.SearchLocation, l.SearchCategory, key, now,
		); err != nil {
			return 0, 0, fmt.Errorf("insert lead %q: %w", l.Name, err)
		}
		added++
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, err
	}
	return added, skipped, nil
}

func existingDedupSets(ctx context.Context, db *sql.DB) (phones, keys map[string]bool, err error) {
	phones = make(map[string]bool)
	keys = make(map[string]bool)

	rows, err := db.QueryContext(ctx, `SELECT phone_digits, dedup_key FROM leads;`)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var digits, key string
		if err := rows.Scan(&digits, &key); err != nil {
			return nil, nil, err
		}
		if digits != "" {
			phones[digits] = true
		}
		if key != "" {
			keys[key] = true
		}
	}
	return phones, keys, rows.Err()
}

// LeadsWithoutSMS lists leads that have a usable phone number and have
// not been messaged yet, oldest first.
func LeadsWithoutSMS(ctx context.Context, db *sql.DB) ([]LeadRow, error) {
	rows, err := db.QueryContext(ctx, `
SELECT id, name, address, state, phone, website, category, rating,
       search_location, search_category, sms_sent, sms_date, created_at
FROM leads
WHERE sms_sent = 0 AND phone_digits != ''
ORDER BY created_at ASC, id ASC;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanLeadRows(rows)
}

// AllLeads lists every stored lead, newest first.
func AllLeads(ctx context.Context, db *sql.DB) ([]LeadRow, error) {
	rows, err := db.QueryContext(ctx, `
SELECT id, name, address, state, phone, website, category, rating,
       search_location, search_category, sms_sent, sms_date, created_at
FROM leads
ORDER BY created_at DESC, id DESC;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanLeadRows(rows)
}

func scanLeadRows(rows *sql.Rows) ([]LeadRow, error) {
	var out []LeadRow
	for rows.Next() {
		var r LeadRow
		var sent int
		if err := rows.Scan(
			&r.ID, &r.Name, &r.Address, &r.State, &r.Phone, &r.Website,
			&r.Category, &r.Rating, &r.SearchLocation, &r.SearchCategory,
			&sent, &r.SMSDate, &r.CreatedAt,
		); err != nil {
			return nil, err
		}
		r.SMSSent = sent != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

// MarkSMSSent records a successful dispatch for one lead.
func MarkSMSSent(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx, `
UPDATE leads SET sms_sent = 1, sms_date = ? WHERE id = ?;`,
		time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("mark sms sent for lead %d: %w", id, err)
	}
	return nil
}

// CountLeads reports total rows and how many still await an SMS.
func CountLeads(ctx context.Context, db *sql.DB) (total, unsent int, err error) {
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM leads;`).Scan(&total); err != nil {
		return 0, 0, err
	}
	if err := db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM leads WHERE sms_sent = 0 AND phone_digits != '';`).Scan(&unsent); err != nil {
		return 0, 0, err
	}
	return total, unsent, nil
}
