// Package auditlog keeps a CSV record of every transfer and payment that
// was submitted to the bank.
package auditlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coba-dev/coba/internal/banking"
)

// Entry is one row in the audit log.
type Entry struct {
	ID        string
	Timestamp time.Time
	Operation string
	From      string
	To        string
	Amount    decimal.Decimal
	Status    string // accepted or rejected
	Number    string
	Reason    string
	Memo      string
}

// Header is the CSV header of the audit log.
var Header = []string{"id", "timestamp", "operation", "from", "to", "amount", "status", "confirmation", "reason", "memo"}

const (
	colID = iota
	colTimestamp
	colOperation
	colFrom
	colTo
	colAmount
	colStatus
	colNumber
	colReason
	colMemo
	numFields
)

const (
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colID] = e.ID
	row[colTimestamp] = e.Timestamp.Format(time.RFC3339)
	row[colOperation] = e.Operation
	row[colFrom] = e.From
	row[colTo] = e.To
	row[colAmount] = e.Amount.StringFixed(2)
	row[colStatus] = e.Status
	row[colNumber] = e.Number
	row[colReason] = e.Reason
	row[colMemo] = e.Memo
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}
	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}
	amount, err := decimal.NewFromString(record[colAmount])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing amount %q: %w", record[colAmount], err)
	}
	return Entry{
		ID:        record[colID],
		Timestamp: ts,
		Operation: record[colOperation],
		From:      record[colFrom],
		To:        record[colTo],
		Amount:    amount,
		Status:    record[colStatus],
		Number:    record[colNumber],
		Reason:    record[colReason],
		Memo:      record[colMemo],
	}, nil
}

// FromSubmission builds an entry with a fresh id.
func FromSubmission(s banking.Submission) Entry {
	e := Entry{
		ID:        uuid.NewString(),
		Timestamp: s.At.UTC(),
		Operation: s.Operation,
		From:      s.From.String(),
		To:        s.To.String(),
		Amount:    s.Amount,
		Status:    StatusRejected,
		Number:    s.Number,
		Reason:    s.Reason,
		Memo:      s.Memo,
	}
	if s.Accepted {
		e.Status = StatusAccepted
	}
	return e
}

// Log appends to an audit file. It implements banking.Recorder.
type Log struct {
	path string
}

// New returns a Log writing to path.
func New(path string) *Log {
	return &Log{path: path}
}

// Record appends one submission.
func (l *Log) Record(s banking.Submission) error {
	return Append(l.path, []Entry{FromSubmission(s)})
}

// Append writes entries to path, creating the file and header if needed.
func Append(path string, entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating audit log dir: %w", err)
	}

	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if needsHeader {
		if err := cw.Write(Header); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read returns all entries in path. A missing file has no entries.
func Read(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading audit log CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
