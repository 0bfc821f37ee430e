package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/igorofyeshuasete/authgate/domain/model"
	"github.com/igorofyeshuasete/authgate/domain/port/outbound"
)

var auditHeader = []string{"timestamp", "username", "action", "details"}

// csvAuditLog appends one row per event. Rows are never rewritten or
// deleted; Query re-reads the file so concurrent writers in other
// processes are visible.
type csvAuditLog struct {
	path   string
	logger outbound.Logger
	mu     sync.Mutex
}

func NewCSVAuditLog(path string, logger outbound.Logger) (outbound.AuditLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}
	return &csvAuditLog{path: path, logger: logger}, nil
}

func (l *csvAuditLog) Record(entry model.AuditEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, statErr := os.Stat(l.path)
	isNew := os.IsNotExist(statErr)

	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return model.NewStorageError("append", l.path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if isNew {
		w.Write(auditHeader)
	}
	w.Write([]string{
		entry.Timestamp.Format(model.AuditTimeLayout),
		entry.Username,
		entry.Action,
		entry.Details,
	})
	w.Flush()

	if err := w.Error(); err != nil {
		return model.NewStorageError("append", l.path, err)
	}
	return nil
}

func (l *csvAuditLog) Query(filter model.AuditFilter) ([]model.AuditEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return []model.AuditEntry{}, nil
	}
	if err != nil {
		return nil, model.NewStorageError("query", l.path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, model.NewStorageError("query", l.path, err)
	}

	entries := make([]model.AuditEntry, 0, len(records))
	for i, rec := range records {
		if i == 0 || len(rec) < 4 {
			continue
		}
		ts, err := time.ParseInLocation(model.AuditTimeLayout, rec[0], time.Local)
		if err != nil {
			l.logger.Warn("skipping audit row with bad timestamp", "row", i, "value", rec[0])
			continue
		}
		entry := model.AuditEntry{
			Timestamp: ts,
			Username:  rec[1],
			Action:    rec[2],
			Details:   rec[3],
		}
		if filter.Matches(entry) {
			entries = append(entries, entry)
		}
	}

	// most recent first
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	return entries, nil
}
