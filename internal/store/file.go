package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"vacancy-vault/internal/parking"
)

const (
	slotsFile    = "parking_data.json"
	holidaysFile = "holidays.json"
	billsFile    = "bills.json"
)

// FileStore keeps the lot, the holiday schedule and the bill ledger as JSON
// files in one directory.
type FileStore struct {
	dir string
	loc *time.Location
	mu  sync.Mutex
}

func NewFileStore(dir string, loc *time.Location) (*FileStore, error) {
	if loc == nil {
		loc = time.Local
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileStore{dir: dir, loc: loc}, nil
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name)
}

// readJSON reports false when the file does not exist.
func (s *FileStore) readJSON(name string, v any) (bool, error) {
	data, err := os.ReadFile(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", name, err)
	}
	return true, nil
}

// writeJSON replaces the file through a rename so readers never see a
// partial write.
func (s *FileStore) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, name+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path(name))
}

func (s *FileStore) LoadSlots(ctx context.Context) (parking.Slots, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []SlotRecord
	if _, err := s.readJSON(slotsFile, &records); err != nil {
		return nil, err
	}
	return DecodeSlots(records, s.loc)
}

func (s *FileStore) SaveSlots(ctx context.Context, slots parking.Slots) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.writeJSON(slotsFile, EncodeSlots(slots))
}

// LoadHolidays writes the default schedule on first use.
func (s *FileStore) LoadHolidays(ctx context.Context) ([]parking.Holiday, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []HolidayRecord
	found, err := s.readJSON(holidaysFile, &records)
	if err != nil {
		return nil, err
	}
	if !found {
		records = DefaultHolidays()
		if err := s.writeJSON(holidaysFile, records); err != nil {
			return nil, fmt.Errorf("seed holidays: %w", err)
		}
	}
	return DecodeHolidays(records, s.loc)
}

func (s *FileStore) AppendBill(ctx context.Context, bill parking.Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []BillRecord
	if _, err := s.readJSON(billsFile, &records); err != nil {
		return err
	}
	records = append(records, EncodeBill(bill))
	return s.writeJSON(billsFile, records)
}

func (s *FileStore) Bills(ctx context.Context) ([]parking.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []BillRecord
	if _, err := s.readJSON(billsFile, &records); err != nil {
		return nil, err
	}
	bills := make([]parking.Bill, 0, len(records))
	for _, rec := range records {
		bills = append(bills, DecodeBill(rec))
	}
	return bills, nil
}
