package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/top250-scraper/pkg/log"
	"github.com/Sriram-PR/top250-scraper/pkg/models"
	"github.com/Sriram-PR/top250-scraper/pkg/utils"
)

const (
	pageKeyPrefix = "page:"     // Prefix for page offset keys in DB
	ledgerDBDir   = "ledger_db" // Subdirectory name within stateDir for Badger DB files
	offsetDigits  = 6           // Zero-padding so key order equals offset order
)

// BadgerStore implements PageLedger using BadgerDB
type BadgerStore struct {
	db  *badger.DB
	log *logrus.Entry
	ctx context.Context // Parent context
}

// NewBadgerStore opens the page ledger.
// An empty stateDir keeps the ledger in memory for the lifetime of the process.
// Otherwise the ledger lives under stateDir/ledger_db and, unless resume is set,
// any ledger left by a previous run is removed first.
func NewBadgerStore(ctx context.Context, stateDir string, resume bool, logger *logrus.Entry) (*BadgerStore, error) {
	store := &BadgerStore{
		log: logger,
		ctx: ctx,
	}

	badgerLogger := log.NewBadgerLogrusAdapter(logger.WithField("component", "badgerdb"))
	var opts badger.Options
	if stateDir == "" {
		logger.Debug("Initializing in-memory page ledger")
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		dbPath := filepath.Join(stateDir, ledgerDBDir)
		if !resume {
			logger.Debugf("Removing previous page ledger at %s", dbPath)
			if err := os.RemoveAll(dbPath); err != nil {
				logger.Errorf("Failed to remove existing ledger directory %s: %v", dbPath, err)
			}
		}
		if err := os.MkdirAll(dbPath, 0755); err != nil {
			return nil, fmt.Errorf("%w: cannot create state directory %s: %w", utils.ErrFilesystem, dbPath, err)
		}
		logger.Infof("Initializing page ledger at: %s (Resume: %v)", dbPath, resume)
		opts = badger.DefaultOptions(dbPath)
	}
	opts = opts.
		WithLogger(badgerLogger).
		WithNumVersionsToKeep(1)

	var err error
	store.db, err = badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open page ledger: %w", utils.ErrDatabase, err)
	}
	return store, nil
}

func pageKey(offset int) []byte {
	return []byte(fmt.Sprintf("%s%0*d", pageKeyPrefix, offsetDigits, offset))
}

// RecordPage implements PageLedger
func (s *BadgerStore) RecordPage(entry *models.PageDBEntry) error {
	if s.db == nil {
		return fmt.Errorf("%w: page ledger not initialized", utils.ErrDatabase)
	}
	if entry == nil {
		return fmt.Errorf("%w: nil page entry", utils.ErrDatabase)
	}
	if !entry.Status.IsValid() {
		return fmt.Errorf("%w: page %d has unrecordable status '%s'", utils.ErrDatabase, entry.PageIndex, entry.Status)
	}
	key := pageKey(entry.Offset)

	entryBytes, errJSON := json.Marshal(entry)
	if errJSON != nil {
		return fmt.Errorf("%w: failed to marshal PageDBEntry for key '%s': %w", utils.ErrDatabase, string(key), errJSON)
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(key, entryBytes))
	})
	if err != nil {
		s.log.WithField("key", string(key)).Errorf("DB Update error in RecordPage: %v", err)
		return fmt.Errorf("%w: failed setting page status for key '%s': %w", utils.ErrDatabase, string(key), err)
	}

	s.log.Debugf("Recorded page %d (offset %d) as '%s'", entry.PageIndex, entry.Offset, entry.Status)
	return nil
}

// CheckPageStatus implements PageLedger
func (s *BadgerStore) CheckPageStatus(offset int) (models.PageStatus, *models.PageDBEntry, error) {
	status := models.PageStatusNotFound
	var entry *models.PageDBEntry
	key := pageKey(offset)

	errView := s.db.View(func(txn *badger.Txn) error {
		item, errGet := txn.Get(key)
		if errors.Is(errGet, badger.ErrKeyNotFound) {
			return nil
		}
		if errGet != nil {
			return fmt.Errorf("%w: failed getting page key '%s': %w", utils.ErrDatabase, string(key), errGet)
		}
		return item.Value(func(val []byte) error {
			var decoded models.PageDBEntry
			if errJSON := json.Unmarshal(val, &decoded); errJSON != nil {
				return fmt.Errorf("%w: corrupt entry for key '%s': %w", utils.ErrDatabase, string(key), errJSON)
			}
			entry = &decoded
			status = decoded.Status
			return nil
		})
	})
	if errView != nil {
		s.log.Errorf("DB View error in CheckPageStatus for key '%s': %v", string(key), errView)
		return models.PageStatusDBError, nil, errView
	}
	return status, entry, nil
}

// Pages implements PageLedger
func (s *BadgerStore) Pages() ([]models.PageDBEntry, error) {
	var pages []models.PageDBEntry
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(pageKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := s.ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			var decoded models.PageDBEntry
			errValue := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &decoded)
			})
			if errValue != nil {
				s.log.Warnf("Skipping unreadable ledger entry '%s': %v", string(item.Key()), errValue)
				continue
			}
			pages = append(pages, decoded)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return pages, err
		}
		return pages, fmt.Errorf("%w: scanning page ledger: %w", utils.ErrDatabase, err)
	}
	return pages, nil
}

// WritePageLog implements PageLedger.
// Columns: page index, offset, status, records, error type.
func (s *BadgerStore) WritePageLog(filePath string) error {
	pages, err := s.Pages()
	if err != nil {
		return err
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("%w: create page log '%s': %w", utils.ErrFilesystem, filePath, err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, p := range pages {
		line := strings.Join([]string{
			strconv.Itoa(p.PageIndex),
			strconv.Itoa(p.Offset),
			string(p.Status),
			strconv.Itoa(p.Records),
			p.ErrorType,
		}, "\t")
		if _, err := writer.WriteString(line + "\n"); err != nil {
			return fmt.Errorf("%w: write page log '%s': %w", utils.ErrFilesystem, filePath, err)
		}
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("%w: flush page log '%s': %w", utils.ErrFilesystem, filePath, err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("%w: sync page log '%s': %w", utils.ErrFilesystem, filePath, err)
	}

	s.log.Infof("Wrote %d pages to page log: %s", len(pages), filePath)
	return nil
}

// Close implements PageLedger
func (s *BadgerStore) Close() error {
	if s.db != nil && !s.db.IsClosed() {
		s.log.Debug("Closing page ledger...")
		if err := s.db.Close(); err != nil {
			s.log.Errorf("Error closing page ledger: %v", err)
			return err
		}
		return nil
	}
	return nil
}
