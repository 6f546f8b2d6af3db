package tripfinder

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mnrtools/tripfinder/downloader"
	"github.com/mnrtools/tripfinder/parse"
	"github.com/mnrtools/tripfinder/storage"
)

const (
	DefaultRefreshInterval = 7 * 24 * time.Hour
	DefaultStaticTimeout   = 60 * time.Second
	DefaultStaticMaxSize   = 200 << 20 // 200 MB
)

var ErrNoSnapshot = errors.New("no schedule snapshot loaded")

type StoreConfig struct {
	StaticURL       string
	Location        *time.Location
	RefreshInterval time.Duration
	StaticTimeout   time.Duration
	StaticMaxSize   int

	// OnRefresh, if set, is called after every refresh attempt
	// with its outcome. Used to feed metrics.
	OnRefresh func(err error)
}

// Store owns the current schedule snapshot. A single background
// refresher replaces it; any number of concurrent readers take it via
// Snapshot(). A failed refresh never replaces a good snapshot.
type Store struct {
	cfg        StoreConfig
	storage    storage.Storage
	downloader downloader.Downloader
	logger     *zap.Logger

	mutex   sync.RWMutex
	current *Snapshot

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewStore(cfg StoreConfig, s storage.Storage, dl downloader.Downloader, logger *zap.Logger) *Store {
	if cfg.RefreshInterval == 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}
	if cfg.StaticTimeout == 0 {
		cfg.StaticTimeout = DefaultStaticTimeout
	}
	if cfg.StaticMaxSize == 0 {
		cfg.StaticMaxSize = DefaultStaticMaxSize
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	return &Store{
		cfg:        cfg,
		storage:    s,
		downloader: dl,
		logger:     logger,
		stopCh:     make(chan struct{}),
	}
}

// Snapshot returns the current schedule snapshot. ErrNoSnapshot is
// returned until the first successful Load.
func (s *Store) Snapshot() (*Snapshot, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if s.current == nil {
		return nil, ErrNoSnapshot
	}
	return s.current, nil
}

// Load populates the store at startup. If the download fails but
// storage holds a previously parsed feed, the most recent one is
// served instead.
func (s *Store) Load(ctx context.Context) error {
	err := s.Refresh(ctx)
	if err == nil {
		return nil
	}

	s.logger.Warn("initial schedule download failed, trying stored feeds",
		zap.Error(err),
	)

	if storedErr := s.loadStored(); storedErr != nil {
		return fmt.Errorf("loading schedule: %w", err)
	}
	return nil
}

// Refresh downloads and parses the static archive, then atomically
// swaps the current snapshot. On failure the previous snapshot stays
// in place. Safe to call concurrently with readers; all blocking I/O
// happens before the swap, outside the lock.
func (s *Store) Refresh(ctx context.Context) error {
	err := s.refresh(ctx)
	if s.cfg.OnRefresh != nil {
		s.cfg.OnRefresh(err)
	}
	return err
}

func (s *Store) refresh(ctx context.Context) error {
	body, err := s.downloader.Get(ctx, s.cfg.StaticURL, downloader.GetOptions{
		Timeout: s.cfg.StaticTimeout,
		MaxSize: s.cfg.StaticMaxSize,
	})
	if err != nil {
		return fmt.Errorf("downloading schedule: %w", err)
	}
	hash := fmt.Sprintf("%x", sha256.Sum256(body))

	metadata, err := s.findStored(hash)
	if err != nil {
		return err
	}

	if metadata == nil {
		writer, err := s.storage.GetWriter(hash)
		if err != nil {
			return fmt.Errorf("getting writer: %w", err)
		}
		defer writer.Close()

		metadata, err = parse.ParseStatic(writer, body)
		if err != nil {
			return fmt.Errorf("parsing schedule: %w", err)
		}

		metadata.SHA256 = hash
		metadata.URL = s.cfg.StaticURL
		metadata.RetrievedAt = time.Now().UTC()

		if err := s.storage.WriteFeedMetadata(metadata); err != nil {
			return fmt.Errorf("writing metadata: %w", err)
		}
	}

	return s.publish(metadata)
}

// Start launches the periodic refresh loop. Stop ends it.
func (s *Store) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.cfg.RefreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := s.Refresh(context.Background()); err != nil {
					s.logger.Error("schedule refresh failed, keeping current snapshot",
						zap.Error(err),
					)
				} else {
					s.logger.Info("schedule refreshed")
				}
			case <-s.stopCh:
				return
			}
		}
	}()
}

func (s *Store) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.wg.Wait()
	})
}

// findStored returns metadata for an already-parsed feed with the
// given hash, or nil if storage has no such feed.
func (s *Store) findStored(hash string) (*storage.FeedMetadata, error) {
	feeds, err := s.storage.ListFeeds()
	if err != nil {
		return nil, fmt.Errorf("listing feeds: %w", err)
	}
	for _, feed := range feeds {
		if feed.SHA256 == hash {
			return feed, nil
		}
	}
	return nil, nil
}

// loadStored publishes the most recently retrieved feed in storage.
func (s *Store) loadStored() error {
	feeds, err := s.storage.ListFeeds()
	if err != nil {
		return fmt.Errorf("listing feeds: %w", err)
	}
	if len(feeds) == 0 {
		return ErrNoSnapshot
	}

	if err := s.publish(feeds[0]); err != nil {
		return err
	}

	s.logger.Info("serving stored schedule",
		zap.String("hash", feeds[0].SHA256),
		zap.Time("retrieved_at", feeds[0].RetrievedAt),
	)
	return nil
}

func (s *Store) publish(metadata *storage.FeedMetadata) error {
	reader, err := s.storage.GetReader(metadata.SHA256)
	if err != nil {
		return fmt.Errorf("getting reader: %w", err)
	}

	snapshot, err := NewSnapshot(reader, metadata, s.cfg.Location)
	if err != nil {
		return fmt.Errorf("building snapshot: %w", err)
	}

	s.mutex.Lock()
	s.current = snapshot
	s.mutex.Unlock()

	return nil
}
