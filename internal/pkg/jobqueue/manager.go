package jobqueue

import (
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/TobiKellner/StockShip/internal/pkg/env"
)

// Manager manages the global job queue and background tasks
type Manager struct {
	queue         *Queue
	cleanupTicker *time.Ticker
	stopCh        chan struct{}
	wg            sync.WaitGroup
	mu            sync.Mutex
	running       bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global job queue manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		workerCount := 2
		if v, err := strconv.Atoi(env.GetEnv("JOBQUEUE_WORKERS", "2")); err == nil && v > 0 {
			workerCount = v
		}

		globalManager = &Manager{
			queue:  NewQueue(workerCount),
			stopCh: make(chan struct{}),
		}
	})
	return globalManager
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Start starts the job queue and background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue and background tasks")

	m.queue.Start()

	// Sweep expired archives once an hour
	m.cleanupTicker = time.NewTicker(1 * time.Hour)
	m.wg.Add(1)
	go m.cleanupWorker()

	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops the job queue and background tasks
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping job queue and background tasks...")

	if m.cleanupTicker != nil {
		m.cleanupTicker.Stop()
	}

	// The channel stays set after close; cleanupWorker may still read the
	// field, and Start replaces it on the next cycle.
	close(m.stopCh)
	m.running = false

	m.wg.Wait()

	m.queue.Stop()

	log.Info("[JobQueue Manager] Stopped successfully")
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// cleanupWorker periodically deletes finished archives that exceeded the
// configured retention window
func (m *Manager) cleanupWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			log.Info("[JobQueue Manager] Cleanup worker stopping")
			return
		case <-m.cleanupTicker.C:
			if err := m.cleanupExpiredArchives(); err != nil {
				log.Errorf("[JobQueue Manager] Archive cleanup error: %v", err)
			}
		}
	}
}

// cleanupExpiredArchives removes archive directories older than
// EXPORT_RETENTION_HOURS (default 72)
func (m *Manager) cleanupExpiredArchives() error {
	retention := 72
	if v, err := strconv.Atoi(env.GetEnv("EXPORT_RETENTION_HOURS", "72")); err == nil && v > 0 {
		retention = v
	}
	cutoff := time.Now().Add(-time.Duration(retention) * time.Hour)

	exportDir := env.GetEnv("EXPORT_DIR", "exports")
	entries, err := os.ReadDir(exportDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.RemoveAll(filepath.Join(exportDir, entry.Name())); err != nil {
				log.Errorf("[JobQueue Manager] Failed to remove expired archive dir %s: %v", entry.Name(), err)
				continue
			}
			removed++
		}
	}
	if removed > 0 {
		log.Infof("[JobQueue Manager] Removed %d expired archive directories", removed)
	}
	return nil
}
