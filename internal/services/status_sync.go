package services

import (
	"log"
	"time"
	"uirecorder/internal/models"
	"uirecorder/internal/replay"
	"uirecorder/pkg/database"
)

// StatusSyncService reconciles execution rows with the replay engine's live
// state, fixing rows left in "running" after crashes or lost results.
type StatusSyncService struct {
	ticker *time.Ticker
	done   chan struct{}
}

func NewStatusSyncService() *StatusSyncService {
	return &StatusSyncService{}
}

// Start begins the status synchronization service
func (s *StatusSyncService) Start() {
	if s.done != nil {
		return
	}

	s.ticker = time.NewTicker(30 * time.Second) // Check every 30 seconds
	s.done = make(chan struct{})

	go s.syncLoop()
	log.Println("Status sync service started")
}

// Stop stops the status synchronization service
func (s *StatusSyncService) Stop() {
	if s.done == nil {
		return
	}

	s.ticker.Stop()
	close(s.done)
	s.done = nil
	log.Println("Status sync service stopped")
}

func (s *StatusSyncService) syncLoop() {
	done := s.done
	for {
		select {
		case <-s.ticker.C:
			s.syncExecutionStates()
		case <-done:
			return
		}
	}
}

// syncExecutionStates fixes executions the database believes are running but
// the replay engine no longer knows about.
func (s *StatusSyncService) syncExecutionStates() {
	if replay.GlobalExecutor == nil {
		return
	}

	var runningExecutions []models.Execution
	err := database.DB.Where("status = ?", "running").Find(&runningExecutions).Error
	if err != nil {
		log.Printf("Failed to query running executions: %v", err)
		return
	}

	fixed := 0
	for _, execution := range runningExecutions {
		if replay.GlobalExecutor.IsRunning(execution.ID) {
			continue
		}

		// A fresh execution may still be between engine finish and the
		// handler's result write, give it a grace period
		if time.Since(execution.StartTime) < 30*time.Second {
			continue
		}

		// Marked running in the database but unknown to the engine: the
		// result write was lost. The outcome cannot be trusted, so the row
		// is closed as failed rather than guessed as passed.
		now := time.Now()
		execution.EndTime = &now
		execution.Duration = int(now.Sub(execution.StartTime).Milliseconds())
		execution.Status = "failed"
		if execution.ErrorMessage == "" {
			execution.ErrorMessage = "Execution finished but its result was never recorded"
		}

		err := database.DB.Save(&execution).Error
		if err != nil {
			log.Printf("❌ Failed to fix stuck execution %d: %v", execution.ID, err)
		} else {
			log.Printf("🔧 Fixed execution %d: closed as failed after %ds (status sync)",
				execution.ID, execution.Duration/1000)
			fixed++
		}
	}

	if fixed > 0 {
		log.Printf("Status sync fixed %d stuck executions", fixed)
	}

	// Also check for executions running too long (more than 30 minutes)
	s.timeoutLongRunningExecutions()
}

// timeoutLongRunningExecutions marks executions running for too long as failed
func (s *StatusSyncService) timeoutLongRunningExecutions() {
	cutoffTime := time.Now().Add(-30 * time.Minute)

	var longRunningExecutions []models.Execution
	err := database.DB.Where("status = ? AND start_time < ?", "running", cutoffTime).Find(&longRunningExecutions).Error
	if err != nil {
		log.Printf("Failed to query long running executions: %v", err)
		return
	}

	for _, execution := range longRunningExecutions {
		// Force cancel in engine if still running
		if replay.GlobalExecutor.IsRunning(execution.ID) {
			replay.GlobalExecutor.CancelExecution(execution.ID)
		}

		now := time.Now()
		execution.EndTime = &now
		execution.Duration = int(now.Sub(execution.StartTime).Milliseconds())
		execution.Status = "failed"
		execution.ErrorMessage = "Execution timed out after 30 minutes"

		err := database.DB.Save(&execution).Error
		if err != nil {
			log.Printf("Failed to timeout execution %d: %v", execution.ID, err)
		} else {
			log.Printf("Timed out long running execution %d after %ds",
				execution.ID, execution.Duration/1000)
		}
	}
}

// Global instance
var GlobalStatusSync *StatusSyncService

// InitStatusSync initializes the global status sync service
func InitStatusSync() {
	GlobalStatusSync = NewStatusSyncService()
	GlobalStatusSync.Start()
}
