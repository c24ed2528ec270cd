package services

import (
	"encoding/json"
	"log"
	"sync"
	"time"
	"uirecorder/internal/models"
	"uirecorder/internal/replay"
	"uirecorder/pkg/database"

	"github.com/robfig/cron/v3"
)

// SchedulerService runs enabled schedules through a six-field cron (seconds
// first). Entry IDs are tracked per schedule so updates replace the old
// registration instead of stacking a second one.
type SchedulerService struct {
	cron    *cron.Cron
	mutex   sync.Mutex
	entries map[uint]cron.EntryID
}

var scheduleParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

var GlobalScheduler *SchedulerService

func InitScheduler() error {
	GlobalScheduler = &SchedulerService{
		cron:    cron.New(cron.WithSeconds()),
		entries: make(map[uint]cron.EntryID),
	}

	// Load existing enabled schedules
	err := GlobalScheduler.loadSchedules()
	if err != nil {
		return err
	}

	// Start the cron scheduler
	GlobalScheduler.cron.Start()
	log.Println("Scheduler service initialized")

	return nil
}

func (s *SchedulerService) loadSchedules() error {
	var schedules []models.Schedule
	err := database.DB.Where("enabled = ?", true).Find(&schedules).Error
	if err != nil {
		return err
	}

	for _, schedule := range schedules {
		err := s.AddSchedule(schedule)
		if err != nil {
			log.Printf("Failed to register schedule %d: %v", schedule.ID, err)
		}
	}

	log.Printf("Loaded %d enabled schedules", len(schedules))
	return nil
}

// AddSchedule registers a schedule with the cron runner, replacing any
// existing registration for the same schedule ID.
func (s *SchedulerService) AddSchedule(schedule models.Schedule) error {
	if schedule.CronExpression == "" {
		return nil
	}

	s.RemoveSchedule(schedule.ID)

	scheduleID := schedule.ID
	entryID, err := s.cron.AddFunc(schedule.CronExpression, func() {
		s.runScheduledFlow(scheduleID)
	})
	if err != nil {
		return err
	}

	s.mutex.Lock()
	s.entries[schedule.ID] = entryID
	s.mutex.Unlock()

	s.updateNextRun(schedule.ID, schedule.CronExpression)

	log.Printf("Registered schedule %d (entry %d): %s", schedule.ID, entryID, schedule.CronExpression)
	return nil
}

// updateNextRun records when the schedule will fire next, for display in the
// schedule list.
func (s *SchedulerService) updateNextRun(scheduleID uint, expr string) {
	sched, err := scheduleParser.Parse(expr)
	if err != nil {
		return
	}
	next := sched.Next(time.Now())
	database.DB.Model(&models.Schedule{}).Where("id = ?", scheduleID).Update("next_run_at", next)
}

// RemoveSchedule drops the cron registration for a schedule, if present.
func (s *SchedulerService) RemoveSchedule(scheduleID uint) {
	s.mutex.Lock()
	entryID, exists := s.entries[scheduleID]
	if exists {
		delete(s.entries, scheduleID)
	}
	s.mutex.Unlock()

	if exists {
		s.cron.Remove(entryID)
		log.Printf("Removed schedule %d (entry %d)", scheduleID, entryID)
	}
}

func (s *SchedulerService) runScheduledFlow(scheduleID uint) {
	log.Printf("⏰ Triggering scheduled flow replay for schedule %d", scheduleID)

	var schedule models.Schedule
	err := database.DB.First(&schedule, scheduleID).Error
	if err != nil {
		log.Printf("Failed to load schedule %d: %v", scheduleID, err)
		return
	}

	// The registration may outlive a disable toggle by one tick
	if !schedule.Enabled {
		log.Printf("Schedule %d is disabled, skipping run", scheduleID)
		return
	}

	var flow models.Flow
	err = database.DB.Preload("Environment").Preload("Device").
		Where("id = ? AND status = ?", schedule.FlowID, 1).First(&flow).Error
	if err != nil {
		log.Printf("Failed to load flow %d for schedule %d: %v", schedule.FlowID, scheduleID, err)
		return
	}

	actions, err := flow.GetActions()
	if err != nil || len(actions) == 0 {
		log.Printf("Flow %d has no replayable actions, skipping schedule %d", flow.ID, scheduleID)
		return
	}

	// Check if replay engine is available
	if replay.GlobalExecutor == nil {
		log.Printf("Replay engine not available for scheduled run")
		return
	}

	runningCount := replay.GlobalExecutor.GetRunningCount()
	if runningCount >= 10 {
		log.Printf("Insufficient capacity for schedule %d (%d executions already running)", scheduleID, runningCount)
		return
	}

	execution := models.Execution{
		FlowID:       flow.ID,
		ScheduleID:   &schedule.ID,
		TriggerType:  "scheduled",
		Status:       "pending",
		StartTime:    time.Now(),
		TotalActions: len(actions),
		UserID:       schedule.UserID, // Schedule owner is recorded as executor
		ErrorMessage: "",
		Logs:         "[]",
		Screenshots:  "[]",
	}

	err = database.DB.Create(&execution).Error
	if err != nil {
		log.Printf("Failed to create execution record for schedule %d: %v", scheduleID, err)
		return
	}

	now := time.Now()
	schedule.LastRunAt = &now
	database.DB.Model(&schedule).Update("last_run_at", now)
	s.updateNextRun(schedule.ID, schedule.CronExpression)

	go func() {
		execution.Status = "running"
		database.DB.Save(&execution)

		// Scheduled runs are headless and sequential, avoiding ChromeDP
		// concurrency issues with overlapping triggers
		result := replay.GlobalExecutor.RunDirectly(&execution, &flow, false)

		if result.Success {
			execution.Status = "passed"
		} else {
			execution.Status = "failed"
			execution.ErrorMessage = result.ErrorMessage
		}

		done := 0
		for _, entry := range result.Logs {
			if entry.Status == "success" {
				done++
			}
		}
		execution.DoneActions = done

		end := time.Now()
		execution.EndTime = &end
		execution.Duration = int(end.Sub(execution.StartTime).Milliseconds())

		if logsJSON, err := json.Marshal(result.Logs); err == nil {
			execution.Logs = string(logsJSON)
		}
		if screenshotsJSON, err := json.Marshal(result.Screenshots); err == nil {
			execution.Screenshots = string(screenshotsJSON)
		}

		database.DB.Save(&execution)

		// Save performance metrics if available
		if result.Metrics != nil {
			result.Metrics.ExecutionID = execution.ID
			database.DB.Create(result.Metrics)
		}

		log.Printf("Scheduled replay for schedule %d completed with status: %s", scheduleID, execution.Status)
	}()
}

func (s *SchedulerService) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		log.Println("Scheduler service stopped")
	}
}
