package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

type BaseModel struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

type User struct {
	BaseModel
	Username string `json:"username" gorm:"uniqueIndex;size:100;not null"`
	Email    string `json:"email" gorm:"uniqueIndex;size:100;not null"`
	Password string `json:"-" gorm:"size:255;not null"`
	Avatar   string `json:"avatar" gorm:"size:255"`
	Status   int    `json:"status" gorm:"default:1"` // 1:active, 0:inactive
}

type Environment struct {
	BaseModel
	Name        string `json:"name" gorm:"size:100;not null"`
	Description string `json:"description" gorm:"size:500"`
	BaseURL     string `json:"base_url" gorm:"size:500;not null"`
	Type        string `json:"type" gorm:"size:20;not null"` // test, product
	Headers     string `json:"headers" gorm:"type:text"`     // JSON object
	Variables   string `json:"variables" gorm:"type:text"`   // JSON object
	Status      int    `json:"status" gorm:"default:1"`
}

type Project struct {
	BaseModel
	Name        string `json:"name" gorm:"size:100;not null"`
	Description string `json:"description" gorm:"size:500"`
	UserID      uint   `json:"user_id" gorm:"not null"`
	User        User   `json:"user" gorm:"foreignKey:UserID"`
	Status      int    `json:"status" gorm:"default:1"`
}

// Device is a browser emulation preset applied to recording and replay sessions.
type Device struct {
	BaseModel
	Name             string  `json:"name" gorm:"size:100;not null"`
	Width            int     `json:"width" gorm:"not null"`
	Height           int     `json:"height" gorm:"not null"`
	UserAgent        string  `json:"user_agent" gorm:"size:500"`
	DevicePixelRatio float64 `json:"device_pixel_ratio" gorm:"default:1"`
	Mobile           bool    `json:"mobile" gorm:"default:false"`
	Touch            bool    `json:"touch" gorm:"default:false"`
	IsDefault        bool    `json:"is_default" gorm:"default:false"`
	Status           int     `json:"status" gorm:"default:1"`
}

// Flow is a saved recording: an ordered list of replayable actions plus the
// context (project, environment, device) it was captured under.
type Flow struct {
	BaseModel
	Name          string      `json:"name" gorm:"size:200;not null"`
	Description   string      `json:"description" gorm:"size:1000"`
	ProjectID     uint        `json:"project_id" gorm:"not null"`
	Project       Project     `json:"project" gorm:"foreignKey:ProjectID"`
	EnvironmentID uint        `json:"environment_id" gorm:"not null"`
	Environment   Environment `json:"environment" gorm:"foreignKey:EnvironmentID"`
	DeviceID      uint        `json:"device_id" gorm:"not null"`
	Device        Device      `json:"device" gorm:"foreignKey:DeviceID"`
	StartURL      string      `json:"start_url" gorm:"size:500"`
	Actions       string      `json:"actions" gorm:"type:longtext"` // JSON Action array
	Tags          string      `json:"tags" gorm:"size:500"`
	Status        int         `json:"status" gorm:"default:1"`
	UserID        uint        `json:"user_id" gorm:"not null"`
	User          User        `json:"user" gorm:"foreignKey:UserID"`
}

func (f *Flow) GetActions() ([]Action, error) {
	var actions []Action
	if f.Actions == "" {
		return actions, nil
	}
	err := json.Unmarshal([]byte(f.Actions), &actions)
	return actions, err
}

func (f *Flow) SetActions(actions []Action) error {
	data, err := json.Marshal(actions)
	if err != nil {
		return err
	}
	f.Actions = string(data)
	return nil
}

type Execution struct {
	BaseModel
	FlowID       uint       `json:"flow_id" gorm:"not null"`
	Flow         Flow       `json:"flow" gorm:"foreignKey:FlowID"`
	ScheduleID   *uint      `json:"schedule_id"`  // set for cron-triggered runs
	TriggerType  string     `json:"trigger_type"` // manual, scheduled
	Status       string     `json:"status"`       // pending, running, passed, failed, cancelled
	StartTime    time.Time  `json:"start_time"`
	EndTime      *time.Time `json:"end_time"`
	Duration     int        `json:"duration"` // milliseconds
	TotalActions int        `json:"total_actions"`
	DoneActions  int        `json:"done_actions"`
	ErrorMessage string     `json:"error_message" gorm:"type:text"`
	Logs         string     `json:"logs" gorm:"type:longtext"`    // JSON array
	Screenshots  string     `json:"screenshots" gorm:"type:text"` // JSON array of paths
	UserID       uint       `json:"user_id" gorm:"not null"`
	User         User       `json:"user" gorm:"foreignKey:UserID"`
}

// Schedule drives recurring replays of a flow via a cron expression
// (six-field form, with seconds).
type Schedule struct {
	BaseModel
	Name           string     `json:"name" gorm:"size:200;not null"`
	FlowID         uint       `json:"flow_id" gorm:"not null"`
	Flow           Flow       `json:"flow" gorm:"foreignKey:FlowID"`
	CronExpression string     `json:"cron_expression" gorm:"size:100;not null"`
	Enabled        bool       `json:"enabled" gorm:"default:true"`
	LastRunAt      *time.Time `json:"last_run_at"`
	NextRunAt      *time.Time `json:"next_run_at"`
	UserID         uint       `json:"user_id" gorm:"not null"`
	User           User       `json:"user" gorm:"foreignKey:UserID"`
}

type PerformanceMetric struct {
	BaseModel
	ExecutionID          uint      `json:"execution_id" gorm:"not null"`
	Execution            Execution `json:"execution" gorm:"foreignKey:ExecutionID"`
	PageLoadTime         int       `json:"page_load_time"`         // milliseconds
	DOMContentLoaded     int       `json:"dom_content_loaded"`     // milliseconds
	FirstPaint           int       `json:"first_paint"`            // milliseconds
	FirstContentfulPaint int       `json:"first_contentful_paint"` // milliseconds
	NetworkRequests      int       `json:"network_requests"`
	JSHeapSize           float64   `json:"js_heap_size"` // MB
}

type Screenshot struct {
	BaseModel
	ExecutionID uint      `json:"execution_id" gorm:"not null"`
	Execution   Execution `json:"execution" gorm:"foreignKey:ExecutionID"`
	ActionIndex int       `json:"action_index"` // which action this screenshot belongs to
	Type        string    `json:"type"`         // before, after, error
	FilePath    string    `json:"file_path" gorm:"size:500;not null"`
	FileName    string    `json:"file_name" gorm:"size:255;not null"`
	FileSize    int64     `json:"file_size"`
}
