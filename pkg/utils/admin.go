package utils

import (
	"uirecorder/internal/models"
	"uirecorder/pkg/database"
)

// IsAdmin checks if the user with given ID is an admin user
func IsAdmin(userID uint) bool {
	var user models.User
	err := database.DB.First(&user, userID).Error
	if err != nil {
		return false
	}
	return user.Username == "admin"
}

// HasPermissionOnProject checks if user has permission on a project (owner or admin)
func HasPermissionOnProject(userID uint, projectID uint) bool {
	if IsAdmin(userID) {
		return true
	}

	var project models.Project
	err := database.DB.Where("id = ? AND user_id = ? AND status = ?", projectID, userID, 1).First(&project).Error
	return err == nil
}

// HasPermissionOnFlow checks if user has permission on a flow (owner, project owner, or admin)
func HasPermissionOnFlow(userID uint, flowID uint) bool {
	if IsAdmin(userID) {
		return true
	}

	var flow models.Flow
	err := database.DB.Preload("Project").Where("id = ? AND status = ?", flowID, 1).First(&flow).Error
	if err != nil {
		return false
	}

	return flow.UserID == userID || flow.Project.UserID == userID
}

// HasPermissionOnSchedule checks if user has permission on a schedule (owner, flow owner, or admin)
func HasPermissionOnSchedule(userID uint, scheduleID uint) bool {
	if IsAdmin(userID) {
		return true
	}

	var schedule models.Schedule
	err := database.DB.Preload("Flow").First(&schedule, scheduleID).Error
	if err != nil {
		return false
	}

	return schedule.UserID == userID || schedule.Flow.UserID == userID
}
