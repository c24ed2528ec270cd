package handlers

import (
	"encoding/json"
	"strconv"
	"uirecorder/internal/models"
	"uirecorder/internal/replay"
	"uirecorder/pkg/database"
	"uirecorder/pkg/response"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func GetExecutions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	status := c.Query("status")
	flowID := c.Query("flow_id")
	triggerType := c.Query("trigger_type")

	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 10
	}

	var executions []models.Execution
	var total int64

	query := database.DB.Model(&models.Execution{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if flowID != "" {
		query = query.Where("flow_id = ?", flowID)
	}
	if triggerType != "" {
		query = query.Where("trigger_type = ?", triggerType)
	}

	// Count total
	query.Count(&total)

	// Get paginated executions with relations
	offset := (page - 1) * pageSize
	err := query.Preload("Flow").Preload("Flow.Project").Preload("Flow.Environment").
		Preload("User").
		Order("created_at DESC").
		Offset(offset).Limit(pageSize).Find(&executions).Error
	if err != nil {
		response.InternalServerError(c, "获取执行记录失败")
		return
	}

	// Clear user passwords
	for i := range executions {
		executions[i].User.Password = ""
	}

	response.Page(c, executions, total, page, pageSize)
}

func GetExecutionStatistics(c *gin.Context) {
	projectID := c.Query("project_id")
	environmentID := c.Query("environment_id")
	status := c.Query("status")
	startDate := c.Query("start_date")
	endDate := c.Query("end_date")

	// 构建基础查询，过滤条件在多个统计查询间复用
	filtered := func() *gorm.DB {
		query := database.DB.Model(&models.Execution{})
		if projectID != "" || environmentID != "" {
			query = query.Joins("LEFT JOIN flows ON executions.flow_id = flows.id")
		}
		if projectID != "" {
			query = query.Where("flows.project_id = ?", projectID)
		}
		if environmentID != "" {
			query = query.Where("flows.environment_id = ?", environmentID)
		}
		if startDate != "" && endDate != "" {
			query = query.Where("executions.created_at BETWEEN ? AND ?",
				startDate+" 00:00:00", endDate+" 23:59:59")
		}
		return query
	}

	var totalExecutions int64
	totalQuery := filtered()
	if status != "" {
		totalQuery = totalQuery.Where("executions.status = ?", status)
	}
	totalQuery.Count(&totalExecutions)

	// 获取各状态的执行次数
	var statusCounts []struct {
		Status string
		Count  int64
	}
	filtered().Select("executions.status, COUNT(*) as count").
		Group("executions.status").Scan(&statusCounts)

	var passedCount, failedCount, runningCount, pendingCount, cancelledCount int64
	for _, sc := range statusCounts {
		switch sc.Status {
		case "passed":
			passedCount = sc.Count
		case "failed":
			failedCount = sc.Count
		case "running":
			runningCount = sc.Count
		case "pending":
			pendingCount = sc.Count
		case "cancelled":
			cancelledCount = sc.Count
		}
	}

	// 计算成功率
	var successRate float64
	finished := passedCount + failedCount
	if finished > 0 {
		successRate = float64(passedCount) / float64(finished) * 100
	}

	// 计算平均执行时长
	var avgDuration float64
	filtered().Where("executions.duration > 0").
		Select("AVG(executions.duration) as avg_duration").
		Pluck("avg_duration", &avgDuration)

	response.Success(c, gin.H{
		"total_executions": totalExecutions,
		"passed_count":     passedCount,
		"failed_count":     failedCount,
		"running_count":    runningCount,
		"pending_count":    pendingCount,
		"cancelled_count":  cancelledCount,
		"success_rate":     successRate,
		"avg_duration":     avgDuration,
	})
}

func GetExecution(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "无效的执行记录ID")
		return
	}

	var execution models.Execution
	err = database.DB.Preload("Flow").Preload("Flow.Project").
		Preload("Flow.Environment").Preload("Flow.Device").
		Preload("User").
		First(&execution, id).Error
	if err != nil {
		response.NotFound(c, "执行记录不存在")
		return
	}

	execution.User.Password = ""
	response.Success(c, execution)
}

func DeleteExecution(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "无效的执行记录ID")
		return
	}

	userID, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, "用户未登录")
		return
	}

	var execution models.Execution
	err = database.DB.Where("id = ? AND user_id = ?", id, userID).First(&execution).Error
	if err != nil {
		response.NotFound(c, "执行记录不存在或无权限")
		return
	}

	// Don't allow deleting running executions
	if execution.Status == "running" || execution.Status == "pending" {
		response.BadRequest(c, "不能删除正在运行的执行记录")
		return
	}

	// Delete related performance metrics first
	database.DB.Where("execution_id = ?", id).Delete(&models.PerformanceMetric{})

	// Delete related screenshots
	database.DB.Where("execution_id = ?", id).Delete(&models.Screenshot{})

	// Delete execution record
	err = database.DB.Delete(&execution).Error
	if err != nil {
		response.InternalServerError(c, "删除执行记录失败")
		return
	}

	response.SuccessWithMessage(c, "删除成功", nil)
}

func GetExecutionLogs(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "无效的执行记录ID")
		return
	}

	var execution models.Execution
	err = database.DB.Select("logs").First(&execution, id).Error
	if err != nil {
		response.NotFound(c, "执行记录不存在")
		return
	}

	// Parse logs JSON
	var logs []map[string]interface{}
	if execution.Logs != "" && execution.Logs != "[]" {
		err = json.Unmarshal([]byte(execution.Logs), &logs)
		if err != nil {
			response.InternalServerError(c, "解析执行日志失败")
			return
		}
	}

	response.Success(c, gin.H{
		"logs": logs,
	})
}

func GetExecutionScreenshots(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "无效的执行记录ID")
		return
	}

	// Get screenshots from database
	var screenshots []models.Screenshot
	err = database.DB.Where("execution_id = ?", id).Order("action_index ASC").Find(&screenshots).Error
	if err != nil {
		response.InternalServerError(c, "获取截图记录失败")
		return
	}

	// Also get screenshot paths stored on the execution record
	var execution models.Execution
	err = database.DB.Select("screenshots").First(&execution, id).Error
	if err != nil {
		response.NotFound(c, "执行记录不存在")
		return
	}

	var executionScreenshots []string
	if execution.Screenshots != "" && execution.Screenshots != "[]" {
		err = json.Unmarshal([]byte(execution.Screenshots), &executionScreenshots)
		if err != nil {
			response.InternalServerError(c, "解析截图数据失败")
			return
		}
	}

	response.Success(c, gin.H{
		"screenshots":           screenshots,
		"execution_screenshots": executionScreenshots,
	})
}

func GetExecutionStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "无效的执行记录ID")
		return
	}

	var execution models.Execution
	err = database.DB.Select("id, status, start_time, end_time").First(&execution, id).Error
	if err != nil {
		response.NotFound(c, "执行记录不存在")
		return
	}

	// Check replay engine status
	executorRunning := false
	if replay.GlobalExecutor != nil {
		executorRunning = replay.GlobalExecutor.IsRunning(execution.ID)
	}

	response.Success(c, gin.H{
		"id":               execution.ID,
		"database_status":  execution.Status,
		"executor_running": executorRunning,
		"start_time":       execution.StartTime,
		"end_time":         execution.EndTime,
		"consistent":       (execution.Status == "running") == executorRunning,
	})
}

func StopExecution(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "无效的执行记录ID")
		return
	}

	userID, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, "用户未登录")
		return
	}

	var execution models.Execution
	err = database.DB.Where("id = ? AND user_id = ?", id, userID).First(&execution).Error
	if err != nil {
		response.NotFound(c, "执行记录不存在或无权限")
		return
	}

	// Only allow stopping running or pending executions
	if execution.Status != "running" && execution.Status != "pending" {
		response.BadRequest(c, "只能停止运行中或等待中的执行记录")
		return
	}

	// Cancel the actual execution and close browser
	if replay.GlobalExecutor != nil {
		if execution.Status == "running" {
			replay.GlobalExecutor.CancelExecution(execution.ID)
		}
	}

	// Update execution status to cancelled
	err = database.DB.Model(&execution).Updates(models.Execution{
		Status: "cancelled",
	}).Error
	if err != nil {
		response.InternalServerError(c, "停止执行失败")
		return
	}

	response.SuccessWithMessage(c, "停止执行成功", nil)
}
