package handlers

import (
	"strconv"
	"uirecorder/internal/models"
	"uirecorder/internal/services"
	"uirecorder/pkg/database"
	"uirecorder/pkg/response"
	"uirecorder/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
)

// Matches the parser the scheduler runs with (six fields, seconds first).
var cronParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func GetSchedules(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	flowID := c.Query("flow_id")

	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 10
	}

	var schedules []models.Schedule
	var total int64

	query := database.DB.Model(&models.Schedule{})
	if flowID != "" {
		query = query.Where("flow_id = ?", flowID)
	}

	query.Count(&total)

	offset := (page - 1) * pageSize
	err := query.Preload("Flow").Preload("Flow.Project").Preload("User").
		Offset(offset).Limit(pageSize).Find(&schedules).Error
	if err != nil {
		response.InternalServerError(c, "获取定时任务列表失败")
		return
	}

	// Clear user passwords
	for i := range schedules {
		schedules[i].User.Password = ""
	}

	response.Page(c, schedules, total, page, pageSize)
}

func CreateSchedule(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, "用户未登录")
		return
	}

	var req struct {
		Name           string `json:"name" binding:"required,min=1,max=200"`
		FlowID         uint   `json:"flow_id" binding:"required"`
		CronExpression string `json:"cron_expression" binding:"required,max=100"`
		Enabled        *bool  `json:"enabled"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if _, err := cronParser.Parse(req.CronExpression); err != nil {
		response.BadRequest(c, "无效的Cron表达式: "+err.Error())
		return
	}

	var flow models.Flow
	err := database.DB.Where("id = ? AND status = ?", req.FlowID, 1).First(&flow).Error
	if err != nil {
		response.NotFound(c, "流程不存在")
		return
	}

	if !utils.HasPermissionOnFlow(userID.(uint), req.FlowID) {
		response.Forbidden(c, "无权限为该流程创建定时任务")
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	schedule := models.Schedule{
		Name:           req.Name,
		FlowID:         req.FlowID,
		CronExpression: req.CronExpression,
		Enabled:        enabled,
		UserID:         userID.(uint),
	}

	err = database.DB.Create(&schedule).Error
	if err != nil {
		response.InternalServerError(c, "创建定时任务失败")
		return
	}

	if schedule.Enabled && services.GlobalScheduler != nil {
		if err := services.GlobalScheduler.AddSchedule(schedule); err != nil {
			response.InternalServerError(c, "注册定时任务失败: "+err.Error())
			return
		}
	}

	database.DB.Preload("Flow").Preload("User").First(&schedule, schedule.ID)
	schedule.User.Password = ""

	response.SuccessWithMessage(c, "创建成功", schedule)
}

func GetSchedule(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "无效的定时任务ID")
		return
	}

	var schedule models.Schedule
	err = database.DB.Preload("Flow").Preload("Flow.Project").Preload("User").
		First(&schedule, id).Error
	if err != nil {
		response.NotFound(c, "定时任务不存在")
		return
	}

	schedule.User.Password = ""
	response.Success(c, schedule)
}

func UpdateSchedule(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "无效的定时任务ID")
		return
	}

	userID, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, "用户未登录")
		return
	}

	var req struct {
		Name           string `json:"name" binding:"omitempty,min=1,max=200"`
		CronExpression string `json:"cron_expression" binding:"omitempty,max=100"`
		Enabled        *bool  `json:"enabled"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	var schedule models.Schedule
	err = database.DB.First(&schedule, id).Error
	if err != nil {
		response.NotFound(c, "定时任务不存在")
		return
	}

	if !utils.HasPermissionOnSchedule(userID.(uint), uint(id)) {
		response.Forbidden(c, "无权限修改该定时任务")
		return
	}

	if req.Name != "" {
		schedule.Name = req.Name
	}
	if req.CronExpression != "" && req.CronExpression != schedule.CronExpression {
		if _, err := cronParser.Parse(req.CronExpression); err != nil {
			response.BadRequest(c, "无效的Cron表达式: "+err.Error())
			return
		}
		schedule.CronExpression = req.CronExpression
	}
	if req.Enabled != nil {
		schedule.Enabled = *req.Enabled
	}

	err = database.DB.Save(&schedule).Error
	if err != nil {
		response.InternalServerError(c, "更新定时任务失败")
		return
	}

	// Re-register with the cron runner so changes take effect
	if services.GlobalScheduler != nil {
		if schedule.Enabled {
			if err := services.GlobalScheduler.AddSchedule(schedule); err != nil {
				response.InternalServerError(c, "注册定时任务失败: "+err.Error())
				return
			}
		} else {
			services.GlobalScheduler.RemoveSchedule(schedule.ID)
		}
	}

	database.DB.Preload("Flow").Preload("User").First(&schedule, schedule.ID)
	schedule.User.Password = ""

	response.SuccessWithMessage(c, "更新成功", schedule)
}

// ToggleSchedule flips a schedule between enabled and disabled without
// touching the rest of its fields.
func ToggleSchedule(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "无效的定时任务ID")
		return
	}

	userID, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, "用户未登录")
		return
	}

	var schedule models.Schedule
	err = database.DB.First(&schedule, id).Error
	if err != nil {
		response.NotFound(c, "定时任务不存在")
		return
	}

	if !utils.HasPermissionOnSchedule(userID.(uint), uint(id)) {
		response.Forbidden(c, "无权限修改该定时任务")
		return
	}

	schedule.Enabled = !schedule.Enabled
	err = database.DB.Save(&schedule).Error
	if err != nil {
		response.InternalServerError(c, "更新定时任务失败")
		return
	}

	if services.GlobalScheduler != nil {
		if schedule.Enabled {
			if err := services.GlobalScheduler.AddSchedule(schedule); err != nil {
				response.InternalServerError(c, "注册定时任务失败: "+err.Error())
				return
			}
		} else {
			services.GlobalScheduler.RemoveSchedule(schedule.ID)
		}
	}

	message := "定时任务已禁用"
	if schedule.Enabled {
		message = "定时任务已启用"
	}
	response.SuccessWithMessage(c, message, gin.H{
		"id":      schedule.ID,
		"enabled": schedule.Enabled,
	})
}

func DeleteSchedule(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "无效的定时任务ID")
		return
	}

	userID, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, "用户未登录")
		return
	}

	var schedule models.Schedule
	err = database.DB.First(&schedule, id).Error
	if err != nil {
		response.NotFound(c, "定时任务不存在")
		return
	}

	if !utils.HasPermissionOnSchedule(userID.(uint), uint(id)) {
		response.Forbidden(c, "无权限删除该定时任务")
		return
	}

	if services.GlobalScheduler != nil {
		services.GlobalScheduler.RemoveSchedule(schedule.ID)
	}

	err = database.DB.Delete(&schedule).Error
	if err != nil {
		response.InternalServerError(c, "删除定时任务失败")
		return
	}

	response.SuccessWithMessage(c, "删除成功", nil)
}

// GetScheduleExecutions lists the replays a schedule has triggered.
func GetScheduleExecutions(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "无效的定时任务ID")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))

	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 50
	}

	var schedule models.Schedule
	err = database.DB.First(&schedule, id).Error
	if err != nil {
		response.NotFound(c, "定时任务不存在")
		return
	}

	var executions []models.Execution
	var total int64

	query := database.DB.Model(&models.Execution{}).Where("schedule_id = ?", id)
	query.Count(&total)

	offset := (page - 1) * pageSize
	err = query.Preload("Flow").Preload("User").
		Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&executions).Error
	if err != nil {
		response.InternalServerError(c, "获取定时任务执行记录失败")
		return
	}

	// Clear user passwords
	for i := range executions {
		executions[i].User.Password = ""
	}

	response.Page(c, executions, total, page, pageSize)
}
