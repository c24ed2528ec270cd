package handlers

import (
	"encoding/json"
	"log"
	"strconv"
	"sync"
	"time"
	"uirecorder/internal/models"
	"uirecorder/internal/replay"
	"uirecorder/pkg/database"
	"uirecorder/pkg/response"
	"uirecorder/pkg/utils"

	"github.com/gin-gonic/gin"
)

func GetFlows(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))
	projectID := c.Query("project_id")

	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 10
	}

	var flows []models.Flow
	var total int64

	query := database.DB.Model(&models.Flow{}).Where("status = ?", 1)
	if projectID != "" {
		query = query.Where("project_id = ?", projectID)
	}

	query.Count(&total)

	offset := (page - 1) * pageSize
	err := query.Preload("Project").Preload("Environment").Preload("Device").Preload("User").
		Offset(offset).Limit(pageSize).Find(&flows).Error
	if err != nil {
		response.InternalServerError(c, "获取流程列表失败")
		return
	}

	// Clear user passwords
	for i := range flows {
		flows[i].User.Password = ""
	}

	response.Page(c, flows, total, page, pageSize)
}

func CreateFlow(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, "用户未登录")
		return
	}

	var req struct {
		Name          string          `json:"name" binding:"required,min=1,max=200"`
		Description   string          `json:"description" binding:"max=1000"`
		ProjectID     uint            `json:"project_id" binding:"required"`
		EnvironmentID uint            `json:"environment_id" binding:"required"`
		DeviceID      uint            `json:"device_id" binding:"required"`
		StartURL      string          `json:"start_url" binding:"omitempty,url"`
		Actions       []models.Action `json:"actions"`
		Tags          string          `json:"tags" binding:"max=500"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	// Verify project exists and user has permission
	if !utils.HasPermissionOnProject(userID.(uint), req.ProjectID) {
		response.NotFound(c, "项目不存在或无权限")
		return
	}

	var project models.Project
	err := database.DB.Where("id = ? AND status = ?", req.ProjectID, 1).First(&project).Error
	if err != nil {
		response.NotFound(c, "项目不存在")
		return
	}

	var environment models.Environment
	err = database.DB.Where("id = ? AND status = ?", req.EnvironmentID, 1).First(&environment).Error
	if err != nil {
		response.NotFound(c, "环境不存在")
		return
	}

	var device models.Device
	err = database.DB.Where("id = ? AND status = ?", req.DeviceID, 1).First(&device).Error
	if err != nil {
		response.NotFound(c, "设备不存在")
		return
	}

	// Check if flow name exists in the project
	var existingFlow models.Flow
	err = database.DB.Where("name = ? AND project_id = ? AND status = ?", req.Name, req.ProjectID, 1).
		First(&existingFlow).Error
	if err == nil {
		response.BadRequest(c, "流程名称在该项目中已存在")
		return
	}

	flow := models.Flow{
		Name:          req.Name,
		Description:   req.Description,
		ProjectID:     req.ProjectID,
		EnvironmentID: req.EnvironmentID,
		DeviceID:      req.DeviceID,
		StartURL:      req.StartURL,
		Tags:          req.Tags,
		Status:        1,
		UserID:        userID.(uint),
	}
	if err := flow.SetActions(req.Actions); err != nil {
		response.BadRequest(c, "操作列表序列化失败")
		return
	}

	err = database.DB.Create(&flow).Error
	if err != nil {
		response.InternalServerError(c, "创建流程失败")
		return
	}

	database.DB.Preload("Project").Preload("Environment").Preload("Device").Preload("User").
		First(&flow, flow.ID)
	flow.User.Password = ""

	response.SuccessWithMessage(c, "创建成功", flow)
}

func GetFlow(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "无效的流程ID")
		return
	}

	var flow models.Flow
	err = database.DB.Preload("Project").Preload("Environment").Preload("Device").Preload("User").
		Where("status = ?", 1).First(&flow, id).Error
	if err != nil {
		response.NotFound(c, "流程不存在")
		return
	}

	flow.User.Password = ""
	response.Success(c, flow)
}

// GetFlowActions returns the flow's action list in parsed form, so consumers
// don't have to decode the JSON column themselves.
func GetFlowActions(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "无效的流程ID")
		return
	}

	var flow models.Flow
	err = database.DB.Where("status = ?", 1).First(&flow, id).Error
	if err != nil {
		response.NotFound(c, "流程不存在")
		return
	}

	actions, err := flow.GetActions()
	if err != nil {
		response.InternalServerError(c, "操作列表解析失败")
		return
	}

	response.Success(c, gin.H{
		"flow_id": flow.ID,
		"total":   len(actions),
		"actions": actions,
	})
}

func UpdateFlow(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "无效的流程ID")
		return
	}

	userID, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, "用户未登录")
		return
	}

	var req struct {
		Name          string          `json:"name" binding:"omitempty,min=1,max=200"`
		Description   string          `json:"description" binding:"max=1000"`
		ProjectID     uint            `json:"project_id"`
		EnvironmentID uint            `json:"environment_id"`
		DeviceID      uint            `json:"device_id"`
		StartURL      string          `json:"start_url" binding:"omitempty,url"`
		Actions       []models.Action `json:"actions"`
		Tags          string          `json:"tags" binding:"max=500"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if !utils.HasPermissionOnFlow(userID.(uint), uint(id)) {
		response.NotFound(c, "流程不存在或无权限")
		return
	}

	var flow models.Flow
	err = database.DB.Where("id = ? AND status = ?", id, 1).First(&flow).Error
	if err != nil {
		response.NotFound(c, "流程不存在")
		return
	}

	// Verify project if updating
	if req.ProjectID > 0 && req.ProjectID != flow.ProjectID {
		if !utils.HasPermissionOnProject(userID.(uint), req.ProjectID) {
			response.NotFound(c, "项目不存在或无权限")
			return
		}

		var project models.Project
		err := database.DB.Where("id = ? AND status = ?", req.ProjectID, 1).First(&project).Error
		if err != nil {
			response.NotFound(c, "项目不存在")
			return
		}
		flow.ProjectID = req.ProjectID
	}

	// Verify environment if updating
	if req.EnvironmentID > 0 && req.EnvironmentID != flow.EnvironmentID {
		var environment models.Environment
		err := database.DB.Where("id = ? AND status = ?", req.EnvironmentID, 1).First(&environment).Error
		if err != nil {
			response.NotFound(c, "环境不存在")
			return
		}
		flow.EnvironmentID = req.EnvironmentID
	}

	// Verify device if updating
	if req.DeviceID > 0 && req.DeviceID != flow.DeviceID {
		var device models.Device
		err := database.DB.Where("id = ? AND status = ?", req.DeviceID, 1).First(&device).Error
		if err != nil {
			response.NotFound(c, "设备不存在")
			return
		}
		flow.DeviceID = req.DeviceID
	}

	// Check name uniqueness if updating
	if req.Name != "" && req.Name != flow.Name {
		var existingFlow models.Flow
		err := database.DB.Where("name = ? AND project_id = ? AND id != ? AND status = ?",
			req.Name, flow.ProjectID, id, 1).First(&existingFlow).Error
		if err == nil {
			response.BadRequest(c, "流程名称在该项目中已存在")
			return
		}
		flow.Name = req.Name
	}

	if req.Description != "" {
		flow.Description = req.Description
	}
	if req.StartURL != "" {
		flow.StartURL = req.StartURL
	}
	if req.Tags != "" {
		flow.Tags = req.Tags
	}

	// Update actions if provided
	if req.Actions != nil {
		if err := flow.SetActions(req.Actions); err != nil {
			response.BadRequest(c, "操作列表序列化失败")
			return
		}
	}

	err = database.DB.Save(&flow).Error
	if err != nil {
		response.InternalServerError(c, "更新流程失败")
		return
	}

	database.DB.Preload("Project").Preload("Environment").Preload("Device").Preload("User").
		First(&flow, flow.ID)
	flow.User.Password = ""

	response.SuccessWithMessage(c, "更新成功", flow)
}

func DeleteFlow(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "无效的流程ID")
		return
	}

	userID, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, "用户未登录")
		return
	}

	if !utils.HasPermissionOnFlow(userID.(uint), uint(id)) {
		response.NotFound(c, "流程不存在或无权限")
		return
	}

	var flow models.Flow
	err = database.DB.Where("id = ? AND status = ?", id, 1).First(&flow).Error
	if err != nil {
		response.NotFound(c, "流程不存在")
		return
	}

	// Check if flow is used by schedules
	var scheduleCount int64
	database.DB.Model(&models.Schedule{}).Where("flow_id = ?", id).Count(&scheduleCount)
	if scheduleCount > 0 {
		response.BadRequest(c, "该流程存在关联的定时任务，无法删除")
		return
	}

	// Soft delete
	flow.Status = 0
	err = database.DB.Save(&flow).Error
	if err != nil {
		response.InternalServerError(c, "删除流程失败")
		return
	}

	response.SuccessWithMessage(c, "删除成功", nil)
}

func ExecuteFlow(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "无效的流程ID")
		return
	}

	userID, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, "用户未登录")
		return
	}

	var req struct {
		IsVisual *bool `json:"is_visual"`
	}
	c.ShouldBindJSON(&req)
	isVisual := req.IsVisual != nil && *req.IsVisual

	var flow models.Flow
	err = database.DB.Preload("Project").Preload("Environment").Preload("Device").
		Where("id = ? AND status = ?", id, 1).First(&flow).Error
	if err != nil {
		response.NotFound(c, "流程不存在")
		return
	}

	if !utils.HasPermissionOnFlow(userID.(uint), uint(id)) {
		response.Forbidden(c, "无权限执行该流程")
		return
	}

	actions, err := flow.GetActions()
	if err != nil {
		response.InternalServerError(c, "操作列表解析失败")
		return
	}
	if len(actions) == 0 {
		response.BadRequest(c, "该流程没有可回放的操作")
		return
	}

	if replay.GlobalExecutor == nil {
		response.InternalServerError(c, "回放引擎未初始化")
		return
	}

	runningCount := replay.GlobalExecutor.GetRunningCount()
	if runningCount >= 10 { // Max concurrent executions
		response.BadRequest(c, "当前并发执行数已达上限，请稍后再试")
		return
	}

	execution := models.Execution{
		FlowID:       flow.ID,
		TriggerType:  "manual",
		Status:       "pending",
		StartTime:    time.Now(),
		TotalActions: len(actions),
		DoneActions:  0,
		UserID:       userID.(uint),
		ErrorMessage: "",
		Logs:         "[]",
		Screenshots:  "[]",
	}

	err = database.DB.Create(&execution).Error
	if err != nil {
		response.InternalServerError(c, "创建执行记录失败")
		return
	}

	execution.Status = "running"
	database.DB.Save(&execution)

	go runExecution(&execution, &flow, isVisual)

	database.DB.Preload("Flow").Preload("User").First(&execution, execution.ID)
	execution.User.Password = ""

	response.SuccessWithMessage(c, "流程回放已启动", execution)
}

// runExecution drives one queued replay to completion and writes the outcome
// back to the execution row. The completion flag plus safety timeout prevent
// rows from being stuck in running state when result delivery fails.
func runExecution(execution *models.Execution, flow *models.Flow, isVisual bool) {
	var executionCompleted bool
	var completionMutex sync.Mutex

	defer func() {
		completionMutex.Lock()
		defer completionMutex.Unlock()

		if !executionCompleted {
			var finalExecution models.Execution
			if err := database.DB.First(&finalExecution, execution.ID).Error; err == nil {
				if finalExecution.Status == "running" {
					finalExecution.Status = "failed"
					finalExecution.ErrorMessage = "Execution did not complete properly"
					now := time.Now()
					finalExecution.EndTime = &now
					finalExecution.Duration = int(now.Sub(finalExecution.StartTime).Milliseconds())
					database.DB.Save(&finalExecution)
					log.Printf("Fixed stuck execution %d status from 'running' to 'failed'", execution.ID)
				}
			}
		}
	}()

	// Safety net: replay context allows 5 minutes, queue wait and Chrome
	// startup add more. Anything beyond this is a lost result.
	go func() {
		time.Sleep(10 * time.Minute)
		completionMutex.Lock()
		defer completionMutex.Unlock()

		if !executionCompleted && !replay.GlobalExecutor.IsRunning(execution.ID) {
			var finalExecution models.Execution
			if err := database.DB.First(&finalExecution, execution.ID).Error; err == nil {
				if finalExecution.Status == "running" {
					log.Printf("⚠️ Safety timeout: execution %d finished in executor but handler never received the result", execution.ID)
					now := time.Now()
					finalExecution.Status = "failed"
					finalExecution.ErrorMessage = "Execution completed but result communication failed"
					finalExecution.EndTime = &now
					finalExecution.Duration = int(now.Sub(finalExecution.StartTime).Milliseconds())
					database.DB.Save(&finalExecution)
					executionCompleted = true
				}
			}
		}
	}()

	resultChan := replay.GlobalExecutor.RunWithOptions(execution, flow, isVisual)
	result := <-resultChan

	completionMutex.Lock()
	defer completionMutex.Unlock()

	if executionCompleted {
		log.Printf("Execution %d already marked complete by timeout handler", execution.ID)
		return
	}

	// Update execution with result IMMEDIATELY so the database reflects the
	// outcome before browser cleanup starts
	applyResult(execution, result)

	err := database.DB.Save(execution).Error
	if err != nil {
		log.Printf("CRITICAL: Failed to save execution %d result: %v", execution.ID, err)
		replay.GlobalExecutor.NotifyExecutionComplete(execution.ID)
		executionCompleted = true
		return
	}

	log.Printf("✅ Execution %d status successfully updated to: %s (before browser cleanup)", execution.ID, execution.Status)

	// Save performance metrics if available
	if result.Metrics != nil {
		result.Metrics.ExecutionID = execution.ID
		database.DB.Create(result.Metrics)
	}

	replay.GlobalExecutor.NotifyExecutionComplete(execution.ID)
	executionCompleted = true
}

// applyResult folds a replay result into the execution row.
func applyResult(execution *models.Execution, result replay.Result) {
	if result.Success {
		execution.Status = "passed"
		execution.ErrorMessage = ""
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

	now := time.Now()
	execution.EndTime = &now
	execution.Duration = int(now.Sub(execution.StartTime).Milliseconds())

	if logsJSON, err := json.Marshal(result.Logs); err == nil {
		execution.Logs = string(logsJSON)
	}
	if screenshotsJSON, err := json.Marshal(result.Screenshots); err == nil {
		execution.Screenshots = string(screenshotsJSON)
	}
}
