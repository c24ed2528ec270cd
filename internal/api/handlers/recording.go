package handlers

import (
	"log"
	"net/http"
	"uirecorder/internal/config"
	"uirecorder/internal/models"
	"uirecorder/internal/recorder"
	"uirecorder/pkg/chrome"
	"uirecorder/pkg/database"
	"uirecorder/pkg/response"
	"uirecorder/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func StartRecording(c *gin.Context) {
	var req struct {
		EnvironmentID uint   `json:"environment_id" binding:"required"`
		DeviceID      uint   `json:"device_id" binding:"required"`
		TargetURL     string `json:"target_url" binding:"omitempty,url"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	// Get environment info
	var environment models.Environment
	err := database.DB.Where("status = ?", 1).First(&environment, req.EnvironmentID).Error
	if err != nil {
		response.NotFound(c, "环境不存在")
		return
	}

	// Get device info
	var device models.Device
	err = database.DB.Where("status = ?", 1).First(&device, req.DeviceID).Error
	if err != nil {
		response.NotFound(c, "设备不存在")
		return
	}

	// Generate session ID
	sessionID := uuid.New().String()

	// Recording starts at the environment's base URL unless the request
	// names a deeper entry page
	targetURL := environment.BaseURL
	if req.TargetURL != "" {
		targetURL = req.TargetURL
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		response.InternalServerError(c, "加载配置失败")
		return
	}

	err = recorder.Manager.StartRecording(sessionID, targetURL, chrome.FromModel(device), cfg.ReducerConfig())
	if err != nil {
		response.InternalServerError(c, "启动录制失败: "+err.Error())
		return
	}

	response.SuccessWithMessage(c, "录制已启动", gin.H{
		"session_id": sessionID,
		"target_url": targetURL,
	})
}

func StopRecording(c *gin.Context) {
	var req struct {
		SessionID string `json:"session_id" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	err := recorder.Manager.StopRecording(req.SessionID)
	if err != nil {
		response.InternalServerError(c, "停止录制失败: "+err.Error())
		return
	}

	response.SuccessWithMessage(c, "录制已停止", nil)
}

func GetRecordingStatus(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		response.BadRequest(c, "session_id is required")
		return
	}

	isRecording, actions, err := recorder.Manager.GetRecordingStatus(sessionID)
	if err != nil {
		response.NotFound(c, "录制会话不存在")
		return
	}

	// Ensure actions is never nil
	if actions == nil {
		actions = make([]models.Action, 0)
	}

	response.Success(c, gin.H{
		"is_recording": isRecording,
		"actions":      actions,
	})
}

// InspectPage lists the interactive elements on the page currently open in
// the recording browser, with the locator each would be recorded under.
func InspectPage(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		response.BadRequest(c, "session_id is required")
		return
	}

	session, exists := recorder.Manager.GetSession(sessionID)
	if !exists {
		response.NotFound(c, "录制会话不存在")
		return
	}

	elements, err := session.Inspect()
	if err != nil {
		response.InternalServerError(c, "页面元素检查失败: "+err.Error())
		return
	}

	if elements == nil {
		elements = make([]recorder.PageElement, 0)
	}

	response.Success(c, gin.H{
		"total":    len(elements),
		"elements": elements,
	})
}

func SaveRecording(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, "用户未登录")
		return
	}

	var req struct {
		SessionID     string `json:"session_id" binding:"required"`
		Name          string `json:"name" binding:"required,min=1,max=200"`
		Description   string `json:"description" binding:"max=1000"`
		ProjectID     uint   `json:"project_id" binding:"required"`
		EnvironmentID uint   `json:"environment_id" binding:"required"`
		DeviceID      uint   `json:"device_id" binding:"required"`
		Tags          string `json:"tags" binding:"max=500"`
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

	// Verify environment exists
	var environment models.Environment
	err = database.DB.Where("id = ? AND status = ?", req.EnvironmentID, 1).First(&environment).Error
	if err != nil {
		response.NotFound(c, "环境不存在")
		return
	}

	// Verify device exists
	var device models.Device
	err = database.DB.Where("id = ? AND status = ?", req.DeviceID, 1).First(&device).Error
	if err != nil {
		response.NotFound(c, "设备不存在")
		return
	}

	// Get recorded actions
	isRecording, actions, err := recorder.Manager.GetRecordingStatus(req.SessionID)
	if err != nil {
		response.NotFound(c, "录制会话不存在")
		return
	}

	if isRecording {
		response.BadRequest(c, "请先停止录制")
		return
	}

	if len(actions) == 0 {
		response.BadRequest(c, "没有录制到任何操作")
		return
	}

	// The session knows the page recording started at
	startURL := ""
	if session, ok := recorder.Manager.GetSession(req.SessionID); ok {
		startURL = session.TargetURL()
	}

	flow := models.Flow{
		Name:          req.Name,
		Description:   req.Description,
		ProjectID:     req.ProjectID,
		EnvironmentID: req.EnvironmentID,
		DeviceID:      req.DeviceID,
		StartURL:      startURL,
		Tags:          req.Tags,
		Status:        1,
		UserID:        userID.(uint),
	}
	if err := flow.SetActions(actions); err != nil {
		response.InternalServerError(c, "保存操作数据失败")
		return
	}

	err = database.DB.Create(&flow).Error
	if err != nil {
		response.InternalServerError(c, "保存流程失败")
		return
	}

	// Load relations for response
	database.DB.Preload("Project").Preload("Environment").Preload("Device").Preload("User").
		First(&flow, flow.ID)

	// Clear user password
	flow.User.Password = ""

	// Clean up recording session
	recorder.Manager.CleanupRecording(req.SessionID)

	response.SuccessWithMessage(c, "流程保存成功", flow)
}

func RecordingWebSocket(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}

	// For WebSocket connections, we can skip authentication since the session itself
	// is created by authenticated users and serves as implicit authorization

	// Upgrade connection to WebSocket
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// Get session
	session, exists := recorder.Manager.GetSession(sessionID)
	if !exists {
		conn.WriteJSON(gin.H{"error": "Recording session not found"})
		return
	}

	// Set WebSocket connection so the reducer can push new actions live
	session.SetWebSocketConnection(conn)

	// Keep connection alive and handle messages
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			log.Printf("WebSocket read error: %v", err)
			break
		}
	}
}
