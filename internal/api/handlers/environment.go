package handlers

import (
	"encoding/json"
	"strconv"
	"uirecorder/internal/models"
	"uirecorder/pkg/database"
	"uirecorder/pkg/response"

	"github.com/gin-gonic/gin"
)

func GetEnvironments(c *gin.Context) {
	var environments []models.Environment
	err := database.DB.Where("status = ?", 1).Order("id ASC").Find(&environments).Error
	if err != nil {
		response.InternalServerError(c, "获取环境列表失败")
		return
	}

	response.Success(c, environments)
}

// coerceJSONObject normalizes a headers/variables field that the frontend may
// send either as a JSON string or as an object. Returns "{}" for nil.
func coerceJSONObject(v interface{}) (string, bool) {
	if v == nil {
		return "{}", true
	}
	switch val := v.(type) {
	case string:
		var temp interface{}
		if err := json.Unmarshal([]byte(val), &temp); err != nil {
			return "", false
		}
		return val, true
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return "", false
		}
		return string(data), true
	}
}

func CreateEnvironment(c *gin.Context) {
	var req struct {
		Name        string      `json:"name" binding:"required,min=1,max=100"`
		Description string      `json:"description" binding:"max=500"`
		BaseURL     string      `json:"base_url" binding:"required,url"`
		Type        string      `json:"type" binding:"required,oneof=test product"`
		Headers     interface{} `json:"headers"`   // 允许字符串或对象
		Variables   interface{} `json:"variables"` // 允许字符串或对象
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	// Check if environment name and type combination exists
	var existingEnv models.Environment
	err := database.DB.Where("name = ? AND type = ? AND status = ?", req.Name, req.Type, 1).
		First(&existingEnv).Error
	if err == nil {
		response.BadRequest(c, "相同类型的环境名称已存在")
		return
	}

	headersJSON, ok := coerceJSONObject(req.Headers)
	if !ok {
		response.BadRequest(c, "Headers格式不正确，请输入有效的JSON")
		return
	}
	variablesJSON, ok := coerceJSONObject(req.Variables)
	if !ok {
		response.BadRequest(c, "Variables格式不正确，请输入有效的JSON")
		return
	}

	environment := models.Environment{
		Name:        req.Name,
		Description: req.Description,
		BaseURL:     req.BaseURL,
		Type:        req.Type,
		Headers:     headersJSON,
		Variables:   variablesJSON,
		Status:      1,
	}

	err = database.DB.Create(&environment).Error
	if err != nil {
		response.InternalServerError(c, "创建环境失败")
		return
	}

	response.SuccessWithMessage(c, "创建成功", environment)
}

func GetEnvironment(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "无效的环境ID")
		return
	}

	var environment models.Environment
	err = database.DB.Where("status = ?", 1).First(&environment, id).Error
	if err != nil {
		response.NotFound(c, "环境不存在")
		return
	}

	response.Success(c, environment)
}

func UpdateEnvironment(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "无效的环境ID")
		return
	}

	var req struct {
		Name        string      `json:"name" binding:"omitempty,min=1,max=100"`
		Description string      `json:"description" binding:"max=500"`
		BaseURL     string      `json:"base_url" binding:"omitempty,url"`
		Type        string      `json:"type" binding:"omitempty,oneof=test product"`
		Headers     interface{} `json:"headers"`
		Variables   interface{} `json:"variables"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	var environment models.Environment
	err = database.DB.Where("status = ?", 1).First(&environment, id).Error
	if err != nil {
		response.NotFound(c, "环境不存在")
		return
	}

	// Check name and type uniqueness if updating
	if req.Name != "" && req.Type != "" && (req.Name != environment.Name || req.Type != environment.Type) {
		var existingEnv models.Environment
		err := database.DB.Where("name = ? AND type = ? AND id != ? AND status = ?",
			req.Name, req.Type, id, 1).First(&existingEnv).Error
		if err == nil {
			response.BadRequest(c, "相同类型的环境名称已存在")
			return
		}
	}

	if req.Name != "" {
		environment.Name = req.Name
	}
	if req.Description != "" {
		environment.Description = req.Description
	}
	if req.BaseURL != "" {
		environment.BaseURL = req.BaseURL
	}
	if req.Type != "" {
		environment.Type = req.Type
	}

	if req.Headers != nil {
		headersJSON, ok := coerceJSONObject(req.Headers)
		if !ok {
			response.BadRequest(c, "Headers格式不正确，请输入有效的JSON")
			return
		}
		environment.Headers = headersJSON
	}
	if req.Variables != nil {
		variablesJSON, ok := coerceJSONObject(req.Variables)
		if !ok {
			response.BadRequest(c, "Variables格式不正确，请输入有效的JSON")
			return
		}
		environment.Variables = variablesJSON
	}

	err = database.DB.Save(&environment).Error
	if err != nil {
		response.InternalServerError(c, "更新环境失败")
		return
	}

	response.SuccessWithMessage(c, "更新成功", environment)
}

func DeleteEnvironment(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "无效的环境ID")
		return
	}

	var environment models.Environment
	err = database.DB.Where("status = ?", 1).First(&environment, id).Error
	if err != nil {
		response.NotFound(c, "环境不存在")
		return
	}

	// Check if environment is being used by flows
	var flowCount int64
	database.DB.Model(&models.Flow{}).Where("environment_id = ? AND status = ?", id, 1).Count(&flowCount)
	if flowCount > 0 {
		response.BadRequest(c, "该环境正在被流程使用，无法删除")
		return
	}

	// Soft delete
	environment.Status = 0
	err = database.DB.Save(&environment).Error
	if err != nil {
		response.InternalServerError(c, "删除环境失败")
		return
	}

	response.SuccessWithMessage(c, "删除成功", nil)
}
