package handlers

import (
	"strconv"
	"uirecorder/internal/models"
	"uirecorder/pkg/database"
	"uirecorder/pkg/response"

	"github.com/gin-gonic/gin"
)

func GetDevices(c *gin.Context) {
	var devices []models.Device
	err := database.DB.Where("status = ?", 1).Order("is_default DESC, id ASC").Find(&devices).Error
	if err != nil {
		response.InternalServerError(c, "获取设备列表失败")
		return
	}

	response.Success(c, devices)
}

func CreateDevice(c *gin.Context) {
	var req struct {
		Name             string  `json:"name" binding:"required,min=1,max=100"`
		Width            int     `json:"width" binding:"required,min=100,max=4000"`
		Height           int     `json:"height" binding:"required,min=100,max=4000"`
		UserAgent        string  `json:"user_agent" binding:"required,min=10,max=500"`
		DevicePixelRatio float64 `json:"device_pixel_ratio" binding:"omitempty,min=0.5,max=5"`
		Mobile           bool    `json:"mobile"`
		Touch            bool    `json:"touch"`
		IsDefault        bool    `json:"is_default"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	// Check if device name exists
	var existingDevice models.Device
	err := database.DB.Where("name = ? AND status = ?", req.Name, 1).First(&existingDevice).Error
	if err == nil {
		response.BadRequest(c, "设备名称已存在")
		return
	}

	// If setting as default, remove default from other devices
	if req.IsDefault {
		database.DB.Model(&models.Device{}).Where("is_default = ? AND status = ?", true, 1).
			Update("is_default", false)
	}

	if req.DevicePixelRatio == 0 {
		req.DevicePixelRatio = 1
	}

	device := models.Device{
		Name:             req.Name,
		Width:            req.Width,
		Height:           req.Height,
		UserAgent:        req.UserAgent,
		DevicePixelRatio: req.DevicePixelRatio,
		Mobile:           req.Mobile,
		Touch:            req.Touch,
		IsDefault:        req.IsDefault,
		Status:           1,
	}

	err = database.DB.Create(&device).Error
	if err != nil {
		response.InternalServerError(c, "创建设备失败")
		return
	}

	response.SuccessWithMessage(c, "创建成功", device)
}

func GetDevice(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "无效的设备ID")
		return
	}

	var device models.Device
	err = database.DB.Where("status = ?", 1).First(&device, id).Error
	if err != nil {
		response.NotFound(c, "设备不存在")
		return
	}

	response.Success(c, device)
}

func UpdateDevice(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "无效的设备ID")
		return
	}

	var req struct {
		Name             string   `json:"name" binding:"omitempty,min=1,max=100"`
		Width            int      `json:"width" binding:"omitempty,min=100,max=4000"`
		Height           int      `json:"height" binding:"omitempty,min=100,max=4000"`
		UserAgent        string   `json:"user_agent" binding:"omitempty,min=10,max=500"`
		DevicePixelRatio *float64 `json:"device_pixel_ratio" binding:"omitempty"`
		Mobile           *bool    `json:"mobile"`
		Touch            *bool    `json:"touch"`
		IsDefault        *bool    `json:"is_default"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	var device models.Device
	err = database.DB.Where("status = ?", 1).First(&device, id).Error
	if err != nil {
		response.NotFound(c, "设备不存在")
		return
	}

	// Check name uniqueness if updating
	if req.Name != "" && req.Name != device.Name {
		var existingDevice models.Device
		err := database.DB.Where("name = ? AND id != ? AND status = ?", req.Name, id, 1).
			First(&existingDevice).Error
		if err == nil {
			response.BadRequest(c, "设备名称已存在")
			return
		}
		device.Name = req.Name
	}

	if req.Width > 0 {
		device.Width = req.Width
	}
	if req.Height > 0 {
		device.Height = req.Height
	}
	if req.UserAgent != "" {
		device.UserAgent = req.UserAgent
	}
	if req.DevicePixelRatio != nil && *req.DevicePixelRatio > 0 {
		device.DevicePixelRatio = *req.DevicePixelRatio
	}
	if req.Mobile != nil {
		device.Mobile = *req.Mobile
	}
	if req.Touch != nil {
		device.Touch = *req.Touch
	}

	// Handle default setting
	if req.IsDefault != nil {
		if *req.IsDefault && !device.IsDefault {
			database.DB.Model(&models.Device{}).Where("is_default = ? AND status = ?", true, 1).
				Update("is_default", false)
		}
		device.IsDefault = *req.IsDefault
	}

	err = database.DB.Save(&device).Error
	if err != nil {
		response.InternalServerError(c, "更新设备失败")
		return
	}

	response.SuccessWithMessage(c, "更新成功", device)
}

func DeleteDevice(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "无效的设备ID")
		return
	}

	var device models.Device
	err = database.DB.Where("status = ?", 1).First(&device, id).Error
	if err != nil {
		response.NotFound(c, "设备不存在")
		return
	}

	// Check if device is being used by flows
	var flowCount int64
	database.DB.Model(&models.Flow{}).Where("device_id = ? AND status = ?", id, 1).Count(&flowCount)
	if flowCount > 0 {
		response.BadRequest(c, "该设备正在被流程使用，无法删除")
		return
	}

	// Don't allow deleting default device if it's the only one
	if device.IsDefault {
		var deviceCount int64
		database.DB.Model(&models.Device{}).Where("status = ?", 1).Count(&deviceCount)
		if deviceCount <= 1 {
			response.BadRequest(c, "至少需要保留一个设备")
			return
		}

		// Set another device as default
		var newDefaultDevice models.Device
		database.DB.Where("id != ? AND status = ?", id, 1).First(&newDefaultDevice)
		newDefaultDevice.IsDefault = true
		database.DB.Save(&newDefaultDevice)
	}

	// Soft delete
	device.Status = 0
	err = database.DB.Save(&device).Error
	if err != nil {
		response.InternalServerError(c, "删除设备失败")
		return
	}

	response.SuccessWithMessage(c, "删除成功", nil)
}
