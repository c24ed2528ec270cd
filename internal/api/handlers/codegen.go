package handlers

import (
	"strconv"
	"uirecorder/internal/codegen"
	"uirecorder/internal/models"
	"uirecorder/pkg/database"
	"uirecorder/pkg/response"

	"github.com/gin-gonic/gin"
)

// GenerateFlowCode exports a flow as an automation script. The lang query
// parameter picks the target: "go" (chromedp test) or "playwright".
func GenerateFlowCode(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "无效的流程ID")
		return
	}

	lang := codegen.Language(c.DefaultQuery("lang", "go"))
	if lang != codegen.LanguageGo && lang != codegen.LanguagePlaywright {
		response.BadRequest(c, "不支持的脚本语言，仅支持 go 或 playwright")
		return
	}

	var flow models.Flow
	err = database.DB.Preload("Environment").Preload("Device").
		Where("id = ? AND status = ?", id, 1).First(&flow).Error
	if err != nil {
		response.NotFound(c, "流程不存在")
		return
	}

	actions, err := flow.GetActions()
	if err != nil {
		response.InternalServerError(c, "操作列表解析失败")
		return
	}
	if len(actions) == 0 {
		response.BadRequest(c, "该流程没有可导出的操作")
		return
	}

	script, filename, err := codegen.Generate(lang, &flow, actions)
	if err != nil {
		response.InternalServerError(c, "生成脚本失败: "+err.Error())
		return
	}

	response.Success(c, gin.H{
		"language": lang,
		"filename": filename,
		"code":     script,
	})
}
