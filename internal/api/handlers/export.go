package handlers

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
	"uirecorder/internal/models"
	"uirecorder/pkg/database"
	"uirecorder/pkg/response"

	"github.com/gin-gonic/gin"
)

// ExportExecution renders one replay's outcome as a standalone HTML report
// or a JSON document.
func ExportExecution(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "无效的执行记录ID")
		return
	}

	format := c.DefaultQuery("format", "html")
	if format != "html" && format != "json" {
		response.BadRequest(c, "不支持的导出格式，仅支持 html 或 json")
		return
	}

	var execution models.Execution
	err = database.DB.Preload("Flow").Preload("Flow.Project").
		Preload("Flow.Environment").Preload("Flow.Device").Preload("User").
		First(&execution, id).Error
	if err != nil {
		response.NotFound(c, "执行记录不存在")
		return
	}

	if format == "json" {
		execution.User.Password = ""

		filename := fmt.Sprintf("replay-report-%d-%s.json", execution.ID, time.Now().Format("20060102-150405"))
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
		c.Header("Content-Type", "application/json")
		c.JSON(200, execution)
		return
	}

	htmlContent := generateExecutionReport(execution)
	filename := fmt.Sprintf("replay-report-%d-%s.html", execution.ID, time.Now().Format("20060102-150405"))

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(200, htmlContent)
}

func generateExecutionReport(execution models.Execution) string {
	statusText := map[string]string{
		"passed":    "通过",
		"failed":    "失败",
		"running":   "运行中",
		"pending":   "等待中",
		"cancelled": "已取消",
	}[execution.Status]

	endTime := "未结束"
	if execution.EndTime != nil {
		endTime = execution.EndTime.Format("2006-01-02 15:04:05")
	}

	environmentName := "未知"
	if execution.Flow.Environment.Name != "" {
		environmentName = execution.Flow.Environment.Name
	}

	var progress float64
	if execution.TotalActions > 0 {
		progress = float64(execution.DoneActions) / float64(execution.TotalActions) * 100
	}

	html := fmt.Sprintf(`
<!DOCTYPE html>
<html lang="zh-CN">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>%s - 回放报告</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; background-color: #f5f5f5; }
        .container { max-width: 1200px; margin: 0 auto; background: white; padding: 30px; border-radius: 8px; box-shadow: 0 2px 10px rgba(0,0,0,0.1); }
        .header { text-align: center; margin-bottom: 30px; border-bottom: 2px solid #1890ff; padding-bottom: 20px; }
        .title { color: #1890ff; margin-bottom: 10px; }
        .subtitle { color: #666; margin: 5px 0; }
        .stats { display: flex; justify-content: space-around; margin: 30px 0; }
        .stat-item { text-align: center; padding: 20px; background: #f8f9fa; border-radius: 6px; min-width: 120px; }
        .stat-number { font-size: 2em; font-weight: bold; margin-bottom: 5px; }
        .stat-label { color: #666; font-size: 0.9em; }
        .passed { color: #52c41a; }
        .failed { color: #ff4d4f; }
        .total { color: #1890ff; }
        .section { margin: 30px 0; }
        .section-title { color: #1890ff; border-bottom: 1px solid #e8e8e8; padding-bottom: 10px; margin-bottom: 20px; }
        .action-item { margin: 15px 0; padding: 15px; border: 1px solid #e8e8e8; border-radius: 6px; }
        .action-header { display: flex; justify-content: space-between; align-items: center; margin-bottom: 10px; }
        .action-name { font-weight: bold; }
        .status { padding: 4px 8px; border-radius: 4px; color: white; font-size: 0.85em; }
        .status.success { background-color: #52c41a; }
        .status.failed { background-color: #ff4d4f; }
        .status.passed { background-color: #52c41a; }
        .status.running { background-color: #1890ff; }
        .status.pending { background-color: #fa8c16; }
        .status.cancelled { background-color: #999; }
        .info-grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(200px, 1fr)); gap: 15px; margin-top: 15px; }
        .info-item { background: #f8f9fa; padding: 10px; border-radius: 4px; }
        .info-label { font-weight: bold; color: #666; font-size: 0.85em; }
        .info-value { margin-top: 5px; word-break: break-all; }
        .error-box { margin-top: 10px; padding: 10px; background: #fff2f0; border: 1px solid #ffccc7; border-radius: 4px; }
        .footer { margin-top: 40px; text-align: center; color: #999; font-size: 0.9em; border-top: 1px solid #e8e8e8; padding-top: 20px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1 class="title">%s</h1>
            <div class="subtitle">项目: %s</div>
            <div class="subtitle">环境: %s</div>
            <div class="subtitle">生成时间: %s</div>
            <div class="subtitle">执行时间: %s - %s</div>
        </div>

        <div class="stats">
            <div class="stat-item">
                <div class="stat-number total">%d</div>
                <div class="stat-label">总操作数</div>
            </div>
            <div class="stat-item">
                <div class="stat-number passed">%d</div>
                <div class="stat-label">已完成</div>
            </div>
            <div class="stat-item">
                <div class="stat-number %s">%s</div>
                <div class="stat-label">执行状态</div>
            </div>
            <div class="stat-item">
                <div class="stat-number">%.1f%%</div>
                <div class="stat-label">完成率</div>
            </div>
            <div class="stat-item">
                <div class="stat-number">%.1f秒</div>
                <div class="stat-label">执行时长</div>
            </div>
        </div>

        <div class="section">
            <h2 class="section-title">操作详情</h2>
            %s
        </div>
        %s

        <div class="footer">
            <p>此报告由 UIRecorder 自动生成</p>
        </div>
    </div>
</body>
</html>`,
		execution.Flow.Name,
		execution.Flow.Name,
		execution.Flow.Project.Name,
		environmentName,
		time.Now().Format("2006-01-02 15:04:05"),
		execution.StartTime.Format("2006-01-02 15:04:05"),
		endTime,
		execution.TotalActions,
		execution.DoneActions,
		execution.Status,
		statusText,
		progress,
		float64(execution.Duration)/1000.0,
		generateActionDetails(execution.Logs),
		generateErrorSection(execution.ErrorMessage))

	return html
}

func generateActionDetails(logsJSON string) string {
	type logEntry struct {
		Timestamp   time.Time `json:"timestamp"`
		Level       string    `json:"level"`
		Message     string    `json:"message"`
		ActionIndex int       `json:"action_index"`
		ActionType  string    `json:"action_type"`
		Status      string    `json:"status"`
		Selector    string    `json:"selector"`
		Value       string    `json:"value"`
		Duration    int64     `json:"duration"`
		ErrorDetail string    `json:"error_detail"`
	}

	var entries []logEntry
	if logsJSON != "" && logsJSON != "[]" {
		if err := json.Unmarshal([]byte(logsJSON), &entries); err != nil {
			return `<div class="action-item">日志数据解析失败</div>`
		}
	}

	var html string
	for _, entry := range entries {
		// Only action-level entries carry a status, skip plain progress lines
		if entry.Status == "" {
			continue
		}

		statusText := "成功"
		if entry.Status != "success" {
			statusText = "失败"
		}

		detail := ""
		if entry.Selector != "" {
			detail += fmt.Sprintf(`
				<div class="info-item">
					<div class="info-label">定位器</div>
					<div class="info-value">%s</div>
				</div>`, entry.Selector)
		}
		if entry.Value != "" {
			detail += fmt.Sprintf(`
				<div class="info-item">
					<div class="info-label">输入值</div>
					<div class="info-value">%s</div>
				</div>`, entry.Value)
		}
		if entry.ErrorDetail != "" {
			detail += fmt.Sprintf(`
				<div class="info-item">
					<div class="info-label">错误信息</div>
					<div class="info-value">%s</div>
				</div>`, entry.ErrorDetail)
		}

		html += fmt.Sprintf(`
			<div class="action-item">
				<div class="action-header">
					<span class="action-name">%s</span>
					<span class="status %s">%s</span>
				</div>
				<div class="info-grid">
					<div class="info-item">
						<div class="info-label">操作类型</div>
						<div class="info-value">%s</div>
					</div>
					<div class="info-item">
						<div class="info-label">执行时间</div>
						<div class="info-value">%s</div>
					</div>
					<div class="info-item">
						<div class="info-label">耗时</div>
						<div class="info-value">%dms</div>
					</div>
					%s
				</div>
			</div>`,
			entry.Message,
			entry.Status,
			statusText,
			entry.ActionType,
			entry.Timestamp.Format("15:04:05"),
			entry.Duration,
			detail)
	}

	if html == "" {
		return `<div class="action-item">没有操作日志</div>`
	}
	return html
}

func generateErrorSection(errorMessage string) string {
	if errorMessage == "" {
		return ""
	}
	return fmt.Sprintf(`
        <div class="section">
            <h2 class="section-title">错误信息</h2>
            <div class="error-box">%s</div>
        </div>`, errorMessage)
}
