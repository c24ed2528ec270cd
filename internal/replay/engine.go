package replay

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"time"
	"uirecorder/internal/models"
	"uirecorder/pkg/chrome"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
)

// Executor replays recorded flows against a managed Chrome instance. Runs are
// fed through a bounded worker queue so concurrent replays cannot exhaust the
// machine with Chrome processes.
type Executor struct {
	maxWorkers  int
	workQueue   chan Job
	mutex       sync.RWMutex
	running     map[uint]bool
	cancels     map[uint]context.CancelFunc
	completions map[uint]chan bool
}

type Job struct {
	Execution    *models.Execution
	Flow         *models.Flow
	IsVisual     bool
	ResultChan   chan Result
	CompleteChan chan bool
}

type Result struct {
	Success      bool
	ErrorMessage string
	Screenshots  []string
	Logs         []Log
	Metrics      *models.PerformanceMetric
}

// Log is one line of the replay transcript. The JSON form is what gets stored
// on the execution row and streamed to the frontend log view.
type Log struct {
	Timestamp   time.Time `json:"timestamp"`
	Level       string    `json:"level"`
	Message     string    `json:"message"`
	ActionIndex int       `json:"action_index"`
	ActionType  string    `json:"action_type,omitempty"`
	Status      string    `json:"status,omitempty"` // success, failed, running
	Selector    string    `json:"selector,omitempty"`
	Value       string    `json:"value,omitempty"`
	Screenshot  string    `json:"screenshot,omitempty"`
	Duration    int64     `json:"duration,omitempty"` // milliseconds
	ErrorDetail string    `json:"error_detail,omitempty"`
}

var GlobalExecutor *Executor

func InitExecutor(maxWorkers int) {
	GlobalExecutor = &Executor{
		maxWorkers:  maxWorkers,
		workQueue:   make(chan Job, maxWorkers*2),
		running:     make(map[uint]bool),
		cancels:     make(map[uint]context.CancelFunc),
		completions: make(map[uint]chan bool),
	}

	for i := 0; i < maxWorkers; i++ {
		go GlobalExecutor.worker()
	}

	log.Printf("Replay executor initialized with %d workers", maxWorkers)
}

func (e *Executor) worker() {
	for job := range e.workQueue {
		result := e.executeFlow(job.Execution.ID, job.Flow, job.IsVisual)

		// Send result to handler FIRST
		job.ResultChan <- result

		log.Printf("✅ Worker sent replay result for %d (success=%v) to handler", job.Execution.ID, result.Success)

		// Wait for handler to confirm database update is complete
		select {
		case <-job.CompleteChan:
			log.Printf("✅ Handler confirmed database update for execution %d", job.Execution.ID)
		case <-time.After(10 * time.Second):
			log.Printf("⚠️ Timeout waiting for handler confirmation for execution %d, proceeding with cleanup", job.Execution.ID)
		}

		e.mutex.Lock()
		delete(e.running, job.Execution.ID)
		delete(e.cancels, job.Execution.ID)
		delete(e.completions, job.Execution.ID)
		e.mutex.Unlock()

		log.Printf("✅ Worker cleaned up internal state for execution %d", job.Execution.ID)
	}
}

func (e *Executor) Run(execution *models.Execution, flow *models.Flow) <-chan Result {
	return e.RunWithOptions(execution, flow, false)
}

func (e *Executor) RunWithOptions(execution *models.Execution, flow *models.Flow, isVisual bool) <-chan Result {
	e.mutex.Lock()
	e.running[execution.ID] = true
	completeChan := make(chan bool, 1)
	e.completions[execution.ID] = completeChan
	e.mutex.Unlock()

	resultChan := make(chan Result, 1)
	job := Job{
		Execution:    execution,
		Flow:         flow,
		IsVisual:     isVisual,
		ResultChan:   resultChan,
		CompleteChan: completeChan,
	}

	e.workQueue <- job
	return resultChan
}

// RunDirectly replays a flow without going through the worker queue. The
// scheduler uses it for sequential runs, where queue fan-out would only add
// ChromeDP concurrency hazards.
func (e *Executor) RunDirectly(execution *models.Execution, flow *models.Flow, isVisual bool) Result {
	e.mutex.Lock()
	e.running[execution.ID] = true
	e.mutex.Unlock()

	defer func() {
		e.mutex.Lock()
		delete(e.running, execution.ID)
		delete(e.cancels, execution.ID)
		e.mutex.Unlock()
	}()

	var result Result
	var panicRecovered bool

	defer func() {
		if r := recover(); r != nil {
			panicRecovered = true
			log.Printf("🚨 PANIC recovered in RunDirectly for execution %d: %v", execution.ID, r)

			// Force cleanup of any stuck Chrome processes
			go func() {
				time.Sleep(2 * time.Second)
				e.forceKillChromeProcesses()
			}()

			result = Result{
				Success:      false,
				ErrorMessage: fmt.Sprintf("ChromeDP panic recovered: %v", r),
				Screenshots:  []string{},
				Logs: []Log{
					{
						Timestamp:   time.Now(),
						Level:       "error",
						Message:     fmt.Sprintf("Replay failed due to ChromeDP panic: %v", r),
						ActionIndex: -1,
					},
				},
				Metrics: nil,
			}
		}
	}()

	// 为每个执行添加短暂的隔离延迟，避免Chrome实例冲突
	time.Sleep(500 * time.Millisecond)

	result = e.executeFlow(execution.ID, flow, isVisual)

	if !panicRecovered {
		log.Printf("✅ Direct replay completed for %d (success=%v)", execution.ID, result.Success)
	}
	return result
}

func (e *Executor) IsRunning(executionID uint) bool {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.running[executionID]
}

func (e *Executor) GetRunningCount() int {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return len(e.running)
}

// NotifyExecutionComplete signals the executor that the handler has finished
// updating the database for this execution.
func (e *Executor) NotifyExecutionComplete(executionID uint) {
	e.mutex.RLock()
	completeChan, exists := e.completions[executionID]
	e.mutex.RUnlock()

	if exists {
		select {
		case completeChan <- true:
			log.Printf("✅ Notified executor that database update is complete for execution %d", executionID)
		default:
			// Worker already timed out, nothing to do
		}
	}
}

func (e *Executor) executeFlow(executionID uint, flow *models.Flow, isVisual bool) Result {
	result := Result{
		Screenshots: make([]string, 0),
		Logs:        make([]Log, 0),
	}

	// ChromeDP crashes must not take the whole service down
	defer func() {
		if r := recover(); r != nil {
			log.Printf("🚨 PANIC recovered in executeFlow for execution %d: %v", executionID, r)
			result.Success = false
			result.ErrorMessage = fmt.Sprintf("ChromeDP replay panic: %v", r)
			result.addLog("error", fmt.Sprintf("Replay panic recovered: %v", r), -1)
		}
	}()

	actions, err := flow.GetActions()
	if err != nil {
		result.ErrorMessage = fmt.Sprintf("Failed to parse flow actions: %v", err)
		return result
	}
	if len(actions) == 0 {
		result.ErrorMessage = "Flow has no actions to replay"
		return result
	}

	chromePath := chrome.GetChromePath()
	if chromePath == "" {
		chromePath = chrome.GetFlatpakChromePath()
		if chromePath == "" {
			result.Success = false
			result.ErrorMessage = "Chrome browser not found. Please install Google Chrome or Chromium"
			result.addLog("error", "Chrome not found in system", -1)
			return result
		}
		result.addLog("info", "Using Flatpak Chrome", -1)
	}
	result.addLog("info", fmt.Sprintf("Using Chrome path: %s", chromePath), -1)

	if _, err := os.Stat(chromePath); err != nil {
		result.Success = false
		result.ErrorMessage = fmt.Sprintf("Chrome executable not accessible: %v", err)
		result.addLog("error", fmt.Sprintf("Chrome path not accessible: %v", err), -1)
		return result
	}

	// ChromeDP v0.9.2有已知的"close of closed channel"bug，
	// 使用专用的Chrome管理器避免channel竞争问题
	log.Printf("🚀 Creating Chrome context for execution %d with path: %s", executionID, chromePath)

	targetURL := startURL(flow, actions)
	deviceInfo := chrome.FromModel(flow.Device)

	// 对于可视化执行，检查是否有已存在的Chrome实例
	var port int
	existingPort := chrome.GlobalChromeManager.GetExistingPort(executionID, isVisual)

	if isVisual && existingPort > 0 {
		result.addLog("info", fmt.Sprintf("🔄 Attempting to reuse existing Chrome instance for execution %d on port %d", executionID, existingPort), -1)
		port = existingPort

		// 验证连接是否可用，不可用则启动新实例
		debugURL := fmt.Sprintf("http://localhost:%d/json/version", port)
		client := &http.Client{Timeout: 2 * time.Second}
		resp, connErr := client.Get(debugURL)
		if connErr != nil {
			result.addLog("warn", fmt.Sprintf("⚠️ Existing Chrome instance not responsive: %v, starting new instance", connErr), -1)
			chrome.GlobalChromeManager.StopVisualInstance()
			existingPort = 0
		} else {
			resp.Body.Close()
			result.addLog("info", fmt.Sprintf("✅ Successfully connected to existing Chrome instance on port %d", port), -1)
		}
	}

	if !isVisual || existingPort == 0 {
		// 启动新的Chrome实例，直接加载目标URL避免空白页
		result.addLog("info", fmt.Sprintf("🚀 Starting Chrome with target URL: %s", targetURL), -1)

		port, err = chrome.GlobalChromeManager.StartChromeWithDevice(executionID, isVisual, targetURL, deviceInfo)
		if err != nil {
			result.Success = false
			result.ErrorMessage = fmt.Sprintf("Failed to start Chrome: %v", err)
			result.addLog("error", fmt.Sprintf("❌ Chrome startup failed: %v", err), -1)
			return result
		}
		result.addLog("info", fmt.Sprintf("✅ Chrome started successfully on port %d with target page loaded", port), -1)
	}

	// 确保Chrome进程在函数退出时被完全关闭
	var chromeCleanup func()
	var chromeContext context.Context
	defer func() {
		result.addLog("info", fmt.Sprintf("🧹 Starting Chrome cleanup for execution %d", executionID), -1)

		if chromeContext != nil && isVisual {
			result.addLog("info", "🔄 Attempting graceful browser close...", -1)
			e.closeBrowser(chromeContext)
		}

		if chromeCleanup != nil {
			result.addLog("info", "🔄 Closing ChromeDP contexts...", -1)
			chromeCleanup()
		}

		result.addLog("info", fmt.Sprintf("🛑 Stopping Chrome process for execution %d", executionID), -1)
		chrome.GlobalChromeManager.StopChrome(executionID)
		result.addLog("info", fmt.Sprintf("✅ Chrome cleanup completed for execution %d", executionID), -1)
	}()

	// 连接到已运行的Chrome实例
	debugURL := fmt.Sprintf("http://localhost:%d", port)
	result.addLog("info", fmt.Sprintf("🔗 Connecting to Chrome at %s", debugURL), -1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	allocCtx, cancel2 := chromedp.NewRemoteAllocator(ctx, debugURL)
	defer cancel2()

	// 获取Chrome中已存在的标签页，连接到第一个而不是创建新的
	time.Sleep(200 * time.Millisecond)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://localhost:%d/json", port))
	if err != nil {
		result.Success = false
		result.ErrorMessage = fmt.Sprintf("Failed to get Chrome tabs list: %v", err)
		result.addLog("error", fmt.Sprintf("❌ Failed to get tabs: %v", err), -1)
		return result
	}
	defer resp.Body.Close()

	var tabs []struct {
		ID                   string `json:"id"`
		Type                 string `json:"type"`
		URL                  string `json:"url"`
		Title                string `json:"title"`
		WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tabs); err != nil {
		result.Success = false
		result.ErrorMessage = fmt.Sprintf("Failed to parse Chrome tabs: %v", err)
		result.addLog("error", fmt.Sprintf("❌ Failed to parse tabs: %v", err), -1)
		return result
	}

	tabID := ""
	for i := range tabs {
		if tabs[i].Type == "page" {
			tabID = tabs[i].ID
			result.addLog("info", fmt.Sprintf("🎯 Found existing tab: %s (URL: %s, Title: %s)", tabs[i].ID, tabs[i].URL, tabs[i].Title), -1)
			break
		}
	}
	if tabID == "" {
		result.Success = false
		result.ErrorMessage = "No existing page tab found to connect to"
		result.addLog("error", "❌ No page tab found", -1)
		return result
	}

	ctx, cancel3 := chromedp.NewContext(allocCtx,
		chromedp.WithTargetID(target.ID(tabID)),
		chromedp.WithLogf(func(string, ...interface{}) {}), // 禁用ChromeDP的debug日志
	)
	chromeContext = ctx

	// 测试连接是否成功
	var pageTitle string
	if testErr := chromedp.Run(ctx, chromedp.Title(&pageTitle)); testErr != nil {
		result.Success = false
		result.ErrorMessage = fmt.Sprintf("Failed to connect to Chrome tab: %v", testErr)
		result.addLog("error", fmt.Sprintf("❌ Chrome connection test failed: %v", testErr), -1)
		return result
	}
	result.addLog("info", fmt.Sprintf("✅ Successfully connected to existing tab (title: '%s')", pageTitle), -1)

	chromeCleanup = func() {
		if cancel3 != nil {
			cancel3()
		}
		if cancel2 != nil {
			cancel2()
		}
		if cancel != nil {
			cancel()
		}
	}

	// Register the cancel chain so CancelExecution can abort this run
	e.mutex.Lock()
	e.cancels[executionID] = cancel3
	e.mutex.Unlock()

	startTime := time.Now()

	// 设置设备模拟
	if flow.Device.Width > 0 {
		result.addLog("info", fmt.Sprintf("📱 Configuring device emulation: %s (%dx%d)", flow.Device.Name, flow.Device.Width, flow.Device.Height), -1)
		if err := chrome.EmulateDevice(ctx, deviceInfo); err != nil {
			result.Success = false
			result.ErrorMessage = fmt.Sprintf("Failed to setup device emulation: %v", err)
			result.addLog("error", fmt.Sprintf("❌ Device emulation failed: %v", err), -1)
			return result
		}
		result.addLog("info", fmt.Sprintf("✅ Device emulation (%s) configured successfully", flow.Device.Name), -1)
	}

	// Chrome启动时已加载目标URL；只有当前页面不是目标页面时才导航
	var currentURL string
	needNavigation := true
	if urlErr := chromedp.Run(ctx, chromedp.Location(&currentURL)); urlErr == nil {
		if currentURL == targetURL {
			result.addLog("info", fmt.Sprintf("✅ Target page already loaded at startup: %s", currentURL), -1)
			needNavigation = false
		} else {
			result.addLog("info", fmt.Sprintf("📄 Current page: %s, will navigate to target: %s", currentURL, targetURL), -1)
		}
	} else {
		result.addLog("warn", fmt.Sprintf("⚠️ Failed to get current URL: %v, will attempt navigation", urlErr), -1)
	}

	if needNavigation && targetURL != "" {
		result.addLog("info", fmt.Sprintf("🔄 Navigating current tab to target page: %s", targetURL), -1)
		err = chromedp.Run(ctx,
			chromedp.Navigate(targetURL),
			chromedp.WaitReady("body", chromedp.ByQuery),
		)
		if err != nil {
			result.Success = false
			result.ErrorMessage = fmt.Sprintf("Failed to navigate current tab to target page: %v", err)
			result.addLog("error", fmt.Sprintf("❌ Tab navigation failed: %v", err), -1)
			return result
		}
		result.addLog("info", "✅ Successfully navigated current tab to target page", -1)
	}

	// Multi-stage page load wait, dynamic content needs the extra settles
	result.addLog("info", "⏳ Waiting for page to load...", -1)
	err = chromedp.Run(ctx,
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(2*time.Second),
		chromedp.WaitVisible("body", chromedp.ByQuery),
		chromedp.Sleep(1*time.Second),
	)
	if err != nil {
		result.addLog("warn", fmt.Sprintf("⚠️ Page loading issues: %v, continuing with replay", err), -1)
	} else {
		result.addLog("info", "✅ Page loaded successfully", -1)
	}

	// Take initial screenshot
	if shot := e.takeScreenshot(ctx, "initial", 0, flow.Name); shot != "" {
		result.Screenshots = append(result.Screenshots, shot)
	}

	totalActions := len(actions)
	log.Printf("🏁 开始回放流程: %s (共 %d 个操作)", flow.Name, totalActions)

	for i, action := range actions {
		actionStart := time.Now()
		desc := describeAction(action, i, totalActions)

		log.Printf("🔄 %s - 开始执行...", desc)
		result.addActionLog("info", fmt.Sprintf("开始执行操作 %d/%d: %s", i+1, totalActions, desc), i,
			string(action.Type), "running", action.SelectorValue, action.Value, "", 0, "")

		if action.SelectorValue != "" {
			log.Printf("🔍 操作 %d/%d - 查找元素: %s=%s", i+1, totalActions, action.Selector, action.SelectorValue)
		}

		err = e.executeAction(ctx, action)
		duration := time.Since(actionStart).Milliseconds()

		if err != nil {
			result.ErrorMessage = fmt.Sprintf("操作 %d 执行失败: %v", i+1, err)
			log.Printf("❌ 操作 %d/%d 执行失败 (耗时: %dms): %s - 错误: %v", i+1, totalActions, duration, desc, err)

			screenshotFile := ""
			if shot := e.takeScreenshot(ctx, "error", i, flow.Name); shot != "" {
				result.Screenshots = append(result.Screenshots, shot)
				screenshotFile = shot
				log.Printf("📷 已拍摄错误截图: %s", shot)
			}

			result.addActionLog("error", fmt.Sprintf("操作 %d/%d 执行失败: %s - 错误: %v (耗时: %dms)",
				i+1, totalActions, desc, err, duration), i,
				string(action.Type), "failed", action.SelectorValue, action.Value, screenshotFile, duration, err.Error())

			return result
		}

		screenshotFile := ""
		if shouldCapture(action) {
			if shot := e.takeScreenshot(ctx, "action", i, flow.Name); shot != "" {
				result.Screenshots = append(result.Screenshots, shot)
				screenshotFile = shot
			}
		}

		log.Printf("✅ 操作 %d/%d 执行成功 (耗时: %dms): %s", i+1, totalActions, duration, desc)
		result.addActionLog("info", fmt.Sprintf("操作 %d/%d 执行成功: %s (耗时: %dms)",
			i+1, totalActions, desc, duration), i,
			string(action.Type), "success", action.SelectorValue, action.Value, screenshotFile, duration, "")

		// Small delay between actions
		chromedp.Run(ctx, chromedp.Sleep(500*time.Millisecond))
	}

	// Take final screenshot
	if shot := e.takeScreenshot(ctx, "final", len(actions), flow.Name); shot != "" {
		result.Screenshots = append(result.Screenshots, shot)
	}

	result.Metrics = e.collectPerformanceMetrics(ctx)
	result.Metrics.PageLoadTime = int(time.Since(startTime).Milliseconds())

	select {
	case <-ctx.Done():
		result.Success = false
		result.ErrorMessage = "Execution was cancelled"
		result.addLog("info", "Replay was cancelled", -1)
		log.Printf("⚠️ 流程回放被取消: %s", flow.Name)
	default:
		result.Success = true
		result.addLog("info", "Replay completed successfully", -1)
		log.Printf("🎉 流程回放成功完成: %s (共执行 %d 个操作, 耗时: %.2f秒)",
			flow.Name, totalActions, time.Since(startTime).Seconds())
	}

	return result
}

// startURL decides where Chrome should land before the first action runs: the
// flow's recorded entry point, else the first navigation in the log, else the
// environment's base URL.
func startURL(flow *models.Flow, actions []models.Action) string {
	if flow.StartURL != "" {
		return flow.StartURL
	}
	for _, a := range actions {
		if a.Type == models.ActionNavigate {
			if a.URL != "" {
				return a.URL
			}
			return a.Value
		}
	}
	return flow.Environment.BaseURL
}

func (e *Executor) takeScreenshot(ctx context.Context, kind string, actionIndex int, flowName string) string {
	now := time.Now()
	dateFolder := now.Format("2006-01-02")
	timeStamp := now.Format("15:04:05")
	filename := fmt.Sprintf("%s_%s_%d_%s.png", flowName, kind, actionIndex, timeStamp)

	screenshotDir := filepath.Join("screenshots", dateFolder)
	if err := os.MkdirAll(screenshotDir, 0755); err != nil {
		log.Printf("Failed to create screenshots directory: %v", err)
		return ""
	}

	fullPath := filepath.Join(screenshotDir, filename)

	var buf []byte
	if err := chromedp.Run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		log.Printf("Failed to take screenshot: %v", err)
		return ""
	}

	if err := ioutil.WriteFile(fullPath, buf, 0644); err != nil {
		log.Printf("Failed to save screenshot file: %v", err)
		return ""
	}

	log.Printf("📸 Screenshot saved: %s (action %d, type: %s)", filename, actionIndex, kind)
	return filepath.Join(dateFolder, filename)
}

// shouldCapture reports whether an action warrants a screenshot. Navigations
// and plain typing are covered by the initial/final shots.
func shouldCapture(action models.Action) bool {
	switch action.Type {
	case models.ActionClick, models.ActionSendKeysEnter, models.ActionSelectOption,
		models.ActionCheckbox, models.ActionRadio, models.ActionSubmit:
		return true
	}
	return false
}

func (e *Executor) collectPerformanceMetrics(ctx context.Context) *models.PerformanceMetric {
	metric := &models.PerformanceMetric{}

	var raw struct {
		DOMContentLoaded     float64 `json:"domContentLoaded"`
		FirstPaint           float64 `json:"firstPaint"`
		FirstContentfulPaint float64 `json:"firstContentfulPaint"`
		NetworkRequests      float64 `json:"networkRequests"`
		JSHeapSize           float64 `json:"jsHeapSize"`
	}

	err := chromedp.Run(ctx, chromedp.Evaluate(`(() => {
		const t = performance.timing;
		const paint = (name) => {
			const entry = performance.getEntriesByType('paint').find((p) => p.name === name);
			return entry ? entry.startTime : 0;
		};
		return {
			domContentLoaded: t.domContentLoadedEventEnd - t.navigationStart,
			firstPaint: paint('first-paint'),
			firstContentfulPaint: paint('first-contentful-paint'),
			networkRequests: performance.getEntriesByType('resource').length,
			jsHeapSize: performance.memory ? performance.memory.totalJSHeapSize / 1024 / 1024 : 0
		};
	})()`, &raw))
	if err != nil {
		log.Printf("Failed to collect performance metrics: %v", err)
		return metric
	}

	metric.DOMContentLoaded = int(raw.DOMContentLoaded)
	metric.FirstPaint = int(raw.FirstPaint)
	metric.FirstContentfulPaint = int(raw.FirstContentfulPaint)
	metric.NetworkRequests = int(raw.NetworkRequests)
	metric.JSHeapSize = raw.JSHeapSize

	return metric
}

func (result *Result) addLog(level, message string, actionIndex int) {
	result.Logs = append(result.Logs, Log{
		Timestamp:   time.Now(),
		Level:       level,
		Message:     message,
		ActionIndex: actionIndex,
	})
}

func (result *Result) addActionLog(level, message string, actionIndex int, actionType, status, selector, value, screenshot string, duration int64, errorDetail string) {
	result.Logs = append(result.Logs, Log{
		Timestamp:   time.Now(),
		Level:       level,
		Message:     message,
		ActionIndex: actionIndex,
		ActionType:  actionType,
		Status:      status,
		Selector:    selector,
		Value:       value,
		Screenshot:  screenshot,
		Duration:    duration,
		ErrorDetail: errorDetail,
	})
}

// describeAction renders one transcript line for the console log.
func describeAction(a models.Action, index, total int) string {
	progress := fmt.Sprintf("[%d/%d]", index+1, total)

	switch a.Type {
	case models.ActionNavigate:
		url := a.URL
		if url == "" {
			url = a.Value
		}
		return fmt.Sprintf("%s 🌐 打开页面: %s", progress, url)
	case models.ActionClick:
		return fmt.Sprintf("%s 🔘 点击元素: %s=%s", progress, a.Selector, a.SelectorValue)
	case models.ActionSendKeys:
		if len(a.Value) > 50 {
			return fmt.Sprintf("%s ⌨️ 输入文本到 %s (长度: %d字符)", progress, a.SelectorValue, len(a.Value))
		}
		return fmt.Sprintf("%s ⌨️ 输入文本到 %s: %s", progress, a.SelectorValue, a.Value)
	case models.ActionSendKeysEnter:
		return fmt.Sprintf("%s ⌨️ 输入文本并回车 %s: %s", progress, a.SelectorValue, a.Value)
	case models.ActionSelectOption:
		if a.Label != "" {
			return fmt.Sprintf("%s 🔽 选择选项 %s → %s (%s)", progress, a.SelectorValue, a.Value, a.Label)
		}
		return fmt.Sprintf("%s 🔽 选择选项 %s → %s", progress, a.SelectorValue, a.Value)
	case models.ActionCheckbox:
		if a.Checked {
			return fmt.Sprintf("%s ☑️ 勾选复选框: %s", progress, a.SelectorValue)
		}
		return fmt.Sprintf("%s ⬜ 取消勾选复选框: %s", progress, a.SelectorValue)
	case models.ActionRadio:
		return fmt.Sprintf("%s 🔘 选中单选按钮: %s", progress, a.SelectorValue)
	case models.ActionSubmit:
		return fmt.Sprintf("%s ✅ 提交表单: %s", progress, a.SelectorValue)
	default:
		return fmt.Sprintf("%s ⚙️ 执行 %s 操作: %s", progress, a.Type, a.SelectorValue)
	}
}

// Stop gracefully shuts down the executor.
func (e *Executor) Stop() {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.workQueue != nil {
		close(e.workQueue)
	}

	log.Println("Replay executor stopped")
}

// GetExecutionStatus returns the current status of an execution.
func (e *Executor) GetExecutionStatus(executionID uint) string {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	if e.running[executionID] {
		return "running"
	}
	return "completed"
}

// CancelExecution cancels a running execution.
func (e *Executor) CancelExecution(executionID uint) bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if !e.running[executionID] {
		return false
	}

	if cancelFunc, exists := e.cancels[executionID]; exists {
		log.Printf("Cancelling execution %d and closing browser", executionID)
		cancelFunc()
	}

	delete(e.running, executionID)
	delete(e.cancels, executionID)
	delete(e.completions, executionID)
	log.Printf("Execution %d cancelled", executionID)
	return true
}

// closeBrowser asks the browser to close its tabs before the context teardown
// kills the process. Only best effort, Chrome may ignore window.close for
// script-created pages.
func (e *Executor) closeBrowser(ctx context.Context) {
	if ctx == nil {
		return
	}

	log.Printf("Attempting to close Chrome browser gracefully...")

	err := chromedp.Run(ctx, chromedp.Evaluate(`
		try {
			window.close();
			if (window.chrome && window.chrome.runtime) {
				window.chrome.runtime.exit();
			}
		} catch(e) {}
	`, nil))
	if err != nil {
		log.Printf("JavaScript tab close failed: %v", err)
	}

	time.Sleep(500 * time.Millisecond)
	log.Printf("Chrome browser close sequence completed - context will be cancelled to force process termination")

	go func() {
		time.Sleep(2 * time.Second)
		e.forceKillChromeProcesses()
	}()
}

// forceKillChromeProcesses terminates Chrome processes started by the manager,
// matched by the per-execution user-data-dir flag.
func (e *Executor) forceKillChromeProcesses() {
	switch runtime.GOOS {
	case "linux":
		cmd := exec.Command("pkill", "-f", "chrome.*/tmp/chrome-data-")
		if err := cmd.Run(); err == nil {
			log.Printf("Force killed leftover Chrome replay processes on Linux")
		}
	case "darwin":
		cmd := exec.Command("pkill", "-f", "Chrome.*chrome-data-")
		if err := cmd.Run(); err == nil {
			log.Printf("Force killed leftover Chrome replay processes on macOS")
		}
	case "windows":
		cmd := exec.Command("taskkill", "/F", "/IM", "chrome.exe")
		if err := cmd.Run(); err == nil {
			log.Printf("Force killed Chrome processes on Windows")
		}
	}
}
