package recorder

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os/exec"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/gorilla/websocket"

	"uirecorder/internal/models"
	"uirecorder/internal/selector"
	"uirecorder/internal/snapshot"
	"uirecorder/pkg/chrome"
)

// Session drives one recording: a dedicated Chrome instance with the capture
// script injected, polled every 100ms for buffered events and DOM snapshots
// that the reducer folds into actions.
type Session struct {
	ctx       context.Context
	cancel    context.CancelFunc
	recording bool
	actions   []models.Action
	mutex     sync.RWMutex
	wsConn    *websocket.Conn
	device    chrome.DeviceInfo
	sessionID string
	targetURL string
	reducer   *Reducer
}

func NewSession(sessionID string, device chrome.DeviceInfo, cfg Config) *Session {
	return &Session{
		actions:   make([]models.Action, 0),
		device:    device,
		sessionID: sessionID,
		reducer:   NewReducer(cfg, selector.New(selector.Config{})),
	}
}

func (s *Session) Start(targetURL string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.recording {
		return fmt.Errorf("recording is already in progress")
	}

	// Check if Chrome is available
	chromePath := chrome.GetChromePath()
	if chromePath == "" {
		// Try flatpak Chrome
		chromePath = chrome.GetFlatpakChromePath()
		if chromePath == "" {
			return fmt.Errorf("Chrome browser not found. Please install Google Chrome or Chromium")
		}
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(chromePath),
		chromedp.Flag("headless", false),
		chromedp.Flag("disable-web-security", true),
		chromedp.Flag("disable-features", "VizDisplayCompositor"),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-plugins", true),
		chromedp.Flag("disable-images", false),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-backgrounding-occluded-windows", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("ignore-certificate-errors", true),
		chromedp.Flag("ignore-ssl-errors", true),
		chromedp.Flag("ignore-certificate-errors-spki-list", true),
		chromedp.Flag("ignore-ssl-errors-spki-list", true),
		chromedp.Flag("allow-running-insecure-content", true),
		chromedp.Flag("disable-ipc-flooding-protection", true),
		chromedp.Flag("excludeSwitches", "enable-automation"),
		chromedp.Flag("useAutomationExtension", false),
		// Fix cookie parsing issues
		chromedp.Flag("disable-cookie-encryption", true),
		chromedp.Flag("disable-java", true),
		chromedp.Flag("no-first-run", true),
		// Add flags to help with browser process cleanup and force closure
		chromedp.Flag("force-device-scale-factor", "1"),
		chromedp.Flag("aggressive-cache-discard", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-component-update", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("no-pings", true),
		chromedp.Flag("no-crash-upload", true),
		// Don't set window size here - we'll use device emulation instead
		chromedp.UserAgent(s.device.UserAgent),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	var ctxCancel context.CancelFunc
	s.ctx, ctxCancel = chromedp.NewContext(allocCtx, chromedp.WithLogf(log.Printf))

	// Create a custom cancel function that closes browser first
	s.cancel = func() {
		s.closeBrowser()
		ctxCancel()
		allocCancel()
	}

	err := chromedp.Run(s.ctx,
		// Enable device emulation using DevTools (equivalent to Ctrl+Shift+M)
		chromedp.EmulateViewport(int64(s.device.Width), int64(s.device.Height)),
		chromedp.Navigate(targetURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(2*time.Second), // Wait for dynamic content to load
		chromedp.Evaluate(getCaptureScript(), nil),
	)

	if err != nil {
		s.cancel()
		return fmt.Errorf("failed to start recording: %w", err)
	}

	s.targetURL = targetURL
	s.recording = true
	s.actions = make([]models.Action, 0)

	go s.pollEvents()

	log.Printf("🎬 Recording session %s started at %s", s.sessionID, targetURL)
	return nil
}

// Stop drains the page one last time so trailing typed input and deferred
// toggles are committed, tears the capture script down, deduplicates the
// action list and closes the browser.
func (s *Session) Stop() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.recording {
		return fmt.Errorf("no recording in progress")
	}
	s.recording = false

	var env snapshot.Envelope
	err := chromedp.Run(s.ctx,
		chromedp.Evaluate(`window.__uiRecorder ? window.__uiRecorder.snapshot() : null`, &env),
	)
	if err == nil && env.HTML != "" {
		if doc, derr := snapshot.New(env.HTML, env.URL, env.TS, env.States); derr == nil {
			final := s.reducer.SettlePending(doc)
			final = append(final, s.reducer.FlushPending(doc, env.TS)...)
			s.actions = append(s.actions, final...)
		}
	}
	if err := chromedp.Run(s.ctx, chromedp.Evaluate(`window.__uiRecorder && window.__uiRecorder.teardown()`, nil)); err != nil {
		log.Printf("⚠️ Capture script teardown failed: %v", err)
	}

	s.actions = Deduplicate(s.actions)

	if s.cancel != nil {
		s.cancel()
	}

	log.Printf("🎬 Recording session %s stopped with %d actions", s.sessionID, len(s.actions))
	return nil
}

// GetActions returns a copy of the actions recorded so far; after Stop the
// list is the deduplicated final sequence.
func (s *Session) GetActions() []models.Action {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return append([]models.Action(nil), s.actions...)
}

func (s *Session) IsRecording() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.recording
}

func (s *Session) TargetURL() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.targetURL
}

func (s *Session) SetWebSocketConnection(conn *websocket.Conn) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.wsConn = conn
}

// PageElement is one interactive element of the live page together with the
// locator the engine would record for it.
type PageElement struct {
	Tag           string             `json:"tag"`
	ElementType   string             `json:"elementType,omitempty"`
	Text          string             `json:"text,omitempty"`
	Name          string             `json:"name,omitempty"`
	Selector      models.LocatorKind `json:"selector"`
	SelectorValue string             `json:"selectorValue"`
	Stable        bool               `json:"stable"`
}

var interactiveTags = map[string]bool{
	"a": true, "button": true, "input": true, "select": true, "textarea": true,
}

// Inspect snapshots the live page and inventories its interactive elements.
func (s *Session) Inspect() ([]PageElement, error) {
	s.mutex.RLock()
	ctx := s.ctx
	recording := s.recording
	s.mutex.RUnlock()

	if !recording || ctx == nil {
		return nil, fmt.Errorf("no recording in progress")
	}

	var env snapshot.Envelope
	if err := chromedp.Run(ctx, chromedp.Evaluate(`window.__uiRecorder ? window.__uiRecorder.snapshot() : null`, &env)); err != nil {
		return nil, fmt.Errorf("failed to snapshot page: %w", err)
	}
	if env.HTML == "" {
		return nil, fmt.Errorf("capture script is not injected")
	}
	doc, err := snapshot.New(env.HTML, env.URL, env.TS, env.States)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page snapshot: %w", err)
	}

	elements := make([]PageElement, 0)
	doc.Walk(func(el *snapshot.Element) bool {
		tag := el.TagName()
		role := el.Attr("role")
		if !interactiveTags[tag] && role != "button" && role != "link" {
			return true
		}
		if tag == "input" && el.InputType() == "hidden" {
			return true
		}

		elementType := ""
		if tag == "input" {
			elementType = el.InputType()
		}
		text := strings.TrimSpace(el.Text())
		if r := []rune(text); len(r) > 80 {
			text = string(r[:80])
		}

		loc := s.reducer.engine.Locate(doc, el)
		elements = append(elements, PageElement{
			Tag:           tag,
			ElementType:   elementType,
			Text:          text,
			Name:          el.Attr("name"),
			Selector:      loc.Kind,
			SelectorValue: loc.Value,
			Stable:        selector.IsGoodLocator(loc),
		})
		return true
	})

	return elements, nil
}

func (s *Session) pollEvents() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if !s.IsRecording() {
				return
			}
			s.pollOnce()
		}
	}
}

func (s *Session) pollOnce() {
	// Re-evaluating the capture script keeps it alive across page
	// navigations; the injection guard makes it a no-op otherwise.
	if err := chromedp.Run(s.ctx, chromedp.Evaluate(getCaptureScript(), nil)); err != nil {
		log.Printf("⚠️ Failed to refresh capture script: %v", err)
		return
	}

	var events []RawEvent
	err := chromedp.Run(s.ctx,
		chromedp.Evaluate(`window.__uiRecorder ? window.__uiRecorder.drain() : []`, &events),
	)
	if err != nil {
		log.Printf("Error getting events: %v", err)
		return
	}

	var doc *snapshot.Document
	var pageURL string
	if len(events) > 0 || s.reducer.HasDeferred() {
		var env snapshot.Envelope
		if err := chromedp.Run(s.ctx, chromedp.Evaluate(`window.__uiRecorder.snapshot()`, &env)); err != nil {
			log.Printf("Error capturing snapshot: %v", err)
			return
		}
		d, derr := snapshot.New(env.HTML, env.URL, env.TS, env.States)
		if derr != nil {
			log.Printf("⚠️ Snapshot parse failed: %v", derr)
			return
		}
		doc = d
		pageURL = env.URL
	} else {
		if err := chromedp.Run(s.ctx, chromedp.Evaluate(`window.location.href`, &pageURL)); err != nil {
			return
		}
	}

	var produced []models.Action
	navTS := time.Now().UnixMilli()
	if doc != nil {
		navTS = doc.CapturedAt()
	}
	if nav := s.reducer.ObserveURL(pageURL, navTS); nav != nil {
		produced = append(produced, *nav)
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].TS < events[j].TS })
	for _, ev := range events {
		produced = append(produced, s.reducer.HandleEvent(ev, doc)...)
	}
	if doc != nil {
		produced = append(produced, s.reducer.SettlePending(doc)...)
	}
	if len(produced) == 0 {
		return
	}

	s.mutex.Lock()
	s.actions = append(s.actions, produced...)
	conn := s.wsConn
	s.mutex.Unlock()

	// Live preview over WebSocket is best effort: a failed write is logged
	// and the actions stay in the session either way.
	if conn != nil {
		for i := range produced {
			data, _ := json.Marshal(produced[i])
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("⚠️ Live action push failed: %v", err)
				break
			}
		}
	}
}

// closeBrowser forcefully closes the entire Chrome browser process
func (s *Session) closeBrowser() {
	if s.ctx == nil {
		return
	}

	log.Printf("Attempting to close Chrome recording browser completely...")

	// Method 1: Try to close the entire browser using JavaScript
	err := chromedp.Run(s.ctx, chromedp.Evaluate(`
		try {
			// Close all windows and exit the browser entirely
			if (window.chrome && window.chrome.runtime) {
				window.chrome.runtime.exit();
			} else {
				// Force close by calling window.close multiple times
				for (let i = 0; i < 10; i++) {
					setTimeout(() => {
						try {
							window.close();
							if (window.parent) window.parent.close();
						} catch(e) {}
					}, i * 100);
				}
			}
		} catch(e) {
			console.log('Recording browser close attempt failed:', e);
		}
	`, nil))

	if err != nil {
		log.Printf("JavaScript recording browser close failed: %v", err)
	}

	// Method 2: Give a brief moment for graceful close, then force terminate
	time.Sleep(500 * time.Millisecond)

	log.Printf("Chrome recording browser close sequence initiated - context will be cancelled to force process termination")

	// Method 3: Force terminate Chrome processes as last resort
	go func() {
		time.Sleep(2 * time.Second) // Give graceful close some time
		forceKillChromeProcesses()
	}()
}

// forceKillChromeProcesses terminates all Chrome processes related to automation
func forceKillChromeProcesses() {
	switch runtime.GOOS {
	case "linux":
		// Kill Chrome processes that might be related to automation
		cmd := exec.Command("pkill", "-f", "chrome.*automation")
		if err := cmd.Run(); err == nil {
			log.Printf("Force killed Chrome automation processes on Linux")
		}

		// Also try killing any chrome processes with our specific flags
		cmd2 := exec.Command("pkill", "-f", "chrome.*disable-blink-features.*AutomationControlled")
		if err := cmd2.Run(); err == nil {
			log.Printf("Force killed Chrome processes with automation flags on Linux")
		}

	case "darwin":
		// Kill Chrome processes on macOS
		cmd := exec.Command("pkill", "-f", "Google Chrome.*automation")
		if err := cmd.Run(); err == nil {
			log.Printf("Force killed Chrome automation processes on macOS")
		}

	case "windows":
		// Kill Chrome processes on Windows
		cmd := exec.Command("taskkill", "/F", "/IM", "chrome.exe")
		if err := cmd.Run(); err == nil {
			log.Printf("Force killed Chrome processes on Windows")
		}
	}
}
