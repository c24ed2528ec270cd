package chrome

import (
	"context"
	"fmt"
	"log"
	"strings"

	"uirecorder/internal/models"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// DeviceInfo represents device specifications for browser emulation
type DeviceInfo struct {
	Name             string  `json:"name"`
	Width            int64   `json:"width"`
	Height           int64   `json:"height"`
	UserAgent        string  `json:"user_agent"`
	DevicePixelRatio float64 `json:"device_pixel_ratio"`
	Mobile           bool    `json:"mobile"`
	Touch            bool    `json:"touch"`
}

// FromModel converts a stored device preset into emulation parameters.
func FromModel(device models.Device) DeviceInfo {
	return DeviceInfo{
		Name:             device.Name,
		Width:            int64(device.Width),
		Height:           int64(device.Height),
		UserAgent:        device.UserAgent,
		DevicePixelRatio: device.DevicePixelRatio,
		Mobile:           device.Mobile,
		Touch:            device.Touch,
	}
}

// PredefinedDevices contains common device configurations
var PredefinedDevices = map[string]DeviceInfo{
	"iPhone 12 Pro": {
		Name:             "iPhone 12 Pro",
		Width:            390,
		Height:           844,
		DevicePixelRatio: 1.0, // 使用1.0避免文字过大，Chrome会自动处理缩放
		Mobile:           true,
		Touch:            true,
		UserAgent:        "Mozilla/5.0 (iPhone; CPU iPhone OS 14_7_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.1.2 Mobile/15E148 Safari/604.1",
	},
	"iPhone 11 Pro Max": {
		Name:             "iPhone 11 Pro Max",
		Width:            414,
		Height:           896,
		DevicePixelRatio: 1.0,
		Mobile:           true,
		Touch:            true,
		UserAgent:        "Mozilla/5.0 (iPhone; CPU iPhone OS 13_2_3 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/13.0.3 Mobile/15E148 Safari/604.1",
	},
	"iPhone X": {
		Name:             "iPhone X",
		Width:            375,
		Height:           812,
		DevicePixelRatio: 1.0,
		Mobile:           true,
		Touch:            true,
		UserAgent:        "Mozilla/5.0 (iPhone; CPU iPhone OS 11_0 like Mac OS X) AppleWebKit/604.1.38 (KHTML, like Gecko) Version/11.0 Mobile/15A372 Safari/604.1",
	},
	"Galaxy S20": {
		Name:             "Galaxy S20",
		Width:            360,
		Height:           800,
		DevicePixelRatio: 1.0,
		Mobile:           true,
		Touch:            true,
		UserAgent:        "Mozilla/5.0 (Linux; Android 10; SM-G981B) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/80.0.3987.162 Mobile Safari/537.36",
	},
	"iPad Pro": {
		Name:             "iPad Pro",
		Width:            768,
		Height:           1024,
		DevicePixelRatio: 2.0,
		Mobile:           true,
		Touch:            true,
		UserAgent:        "Mozilla/5.0 (iPad; CPU OS 13_3 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) CriOS/87.0.4280.77 Mobile/15E148 Safari/604.1",
	},
	"Responsive": {
		Name:             "Responsive",
		Width:            1200,
		Height:           800,
		DevicePixelRatio: 1.0,
		Mobile:           false,
		Touch:            false,
		UserAgent:        "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	},
}

// GetDeviceByName returns a device configuration by name
func GetDeviceByName(name string) (DeviceInfo, error) {
	if device, exists := PredefinedDevices[name]; exists {
		return device, nil
	}

	// Default to iPhone 12 Pro if device not found
	log.Printf("⚠️ Device '%s' not found, using iPhone 12 Pro as default", name)
	return PredefinedDevices["iPhone 12 Pro"], nil
}

// ApplyDeviceEmulation applies complete device emulation using ChromeDP
func ApplyDeviceEmulation(ctx context.Context, device DeviceInfo) error {
	log.Printf("🎭 Applying device emulation: %s (%dx%d)", device.Name, device.Width, device.Height)

	return chromedp.Run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			log.Printf("📐 Setting device metrics: %dx%d, DPR: %.1f, Mobile: %t",
				device.Width, device.Height, device.DevicePixelRatio, device.Mobile)
			return emulation.SetDeviceMetricsOverride(
				device.Width,
				device.Height,
				device.DevicePixelRatio,
				device.Mobile,
			).Do(ctx)
		}),

		chromedp.ActionFunc(func(ctx context.Context) error {
			log.Printf("🌐 Setting user agent: %s", device.UserAgent)
			return emulation.SetUserAgentOverride(device.UserAgent).Do(ctx)
		}),

		chromedp.ActionFunc(func(ctx context.Context) error {
			if device.Touch {
				log.Printf("👆 Enabling touch emulation")
				return emulation.SetTouchEmulationEnabled(true).Do(ctx)
			}
			log.Printf("🖱️ Disabling touch emulation")
			return emulation.SetTouchEmulationEnabled(false).Do(ctx)
		}),

		// Pages sniffing navigator properties need them overridden before
		// their own scripts run.
		chromedp.ActionFunc(func(ctx context.Context) error {
			if !device.Mobile {
				return nil
			}
			script := fmt.Sprintf(`
				Object.defineProperty(navigator, 'platform', {
					get: function() { return '%s'; }
				});
				Object.defineProperty(screen, 'width', {
					get: function() { return %d; }
				});
				Object.defineProperty(screen, 'height', {
					get: function() { return %d; }
				});
				// 不覆盖devicePixelRatio，让Chrome自动处理缩放
				if (!('ontouchstart' in window)) {
					window.ontouchstart = null;
					window.ontouchmove = null;
					window.ontouchend = null;
				}
				Object.defineProperty(navigator, 'maxTouchPoints', {
					get: function() { return %d; }
				});
				console.log('✅ Mobile device emulation applied: %s');
			`,
				devicePlatform(device.Name),
				device.Width, device.Height,
				touchPoints(device.Touch),
				device.Name)

			_, exp, err := runtime.Evaluate(script).Do(ctx)
			_ = exp
			if err != nil {
				log.Printf("⚠️ Failed to inject mobile detection script: %v", err)
			}
			return err
		}),

		chromedp.ActionFunc(func(ctx context.Context) error {
			return chromedp.Evaluate(`
				window.dispatchEvent(new Event('resize'));
				document.documentElement.style.width = '100%';
				document.documentElement.style.height = '100%';
			`, nil).Do(ctx)
		}),
	)
}

func devicePlatform(deviceName string) string {
	name := strings.ToLower(deviceName)
	switch {
	case strings.Contains(name, "iphone"):
		return "iPhone"
	case strings.Contains(name, "ipad"):
		return "iPad"
	case strings.Contains(name, "galaxy"), strings.Contains(name, "android"):
		return "Linux armv7l"
	default:
		return "iPhone"
	}
}

func touchPoints(hasTouch bool) int {
	if hasTouch {
		return 5
	}
	return 0
}

// EmulationArgs returns extra Chrome command-line arguments for a device.
func EmulationArgs(device DeviceInfo) []string {
	args := []string{
		"--user-agent=" + device.UserAgent,
	}

	if device.Mobile {
		args = append(args, "--enable-features=OverlayScrollbar")
	}

	if device.Touch {
		args = append(args, "--touch-events=enabled")
	} else {
		args = append(args, "--touch-events=disabled")
	}

	return args
}
