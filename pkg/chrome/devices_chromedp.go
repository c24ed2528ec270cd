package chrome

import (
	"context"
	"log"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/device"
)

// ChromeDPDevice converts a DeviceInfo into ChromeDP's device.Info so the
// built-in Emulate action can be used.
func ChromeDPDevice(info DeviceInfo) device.Info {
	return device.Info{
		Name:      info.Name,
		UserAgent: info.UserAgent,
		Width:     info.Width,
		Height:    info.Height,
		Scale:     info.DevicePixelRatio,
		Landscape: false,
		Mobile:    info.Mobile,
		Touch:     info.Touch,
	}
}

// EmulateDevice applies device emulation using ChromeDP's built-in action.
func EmulateDevice(ctx context.Context, info DeviceInfo) error {
	dev := ChromeDPDevice(info)
	log.Printf("🎭 Applying ChromeDP device emulation: %s (%dx%d, Scale=%.1f, Mobile=%t)",
		dev.Name, dev.Width, dev.Height, dev.Scale, dev.Mobile)
	return chromedp.Run(ctx, chromedp.Emulate(dev))
}
