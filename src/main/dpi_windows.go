//go:build windows

package main

import (
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/windows"
)

const processPerMonitorDPIAware = 2

// enableDPIAwareness makes display bounds and grabs report physical pixels on scaled monitors.
func enableDPIAwareness() {
	log := logrus.WithField("component", "dpi")

	shcore := windows.NewLazySystemDLL("Shcore.dll")
	setProcessDpiAwareness := shcore.NewProc("SetProcessDpiAwareness")
	if err := setProcessDpiAwareness.Find(); err == nil {
		ret, _, _ := setProcessDpiAwareness.Call(uintptr(processPerMonitorDPIAware))
		if ret == 0 {
			log.Debug("per-monitor DPI awareness enabled")
		} else {
			log.Warnf("SetProcessDpiAwareness failed: 0x%x", ret)
		}
		return
	}

	user32 := windows.NewLazySystemDLL("user32.dll")
	setProcessDPIAware := user32.NewProc("SetProcessDPIAware")
	if err := setProcessDPIAware.Find(); err != nil {
		log.Warn("no DPI awareness API available")
		return
	}
	if ret, _, _ := setProcessDPIAware.Call(); ret == 0 {
		log.Warn("SetProcessDPIAware failed")
		return
	}
	log.Debug("system DPI awareness enabled (fallback)")
}
