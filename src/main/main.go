package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	kbscreenshot "github.com/kbinani/screenshot"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"sniptext/src/clipboard"
	"sniptext/src/config"
	"sniptext/src/eventloop"
	"sniptext/src/gui"
	"sniptext/src/logutil"
	"sniptext/src/notification"
	"sniptext/src/ocr"
	"sniptext/src/screenshot"
	"sniptext/src/settings"
	"sniptext/src/singleinstance"
	"sniptext/src/tray"
	"sniptext/src/worker"
)

const appID = "io.github.sniptext"

type mainOptions struct {
	multiRegion  bool
	captureDelay int
	color        string
	saveDir      string
	noSave       bool
	verbose      bool
	envFile      string
	capture      bool
}

var legacyFlags = []string{"multi-region", "capture-delay", "color", "save-dir", "no-save", "verbose", "env-file", "capture"}

// normalizeLegacyArgs maps single-dash long flags (-no-save) to cobra's --no-save.
func normalizeLegacyArgs(args []string) []string {
	out := make([]string, len(args))
	copy(out, args)
	for i := 1; i < len(out); i++ {
		arg := out[i]
		if !strings.HasPrefix(arg, "-") || strings.HasPrefix(arg, "--") {
			continue
		}
		name := strings.TrimPrefix(arg, "-")
		if eq := strings.IndexByte(name, '='); eq >= 0 {
			name = name[:eq]
		}
		for _, f := range legacyFlags {
			if name == f {
				out[i] = "-" + arg
				break
			}
		}
	}
	return out
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "sniptext",
		Short:         "Select a screen region and copy its text to the clipboard",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&opts.multiRegion, "multi-region", false, "Collect several regions per capture")
	f.IntVar(&opts.captureDelay, "capture-delay", int(config.DefaultCaptureDelay.Milliseconds()), "Milliseconds to wait after hiding the overlay")
	f.StringVar(&opts.color, "color", "", "Selection frame color (name or hex)")
	f.StringVar(&opts.saveDir, "save-dir", "", "Folder for saved screenshots")
	f.BoolVar(&opts.noSave, "no-save", false, "Do not save screenshots")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Log to stderr")
	f.StringVar(&opts.envFile, "env-file", "", "Configuration file to load instead of .env")
	f.BoolVar(&opts.capture, "capture", false, "Start a capture right away (in the running instance if there is one)")
	return cmd
}

// loadOptions passes only flags the user actually set, so env values survive defaults.
func loadOptions(cmd *cobra.Command, opts *mainOptions) config.LoadOptions {
	lo := config.LoadOptions{
		OverlayColor:    opts.color,
		SaveDir:         opts.saveDir,
		NoSave:          opts.noSave,
		EnvPathOverride: opts.envFile,
	}
	if cmd.Flags().Changed("multi-region") {
		v := opts.multiRegion
		lo.MultiRegion = &v
	}
	if cmd.Flags().Changed("capture-delay") {
		v := opts.captureDelay
		lo.CaptureDelayMS = &v
	}
	return lo
}

// applyOverrides writes explicitly set flags over the stored settings.
func applyOverrides(cmd *cobra.Command, cfg *config.Config, s *settings.Manager) {
	flags := cmd.Flags()
	if flags.Changed("multi-region") {
		s.SetMultiRegion(cfg.MultiRegion)
	}
	if flags.Changed("capture-delay") {
		s.SetCaptureDelay(cfg.CaptureDelay)
	}
	if flags.Changed("color") {
		s.SetOverlayColor(cfg.OverlayColor)
	}
	if flags.Changed("save-dir") {
		s.SetSaveDir(cfg.SaveDir)
	}
	if flags.Changed("no-save") {
		s.SetSaveScreenshot(cfg.SaveScreenshot)
	}
}

func run(cmd *cobra.Command, opts *mainOptions) error {
	cfg, err := config.LoadWithOptions(loadOptions(cmd, opts))
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logutil.Setup(logutil.Options{
		FileLogging: cfg.EnableFileLogging,
		Verbose:     opts.verbose,
		Level:       cfg.LogLevel,
	})
	log := logrus.WithField("component", "main")
	if cfg.EnvPath != "" {
		log.Infof("configuration loaded from %s", cfg.EnvPath)
	}

	if delegated, err := delegateToResident(opts.capture); delegated {
		if err != nil {
			return err
		}
		log.Info("handed over to the running instance")
		return nil
	} else if err != nil {
		log.Warnf("resident lookup failed: %v", err)
	}

	// must happen before any window exists
	enableDPIAwareness()
	logDisplays(log)

	app := fyneapp.NewWithID(appID)
	app.SetIcon(tray.Icon)
	prefs := settings.New(app.Preferences(), cfg)
	applyOverrides(cmd, cfg, prefs)

	notifier := notification.NewFyne(app, nil)

	recognizer := ocr.NewService()
	ocrReady := recognizer.Initialize(cfg.TessdataPrefix, cfg.OCRLanguage)
	defer recognizer.Close()
	pool := worker.New(recognizer, 0)
	defer pool.Close()

	clip := clipboard.NewSystem()
	clipErr := clip.Init()

	loop, err := eventloop.New(eventloop.Options{
		Displays:   screenshot.NewScreens(),
		NewOverlay: gui.NewOverlayFactory(app),
		Scheduler:  gui.Scheduler{},
		Runner:     pool,
		Clipboard:  clip,
		Notifier:   notifier,
		Settings:   prefs,
		Dispatch:   gui.Dispatch,
	})
	if err != nil {
		return err
	}
	defer loop.Close()

	win := gui.NewMainWindow(app, loop, prefs, cfg.Hotkey)
	notifier.SetWindow(win.Window())
	win.Window().SetMaster()

	trayMenu := tray.New(tray.Actions{
		Capture:     loop.Trigger,
		Show:        win.Show,
		ToggleMulti: loop.ToggleMultiRegion,
	}, prefs.Current().MultiRegion)
	prefs.AddChangeListener(func(cur settings.Settings) { trayMenu.SetMulti(cur.MultiRegion) })
	tray.Install(app, trayMenu)

	if err := loop.StartHotkey(cfg.Hotkey); err != nil {
		log.Warnf("hotkey unavailable: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	resident := singleinstance.NewServer(func(c singleinstance.Command) error {
		return residentCommand(c, loop, win)
	})
	if err := resident.Start(ctx); err != nil {
		log.Warnf("single-instance endpoint unavailable: %v", err)
	}
	defer resident.Close()

	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		fyne.Do(app.Quit)
	}()

	app.Lifecycle().SetOnStarted(func() {
		if !ocrReady {
			notifier.Error("Tesseract", fmt.Sprintf(
				"Could not initialize OCR for language %q (data: %q). Screenshots can still be saved.",
				cfg.OCRLanguage, cfg.TessdataPrefix))
		}
		if clipErr != nil {
			notifier.Error("Clipboard", clipErr.Error())
		}
		if opts.capture {
			loop.Trigger()
		}
	})

	log.Infof("SnipText started (hotkey %s, multi-region %v)", cfg.Hotkey, prefs.Current().MultiRegion)
	win.Show()
	app.Run()
	log.Info("SnipText stopped")
	return nil
}

// delegateToResident hands this launch to an already running instance.
func delegateToResident(capture bool) (bool, error) {
	cmd := singleinstance.CommandShow
	if capture {
		cmd = singleinstance.CommandCapture
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	delegated, err := singleinstance.Delegate(ctx, cmd)
	if errors.Is(err, context.DeadlineExceeded) {
		return false, nil
	}
	return delegated, err
}

type residentTarget interface {
	Trigger()
}

type windowShower interface {
	Show()
}

// residentCommand runs a delegated command on the UI goroutine.
func residentCommand(c singleinstance.Command, loop residentTarget, win windowShower) error {
	switch c {
	case singleinstance.CommandCapture:
		gui.Dispatch(loop.Trigger)
	case singleinstance.CommandShow:
		gui.Dispatch(win.Show)
	default:
		return fmt.Errorf("unsupported command %s", c)
	}
	return nil
}

func logDisplays(log *logrus.Entry) {
	n := kbscreenshot.NumActiveDisplays()
	log.Infof("detected %d displays", n)
	for i := 0; i < n; i++ {
		b := kbscreenshot.GetDisplayBounds(i)
		log.Debugf("display %d: x:%d y:%d w:%d h:%d", i, b.Min.X, b.Min.Y, b.Dx(), b.Dy())
	}
}

func main() {
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(normalizeLegacyArgs(os.Args)[1:])
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "sniptext: %v\n", err)
		os.Exit(1)
	}
}
