package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/ayusman/acecoach/internal/app"
	"github.com/ayusman/acecoach/internal/capture"
	"github.com/ayusman/acecoach/internal/config"
	"github.com/ayusman/acecoach/internal/detector"
	"github.com/ayusman/acecoach/internal/hook"
	"github.com/ayusman/acecoach/internal/server"
	"github.com/ayusman/acecoach/internal/store"
	"github.com/ayusman/acecoach/internal/tray"
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `Usage:
  acecoach [flags]                 run the trigger, recorder and web server
  acecoach [flags] analyze <clip>  analyze a recorded serve and print its key moments

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	configF := flag.String("config", "", "path to config.yaml (default: search CONFIG_ENV candidates)")
	trayF := flag.Bool("tray", true, "show the system tray menu")
	armF := flag.Bool("arm", false, "arm the trigger on startup")
	flag.Usage = usage
	flag.Parse()

	cfg, err := config.Load(*configF)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Source() != "" {
		log.Printf("[Main] config: %s", cfg.Source())
	}

	for _, dir := range []string{cfg.Storage.DataDir, cfg.Recording.Dir, cfg.Hooks.Dir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create data directory: %v", err)
		}
	}

	st, err := store.New(cfg.Storage.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	// The live trigger and the offline pass each get their own service so
	// the tracker state of one never leaks into the other.
	liveDet, err := detector.NewMediaPipeDetector(cfg.Detector)
	if err != nil {
		log.Fatalf("Failed to initialize pose detector: %v", err)
	}
	defer liveDet.Close()

	analysisDet, err := detector.NewMediaPipeDetector(cfg.Detector)
	if err != nil {
		log.Fatalf("Failed to initialize pose detector: %v", err)
	}
	defer analysisDet.Close()

	hooks := hook.NewManager(cfg.Hooks.Dir)
	if err := hooks.Discover(); err != nil {
		log.Printf("[Main] hook discovery failed: %v", err)
	}

	side, _ := cfg.ServingSide()
	ctrl := app.New(app.Config{
		Camera:           capture.NewCamera(cfg.Camera.Device, cfg.Camera.FPS),
		Detector:         liveDet,
		AnalysisDetector: analysisDet,
		Store:            st,
		Hooks:            hooks,
		HookExec:         hook.NewExecutor(cfg.Hooks.Timeout),
		Gesture:          cfg.Gesture,
		RecordingsDir:    cfg.Recording.Dir,
		MaxRecording:     cfg.Recording.MaxDuration,
		ServingSide:      side,
		AnalysisPace:     cfg.Analysis.Pace,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch flag.Arg(0) {
	case "":
	case "analyze":
		if flag.NArg() != 2 {
			flag.Usage()
			os.Exit(2)
		}
		if err := analyze(ctx, ctrl, flag.Arg(1)); err != nil {
			log.Fatalf("Analysis failed: %v", err)
		}
		return
	default:
		flag.Usage()
		os.Exit(2)
	}

	webDir := cfg.Server.WebDir
	if webDir == "" {
		webDir = findWebDir()
	}
	if webDir != "" {
		log.Printf("[Main] serving static files from %s", webDir)
	}

	srv := server.New(server.Config{
		StaticDir:     webDir,
		RecordingsDir: cfg.Recording.Dir,
		Store:         st,
		Controller:    ctrl,
		Hub:           ctrl.Hub(),
	})

	if *armF {
		if err := ctrl.Arm(); err != nil {
			log.Printf("[Main] arm: %v", err)
		}
	}

	var t *tray.Tray
	if *trayF {
		t = newTray(ctx, ctrl, "http://"+cfg.Server.Addr, stop)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx, cfg.Server.Addr)
	})
	g.Go(func() error {
		<-gctx.Done()
		ctrl.Disarm()
		ctrl.Hub().Close()
		if t != nil {
			t.Quit()
		}
		return nil
	})

	if t != nil {
		// The tray owns the main thread until it quits.
		t.Run()
		stop()
	}

	if err := g.Wait(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
	log.Println("[Main] exited")
}

// analyze runs the offline pass over one clip and prints the key moments.
func analyze(ctx context.Context, ctrl *app.Controller, path string) error {
	res, err := ctrl.Analyze(ctx, path)
	if err != nil {
		return err
	}

	out := struct {
		SessionID string  `json:"session_id"`
		Duration  float64 `json:"duration"`
		Frames    int     `json:"frames"`
		Moments   any     `json:"moments"`
	}{
		SessionID: res.Session.ID,
		Duration:  res.Session.Duration,
		Frames:    res.Session.FrameCount,
		Moments:   res.Moments,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// newTray wires the tray menu to the controller.
func newTray(ctx context.Context, ctrl *app.Controller, url string, quit func()) *tray.Tray {
	t := tray.New()
	t.OnToggle(func(armed bool) {
		if !armed {
			ctrl.Disarm()
			return
		}
		if err := ctrl.Arm(); err != nil && !errors.Is(err, app.ErrAlreadyArmed) {
			log.Printf("[Main] arm: %v", err)
		}
	})
	t.OnStop(func() { ctrl.Stop() })
	t.OnOpen(func() {
		if err := openBrowser(url); err != nil {
			log.Printf("[Main] open browser: %v", err)
		}
	})
	t.OnQuit(quit)

	events, unsubscribe := ctrl.Hub().Subscribe(16)
	t.SetStatus(ctrl.Status())
	go func() {
		<-ctx.Done()
		unsubscribe()
	}()
	go t.Follow(events)

	return t
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.acecoach/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".acecoach", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
