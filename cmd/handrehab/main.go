package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/ayusman/handrehab/internal/app"
	"github.com/ayusman/handrehab/internal/capture"
	"github.com/ayusman/handrehab/internal/gesture"
	"github.com/ayusman/handrehab/internal/plugin"
	"github.com/ayusman/handrehab/internal/server"
	"github.com/ayusman/handrehab/internal/store"
	"github.com/ayusman/handrehab/internal/tray"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment variables from .env file")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Fatalf("Failed to get home directory: %v", err)
	}
	dataDir := envOr("HANDREHAB_DATA_DIR", filepath.Join(homeDir, ".handrehab"))

	addr := flag.String("addr", envOr("HANDREHAB_ADDR", ":8080"), "HTTP listen address")
	dbPath := flag.String("db", filepath.Join(dataDir, "handrehab.db"), "SQLite database path")
	pluginDir := flag.String("plugins", envOr("HANDREHAB_PLUGINS", filepath.Join(dataDir, "plugins")), "plugin directory")
	webDir := flag.String("web", os.Getenv("HANDREHAB_WEB"), "static web directory (default: search common locations)")
	withTray := flag.Bool("tray", false, "show a system tray menu")
	device := flag.Int("device", 0, "camera device for tray-started sessions")
	kinds := flag.String("kinds", string(gesture.KindOpenClose), "comma-separated gestures for tray-started sessions")
	flag.Parse()

	fmt.Println("Hand Rehab - Exercise Tracking")

	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	st, err := store.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	plugins := plugin.NewManager(*pluginDir)
	if err := plugins.Discover(); err != nil {
		log.Printf("Plugin discovery failed: %v", err)
	}
	for _, p := range plugins.List() {
		log.Printf("Loaded plugin %s %s (%v)", p.Manifest.Name, p.Manifest.Version, p.Manifest.Events)
	}
	dispatcher := plugin.NewDispatcher(plugins, plugin.NewExecutor(plugin.DefaultTimeout), plugin.DefaultQueueSize)
	defer dispatcher.Close()

	manager := app.NewManager(app.Config{
		Store: st,
		Hooks: dispatcher,
	})
	defer manager.StopAll()

	static := *webDir
	if static == "" {
		static = findWebDir(dataDir)
	}
	if static != "" {
		fmt.Printf("Serving static files from: %s\n", static)
	}

	srv := server.New(server.Config{
		StaticDir: static,
		Store:     st,
		Manager:   manager,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		fmt.Printf("Starting server on %s\n", *addr)
		errCh <- srv.ListenAndServe(*addr)
	}()

	if *withTray {
		sessionKinds, err := parseKinds(*kinds)
		if err != nil {
			log.Fatalf("Invalid -kinds: %v", err)
		}
		go func() {
			select {
			case <-ctx.Done():
			case err := <-errCh:
				if err != nil {
					log.Printf("Server failed: %v", err)
				}
			}
			cancel()
		}()
		runTray(ctx, cancel, manager, sessionKinds, *device, settingsURL(*addr))
	} else {
		select {
		case <-ctx.Done():
		case err := <-errCh:
			if err != nil {
				log.Printf("Server failed: %v", err)
			}
		}
	}

	fmt.Println("Shutting down...")
	srv.Close()
}

// runTray blocks on the tray menu. It must run on the main goroutine.
func runTray(ctx context.Context, cancel context.CancelFunc, m *app.Manager, kinds []gesture.Kind, device int, url string) {
	t := tray.New()

	t.OnToggle(func(running bool) {
		if !running {
			if s, ok := m.Active(); ok {
				if err := m.Stop(s.ID.String()); err != nil {
					log.Printf("Failed to stop session: %v", err)
				}
			}
			return
		}
		capCfg := capture.DefaultConfig()
		capCfg.DeviceID = device
		if _, err := m.Start(app.SessionConfig{Kinds: kinds, Capture: capCfg}); err != nil {
			log.Printf("Failed to start session: %v", err)
			t.SetRunning(false)
		}
	})
	t.OnSettings(func() {
		if err := openBrowser(url); err != nil {
			log.Printf("Failed to open %s: %v", url, err)
		}
	})
	t.OnQuit(cancel)

	go t.Watch(ctx, m)
	go func() {
		<-ctx.Done()
		t.Quit()
	}()
	t.Run()
}

// envOr returns the environment variable key, or def when it is unset.
func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func parseKinds(s string) ([]gesture.Kind, error) {
	var out []gesture.Kind
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		k, err := gesture.ParseKind(name)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, nil
}

func settingsURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
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
// It checks: "web", "../web", "../../web", and <dataDir>/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
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

	homeWebDir := filepath.Join(dataDir, "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
