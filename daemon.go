package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/neovim/go-client/nvim"

	"typeahead/editor"
	nvimadapter "typeahead/editor/nvim"
	"typeahead/engine"
	"typeahead/logger"
	"typeahead/pattern"
	"typeahead/source/httpapi"
	"typeahead/source/ipc"
	"typeahead/source/wordlist"
	"typeahead/types"
)

// Daemon serves completion engines over a unix socket. Each connection
// is one attached Neovim instance with its own adapter and engine;
// candidate sources are shared.
type Daemon struct {
	config      Config
	sources     *sources
	listener    net.Listener
	socketPath  string
	pidPath     string
	clientCount int64
	ctx         context.Context
	cancel      context.CancelFunc
}

// sources holds the shared candidate backends, built once at startup.
type sources struct {
	kind     string
	words    *wordlist.Source
	api      *httpapi.Client
	tracker  *httpapi.Tracker
	ipc      *ipc.Client
	ipcClose func()
}

func NewDaemon(config Config) (*Daemon, error) {
	if _, err := config.triggerRegexp(); err != nil {
		return nil, err
	}

	src, err := buildSources(config.Source)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Daemon{
		config:     config,
		sources:    src,
		socketPath: getSocketPath(),
		pidPath:    getPidPath(),
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

func buildSources(cfg SourceConfig) (*sources, error) {
	s := &sources{kind: cfg.Type}
	switch cfg.Type {
	case "wordlist":
		s.words = wordlist.NewSource()
		if cfg.WordsFile != "" {
			if err := loadWordsFile(s.words, cfg.WordsFile); err != nil {
				return nil, err
			}
			logger.Info("loaded %d words from %s", s.words.Len(), cfg.WordsFile)
		}
	case "httpapi":
		if cfg.URL == "" {
			return nil, fmt.Errorf("source type %q requires url", cfg.Type)
		}
		timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
		s.api = httpapi.NewClient(cfg.URL, cfg.MetricsURL, cfg.AuthToken, timeout)
		if cfg.MetricsURL != "" {
			s.tracker = httpapi.NewTracker(s.api, execDir())
		}
	case "ipc":
		if len(cfg.Command) == 0 {
			return nil, fmt.Errorf("source type %q requires command", cfg.Type)
		}
		client, closer, err := startIPCServer(cfg.Command)
		if err != nil {
			return nil, err
		}
		s.ipc = client
		s.ipcClose = closer
	default:
		return nil, fmt.Errorf("unknown source type %q", cfg.Type)
	}
	return s, nil
}

// loadWordsFile reads one word per line. A line may carry an explicit
// frequency ("word 120"); lines without one are ranked by file order.
func loadWordsFile(src *wordlist.Source, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening words file: %w", err)
	}
	defer f.Close()

	var plain []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) >= 2 {
			if freq, err := strconv.Atoi(fields[1]); err == nil {
				src.Add(fields[0], freq)
				continue
			}
		}
		plain = append(plain, fields[0])
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading words file: %w", err)
	}
	src.AddAll(plain)
	return nil
}

// rwPipe joins a subprocess's stdout and stdin into one stream.
type rwPipe struct {
	io.Reader
	io.Writer
}

func startIPCServer(command []string) (*ipc.Client, func(), error) {
	cmd := exec.Command(command[0], command[1:]...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("starting completion server: %w", err)
	}
	logger.Info("completion server started: %s (pid %d)", command[0], cmd.Process.Pid)

	closer := func() {
		stdin.Close()
		cmd.Process.Kill()
		cmd.Wait()
	}
	return ipc.NewClient(rwPipe{Reader: stdout, Writer: stdin}), closer, nil
}

// handlers builds the pattern handler list for one connection. history
// feeds recent edits to sources that use them as ranking context; watch,
// when non-nil, is told about accepts so the tracker can classify the
// suggestion's final disposition.
func (d *Daemon) handlers(history *editor.History, watch *metricsWatch) ([]*pattern.Handler, error) {
	re, err := d.config.triggerRegexp()
	if err != nil {
		return nil, err
	}
	h := pattern.Trigger(re, d.config.Trigger.Group)

	cfg := d.config.Source
	switch d.sources.kind {
	case "wordlist":
		h.Fetch = d.sources.words.FetchFunc(cfg.Limit, cfg.TrimPrefix)
	case "httpapi":
		h.Fetch = d.sources.api.FetchFunc(cfg.Limit, history)
		if watch != nil {
			h.Accept = func(ad editor.Adapter, hh *pattern.Handler, item types.Item) {
				watch.markAccepted()
				hh.Replace(ad, item.Text)
			}
		}
	case "ipc":
		h.Fetch = d.sources.ipc.FetchFunc(cfg.Limit, cfg.TrimPrefix)
	}
	return []*pattern.Handler{h}, nil
}

// metricsWatch reports the on-screen lifecycle of httpapi suggestions:
// a selected item appearing is a show, deactivation after an accept is
// an acceptance, any other deactivation is a dismissal.
type metricsWatch struct {
	tracker *httpapi.Tracker

	mu       sync.Mutex
	shown    *httpapi.ShownSuggestion
	accepted bool
}

func newMetricsWatch(tracker *httpapi.Tracker) *metricsWatch {
	return &metricsWatch{tracker: tracker}
}

// bind subscribes the watch to the engine's state changes. The returned
// func unsubscribes.
func (w *metricsWatch) bind(eng *engine.Engine) func() {
	return eng.Subscribe(func(engine.Field) { w.observe(eng) })
}

func (w *metricsWatch) observe(eng *engine.Engine) {
	active := eng.Active()
	items := eng.Items()
	selected := eng.SelectedIndex()

	w.mu.Lock()
	defer w.mu.Unlock()

	if active && selected >= 0 && selected < len(items) {
		item := items[selected]
		if w.shown == nil || w.shown.ItemID != item.ID {
			w.shown = &httpapi.ShownSuggestion{
				ItemID:  item.ID,
				Query:   eng.MatchedText(),
				ShownAt: time.Now(),
			}
			w.tracker.TrackShown(w.shown)
		}
		return
	}

	if !active && w.shown != nil {
		if w.accepted {
			w.tracker.TrackAccepted(w.shown)
		} else {
			w.tracker.TrackDismissed(w.shown)
		}
		w.shown = nil
		w.accepted = false
	}
}

// markAccepted runs in the handler's accept path, before the engine
// clears and the deactivation reaches observe.
func (w *metricsWatch) markAccepted() {
	w.mu.Lock()
	w.accepted = true
	w.mu.Unlock()
}

func (d *Daemon) Start() error {
	d.writePidFile()
	defer d.removePidFile()

	if err := d.setupSocket(); err != nil {
		return err
	}
	defer d.cleanup()

	logger.Info("daemon listening on socket: %s", d.socketPath)

	d.setupShutdownHandling()
	go d.acceptConnections()
	go d.monitorIdleShutdown()

	<-d.ctx.Done()
	logger.Info("daemon shutting down")
	return nil
}

func (d *Daemon) setupSocket() error {
	os.Remove(d.socketPath)
	listener, err := net.Listen("unix", d.socketPath)
	if err != nil {
		return err
	}
	d.listener = listener
	return nil
}

func (d *Daemon) setupShutdownHandling() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received shutdown signal")
		d.Stop()
	}()
}

func (d *Daemon) acceptConnections() {
	for {
		conn, err := d.listener.Accept()
		if err != nil {
			select {
			case <-d.ctx.Done():
				return
			default:
				logger.Error("error accepting connection: %v", err)
				continue
			}
		}

		atomic.AddInt64(&d.clientCount, 1)
		logger.Info("new client connected, total clients: %d", atomic.LoadInt64(&d.clientCount))
		go d.handleConnection(conn)
	}
}

func (d *Daemon) handleConnection(conn net.Conn) {
	defer conn.Close()
	defer func() {
		atomic.AddInt64(&d.clientCount, -1)
		logger.Info("client disconnected, remaining clients: %d", atomic.LoadInt64(&d.clientCount))
	}()

	n, err := nvim.New(conn, conn, conn, logger.Debug)
	if err != nil {
		logger.Error("error creating nvim client: %v", err)
		return
	}

	adapter, err := nvimadapter.New(n)
	if err != nil {
		logger.Error("error creating nvim adapter: %v", err)
		return
	}
	defer adapter.Destroy()

	var watch *metricsWatch
	if d.sources.tracker != nil {
		watch = newMetricsWatch(d.sources.tracker)
	}

	handlers, err := d.handlers(adapter.History(), watch)
	if err != nil {
		logger.Error("error building handlers: %v", err)
		return
	}

	eng, err := engine.New(adapter, handlers, d.config.engineConfig(), nil)
	if err != nil {
		logger.Error("error creating engine: %v", err)
		return
	}
	if watch != nil {
		unbind := watch.bind(eng)
		defer unbind()
	}
	eng.Start(d.ctx)
	defer eng.Destroy()

	stopPush := startStatePush(d.ctx, n, eng)
	defer stopPush()

	if err := n.Serve(); err != nil && err != io.EOF {
		logger.Error("error serving connection: %v", err)
	}
}

// startStatePush forwards engine state to the plugin. Changes within
// one flush coalesce into a single push.
func startStatePush(ctx context.Context, n *nvim.Nvim, eng *engine.Engine) func() {
	signal := make(chan struct{}, 1)
	unsubscribe := eng.Subscribe(func(engine.Field) {
		select {
		case signal <- struct{}{}:
		default:
		}
	})

	quit := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-quit:
				return
			case <-signal:
				pushState(n, eng)
			}
		}
	}()

	return func() {
		unsubscribe()
		close(quit)
		<-done
	}
}

func pushState(n *nvim.Nvim, eng *engine.Engine) {
	items := eng.Items()
	rows := make([]map[string]any, 0, len(items))
	for _, item := range items {
		rows = append(rows, map[string]any{
			"id":    item.ID,
			"text":  item.Text,
			"title": item.Title,
		})
	}
	caret := eng.CaretPosition()

	state := map[string]any{
		"active":   eng.Active(),
		"view":     eng.View().String(),
		"matched":  eng.MatchedText(),
		"items":    rows,
		"selected": eng.SelectedIndex(),
		"caret": map[string]any{
			"top":    caret.Top,
			"left":   caret.Left,
			"right":  caret.Right,
			"bottom": caret.Bottom,
		},
	}
	if err := eng.Err(); err != nil {
		state["error"] = err.Error()
	}

	if err := n.ExecLua(`require("typeahead").on_state(...)`, nil, state); err != nil {
		logger.Debug("state push failed: %v", err)
	}
}

func (d *Daemon) monitorIdleShutdown() {
	interval := time.Duration(d.config.Daemon.IdleShutdownSec) * time.Second
	if d.config.Daemon.DebugImmediateShutdown {
		interval = time.Second
	}
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			if atomic.LoadInt64(&d.clientCount) == 0 {
				logger.Info("no clients connected, shutting down daemon")
				d.Stop()
				return
			}
		}
	}
}

func (d *Daemon) Stop() {
	if d.listener != nil {
		d.listener.Close()
	}
	if d.sources.ipcClose != nil {
		d.sources.ipcClose()
	}
	d.cancel()
}

func (d *Daemon) cleanup() {
	os.Remove(d.socketPath)
}

func (d *Daemon) writePidFile() {
	pid := os.Getpid()
	if err := os.WriteFile(d.pidPath, []byte(strconv.Itoa(pid)), 0644); err != nil {
		logger.Warn("could not write PID file: %v", err)
	}
	logger.Info("daemon started with PID %d", pid)
}

func (d *Daemon) removePidFile() {
	if err := os.Remove(d.pidPath); err != nil && !os.IsNotExist(err) {
		logger.Warn("could not remove PID file: %v", err)
	}
}
