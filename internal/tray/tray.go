// Package tray provides a system tray interface for the acecoach serve analyzer.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/acecoach/internal/app"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle func(armed bool)
	onStop   func()
	onOpen   func()
	onQuit   func()

	mu          sync.RWMutex
	status      app.Status
	lastSession string

	// Menu items stored for later updates
	menuToggle  *systray.MenuItem
	menuStop    *systray.MenuItem
	menuStatus  *systray.MenuItem
	menuSession *systray.MenuItem
}

// New creates a new Tray in the disarmed state.
func New() *Tray {
	return &Tray{status: app.StatusDisarmed}
}

// OnToggle sets the callback invoked when the user arms or disarms the trigger.
func (t *Tray) OnToggle(fn func(armed bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnStop sets the callback invoked when the user ends a recording.
func (t *Tray) OnStop(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onStop = fn
}

// OnOpen sets the callback invoked when the user asks for the session browser.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("AceCoach")
	systray.SetTooltip("AceCoach Serve Analyzer")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.status), "Arm or disarm the raised-hand trigger")
	t.menuStop = systray.AddMenuItem("Stop Recording", "End the current recording and analyze it")
	systray.AddSeparator()

	t.menuStatus = systray.AddMenuItem(statusTitle(t.status), "Controller status")
	t.menuStatus.Disable()
	t.menuSession = systray.AddMenuItem(sessionTitle(t.lastSession), "Most recent analyzed serve")
	t.menuSession.Disable()
	t.refreshLocked()
	t.mu.Unlock()
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open Sessions...", "Open the session browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit AceCoach")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-t.menuStop.ClickedCh:
				t.handleStop()
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

// Follow applies controller events to the menu until events is closed.
func (t *Tray) Follow(events <-chan app.Event) {
	for ev := range events {
		switch ev.Type {
		case app.EventStatus:
			t.SetStatus(ev.Status)
		case app.EventSession:
			t.SetLastSession(ev.SessionID)
		}
	}
}

// SetStatus updates the status display and the enabled menu items.
func (t *Tray) SetStatus(s app.Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = s
	t.refreshLocked()
}

// SetLastSession updates the last session display in the menu.
func (t *Tray) SetLastSession(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSession = id
	if t.menuSession != nil {
		t.menuSession.SetTitle(sessionTitle(id))
	}
}

// Status returns the last status shown by the tray.
func (t *Tray) Status() app.Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// LastSession returns the id of the most recent analyzed session.
func (t *Tray) LastSession() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastSession
}

// refreshLocked must be called with t.mu held.
func (t *Tray) refreshLocked() {
	if t.menuToggle == nil {
		return
	}
	t.menuToggle.SetTitle(toggleTitle(t.status))
	t.menuStatus.SetTitle(statusTitle(t.status))
	if t.status == app.StatusRecording {
		t.menuStop.Enable()
	} else {
		t.menuStop.Disable()
	}
}

// handleToggle arms a disarmed controller and disarms any other state.
func (t *Tray) handleToggle() {
	t.mu.RLock()
	arm := t.status == app.StatusDisarmed
	callback := t.onToggle
	t.mu.RUnlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(arm)
	}
}

func (t *Tray) handleStop() {
	t.mu.RLock()
	callback := t.onStop
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

func toggleTitle(s app.Status) string {
	if s == app.StatusDisarmed {
		return "○ Arm Trigger"
	}
	return "● Disarm Trigger"
}

func statusTitle(s app.Status) string {
	if s == "" {
		s = app.StatusDisarmed
	}
	return fmt.Sprintf("Status: %s", s)
}

func sessionTitle(id string) string {
	if id == "" {
		return "Last serve: none"
	}
	if len(id) > 8 {
		id = id[:8]
	}
	return "Last serve: " + id
}
