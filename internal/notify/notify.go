// Package notify holds the single notification slot shown by the UI.
//
// A Coordinator owns at most one notification at a time. Showing a new one
// replaces the old one and cancels its timers first, so a timer scheduled for
// an earlier notification can never clear a later one.
package notify

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/deevus/carbon-tui/internal/logging"
	"github.com/deevus/carbon-tui/internal/metrics"
)

const (
	// DefaultDuration is how long a notification stays up when shown with Show.
	DefaultDuration = 5 * time.Second
	// ExitGrace is the time spent in the dismissing state before the slot clears.
	ExitGrace = 300 * time.Millisecond
)

// Variant selects the colour and icon of a notification.
type Variant int

const (
	Primary Variant = iota
	Success
	Warning
	Danger
	Info
)

func (v Variant) String() string {
	switch v {
	case Primary:
		return "primary"
	case Success:
		return "success"
	case Warning:
		return "warning"
	case Danger:
		return "danger"
	case Info:
		return "info"
	}
	return fmt.Sprintf("variant(%d)", int(v))
}

// Position selects where the notification is drawn.
type Position int

const (
	// Toast overlays the notification in a corner of the screen.
	Toast Position = iota
	// Inline reserves a row above the active view.
	Inline
)

func (p Position) String() string {
	if p == Inline {
		return "inline"
	}
	return "toast"
}

// ParsePosition converts a config value into a Position.
func ParsePosition(s string) (Position, error) {
	switch s {
	case "", "toast":
		return Toast, nil
	case "inline":
		return Inline, nil
	}
	return Toast, fmt.Errorf("unknown notification position %q", s)
}

// State is the lifecycle stage of the slot.
type State int

const (
	Hidden State = iota
	Visible
	Dismissing
)

func (s State) String() string {
	switch s {
	case Visible:
		return "visible"
	case Dismissing:
		return "dismissing"
	}
	return "hidden"
}

// Notification is one status message.
type Notification struct {
	ID          uuid.UUID
	Title       string
	Message     string
	Variant     Variant
	Position    Position
	Dismissible bool
	// AutoDismiss is the time until the notification starts dismissing.
	// Zero keeps it up until replaced or hidden.
	AutoDismiss time.Duration
	ShownAt     time.Time
}

// Snapshot is a copy of the slot at one point in time.
type Snapshot struct {
	Notification
	State State
}

// Shown reports whether anything should be drawn.
func (s Snapshot) Shown() bool {
	return s.State != Hidden && s.Message != ""
}

// Timer is a pending callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks. Tests substitute a manual clock.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Options configures a Coordinator. Zero values select the defaults.
type Options struct {
	Clock           Clock
	Position        Position
	Dismissible     bool
	DefaultDuration time.Duration
	Grace           time.Duration
	// OnChange is called after every state change, outside the lock.
	OnChange func(Snapshot)
	Log      logrus.FieldLogger
}

// Coordinator is the single-slot notification holder.
type Coordinator struct {
	clock       Clock
	position    Position
	dismissible bool
	duration    time.Duration
	grace       time.Duration
	log         *logrus.Entry

	mu           sync.Mutex
	current      Notification
	state        State
	dismissTimer Timer
	graceTimer   Timer
	onChange     func(Snapshot)
}

// New creates an empty Coordinator.
func New(opts Options) *Coordinator {
	c := &Coordinator{
		clock:       opts.Clock,
		position:    opts.Position,
		dismissible: opts.Dismissible,
		duration:    opts.DefaultDuration,
		grace:       opts.Grace,
		onChange:    opts.OnChange,
		log:         logging.Component(opts.Log, "notify"),
	}
	if c.clock == nil {
		c.clock = realClock{}
	}
	if c.duration == 0 {
		c.duration = DefaultDuration
	}
	if c.grace == 0 {
		c.grace = ExitGrace
	}
	return c
}

// SetOnChange replaces the change callback.
func (c *Coordinator) SetOnChange(fn func(Snapshot)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Show displays message for the default duration.
func (c *Coordinator) Show(message string, variant Variant) {
	c.ShowFor(message, variant, c.duration)
}

// ShowFor displays message and auto-dismisses it after d. A zero d keeps it
// up until it is replaced or hidden.
func (c *Coordinator) ShowFor(message string, variant Variant, d time.Duration) {
	c.ShowNotification(Notification{
		Message:     message,
		Variant:     variant,
		Position:    c.position,
		Dismissible: c.dismissible,
		AutoDismiss: d,
	})
}

// Success is shorthand for a success notification with the default duration.
func (c *Coordinator) Success(format string, args ...any) {
	c.Show(fmt.Sprintf(format, args...), Success)
}

// Error is shorthand for a danger notification with the default duration.
func (c *Coordinator) Error(format string, args ...any) {
	c.Show(fmt.Sprintf(format, args...), Danger)
}

// ShowNotification replaces the slot with n. An empty message hides the slot.
func (c *Coordinator) ShowNotification(n Notification) {
	if n.Message == "" {
		c.Hide()
		return
	}

	c.mu.Lock()
	c.stopTimersLocked()
	n.ID = uuid.New()
	n.ShownAt = c.clock.Now()
	c.current = n
	c.state = Visible
	if n.AutoDismiss > 0 {
		id := n.ID
		c.dismissTimer = c.clock.AfterFunc(n.AutoDismiss, func() { c.expire(id) })
	}
	snap, fn := c.snapshotLocked(), c.onChange
	c.mu.Unlock()

	metrics.NotificationsShown.WithLabelValues(n.Variant.String()).Inc()
	c.log.WithFields(logrus.Fields{"variant": n.Variant.String(), "id": n.ID.String()}).Debug(n.Message)
	if fn != nil {
		fn(snap)
	}
}

// Hide clears the slot immediately. Calling it with nothing shown is a no-op.
func (c *Coordinator) Hide() {
	c.mu.Lock()
	c.stopTimersLocked()
	changed := c.state != Hidden
	c.current = Notification{}
	c.state = Hidden
	snap, fn := c.snapshotLocked(), c.onChange
	c.mu.Unlock()

	if changed && fn != nil {
		fn(snap)
	}
}

// Dismiss is the user close action. It is refused when nothing is visible or
// the current notification is not dismissible.
func (c *Coordinator) Dismiss() bool {
	c.mu.Lock()
	if c.state != Visible || !c.current.Dismissible {
		c.mu.Unlock()
		return false
	}
	c.beginDismissLocked()
	snap, fn := c.snapshotLocked(), c.onChange
	c.mu.Unlock()

	if fn != nil {
		fn(snap)
	}
	return true
}

// Current returns a copy of the slot.
func (c *Coordinator) Current() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Coordinator) expire(id uuid.UUID) {
	c.mu.Lock()
	if c.state != Visible || c.current.ID != id {
		c.mu.Unlock()
		return
	}
	c.dismissTimer = nil
	c.beginDismissLocked()
	snap, fn := c.snapshotLocked(), c.onChange
	c.mu.Unlock()

	if fn != nil {
		fn(snap)
	}
}

func (c *Coordinator) finish(id uuid.UUID) {
	c.mu.Lock()
	if c.state != Dismissing || c.current.ID != id {
		c.mu.Unlock()
		return
	}
	c.graceTimer = nil
	c.current = Notification{}
	c.state = Hidden
	snap, fn := c.snapshotLocked(), c.onChange
	c.mu.Unlock()

	if fn != nil {
		fn(snap)
	}
}

// beginDismissLocked moves a visible notification into the dismissing state.
func (c *Coordinator) beginDismissLocked() {
	if c.dismissTimer != nil {
		c.dismissTimer.Stop()
		c.dismissTimer = nil
	}
	c.state = Dismissing
	id := c.current.ID
	c.graceTimer = c.clock.AfterFunc(c.grace, func() { c.finish(id) })
}

func (c *Coordinator) stopTimersLocked() {
	if c.dismissTimer != nil {
		c.dismissTimer.Stop()
		c.dismissTimer = nil
	}
	if c.graceTimer != nil {
		c.graceTimer.Stop()
		c.graceTimer = nil
	}
}

func (c *Coordinator) snapshotLocked() Snapshot {
	return Snapshot{Notification: c.current, State: c.state}
}
