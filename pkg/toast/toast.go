package toast

import "sync"

// EventName is the event name dispatched for toasts.
const EventName = "console:toast"

// Type represents the toast notification type.
type Type string

const (
	TypeSuccess Type = "success"
	TypeError   Type = "error"
	TypeWarning Type = "warning"
	TypeInfo    Type = "info"
)

// Emitter dispatches a named event to whoever is listening.
type Emitter interface {
	Emit(event string, payload any)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(event string, payload any)

// Emit calls f.
func (f EmitterFunc) Emit(event string, payload any) { f(event, payload) }

// Toast is the payload sent with EventName.
type Toast struct {
	Level       Type   `json:"level"`
	Title       string `json:"title,omitempty"`
	Message     string `json:"message"`
	ActionLabel string `json:"actionLabel,omitempty"`
	ActionID    string `json:"actionID,omitempty"`
}

// Send emits t. A nil emitter drops the toast.
func Send(e Emitter, t Toast) {
	if e == nil {
		return
	}
	e.Emit(EventName, t)
}

// Show displays a toast notification.
func Show(e Emitter, level Type, message string) {
	Send(e, Toast{Level: level, Message: message})
}

// Success shows a success toast.
//
//	toast.Success(hub, "Changes saved!")
func Success(e Emitter, message string) {
	Show(e, TypeSuccess, message)
}

// Error shows an error toast.
func Error(e Emitter, message string) {
	Show(e, TypeError, message)
}

// Warning shows a warning toast.
func Warning(e Emitter, message string) {
	Show(e, TypeWarning, message)
}

// Info shows an info toast.
func Info(e Emitter, message string) {
	Show(e, TypeInfo, message)
}

// WithTitle shows a toast with a title and message.
func WithTitle(e Emitter, level Type, title, message string) {
	Send(e, Toast{Level: level, Title: title, Message: message})
}

// WithAction shows a toast with an action button. The client posts
// actionID back when the button is clicked.
//
//	toast.WithAction(hub, toast.TypeError, "Failed to update leads", "Retry", "retry:leads")
func WithAction(e Emitter, level Type, message, actionLabel, actionID string) {
	Send(e, Toast{Level: level, Message: message, ActionLabel: actionLabel, ActionID: actionID})
}

// Recorder is an Emitter that keeps every toast it receives.
type Recorder struct {
	mu     sync.Mutex
	toasts []Toast
}

// Emit records payload if it is a toast; other events are ignored.
func (r *Recorder) Emit(event string, payload any) {
	t, ok := payload.(Toast)
	if event != EventName || !ok {
		return
	}
	r.mu.Lock()
	r.toasts = append(r.toasts, t)
	r.mu.Unlock()
}

// Toasts returns a copy of the recorded toasts.
func (r *Recorder) Toasts() []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Toast, len(r.toasts))
	copy(out, r.toasts)
	return out
}

// Multi fans every event out to each emitter in order.
func Multi(emitters ...Emitter) Emitter {
	return EmitterFunc(func(event string, payload any) {
		for _, e := range emitters {
			if e != nil {
				e.Emit(event, payload)
			}
		}
	})
}
