package engine

type EventType string

// Editor events arrive as string notifications on the nvim channel; chunk
// and stream-end events are posted internally by the stream consumer.
const (
	EventTextChanged     EventType = "text_changed"
	EventDebounceTimeout EventType = "trigger_completion"
	EventCursorMoved     EventType = "cursor_moved_normal"
	EventInsertLeave     EventType = "insert_leave"
	EventEsc             EventType = "esc"
	EventTab             EventType = "tab"
	EventChunk           EventType = "chunk"
	EventStreamEnd       EventType = "stream_end"
)

// editorEvents maps the notification strings the plugin may send. Internal
// events are deliberately absent so the editor cannot inject them.
var editorEvents = map[string]EventType{
	string(EventTextChanged): EventTextChanged,
	string(EventCursorMoved): EventCursorMoved,
	string(EventInsertLeave): EventInsertLeave,
	string(EventEsc):         EventEsc,
	string(EventTab):         EventTab,
}

func EventTypeFromString(s string) EventType {
	if eventType, exists := editorEvents[s]; exists {
		return eventType
	}
	return ""
}

type Event struct {
	Type EventType
	Data any
}

// chunkUpdate carries one streamed chunk back to the event loop
type chunkUpdate struct {
	id   string
	text string
}

// streamResult ends a request's stream; err is the stream's terminal error
type streamResult struct {
	id  string
	err error
}

func (e *Engine) handleTextChanged() {
	// The ghost text no longer matches the buffer, but the production may
	// still be reusable for the new prefix, so only the display goes. The
	// pending record stays armed; the next display supersedes it.
	e.dismiss(false)
	e.startDebounceTimer()
}

func (e *Engine) handleCursorMoved() {
	e.stopDebounceTimer()
	e.dismiss(true)
}

func (e *Engine) handleInsertLeave() {
	e.stopDebounceTimer()
	e.dismiss(true)
}

func (e *Engine) handleEsc() {
	// Esc is the user declining: leave the record to its rejection timer
	e.stopDebounceTimer()
	e.dismiss(false)
}
