package handler

import (
	"net/http"
	"strings"

	"github.com/workdoc/workdoc/internal/access"
	"github.com/workdoc/workdoc/internal/events"
)

// ClientIDHeader names the admin client registering for notifications.
const ClientIDHeader = "X-Client-ID"

// EventsHandler lets admin clients register for submission notifications and
// poll their queue.
type EventsHandler struct {
	broker events.Broker
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(broker events.Broker) *EventsHandler {
	return &EventsHandler{broker: broker}
}

type clientResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	ClientID string `json:"clientId"`
}

type eventsResponse struct {
	ClientID string         `json:"clientId"`
	Events   []events.Event `json:"events"`
}

// clientID returns the X-Client-ID header, defaulting to the caller's id.
func clientID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(ClientIDHeader)); id != "" {
		return id
	}
	if p := access.FromContext(r.Context()); p != nil {
		return p.UserID
	}
	return ""
}

// Register subscribes the calling admin client.
// POST /api/admin/register
func (h *EventsHandler) Register(w http.ResponseWriter, r *http.Request) {
	id := clientID(r)
	h.broker.Subscribe(id)
	writeJSON(w, http.StatusOK, clientResponse{
		Success:  true,
		Message:  "Admin registered for notifications",
		ClientID: id,
	})
}

// Unregister removes the calling admin client.
// POST /api/admin/unregister
func (h *EventsHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	id := clientID(r)
	h.broker.Unsubscribe(id)
	writeJSON(w, http.StatusOK, clientResponse{
		Success:  true,
		Message:  "Admin unregistered from notifications",
		ClientID: id,
	})
}

// Events drains the client's pending notifications.
// GET /api/admin/events
func (h *EventsHandler) Events(w http.ResponseWriter, r *http.Request) {
	id := clientID(r)
	evs, ok := h.broker.Drain(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Client not registered")
		return
	}
	writeJSON(w, http.StatusOK, eventsResponse{ClientID: id, Events: evs})
}
