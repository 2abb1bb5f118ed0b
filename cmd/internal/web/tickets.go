package web

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"ticketd/cmd/internal/audit"
	"ticketd/cmd/internal/auth"
	"ticketd/cmd/internal/ticket"
)

const maxTitleChars = 512

type createTicketRequest struct {
	Title string `json:"title"`
}

func (h *Handler) handleCreateTicket(w http.ResponseWriter, r *http.Request) {
	id, err := auth.IdentityFrom(r.Context())
	if err != nil {
		h.Fail(w, r, err)
		return
	}

	var req createTicketRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		h.Fail(w, r, err)
		return
	}
	if len([]rune(req.Title)) > maxTitleChars {
		h.Fail(w, r, fmt.Errorf("%w: title longer than %d chars", ErrBadRequest, maxTitleChars))
		return
	}

	t, err := h.store.Create(r.Context(), id, ticket.ForCreate{Title: req.Title})
	if err != nil {
		h.Fail(w, r, err)
		return
	}

	h.log.Info("ticket.create", "request_id", RequestIDFrom(r.Context()), "ticket_id", t.ID, "user_id", id.UserID)
	h.record(r.Context(), audit.Event{
		Action: audit.ActionTicketCreated,
		UserID: audit.UserID(id.UserID),
		Meta:   map[string]any{"ticket_id": t.ID},
	})

	writeJSON(w, http.StatusCreated, t)
}

func (h *Handler) handleListTickets(w http.ResponseWriter, r *http.Request) {
	id, err := auth.IdentityFrom(r.Context())
	if err != nil {
		h.Fail(w, r, err)
		return
	}

	list, err := h.store.List(r.Context(), id)
	if err != nil {
		h.Fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) handleDeleteTicket(w http.ResponseWriter, r *http.Request) {
	id, err := auth.IdentityFrom(r.Context())
	if err != nil {
		h.Fail(w, r, err)
		return
	}

	raw := strings.TrimSpace(chi.URLParam(r, "id"))
	ticketID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		h.Fail(w, r, fmt.Errorf("%w: ticket id %q", ErrBadRequest, raw))
		return
	}

	t, err := h.store.Delete(r.Context(), id, ticketID)
	if err != nil {
		if ticket.IsNotFound(err) {
			h.log.Info("ticket.delete.not_found", "request_id", RequestIDFrom(r.Context()), "ticket_id", ticketID, "user_id", id.UserID)
		}
		h.Fail(w, r, err)
		return
	}

	h.log.Info("ticket.delete", "request_id", RequestIDFrom(r.Context()), "ticket_id", t.ID, "user_id", id.UserID)
	h.record(r.Context(), audit.Event{
		Action: audit.ActionTicketDeleted,
		UserID: audit.UserID(id.UserID),
		Meta:   map[string]any{"ticket_id": t.ID, "owner_id": t.OwnerID},
	})

	writeJSON(w, http.StatusOK, t)
}
