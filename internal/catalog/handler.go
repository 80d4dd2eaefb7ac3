// internal/catalog/handler.go
package catalog

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the HTTP surface of the catalog service.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/books", h.handleAddBook)
	r.Get("/books", h.handleListBooks)
	r.Get("/books/{bookID}", h.handleGetBook)
	r.Get("/search", h.handleSearch)

	r.Post("/members", h.handleRegisterMember)
	r.Get("/members", h.handleListMembers)
	r.Get("/members/{memberID}", h.handleGetMember)
	r.Get("/members/{memberID}/loans", h.handleMemberLoans)

	r.Post("/borrow", h.handleBorrow)
	r.Post("/return", h.handleReturn)

	r.Get("/reports/overdue", h.handleOverdueReport)
	r.Get("/stats", h.handleStats)
	r.Get("/history", h.handleHistory)

	return r
}

func (h *Handler) handleAddBook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BookID string `json:"book_id"`
		Title  string `json:"title"`
		Author string `json:"author"`
		ISBN   string `json:"isbn"`
		Copies int    `json:"copies"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	book, err := h.service.AddBook(r.Context(), req.BookID, req.Title, req.Author, req.ISBN, req.Copies)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, book)
}

func (h *Handler) handleListBooks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Books(r.Context()))
}

func (h *Handler) handleGetBook(w http.ResponseWriter, r *http.Request) {
	book, err := h.service.GetBook(r.Context(), chi.URLParam(r, "bookID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	var results []*Book
	switch by := r.URL.Query().Get("by"); by {
	case "", "title":
		results = slices.Collect(h.service.SearchByTitle(r.Context(), query))
	case "author":
		results = slices.Collect(h.service.SearchByAuthor(r.Context(), query))
	default:
		http.Error(w, "search field must be 'title' or 'author'", http.StatusBadRequest)
		return
	}

	if results == nil {
		results = []*Book{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *Handler) handleRegisterMember(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MemberID string `json:"member_id"`
		Name     string `json:"name"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	member, err := h.service.RegisterMember(r.Context(), req.MemberID, req.Name, req.Email, req.Phone)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, member)
}

func (h *Handler) handleListMembers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Members(r.Context()))
}

func (h *Handler) handleGetMember(w http.ResponseWriter, r *http.Request) {
	member, err := h.service.GetMember(r.Context(), chi.URLParam(r, "memberID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

func (h *Handler) handleMemberLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.service.MemberLoans(r.Context(), chi.URLParam(r, "memberID"))
	if err != nil {
		writeError(w, err)
		return
	}
	if loans == nil {
		loans = []Loan{}
	}
	writeJSON(w, http.StatusOK, loans)
}

func (h *Handler) handleBorrow(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MemberID string `json:"member_id"`
		BookID   string `json:"book_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	record, err := h.service.BorrowBook(r.Context(), req.MemberID, req.BookID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, record)
}

func (h *Handler) handleReturn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MemberID string `json:"member_id"`
		BookID   string `json:"book_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.service.ReturnBook(r.Context(), req.MemberID, req.BookID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleOverdueReport(w http.ResponseWriter, r *http.Request) {
	entries := slices.Collect(h.service.OverdueReport(r.Context()))
	if entries == nil {
		entries = []OverdueEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Statistics(r.Context()))
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.History(r.Context()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrDuplicateID),
		errors.Is(err, ErrNoCopiesAvailable),
		errors.Is(err, ErrAlreadyBorrowed),
		errors.Is(err, ErrNoActiveLoan):
		status = http.StatusConflict
	case errors.Is(err, ErrInvalidCopies):
		status = http.StatusBadRequest
	}
	http.Error(w, err.Error(), status)
}
