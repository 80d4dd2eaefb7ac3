// internal/catalog/handler_test.go
package catalog_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librarium/internal/catalog"
)

func newTestServer(t *testing.T) (*httptest.Server, catalog.Service) {
	t.Helper()

	svc, _ := newTestService(t)
	srv := httptest.NewServer(catalog.NewHandler(svc).Routes())
	t.Cleanup(srv.Close)
	return srv, svc
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestHandlerBookLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/books", map[string]any{
		"book_id": "B001",
		"title":   "The Great Gatsby",
		"author":  "F. Scott Fitzgerald",
		"isbn":    "978-0743273565",
		"copies":  2,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var book catalog.Book
	resp = getJSON(t, srv.URL+"/books/B001", &book)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "The Great Gatsby", book.Title)
	assert.Equal(t, 2, book.AvailableCopies)

	var books []catalog.Book
	resp = getJSON(t, srv.URL+"/books", &books)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, books, 1)
}

func TestHandlerErrorStatusCodes(t *testing.T) {
	srv, _ := newTestServer(t)

	addBook := map[string]any{
		"book_id": "B001", "title": "1984", "author": "George Orwell",
		"isbn": "978-0451524935", "copies": 1,
	}
	resp := postJSON(t, srv.URL+"/books", addBook)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Duplicate ID conflicts.
	resp = postJSON(t, srv.URL+"/books", addBook)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Invalid copy count is a bad request.
	resp = postJSON(t, srv.URL+"/books", map[string]any{
		"book_id": "B002", "title": "x", "author": "y", "isbn": "z", "copies": 0,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Unknown IDs are not found.
	resp = getJSON(t, srv.URL+"/books/B999", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = getJSON(t, srv.URL+"/members/M999/loans", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Borrowing against a missing member is not found.
	resp = postJSON(t, srv.URL+"/borrow", map[string]any{"member_id": "M999", "book_id": "B001"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandlerBorrowReturnFlow(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/books", map[string]any{
		"book_id": "B001", "title": "1984", "author": "George Orwell",
		"isbn": "978-0451524935", "copies": 1,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = postJSON(t, srv.URL+"/members", map[string]any{
		"member_id": "M001", "name": "Alice Johnson",
		"email": "alice@example.com", "phone": "555-0101",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = postJSON(t, srv.URL+"/members", map[string]any{
		"member_id": "M002", "name": "Bob Smith",
		"email": "bob@example.com", "phone": "555-0102",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	borrow := map[string]any{"member_id": "M001", "book_id": "B001"}
	resp = postJSON(t, srv.URL+"/borrow", borrow)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// No copies left for the second member.
	resp = postJSON(t, srv.URL+"/borrow", map[string]any{"member_id": "M002", "book_id": "B001"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var loans []catalog.Loan
	resp = getJSON(t, srv.URL+"/members/M001/loans", &loans)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, loans, 1)
	assert.Equal(t, "1984", loans[0].BookTitle)

	resp = postJSON(t, srv.URL+"/return", borrow)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Returning again conflicts.
	resp = postJSON(t, srv.URL+"/return", borrow)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var book catalog.Book
	getJSON(t, srv.URL+"/books/B001", &book)
	assert.Equal(t, 1, book.AvailableCopies)
}

func TestHandlerSearch(t *testing.T) {
	srv, svc := newTestServer(t)
	ctx := context.Background()

	_, err := svc.AddBook(ctx, "B001", "The Great Gatsby", "F. Scott Fitzgerald", "978-0743273565", 1)
	require.NoError(t, err)
	_, err = svc.AddBook(ctx, "B002", "1984", "George Orwell", "978-0451524935", 1)
	require.NoError(t, err)

	var results []catalog.Book
	resp := getJSON(t, srv.URL+"/search?q=great", &results)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, results, 1)
	assert.Equal(t, "The Great Gatsby", results[0].Title)

	results = nil
	resp = getJSON(t, srv.URL+"/search?by=author&q=orwell", &results)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, results, 1)
	assert.Equal(t, "1984", results[0].Title)

	// No match yields an empty array, not null.
	results = nil
	resp = getJSON(t, srv.URL+"/search?q=nothing+here", &results)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotNil(t, results)
	assert.Empty(t, results)

	resp = getJSON(t, srv.URL+"/search?by=isbn&q=x", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandlerReports(t *testing.T) {
	srv, svc := newTestServer(t)
	ctx := context.Background()

	_, err := svc.AddBook(ctx, "B001", "1984", "George Orwell", "978-0451524935", 2)
	require.NoError(t, err)
	_, err = svc.RegisterMember(ctx, "M001", "Alice Johnson", "alice@example.com", "555-0101")
	require.NoError(t, err)
	_, err = svc.BorrowBook(ctx, "M001", "B001")
	require.NoError(t, err)

	var overdue []catalog.OverdueEntry
	resp := getJSON(t, srv.URL+"/reports/overdue", &overdue)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotNil(t, overdue)
	assert.Empty(t, overdue, "fresh loan is not overdue")

	var stats catalog.Stats
	resp = getJSON(t, srv.URL+"/stats", &stats)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, stats.TotalTitles)
	assert.Equal(t, 1, stats.BorrowedCopies)

	var history []map[string]any
	resp = getJSON(t, srv.URL+"/history", &history)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, history, 1)
	assert.Equal(t, "borrow", history[0]["action"])
}
