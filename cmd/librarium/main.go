// cmd/librarium/main.go
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"log"
	"os"
	"strconv"
	"strings"

	"librarium/internal/catalog"
	"librarium/internal/snapshot"
)

// command enumerates the menu choices. Dispatch goes through the menu table
// below rather than branching on raw input strings.
type command int

const (
	cmdAddBook command = iota + 1
	cmdListBooks
	cmdSearchByTitle
	cmdSearchByAuthor
	cmdRegisterMember
	cmdListMembers
	cmdBorrow
	cmdReturn
	cmdMemberLoans
	cmdOverdueReport
	cmdStatistics
	cmdSave
	cmdLoad
	cmdExit
)

type menuEntry struct {
	cmd   command
	label string
	run   func(*app)
}

// app bundles the catalog service, the persistence store, and the input
// scanner for the interactive session.
type app struct {
	svc   catalog.Service
	store *snapshot.Store
	in    *bufio.Scanner
	ctx   context.Context
}

func main() {
	ctx := context.Background()

	svc, err := catalog.NewService(
		catalog.WithName(getEnv("LIBRARY_NAME", "City Public Library")),
	)
	if err != nil {
		log.Fatalf("Failed to create catalog service: %v", err)
	}

	a := &app{
		svc:   svc,
		store: snapshot.NewStore(getEnv("LIBRARY_DATA_PATH", snapshot.DefaultPath)),
		in:    bufio.NewScanner(os.Stdin),
		ctx:   ctx,
	}

	// Pick up where the last session left off; a missing file just means a
	// fresh start.
	switch snap, err := a.store.Load(ctx); {
	case err == nil:
		if err := svc.Restore(ctx, snap); err != nil {
			log.Fatalf("Failed to restore catalog: %v", err)
		}
		fmt.Printf("Loaded library data from %s\n", a.store.Path())
	case errors.Is(err, fs.ErrNotExist):
		fmt.Println("Starting with an empty library...")
	default:
		log.Fatalf("Failed to load library data: %v", err)
	}

	menu := []menuEntry{
		{cmdAddBook, "Add Book", (*app).addBook},
		{cmdListBooks, "View All Books", (*app).listBooks},
		{cmdSearchByTitle, "Search Book by Title", (*app).searchByTitle},
		{cmdSearchByAuthor, "Search Book by Author", (*app).searchByAuthor},
		{cmdRegisterMember, "Register Member", (*app).registerMember},
		{cmdListMembers, "View All Members", (*app).listMembers},
		{cmdBorrow, "Borrow Book", (*app).borrowBook},
		{cmdReturn, "Return Book", (*app).returnBook},
		{cmdMemberLoans, "View Member's Borrowed Books", (*app).memberLoans},
		{cmdOverdueReport, "View Overdue Books", (*app).overdueReport},
		{cmdStatistics, "View Library Statistics", (*app).statistics},
		{cmdSave, "Save Data", (*app).saveData},
		{cmdLoad, "Load Data", (*app).loadData},
		{cmdExit, "Exit", nil},
	}
	handlers := make(map[command]func(*app), len(menu))
	for _, entry := range menu {
		if entry.run != nil {
			handlers[entry.cmd] = entry.run
		}
	}

	for {
		printMenu(menu)
		choiceStr, ok := a.prompt(fmt.Sprintf("Enter your choice (1-%d): ", len(menu)))
		if !ok {
			return
		}
		choice, err := strconv.Atoi(choiceStr)
		if err != nil || choice < 1 || choice > len(menu) {
			fmt.Printf("Invalid choice! Please enter a number between 1 and %d.\n", len(menu))
			continue
		}

		cmd := command(choice)
		if cmd == cmdExit {
			a.exit()
			return
		}
		handlers[cmd](a)
	}
}

func printMenu(menu []menuEntry) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("LIBRARY MANAGEMENT SYSTEM - MAIN MENU")
	fmt.Println(strings.Repeat("=", 60))
	for _, entry := range menu {
		fmt.Printf("%2d. %s\n", entry.cmd, entry.label)
	}
	fmt.Println(strings.Repeat("=", 60))
}

// prompt reads one trimmed line; ok is false when stdin is closed.
func (a *app) prompt(label string) (string, bool) {
	fmt.Print(label)
	if !a.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(a.in.Text()), true
}

func (a *app) addBook() {
	fmt.Println("\n--- Add New Book ---")
	bookID, ok := a.prompt("Enter Book ID (e.g., B001): ")
	if !ok {
		return
	}
	title, ok := a.prompt("Enter Book Title: ")
	if !ok {
		return
	}
	author, ok := a.prompt("Enter Author Name: ")
	if !ok {
		return
	}
	isbn, ok := a.prompt("Enter ISBN: ")
	if !ok {
		return
	}
	copiesStr, ok := a.prompt("Enter Number of Copies (default 1): ")
	if !ok {
		return
	}

	copies := 1
	if copiesStr != "" {
		var err error
		copies, err = strconv.Atoi(copiesStr)
		if err != nil {
			fmt.Printf("Invalid copy count: %q\n", copiesStr)
			return
		}
	}

	book, err := a.svc.AddBook(a.ctx, bookID, title, author, isbn, copies)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Book added: %s\n", formatBook(book))
}

func (a *app) listBooks() {
	books := a.svc.Books(a.ctx)
	if len(books) == 0 {
		fmt.Println("No books in the library.")
		return
	}
	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("LIBRARY CATALOG")
	fmt.Println(strings.Repeat("=", 60))
	for _, book := range books {
		fmt.Println(formatBook(book))
	}
	fmt.Println(strings.Repeat("=", 60))
}

func (a *app) searchByTitle() {
	a.searchBooks("Enter book title (or part of it): ", a.svc.SearchByTitle)
}

func (a *app) searchByAuthor() {
	a.searchBooks("Enter author name (or part of it): ", a.svc.SearchByAuthor)
}

func (a *app) searchBooks(label string, search func(context.Context, string) iter.Seq[*catalog.Book]) {
	query, ok := a.prompt(label)
	if !ok {
		return
	}

	count := 0
	for book := range search(a.ctx, query) {
		count++
		fmt.Printf("  %s\n", formatBook(book))
	}
	if count == 0 {
		fmt.Println("No books found.")
	} else {
		fmt.Printf("Found %d book(s).\n", count)
	}
}

func (a *app) registerMember() {
	fmt.Println("\n--- Register New Member ---")
	memberID, ok := a.prompt("Enter Member ID (e.g., M001): ")
	if !ok {
		return
	}
	name, ok := a.prompt("Enter Member Name: ")
	if !ok {
		return
	}
	email, ok := a.prompt("Enter Email: ")
	if !ok {
		return
	}
	phone, ok := a.prompt("Enter Phone Number: ")
	if !ok {
		return
	}

	member, err := a.svc.RegisterMember(a.ctx, memberID, name, email, phone)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Member registered: %s\n", formatMember(member))
}

func (a *app) listMembers() {
	members := a.svc.Members(a.ctx)
	if len(members) == 0 {
		fmt.Println("No members registered.")
		return
	}
	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("REGISTERED MEMBERS")
	fmt.Println(strings.Repeat("=", 60))
	for _, member := range members {
		fmt.Println(formatMember(member))
	}
	fmt.Println(strings.Repeat("=", 60))
}

func (a *app) borrowBook() {
	fmt.Println("\n--- Borrow Book ---")
	memberID, ok := a.prompt("Enter Member ID: ")
	if !ok {
		return
	}
	bookID, ok := a.prompt("Enter Book ID: ")
	if !ok {
		return
	}

	record, err := a.svc.BorrowBook(a.ctx, memberID, bookID)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Borrowed. Due date: %s\n", record.DueDate.Format("2006-01-02"))
}

func (a *app) returnBook() {
	fmt.Println("\n--- Return Book ---")
	memberID, ok := a.prompt("Enter Member ID: ")
	if !ok {
		return
	}
	bookID, ok := a.prompt("Enter Book ID: ")
	if !ok {
		return
	}

	result, err := a.svc.ReturnBook(a.ctx, memberID, bookID)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if result.DaysOverdue > 0 {
		fmt.Printf("Book returned %d days late!\n", result.DaysOverdue)
	}
	fmt.Printf("%s returned '%s'\n", result.MemberName, result.BookTitle)
}

func (a *app) memberLoans() {
	memberID, ok := a.prompt("Enter Member ID: ")
	if !ok {
		return
	}

	loans, err := a.svc.MemberLoans(a.ctx, memberID)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if len(loans) == 0 {
		fmt.Println("No active borrowings.")
		return
	}
	for _, loan := range loans {
		status := fmt.Sprintf("Due: %s", loan.DueDate.Format("2006-01-02"))
		if loan.DaysOverdue > 0 {
			status = fmt.Sprintf("OVERDUE (%d days), was due %s",
				loan.DaysOverdue, loan.DueDate.Format("2006-01-02"))
		}
		fmt.Printf("  - %s - %s\n", loan.BookTitle, status)
	}
}

func (a *app) overdueReport() {
	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("OVERDUE BOOKS REPORT")
	fmt.Println(strings.Repeat("=", 60))
	count := 0
	for entry := range a.svc.OverdueReport(a.ctx) {
		count++
		fmt.Printf("%s\n  %s\n  %d days overdue (Due: %s)\n\n",
			entry.MemberName, entry.BookTitle, entry.DaysOverdue,
			entry.DueDate.Format("2006-01-02"))
	}
	if count == 0 {
		fmt.Println("No overdue books!")
	}
	fmt.Println(strings.Repeat("=", 60))
}

func (a *app) statistics() {
	stats := a.svc.Statistics(a.ctx)
	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("LIBRARY STATISTICS")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Total Book Titles:    %d\n", stats.TotalTitles)
	fmt.Printf("Total Copies:         %d\n", stats.TotalCopies)
	fmt.Printf("Available Copies:     %d\n", stats.AvailableCopies)
	fmt.Printf("Borrowed Copies:      %d\n", stats.BorrowedCopies)
	fmt.Printf("Total Members:        %d\n", stats.TotalMembers)
	fmt.Printf("Overdue Books:        %d\n", stats.OverdueCount)
	fmt.Println(strings.Repeat("=", 60))
}

func (a *app) saveData() {
	if err := a.store.Save(a.ctx, a.svc.Snapshot(a.ctx)); err != nil {
		fmt.Printf("Error saving data: %v\n", err)
		return
	}
	fmt.Printf("Library data saved to %s\n", a.store.Path())
}

func (a *app) loadData() {
	snap, err := a.store.Load(a.ctx)
	if err != nil {
		fmt.Printf("Error loading data: %v\n", err)
		return
	}
	if err := a.svc.Restore(a.ctx, snap); err != nil {
		fmt.Printf("Error restoring data: %v\n", err)
		return
	}
	fmt.Printf("Library data loaded from %s\n", a.store.Path())
}

func (a *app) exit() {
	answer, ok := a.prompt("Save data before exiting? (y/n): ")
	if ok && strings.EqualFold(answer, "y") {
		a.saveData()
	}
	fmt.Println("Goodbye!")
}

func formatBook(b *catalog.Book) string {
	return fmt.Sprintf("[%s] %s by %s (Available: %d/%d)",
		b.BookID, b.Title, b.Author, b.AvailableCopies, b.TotalCopies)
}

func formatMember(m *catalog.Member) string {
	active := 0
	for _, record := range m.BorrowedBooks {
		if !record.Returned {
			active++
		}
	}
	return fmt.Sprintf("[%s] %s - %s (Borrowed: %d)", m.MemberID, m.Name, m.Email, active)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
