// internal/snapshot/store.go

// Package snapshot persists the catalog as a single JSON document. Saves are
// whole-file overwrites; loads replace the in-memory catalog wholesale. The
// books and members objects are keyed by ID, and their key order carries the
// catalog's insertion order, so encoding and decoding go through jsoniter's
// stream and iterator APIs instead of Go maps.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"librarium/internal/audit"
	"librarium/internal/catalog"
)

// DefaultPath is where the catalog is persisted unless configured otherwise.
const DefaultPath = "library_data.json"

// ErrCorruptSnapshot reports a snapshot file that exists but cannot be
// decoded into a catalog.
var ErrCorruptSnapshot = errors.New("corrupt snapshot document")

// Store reads and writes catalog snapshots at a fixed path.
type Store struct {
	path   string
	api    jsoniter.API
	tracer trace.Tracer
}

// NewStore creates a store for the given file path.
func NewStore(path string) *Store {
	return &Store{
		path: path,
		api: jsoniter.Config{
			IndentionStep: 2,
			EscapeHTML:    false,
		}.Froze(),
		tracer: otel.Tracer("librarium/snapshot"),
	}
}

// Path returns the file path this store persists to.
func (st *Store) Path() string { return st.path }

// Save serializes snap and overwrites the store's file. The document is
// written to a temporary file first and moved into place, so a crash
// mid-write cannot leave a truncated snapshot behind.
func (st *Store) Save(ctx context.Context, snap *catalog.Snapshot) error {
	_, span := st.tracer.Start(ctx, "snapshot.save",
		trace.WithAttributes(attribute.String("snapshot.path", st.path)),
	)
	defer span.End()

	data, err := st.encode(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	if dir := filepath.Dir(st.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create snapshot dir: %w", err)
		}
	}

	tmp := st.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, st.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}

	span.SetAttributes(attribute.Int("snapshot.bytes", len(data)))
	return nil
}

func (st *Store) encode(snap *catalog.Snapshot) ([]byte, error) {
	stream := st.api.BorrowStream(nil)
	defer st.api.ReturnStream(stream)

	stream.WriteObjectStart()

	stream.WriteObjectField("name")
	stream.WriteString(snap.Name)
	stream.WriteMore()

	stream.WriteObjectField("books")
	stream.WriteObjectStart()
	for i, book := range snap.Books {
		if i > 0 {
			stream.WriteMore()
		}
		stream.WriteObjectField(book.BookID)
		stream.WriteVal(book)
	}
	stream.WriteObjectEnd()
	stream.WriteMore()

	stream.WriteObjectField("members")
	stream.WriteObjectStart()
	for i, member := range snap.Members {
		if i > 0 {
			stream.WriteMore()
		}
		stream.WriteObjectField(member.MemberID)
		stream.WriteVal(member)
	}
	stream.WriteObjectEnd()
	stream.WriteMore()

	stream.WriteObjectField("borrow_history")
	if snap.History == nil {
		stream.WriteEmptyArray()
	} else {
		stream.WriteVal(snap.History)
	}
	stream.WriteMore()

	stream.WriteObjectField("loan_duration_days")
	stream.WriteInt(snap.LoanDurationDays)

	stream.WriteObjectEnd()

	if stream.Error != nil {
		return nil, stream.Error
	}

	// The stream buffer is pooled; detach the bytes before returning it.
	out := make([]byte, len(stream.Buffer()))
	copy(out, stream.Buffer())
	return out, nil
}

// Load reads the store's file back into a snapshot. A missing file surfaces
// as an error satisfying errors.Is(err, fs.ErrNotExist); callers typically
// treat that as "start empty". Any decoding failure wraps
// ErrCorruptSnapshot.
func (st *Store) Load(ctx context.Context) (*catalog.Snapshot, error) {
	_, span := st.tracer.Start(ctx, "snapshot.load",
		trace.WithAttributes(attribute.String("snapshot.path", st.path)),
	)
	defer span.End()

	data, err := os.ReadFile(st.path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	snap, err := st.decode(data)
	if err != nil {
		return nil, errors.Join(ErrCorruptSnapshot, err)
	}

	span.SetAttributes(
		attribute.Int("snapshot.books", len(snap.Books)),
		attribute.Int("snapshot.members", len(snap.Members)),
	)
	return snap, nil
}

func (st *Store) decode(data []byte) (*catalog.Snapshot, error) {
	it := st.api.BorrowIterator(data)
	defer st.api.ReturnIterator(it)

	snap := &catalog.Snapshot{}
	ok := it.ReadObjectCB(func(it *jsoniter.Iterator, field string) bool {
		switch field {
		case "name":
			snap.Name = it.ReadString()
		case "loan_duration_days":
			snap.LoanDurationDays = it.ReadInt()
		case "books":
			return it.ReadObjectCB(func(it *jsoniter.Iterator, key string) bool {
				var book catalog.Book
				it.ReadVal(&book)
				if book.BookID == "" {
					book.BookID = key
				}
				snap.Books = append(snap.Books, &book)
				return it.Error == nil
			})
		case "members":
			return it.ReadObjectCB(func(it *jsoniter.Iterator, key string) bool {
				var member catalog.Member
				it.ReadVal(&member)
				if member.MemberID == "" {
					member.MemberID = key
				}
				snap.Members = append(snap.Members, &member)
				return it.Error == nil
			})
		case "borrow_history":
			it.ReadVal(&snap.History)
		default:
			it.Skip()
		}
		return it.Error == nil
	})

	if err := it.Error; err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("unexpected document structure")
	}
	if snap.History == nil {
		snap.History = []audit.Entry{}
	}
	return snap, nil
}
