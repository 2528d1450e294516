package sync_test

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"chat2notes/internal/chatlog"
	"chat2notes/internal/notes"
	"chat2notes/internal/render"
	"chat2notes/internal/sync"
)

// Conversation ids used across the engine tests. Must be UUID-shaped so
// the marker codec accepts them.
const (
	convA = "aaaaaaaa-0000-0000-0000-000000000001"
	convB = "aaaaaaaa-0000-0000-0000-000000000002"
	convC = "aaaaaaaa-0000-0000-0000-000000000003"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore is an in-memory notes.Store that counts every call, so tests
// can assert both content and how often the store was touched.
type fakeStore struct {
	docs   map[notes.DocumentID]string
	nextID int

	lists, reads             int
	creates, replaces        int
	appends, moves, deletes  int

	listErr            error
	appendErr          error
	moveErrOnce        error
	replaceUnsupported bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: map[notes.DocumentID]string{}}
}

func (s *fakeStore) mutations() int {
	return s.creates + s.replaces + s.appends + s.moves + s.deletes
}

func (s *fakeStore) ListDocuments(folder string) ([]notes.DocumentID, error) {
	s.lists++

	if s.listErr != nil {
		return nil, s.listErr
	}

	var ids []notes.DocumentID

	for id := range s.docs {
		if strings.HasPrefix(string(id), folder+"/") && !strings.Contains(strings.TrimPrefix(string(id), folder+"/"), "/") {
			ids = append(ids, id)
		}
	}

	return ids, nil
}

func (s *fakeStore) ReadBody(id notes.DocumentID) (string, error) {
	s.reads++

	body, ok := s.docs[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", notes.ErrNotFound, id)
	}

	return body, nil
}

func (s *fakeStore) Create(folder, body string) (notes.DocumentID, error) {
	s.creates++
	s.nextID++

	id := notes.DocumentID(fmt.Sprintf("%s/note-%d.html", folder, s.nextID))
	s.docs[id] = body

	return id, nil
}

func (s *fakeStore) Replace(id notes.DocumentID, body string) error {
	if s.replaceUnsupported {
		return notes.ErrReplaceUnsupported
	}

	s.replaces++

	if _, ok := s.docs[id]; !ok {
		return fmt.Errorf("%w: %s", notes.ErrNotFound, id)
	}

	s.docs[id] = body

	return nil
}

func (s *fakeStore) Append(id notes.DocumentID, fragment string) error {
	s.appends++

	if s.appendErr != nil {
		return s.appendErr
	}

	body, ok := s.docs[id]
	if !ok {
		return fmt.Errorf("%w: %s", notes.ErrNotFound, id)
	}

	s.docs[id] = body + fragment

	return nil
}

func (s *fakeStore) MoveToSubfolder(id notes.DocumentID, folder, subfolder string) error {
	s.moves++

	if s.moveErrOnce != nil {
		err := s.moveErrOnce
		s.moveErrOnce = nil

		return err
	}

	body, ok := s.docs[id]
	if !ok {
		return fmt.Errorf("%w: %s", notes.ErrNotFound, id)
	}

	delete(s.docs, id)
	s.docs[notes.DocumentID(folder+"/"+subfolder+"/"+string(id))] = body

	return nil
}

func (s *fakeStore) Delete(id notes.DocumentID) error {
	s.deletes++

	if _, ok := s.docs[id]; !ok {
		return fmt.Errorf("%w: %s", notes.ErrNotFound, id)
	}

	delete(s.docs, id)

	return nil
}

// fakeProvider serves canned conversations keyed by locator and records
// the order in which they were loaded.
type fakeProvider struct {
	keys      []chatlog.RecordKey
	convs     map[string]*chatlog.Conversation // by locator string
	loadErrs  map[string]error                 // by locator string
	loadOrder []string                         // conversation ids in load order
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		convs:    map[string]*chatlog.Conversation{},
		loadErrs: map[string]error{},
	}
}

// add registers a conversation under a synthetic one-record file named
// after the conversation id and returns its record key.
func (p *fakeProvider) add(conv *chatlog.Conversation, updatedAt float64) {
	loc := chatlog.Locator{Path: conv.ID + ".json", SubIndex: chatlog.WholeFile}

	p.keys = append(p.keys, chatlog.RecordKey{
		ID:        conv.ID,
		Title:     conv.Title,
		UpdatedAt: updatedAt,
		Loc:       loc,
	})
	p.convs[loc.String()] = conv
}

func (p *fakeProvider) files() []string {
	var files []string
	for _, key := range p.keys {
		files = append(files, key.Loc.Path)
	}

	return files
}

func (p *fakeProvider) ScanKeys(path string, _ func(chatlog.Locator, error)) ([]chatlog.RecordKey, error) {
	var keys []chatlog.RecordKey

	for _, key := range p.keys {
		if key.Loc.Path == path {
			keys = append(keys, key)
		}
	}

	return keys, nil
}

func (p *fakeProvider) Load(loc chatlog.Locator) (*chatlog.Conversation, error) {
	if err, ok := p.loadErrs[loc.String()]; ok {
		return nil, err
	}

	conv, ok := p.convs[loc.String()]
	if !ok {
		return nil, errors.New("no such conversation")
	}

	p.loadOrder = append(p.loadOrder, conv.ID)

	return conv, nil
}

// failingRenderer fails full rendering for one conversation id and
// delegates everything else.
type failingRenderer struct {
	inner  sync.Renderer
	failID string
}

func (r *failingRenderer) Full(conv *chatlog.Conversation) (string, error) {
	if conv.ID == r.failID {
		return "", errors.New("renderer exploded")
	}

	return r.inner.Full(conv)
}

func (r *failingRenderer) Incremental(conv *chatlog.Conversation, afterID string) (string, error) {
	return r.inner.Incremental(conv, afterID)
}

func makeConv(id, title string, msgIDs ...string) *chatlog.Conversation {
	conv := &chatlog.Conversation{ID: id, Title: title}

	for i, msgID := range msgIDs {
		conv.Messages = append(conv.Messages, chatlog.Message{
			ID:         msgID,
			Author:     chatlog.Author{Role: "assistant"},
			CreateTime: float64(i + 1),
			Content: chatlog.Content{
				ContentType: "text",
				Parts:       []chatlog.Part{{Text: "message " + msgID}},
			},
		})
	}

	return conv
}

func newEngine(store notes.Store, provider sync.Provider, opts sync.Options) *sync.Engine {
	if opts.Folder == "" {
		opts.Folder = "ChatGPT"
	}

	return sync.New(store, provider, render.New(), opts, discardLogger())
}
