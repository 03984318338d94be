package impl

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"esign/internal/dto"
	"esign/internal/service"
)

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type stubNotifier struct {
	mu   sync.Mutex
	sent []sentMail
}

func (n *stubNotifier) Send(ctx context.Context, to, subject, bodyHTML string, attachments ...service.Attachment) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMail{To: to, Subject: subject, Body: bodyHTML})
	return nil
}

func (n *stubNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func (n *stubNotifier) last() sentMail {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sent[len(n.sent)-1]
}

type stubComposer struct {
	mu    sync.Mutex
	calls int
	out   []byte
	err   error
}

func (c *stubComposer) Compose(ctx context.Context, in service.ComposeInput) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	if c.out != nil {
		return c.out, nil
	}
	return []byte("%PDF-1.4 composed " + in.Document.ID.String()), nil
}

func (c *stubComposer) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type memBlob struct {
	mu    sync.Mutex
	blobs map[string][]byte
	seq   int
}

func newMemBlob() *memBlob { return &memBlob{blobs: make(map[string][]byte)} }

func (b *memBlob) Write(ctx context.Context, data []byte) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	location := fmt.Sprintf("blob-%d", b.seq)
	b.blobs[location] = append([]byte(nil), data...)
	return location, nil
}

func (b *memBlob) Read(ctx context.Context, location string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.blobs[location]
	if !ok {
		return nil, errors.New("blob not found: " + location)
	}
	return append([]byte(nil), data...), nil
}

func (b *memBlob) Delete(ctx context.Context, location string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.blobs, location)
	return nil
}

func (b *memBlob) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.blobs)
}

// harness wires both services over one shared in-memory store.
type harness struct {
	store    *memoryStore
	notifier *stubNotifier
	composer *stubComposer
	blobs    *memBlob
	docs     *DocumentServiceImpl
	signing  *SigningServiceImpl
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &harness{
		store:    newMemoryStore(),
		notifier: &stubNotifier{},
		composer: &stubComposer{},
		blobs:    newMemBlob(),
	}
	h.docs = newDocumentService(h.store, h.notifier, h.composer, h.blobs, DocumentConfig{
		TokenTTL:       7 * 24 * time.Hour,
		SigningBaseURL: "https://sign.example.com",
	}, log)
	h.signing = newSigningService(h.store, h.notifier, h.docs, SigningConfig{}, log)
	return h
}

func b64PDF() string {
	return base64.StdEncoding.EncodeToString([]byte("%PDF-1.4\nfake original\n%%EOF"))
}

var noCap = dto.Capture{IP: "203.0.113.9", UserAgent: "test-agent"}
