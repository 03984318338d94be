package pdf

import (
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"testing"
	"time"

	"esign/internal/domain"
	"esign/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func templateInput() service.ComposeInput {
	docID := uuid.New()
	signerID := uuid.New()
	now := time.Now().UTC()
	signed := now.Add(time.Hour)
	return service.ComposeInput{
		Document: &domain.Document{
			ID:      docID,
			Title:   "Consulting Agreement",
			Source:  domain.SourceTemplate,
			Content: "SECTION 1. Parties\nAcme engages Initech.\n\nSECTION 2. Term\nTwelve months.",
		},
		Signers: []domain.Signer{{
			ID: signerID, DocumentID: docID, Name: "Ada Lovelace",
			Email: "ada@example.com", Role: domain.RoleSigner, SignedAt: &signed,
		}},
		Signatures: []domain.Signature{{
			ID: uuid.New(), SignerID: signerID, DocumentID: docID,
			Type: domain.SignatureTyped, Payload: "Ada Lovelace", SignedAt: signed,
		}},
		Trail: []domain.AuditLog{
			{DocumentID: docID, Action: domain.ActionCreated, CreatedAt: now},
			{DocumentID: docID, Action: domain.ActionSent, CreatedAt: now.Add(time.Minute)},
			{DocumentID: docID, Action: domain.ActionSigned, Details: "Ada Lovelace", CreatedAt: signed},
			{DocumentID: docID, Action: domain.ActionFinalized, CreatedAt: signed},
		},
	}
}

func TestComposeTemplateDocument(t *testing.T) {
	e := NewEngine(testLogger())
	out, err := e.Compose(context.Background(), templateInput())
	require.NoError(t, err)
	require.NotEmpty(t, out)
	assert.Equal(t, "%PDF", string(out[:4]))
}

func TestComposeWithStampedPosition(t *testing.T) {
	in := templateInput()
	page, x, y, w, h := 1, 80.0, 500.0, 180.0, 60.0
	in.Signatures[0].Position = domain.Placement{Page: &page, X: &x, Y: &y, W: &w, H: &h}

	e := NewEngine(testLogger())
	out, err := e.Compose(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(out[:4]))
}

func TestComposeCorruptImageIsSkipped(t *testing.T) {
	in := templateInput()
	page, x, y, w, h := 1, 80.0, 500.0, 180.0, 60.0
	in.Signatures[0].Type = domain.SignatureCanvas
	in.Signatures[0].Payload = "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("not a png"))
	in.Signatures[0].Position = domain.Placement{Page: &page, X: &x, Y: &y, W: &w, H: &h}

	e := NewEngine(testLogger())
	out, err := e.Compose(context.Background(), in)
	require.NoError(t, err, "one bad asset must not abort composition")
	assert.Equal(t, "%PDF", string(out[:4]))
}

func TestComposeStampPageOutOfRange(t *testing.T) {
	in := templateInput()
	page, x, y, w, h := 99, 80.0, 500.0, 180.0, 60.0
	in.Signatures[0].Position = domain.Placement{Page: &page, X: &x, Y: &y, W: &w, H: &h}

	e := NewEngine(testLogger())
	_, err := e.Compose(context.Background(), in)
	require.NoError(t, err)
}

func TestComposeNoUsableContent(t *testing.T) {
	in := templateInput()
	in.Document.Content = "   \n  "
	in.Original = nil

	e := NewEngine(testLogger())
	_, err := e.Compose(context.Background(), in)
	require.Error(t, err)
	assert.Equal(t, domain.KindIntegrity, domain.KindOf(err))
}

func TestComposeLongContentPaginates(t *testing.T) {
	in := templateInput()
	body := ""
	for i := 0; i < 200; i++ {
		body += "The parties agree to the obligations enumerated in this clause.\n"
	}
	in.Document.Content = body

	e := NewEngine(testLogger())
	out, err := e.Compose(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(out[:4]))
}

func TestComposeImportedDocument(t *testing.T) {
	e := NewEngine(testLogger())

	// Build a source PDF with the engine itself, then feed it back through
	// the imported path.
	source, err := e.Compose(context.Background(), templateInput())
	require.NoError(t, err)

	in := templateInput()
	in.Document.Source = domain.SourceImported
	in.Document.Content = ""
	in.Document.OriginalHash = "sha256:test"
	in.Original = source

	out, err := e.Compose(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(out[:4]))
}

func TestIsHeading(t *testing.T) {
	assert.True(t, isHeading("SECTION 1. Parties"))
	assert.True(t, isHeading("Article 4 - Liability"))
	assert.False(t, isHeading("The quick brown fox."))
	assert.False(t, isHeading(""))
}

func TestDecodeImagePayload(t *testing.T) {
	png := append([]byte("\x89PNG\r\n\x1a\n"), []byte("fakebody")...)
	sig := domain.Signature{Type: domain.SignatureCanvas,
		Payload: "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)}
	data, imgType, ok := decodeImagePayload(sig)
	require.True(t, ok)
	assert.Equal(t, "PNG", imgType)
	assert.Equal(t, png, data)

	_, _, ok = decodeImagePayload(domain.Signature{Type: domain.SignatureUpload, Payload: "https://cdn.example.com/sig.png"})
	assert.False(t, ok, "remote assets are not fetched")

	_, _, ok = decodeImagePayload(domain.Signature{Type: domain.SignatureTyped, Payload: "Ada"})
	assert.False(t, ok)
}
