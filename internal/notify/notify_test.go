package notify

import (
	"strings"
	"testing"

	"esign/internal/service"

	"github.com/stretchr/testify/assert"
)

func TestBuildMessagePlainHTML(t *testing.T) {
	msg := string(buildMessage("no-reply@example.com", "dana@example.com", "Hello", "<p>Hi</p>", nil))

	assert.Contains(t, msg, "To: dana@example.com")
	assert.Contains(t, msg, "Content-Type: text/html")
	assert.Contains(t, msg, "<p>Hi</p>")
	assert.NotContains(t, msg, "multipart/mixed")
}

func TestBuildMessageWithAttachment(t *testing.T) {
	msg := string(buildMessage("no-reply@example.com", "dana@example.com", "Signed", "<p>Done</p>",
		[]service.Attachment{{FileName: "contract.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.4")}}))

	assert.Contains(t, msg, "multipart/mixed")
	assert.Contains(t, msg, `filename="contract.pdf"`)
	assert.Contains(t, msg, "Content-Transfer-Encoding: base64")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(msg), "--esign-mixed-boundary--"))
}

func TestWrap76(t *testing.T) {
	long := strings.Repeat("a", 200)
	wrapped := wrap76(long)
	for _, line := range strings.Split(wrapped, "\r\n") {
		assert.LessOrEqual(t, len(line), 76)
	}
}
