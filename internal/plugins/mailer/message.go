package mailer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/keyxmakerx/mailcraft/internal/sanitize"
)

// addressPattern is a shape check only: something@domain.tld with no
// whitespace. Deliverability is the provider's problem.
var addressPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// errCompose marks failures while rendering the MIME message. These are
// never the provider's fault.
var errCompose = errors.New("composing message")

// SplitRecipients splits a comma-separated recipient list, trimming
// whitespace and dropping empty entries. Input order is preserved.
func SplitRecipients(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if addr := strings.TrimSpace(part); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

// Assemble validates the message fields and packages them into an
// Envelope. If any recipient fails the shape check the whole batch is
// rejected and no envelope is returned. The HTML body is passed through
// untouched.
func Assemble(from, to, subject, html string, attachments []Attachment) (*Envelope, error) {
	recipients := SplitRecipients(to)
	if len(recipients) == 0 {
		return nil, newError(KindInvalidMessage, "at least one recipient is required")
	}

	var rejected []string
	for _, addr := range recipients {
		if !addressPattern.MatchString(addr) {
			rejected = append(rejected, addr)
		}
	}
	if len(rejected) > 0 {
		return nil, newError(KindInvalidRecipient, "invalid recipient address(es): %s", strings.Join(rejected, ", "))
	}

	var missing []string
	if strings.TrimSpace(subject) == "" {
		missing = append(missing, "subject")
	}
	if strings.TrimSpace(html) == "" {
		missing = append(missing, "html")
	}
	if len(missing) > 0 {
		return nil, newError(KindInvalidMessage, "missing required fields: %s", strings.Join(missing, ", "))
	}

	env := &Envelope{
		From:    strings.TrimSpace(from),
		To:      recipients,
		Subject: subject,
		HTML:    html,
	}
	for _, a := range attachments {
		ct := a.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		env.Attachments = append(env.Attachments, Attachment{
			Filename:    a.Filename,
			Content:     a.Content,
			ContentType: ct,
		})
	}
	return env, nil
}

// compose renders env as an RFC 5322 message: a multipart/alternative body
// (plain text derived from the HTML, then the HTML itself) followed by
// one part per attachment. Returns the raw bytes and the generated
// Message-ID without angle brackets.
func compose(env *Envelope, now time.Time) ([]byte, string, error) {
	var h mail.Header
	h.Set("MIME-Version", "1.0")
	h.SetDate(now)
	h.SetAddressList("From", []*mail.Address{{Address: env.From}})

	to := make([]*mail.Address, 0, len(env.To))
	for _, addr := range env.To {
		to = append(to, &mail.Address{Address: addr})
	}
	h.SetAddressList("To", to)
	h.SetSubject(env.Subject)

	if err := h.GenerateMessageID(); err != nil {
		return nil, "", fmt.Errorf("%w: generating message id: %v", errCompose, err)
	}
	messageID, err := h.MessageID()
	if err != nil {
		return nil, "", fmt.Errorf("%w: reading message id: %v", errCompose, err)
	}

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", errCompose, err)
	}

	if err := writeBody(mw, env.HTML); err != nil {
		return nil, "", fmt.Errorf("%w: %v", errCompose, err)
	}

	for _, a := range env.Attachments {
		var ah mail.AttachmentHeader
		ah.SetContentType(a.ContentType, nil)
		ah.SetFilename(a.Filename)

		w, err := mw.CreateAttachment(ah)
		if err != nil {
			return nil, "", fmt.Errorf("%w: attachment %q: %v", errCompose, a.Filename, err)
		}
		if _, err := w.Write(a.Content); err != nil {
			return nil, "", fmt.Errorf("%w: attachment %q: %v", errCompose, a.Filename, err)
		}
		if err := w.Close(); err != nil {
			return nil, "", fmt.Errorf("%w: attachment %q: %v", errCompose, a.Filename, err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("%w: %v", errCompose, err)
	}
	return buf.Bytes(), messageID, nil
}

// writeBody writes the text/plain and text/html alternatives.
func writeBody(mw *mail.Writer, html string) error {
	iw, err := mw.CreateInline()
	if err != nil {
		return err
	}

	parts := []struct {
		contentType string
		body        string
	}{
		{"text/plain", sanitize.PlainText(html)},
		{"text/html", html},
	}
	for _, p := range parts {
		var ih mail.InlineHeader
		ih.SetContentType(p.contentType, map[string]string{"charset": "utf-8"})

		w, err := iw.CreatePart(ih)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(w, p.body); err != nil {
			return err
		}
		if err := w.Close(); err != nil {
			return err
		}
	}
	return iw.Close()
}
