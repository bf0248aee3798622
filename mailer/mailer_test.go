package mailer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recordingSender struct {
	err   error
	calls int
	text  string
	html  string
}

func (s *recordingSender) Send(ctx context.Context, to, subject, text, html string) error {
	s.calls++
	s.text, s.html = text, html
	return s.err
}

func TestRender_VerificationContent(t *testing.T) {
	text, html, err := Render(Product{Name: "AIBlog", Link: "https://blog.example"},
		VerificationContent("Bob <b>", "https://blog.example/verify?token=abc"))
	require.NoError(t, err)

	assert.Contains(t, text, "Hi Bob <b>,")
	assert.Contains(t, text, "Verify Email Address: https://blog.example/verify?token=abc")
	assert.Contains(t, html, "Hi Bob &lt;b&gt;,")
	assert.Contains(t, html, `href="https://blog.example/verify?token=abc"`)
	assert.Contains(t, html, defaultButtonColor)
}

func TestRender_WithoutAction(t *testing.T) {
	text, html, err := Render(Product{Name: "AIBlog"}, Content{Name: "Ann", Intro: "hello", Outro: "bye"})
	require.NoError(t, err)
	assert.NotContains(t, text, ": ")
	assert.NotContains(t, html, "border-radius")
}

func TestDispatch_FailureIsLoggedNotReturned(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	sender := &recordingSender{err: errors.New("connection refused")}
	d := NewDispatcher(sender, Product{Name: "AIBlog"}, zap.New(core))

	d.Dispatch(context.Background(), Message{To: "a@example.com", Subject: "Verify", Content: Content{Name: "A"}})

	assert.Equal(t, 1, sender.calls)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "mail delivery failed", logs.All()[0].Message)
}

func TestBuildMessage_Multipart(t *testing.T) {
	msg, err := buildMessage(SMTPConfig{From: "noreply@example.com", FromName: "Blög"}, "a@example.com", "Hello", "plain", "<p>rich</p>")
	require.NoError(t, err)

	s := string(msg)
	assert.Contains(t, s, "From: =?utf-8?q?Bl=C3=B6g?= <noreply@example.com>\r\n")
	assert.Contains(t, s, "Content-Type: multipart/alternative; boundary=")
	assert.True(t, strings.Index(s, "plain") < strings.Index(s, "<p>rich</p>"))
}

func TestSMTPSender_NotConfigured(t *testing.T) {
	err := NewSMTPSender(SMTPConfig{}).Send(context.Background(), "a@example.com", "s", "t", "h")
	assert.Error(t, err)
}
