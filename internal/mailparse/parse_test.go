package mailparse

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailfilter/internal/model"
)

func crlf(s string) string {
	return strings.ReplaceAll(s, "\n", "\r\n")
}

func TestParsePlainMessage(t *testing.T) {
	raw := crlf(`From: Alice Wonderland <alice@example.com>
To: user@example.com
Subject: Quarterly report
Date: Mon, 04 Mar 2024 10:30:00 +0100
Content-Type: text/plain; charset=utf-8

Please find the report attached.
`)

	e, err := Parse(strings.NewReader(raw))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(e.ID, "email_"))
	assert.Equal(t, "Alice Wonderland <alice@example.com>", e.Sender)
	assert.Equal(t, "user@example.com", e.Recipient)
	assert.Equal(t, "Quarterly report", e.Subject)
	assert.Equal(t, "Please find the report attached.", e.Body)
	assert.Equal(t, time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC), e.Timestamp)
	assert.False(t, e.Read)
	assert.Equal(t, model.PriorityNone, e.Priority)
	assert.Equal(t, model.CategoryInbox, e.Category)
	assert.Empty(t, e.Sentiment)
}

func TestParseMultipartPrefersPlainText(t *testing.T) {
	raw := crlf(`From: shop@example.com
To: user@example.com
Subject: =?utf-8?q?Big_sale?=
Date: Tue, 05 Mar 2024 08:00:00 +0000
MIME-Version: 1.0
Content-Type: multipart/alternative; boundary=XYZ

--XYZ
Content-Type: text/html; charset=utf-8

<p>HTML <b>version</b></p>
--XYZ
Content-Type: text/plain; charset=utf-8
Content-Transfer-Encoding: quoted-printable

20% off =E2=80=94 this weekend only
--XYZ--
`)

	e, err := Parse(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "shop@example.com", e.Sender)
	assert.Equal(t, "Big sale", e.Subject)
	assert.Equal(t, "20% off — this weekend only", e.Body)
}

func TestParseHTMLOnly(t *testing.T) {
	raw := crlf(`From: news@example.com
Subject: Digest
Content-Type: text/html; charset=utf-8

<html><body><h1>Weekly</h1><p>Hello there</p></body></html>
`)

	e, err := Parse(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Contains(t, e.Body, "Weekly")
	assert.Contains(t, e.Body, "Hello there")
	assert.NotContains(t, e.Body, "<p>")
	assert.False(t, e.Timestamp.IsZero(), "missing Date falls back to now")
}

func TestParseSkipsAttachments(t *testing.T) {
	raw := crlf(`From: bob@example.com
Subject: Files
Content-Type: multipart/mixed; boundary=B

--B
Content-Type: text/plain

See attached.
--B
Content-Type: application/pdf
Content-Disposition: attachment; filename=report.pdf
Content-Transfer-Encoding: base64

JVBERi0xLjQK
--B--
`)

	e, err := Parse(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "See attached.", e.Body)
}

func TestParseEmpty(t *testing.T) {
	_, err := Parse(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyMessage)
}
