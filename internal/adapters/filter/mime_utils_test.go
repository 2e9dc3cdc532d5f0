package filter

import (
	"bytes"
	"net/mail"
	"strings"
	"testing"
)

const multipartMessage = "From: sender@example.com\r\n" +
	"To: rcpt@example.com\r\n" +
	"Subject: invoice\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=\"BOUNDARY\"\r\n" +
	"\r\n" +
	"--BOUNDARY\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Please see the attached invoice.\r\n" +
	"--BOUNDARY\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p>Please see the attached invoice.</p>\r\n" +
	"--BOUNDARY\r\n" +
	"Content-Type: application/octet-stream\r\n" +
	"Content-Disposition: attachment; filename=\"invoice.exe\"\r\n" +
	"\r\n" +
	"MZbinarydata\r\n" +
	"--BOUNDARY--\r\n"

func TestExtractTextFromMultipartMessage(t *testing.T) {
	msg, err := mail.ReadMessage(strings.NewReader(multipartMessage))
	if err != nil {
		t.Fatal(err)
	}
	text, err := extractTextFromMessage(msg)
	if err != nil {
		t.Fatalf("extractTextFromMessage failed: %v", err)
	}
	if !strings.Contains(text, "Please see the attached invoice.") {
		t.Errorf("plain part missing from %q", text)
	}
	if !strings.Contains(text, "<p>") {
		t.Errorf("html part missing from %q", text)
	}
	if strings.Contains(text, "MZbinarydata") {
		t.Errorf("attachment body leaked into text: %q", text)
	}
}

func TestExtractTextFromPlainMessage(t *testing.T) {
	raw := "From: a@example.com\r\nSubject: hi\r\n\r\njust plain text\r\n"
	msg, err := mail.ReadMessage(strings.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	text, err := extractTextFromMessage(msg)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "just plain text") {
		t.Errorf("got %q", text)
	}
}

func TestExtractAttachmentNames(t *testing.T) {
	names := extractAttachmentNames([]byte(multipartMessage))
	if len(names) != 1 || names[0] != "invoice.exe" {
		t.Errorf("names = %v, want [invoice.exe]", names)
	}
}

func TestExtractAttachmentNamesNonMultipart(t *testing.T) {
	raw := []byte("From: a@example.com\r\n\r\nbody\r\n")
	if names := extractAttachmentNames(raw); names != nil {
		t.Errorf("names = %v, want nil", names)
	}
}

func TestExtractAttachmentNamesContentTypeName(t *testing.T) {
	var b bytes.Buffer
	b.WriteString("From: a@example.com\r\n")
	b.WriteString("Content-Type: multipart/mixed; boundary=\"X\"\r\n\r\n")
	b.WriteString("--X\r\n")
	b.WriteString("Content-Type: application/zip; name=\"archive.zip\"\r\n\r\n")
	b.WriteString("data\r\n")
	b.WriteString("--X--\r\n")

	names := extractAttachmentNames(b.Bytes())
	if len(names) != 1 || names[0] != "archive.zip" {
		t.Errorf("names = %v, want [archive.zip]", names)
	}
}

func TestDecodeEncodedHeader(t *testing.T) {
	got, err := decodeEncodedHeader("=?UTF-8?B?cmVzdW3DqS5wZGY=?=")
	if err != nil {
		t.Fatal(err)
	}
	if got != "resumé.pdf" {
		t.Errorf("decoded = %q, want resumé.pdf", got)
	}

	plain, err := decodeEncodedHeader("plain.txt")
	if err != nil {
		t.Fatal(err)
	}
	if plain != "plain.txt" {
		t.Errorf("decoded = %q", plain)
	}
}
