package filter

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"
)

// extractTextFromMessage extracts the text content from an email message.
// For multipart messages it collects text/plain and text/html parts.
func extractTextFromMessage(msg *mail.Message) (string, error) {
	contentType := msg.Header.Get("Content-Type")

	if !strings.Contains(strings.ToLower(contentType), "multipart/") {
		bodyBytes, err := io.ReadAll(msg.Body)
		if err != nil {
			return "", err
		}
		return string(bodyBytes), nil
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		bodyBytes, err := io.ReadAll(msg.Body)
		if err != nil {
			return "", err
		}
		return string(bodyBytes), nil
	}

	boundary, ok := params["boundary"]
	if !ok {
		bodyBytes, err := io.ReadAll(msg.Body)
		if err != nil {
			return "", err
		}
		return string(bodyBytes), nil
	}

	mr := multipart.NewReader(msg.Body, boundary)

	var textContent bytes.Buffer
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Return what we have so far instead of failing the scan.
			if textContent.Len() > 0 {
				return textContent.String(), nil
			}
			return "", nil
		}

		partContentType := strings.ToLower(part.Header.Get("Content-Type"))
		if strings.Contains(partContentType, "text/plain") ||
			strings.Contains(partContentType, "text/html") {
			partBytes, err := io.ReadAll(part)
			if err != nil {
				continue
			}
			textContent.Write(partBytes)
			textContent.WriteString("\n")
		}
		// Attachments and nested multiparts are skipped here; filenames are
		// collected separately by extractAttachmentNames.
	}

	return textContent.String(), nil
}

// extractAttachmentNames walks the multipart structure of a raw message and
// collects attachment filenames from Content-Disposition headers.
func extractAttachmentNames(rawData []byte) []string {
	msg, err := mail.ReadMessage(bytes.NewReader(rawData))
	if err != nil {
		return nil
	}

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		return nil
	}
	boundary, ok := params["boundary"]
	if !ok {
		return nil
	}

	var names []string
	mr := multipart.NewReader(msg.Body, boundary)
	for {
		part, err := mr.NextPart()
		if err != nil {
			break
		}
		if name := partFilename(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func partFilename(part *multipart.Part) string {
	if name := part.FileName(); name != "" {
		if decoded, err := decodeEncodedHeader(name); err == nil {
			return decoded
		}
		return name
	}

	// Some clients put the filename on Content-Type name= instead.
	if _, params, err := mime.ParseMediaType(part.Header.Get("Content-Type")); err == nil {
		if name := params["name"]; name != "" {
			return name
		}
	}
	return ""
}

// decodeEncodedHeader decodes RFC 2047 encoded-word header values.
func decodeEncodedHeader(value string) (string, error) {
	dec := new(mime.WordDecoder)
	return dec.DecodeHeader(value)
}
