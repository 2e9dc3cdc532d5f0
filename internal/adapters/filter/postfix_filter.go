package filter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/mail"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"github.com/mikey/mail-threat-scanner/internal/core"
)

// PostfixFilter implements a Postfix content filter that scans incoming
// mail, stamps verdict headers, and reinjects the message.
type PostfixFilter struct {
	service        *core.ThreatScannerService
	logger         *zap.Logger
	listenAddr     string
	server         *smtp.Server
	blockThreats   bool
	threatHeader   string
	scoreHeader    string
	typeHeader     string
	factorsHeader  string
	postfixAddr    string
	postfixPort    int
	postfixEnabled bool
	subjectPrefix  string
	modifySubject  bool
}

// NewPostfixFilter creates a new Postfix content filter
func NewPostfixFilter(
	service *core.ThreatScannerService,
	logger *zap.Logger,
	listenAddr string,
	blockThreats bool,
	threatHeader string,
	scoreHeader string,
	typeHeader string,
	factorsHeader string,
	postfixAddr string,
	postfixPort int,
	postfixEnabled bool,
	subjectPrefix string,
	modifySubject bool,
) *PostfixFilter {
	if subjectPrefix == "" && modifySubject {
		subjectPrefix = "[**THREAT**] "
	}

	return &PostfixFilter{
		service:        service,
		logger:         logger,
		listenAddr:     listenAddr,
		blockThreats:   blockThreats,
		threatHeader:   threatHeader,
		scoreHeader:    scoreHeader,
		typeHeader:     typeHeader,
		factorsHeader:  factorsHeader,
		postfixAddr:    postfixAddr,
		postfixPort:    postfixPort,
		postfixEnabled: postfixEnabled,
		subjectPrefix:  subjectPrefix,
		modifySubject:  modifySubject,
	}
}

// Start starts the Postfix filter service
func (f *PostfixFilter) Start() error {
	f.server = smtp.NewServer(&smtpBackend{filter: f})

	f.server.Addr = f.listenAddr
	f.server.Domain = "localhost"
	f.server.ReadTimeout = 30 * time.Second
	f.server.WriteTimeout = 30 * time.Second
	f.server.MaxMessageBytes = 30 * 1024 * 1024 // 30MB
	f.server.MaxRecipients = 50
	f.server.AllowInsecureAuth = true

	f.logger.Info("Postfix filter starting", zap.String("address", f.listenAddr))

	go func() {
		if err := f.server.ListenAndServe(); err != nil {
			if err != smtp.ErrServerClosed {
				f.logger.Error("SMTP server error", zap.Error(err))
			}
		}
	}()

	return nil
}

// Stop stops the Postfix filter service
func (f *PostfixFilter) Stop() error {
	if f.server != nil {
		return f.server.Close()
	}
	return nil
}

// ProcessEmail analyzes an email directly, bypassing the SMTP path.
// This is mainly used for testing or direct API calls
func (f *PostfixFilter) ProcessEmail(ctx context.Context, email *core.EmailRecord) (*core.Verdict, error) {
	return f.service.Analyze(ctx, email), nil
}

// sendToPostfix sends the processed email back to Postfix on the configured port using go-smtp
func (f *PostfixFilter) sendToPostfix(sender string, recipients []string, emailData []byte) error {
	postfixAddr := fmt.Sprintf("%s:%d", f.postfixAddr, f.postfixPort)

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	conn, err := net.DialTimeout("tcp", postfixAddr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to Postfix: %w", err)
	}

	if err := conn.SetDeadline(time.Now().Add(30 * time.Second)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}

	if err := c.Mail(sender, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	recipientOK := false
	for _, recipient := range recipients {
		if err := c.Rcpt(recipient, nil); err != nil {
			f.logger.Warn("RCPT TO failed for recipient",
				zap.String("recipient", recipient),
				zap.Error(err))
			// Continue with other recipients even if one fails
		} else {
			recipientOK = true
		}
	}

	if !recipientOK {
		return fmt.Errorf("all recipients were rejected")
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}

	_, err = wc.Write(emailData)
	if err != nil {
		wc.Close()
		return fmt.Errorf("failed to send email data: %w", err)
	}

	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		f.logger.Warn("QUIT command failed", zap.Error(err))
		// Not returning an error here as the email has already been sent
	}

	return nil
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	filter *PostfixFilter
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{
		filter:     b.filter,
		recipients: make([]string, 0),
	}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	filter     *PostfixFilter
	sender     string
	recipients []string
	data       []byte
}

// Reset resets the session state
func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = make([]string, 0)
	s.data = nil
}

// AuthPlain handles PLAIN authentication (not needed for our filter)
func (s *smtpSession) AuthPlain(_ []byte) error {
	return smtp.ErrAuthUnsupported
}

// Mail sets the sender address
func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

// Rcpt adds a recipient
func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

// Data handles the email data
func (s *smtpSession) Data(r io.Reader) error {
	rawData, err := io.ReadAll(r)
	if err != nil {
		s.filter.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	rawDataCopy := make([]byte, len(rawData))
	copy(rawDataCopy, rawData)

	msg, err := mail.ReadMessage(bytes.NewReader(rawData))
	if err != nil {
		s.filter.logger.Error("Failed to parse email message", zap.Error(err))
		return err
	}

	email := s.buildEmailRecord(msg, rawDataCopy)

	senderDomain := "unknown"
	if parts := strings.Split(email.Sender, "@"); len(parts) == 2 {
		senderDomain = parts[1]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	verdict := s.filter.service.Analyze(ctx, email)

	if verdict.IsThreat && s.filter.blockThreats && verdict.Err == "" {
		s.filter.logger.Info("Rejecting threat email",
			zap.String("from", email.Sender),
			zap.String("sender_domain", senderDomain),
			zap.Float64("score", verdict.ThreatScore),
			zap.String("threat_type", string(verdict.ThreatType)),
			zap.Strings("risk_factors", verdict.RiskFactors))
		return fmt.Errorf("550 Rejected as threat (score: %.2f)", verdict.ThreatScore)
	}

	var modifiedEmail bytes.Buffer

	fmt.Fprintf(&modifiedEmail, "%s: %t\r\n", s.filter.threatHeader, verdict.IsThreat)
	fmt.Fprintf(&modifiedEmail, "%s: %.4f\r\n", s.filter.scoreHeader, verdict.ThreatScore)
	fmt.Fprintf(&modifiedEmail, "%s: %s\r\n", s.filter.typeHeader, verdict.ThreatType)
	if len(verdict.RiskFactors) > 0 {
		fmt.Fprintf(&modifiedEmail, "%s: %s\r\n", s.filter.factorsHeader,
			strings.Join(verdict.RiskFactors, "; "))
	}
	if verdict.Err != "" {
		fmt.Fprintf(&modifiedEmail, "X-Threat-Analysis-Error: %s\r\n", verdict.Err)
	}

	s.writeHeaders(&modifiedEmail, msg, verdict)

	fmt.Fprintf(&modifiedEmail, "\r\n")

	s.writeOriginalBody(&modifiedEmail, msg, rawDataCopy)

	if s.filter.postfixEnabled {
		if err := s.filter.sendToPostfix(s.sender, s.recipients, modifiedEmail.Bytes()); err != nil {
			s.filter.logger.Error("Failed to send email back to Postfix",
				zap.Error(err),
				zap.String("sender", email.Sender))
			return err
		}
	} else {
		s.filter.logger.Warn("Postfix forwarding disabled, this is likely a misconfiguration")
	}

	s.filter.logger.Info("Processed email",
		zap.String("from", email.Sender),
		zap.String("sender_domain", senderDomain),
		zap.Bool("is_threat", verdict.IsThreat),
		zap.Float64("score", verdict.ThreatScore),
		zap.String("engine", verdict.EngineUsed))

	return nil
}

// buildEmailRecord maps a parsed SMTP message onto the analysis input.
func (s *smtpSession) buildEmailRecord(msg *mail.Message, rawData []byte) *core.EmailRecord {
	textContent, err := extractTextFromMessage(msg)
	if err != nil {
		s.filter.logger.Warn("Failed to extract text content", zap.Error(err))
	}

	email := &core.EmailRecord{
		Body:    textContent,
		Sender:  s.sender,
		Headers: make(map[string]string),
	}
	if len(s.recipients) > 0 {
		email.To = s.recipients[0]
	}

	for key, values := range msg.Header {
		if len(values) == 0 {
			continue
		}
		email.Headers[key] = values[0]

		switch {
		case strings.EqualFold(key, "Subject"):
			if decoded, err := decodeEncodedHeader(values[0]); err == nil {
				email.Subject = decoded
			} else {
				email.Subject = values[0]
			}
		case strings.EqualFold(key, "Reply-To"):
			email.ReplyTo = values[0]
		}
	}

	for _, name := range extractAttachmentNames(rawData) {
		email.Attachments = append(email.Attachments, core.Attachment{Filename: name})
	}

	return email
}

func (s *smtpSession) writeHeaders(w *bytes.Buffer, msg *mail.Message, verdict *core.Verdict) {
	rewriteSubject := verdict.IsThreat && s.filter.modifySubject && s.filter.subjectPrefix != ""

	if rewriteSubject {
		originalSubject := msg.Header.Get("Subject")
		decodedSubject, err := decodeEncodedHeader(originalSubject)
		if err != nil {
			decodedSubject = originalSubject
		}

		if !strings.HasPrefix(decodedSubject, s.filter.subjectPrefix) {
			fmt.Fprintf(w, "Subject: %s%s\r\n", s.filter.subjectPrefix, decodedSubject)
			for key, values := range msg.Header {
				if strings.EqualFold(key, "Subject") {
					continue
				}
				for _, value := range values {
					fmt.Fprintf(w, "%s: %s\r\n", key, value)
				}
			}
			return
		}
	}

	for key, values := range msg.Header {
		for _, value := range values {
			fmt.Fprintf(w, "%s: %s\r\n", key, value)
		}
	}
}

func (s *smtpSession) writeOriginalBody(w *bytes.Buffer, msg *mail.Message, rawData []byte) {
	// Reuse the raw bytes so MIME parts and attachments survive untouched.
	bodyStartIndex := bytes.Index(rawData, []byte("\r\n\r\n"))
	if bodyStartIndex >= 0 {
		w.Write(rawData[bodyStartIndex+4:])
		return
	}
	bodyStartIndex = bytes.Index(rawData, []byte("\n\n"))
	if bodyStartIndex >= 0 {
		w.Write(rawData[bodyStartIndex+2:])
		return
	}
	if bodyBytes, err := io.ReadAll(msg.Body); err == nil {
		w.Write(bodyBytes)
	}
}

// Logout handles SMTP logout (not needed for our filter)
func (s *smtpSession) Logout() error {
	return nil
}
