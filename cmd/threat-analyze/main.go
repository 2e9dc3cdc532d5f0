package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/mail"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/mikey/mail-threat-scanner/internal/core"
	"github.com/mikey/mail-threat-scanner/internal/di"
	"github.com/mikey/mail-threat-scanner/internal/ports"
)

func main() {
	flags := di.ParseFlags()

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(func(logger *zap.Logger, emailFilter ports.EmailFilter) error {
		defer logger.Sync()
		return analyze(flags, logger, emailFilter)
	}); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

func analyze(flags *di.CLIFlags, logger *zap.Logger, emailFilter ports.EmailFilter) error {
	var emailReader io.Reader
	if flags.InputFile != "" {
		file, err := os.Open(flags.InputFile)
		if err != nil {
			return fmt.Errorf("failed to open input file %s: %w", flags.InputFile, err)
		}
		defer file.Close()
		emailReader = file
		logger.Info("Reading email from file", zap.String("file", flags.InputFile))
	} else {
		emailReader = os.Stdin
		logger.Info("Reading email from stdin")
	}

	msg, err := mail.ReadMessage(bufio.NewReader(emailReader))
	if err != nil {
		return fmt.Errorf("failed to parse email: %w", err)
	}

	bodyBytes, err := io.ReadAll(msg.Body)
	if err != nil {
		return fmt.Errorf("failed to read email body: %w", err)
	}

	email := &core.EmailRecord{
		Sender:  msg.Header.Get("From"),
		To:      msg.Header.Get("To"),
		ReplyTo: msg.Header.Get("Reply-To"),
		Subject: msg.Header.Get("Subject"),
		Body:    string(bodyBytes),
		Headers: make(map[string]string),
	}
	for k, v := range msg.Header {
		if len(v) > 0 {
			email.Headers[k] = strings.Join(v, ", ")
		}
	}

	_, err = emailFilter.ProcessEmail(context.Background(), email)
	return err
}
