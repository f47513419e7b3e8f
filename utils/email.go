package utils

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/smtp"
	"os"
	"runtime/debug"
	"strings"
)

const (
	defaultSMTPHost = "localhost:25"
	defaultSender   = "astrocat-noreply@localhost"
)

// sendMail is replaced in tests
var sendMail = smtp.SendMail

func formatMessage(from string, to []string, subject, body string) []byte {
	header := [][2]string{
		{"From", from},
		{"To", strings.Join(to, ",")},
		{"Subject", subject},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/plain; charset=\"utf-8\""},
		{"Content-Transfer-Encoding", "base64"},
	}

	var message strings.Builder
	for _, h := range header {
		message.WriteString(fmt.Sprintf("%s: %s\r\n", h[0], h[1]))
	}

	body = body + "\n\n" + fmt.Sprintf("Ran with the following command:\n%s", strings.Join(os.Args, " "))
	message.WriteString("\r\n" + base64.StdEncoding.EncodeToString([]byte(body)))
	return []byte(message.String())
}

// SendEmail uses the SMTP_HOST and SMTP_FROM environment variables
func SendEmail(subject, body string, to []string) error {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		host = defaultSMTPHost
	}
	from := os.Getenv("SMTP_FROM")
	if from == "" {
		from = defaultSender
	}

	if err := sendMail(host, nil, from, to, formatMessage(from, to, subject, body)); err != nil {
		slog.Error(err.Error())
		return err
	}
	slog.Info("Email sent successfully!")
	return nil
}

// SendEmailOnPanic sends an email and resumes the panic.
// Needs to be deferred directly, recover only works there.
func SendEmailOnPanic(function string, recipients []string) {
	if r := recover(); r != nil {
		if recipients != nil {
			body := "astrocat was unable to finish successfully, and the error was not handled." +
				" This email is sent from a recover function triggered in " +
				function +
				".\n\nError message:" +
				fmt.Sprint(r) +
				"\n\nStack trace:\n\n" +
				string(debug.Stack())
			SendEmail("astrocat panicked", body, recipients)
		}
		panic(r)
	}
}
