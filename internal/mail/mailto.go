// Package mail hands a late notice to the platform's mail composer.
package mail

import (
	"net/url"
	"strings"

	"github.com/pkg/browser"

	"github.com/classcommute/internal/common/logger"
)

// DefaultSubject is the subject of every late notice.
const DefaultSubject = "Late Notice"

// Launcher opens a URI with whatever the platform registers for it.
type Launcher interface {
	OpenURL(uri string) error
}

// BrowserLauncher delegates to the desktop's default handler.
type BrowserLauncher struct{}

func (BrowserLauncher) OpenURL(uri string) error {
	return browser.OpenURL(uri)
}

// Encode percent-encodes s, leaving only RFC 3986 unreserved characters.
// Spaces become %20.
func Encode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// ComposeURI builds mailto:<to>?subject=...&body=...
func ComposeURI(to, subject, body string) string {
	return "mailto:" + to + "?subject=" + Encode(subject) + "&body=" + Encode(body)
}

// Sender composes and launches late notices. Delivery is not confirmed.
type Sender struct {
	launcher Launcher
	subject  string
	logger   logger.Logger
}

func NewSender(launcher Launcher, subject string, logger logger.Logger) *Sender {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Sender{launcher: launcher, subject: subject, logger: logger}
}

// Send opens the composer addressed to to with body.
func (s *Sender) Send(to, body string) (string, error) {
	uri := ComposeURI(to, s.subject, body)
	if err := s.launcher.OpenURL(uri); err != nil {
		s.logger.Error("Could not open mail composer", "to", to, "error", err)
		return uri, err
	}
	s.logger.Info("Handed late notice to mail composer", "to", to)
	return uri, nil
}
