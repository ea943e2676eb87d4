package common

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"unicode/utf8"
)

// NormalizeContent trims message text and checks it is non-empty and within maxRunes.
// maxRunes <= 0 disables the length check.
func NormalizeContent(content string, maxRunes int) (string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", fmt.Errorf("%w: content is empty", ErrValidation)
	}
	if maxRunes > 0 && utf8.RuneCountInString(trimmed) > maxRunes {
		return "", fmt.Errorf("%w: content exceeds %d characters", ErrValidation, maxRunes)
	}
	return trimmed, nil
}

// ValidateImageRef checks a single image reference attached to a message.
// An empty ref is allowed. When allowedHosts is non-empty the host must equal
// one of them or be a subdomain of one.
func ValidateImageRef(ref string, allowedHosts []string) error {
	if ref == "" {
		return nil
	}

	u, err := url.Parse(ref)
	if err != nil || u.Host == "" {
		return fmt.Errorf("%w: image reference is not an absolute url", ErrValidation)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("%w: image scheme %q not allowed", ErrValidation, u.Scheme)
	}
	if u.User != nil {
		return fmt.Errorf("%w: image url must not carry credentials", ErrValidation)
	}

	if len(allowedHosts) == 0 {
		return nil
	}
	host := strings.ToLower(u.Hostname())
	if slices.ContainsFunc(allowedHosts, func(h string) bool {
		h = strings.ToLower(h)
		return host == h || strings.HasSuffix(host, "."+h)
	}) {
		return nil
	}
	return fmt.Errorf("%w: image host %q not allowed", ErrValidation, host)
}
