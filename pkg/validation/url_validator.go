package validation

import (
	"net/netip"
	"net/url"
	"slices"
	"strings"

	apperrors "go-image-denoise/internal/errors"
)

// URLValidator checks remote image URLs before they are fetched.
type URLValidator struct {
	allowedSchemes []string
	allowedHosts   []string
	allowInternal  bool
}

// NewURLValidator allows http and https on any public host.
func NewURLValidator() *URLValidator {
	return &URLValidator{
		allowedSchemes: []string{"http", "https"},
		allowedHosts:   []string{}, // empty means all hosts allowed
	}
}

// NewURLValidatorWithOptions creates a URL validator with custom options
func NewURLValidatorWithOptions(schemes []string, hosts []string) *URLValidator {
	return &URLValidator{
		allowedSchemes: schemes,
		allowedHosts:   hosts,
	}
}

// AllowInternalHosts permits localhost and non-public IP literals.
func (v *URLValidator) AllowInternalHosts() *URLValidator {
	v.allowInternal = true
	return v
}

// IsPublicAddr reports whether addr is a globally routable unicast address.
func IsPublicAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	if !addr.IsValid() || !addr.IsGlobalUnicast() {
		return false
	}
	return !addr.IsPrivate()
}

// ValidateImageURL returns a validation AppError describing the first problem.
func (v *URLValidator) ValidateImageURL(imageURL string) error {
	if strings.TrimSpace(imageURL) == "" {
		return apperrors.NewValidationError("URL cannot be empty", nil)
	}

	parsedURL, err := url.Parse(strings.TrimSpace(imageURL))
	if err != nil {
		return apperrors.NewValidationError("Invalid URL format", err)
	}
	if !slices.Contains(v.allowedSchemes, strings.ToLower(parsedURL.Scheme)) {
		return apperrors.NewValidationError("URL scheme not allowed", nil)
	}
	if parsedURL.Host == "" {
		return apperrors.NewValidationError("URL must have a valid host", nil)
	}
	host := parsedURL.Hostname()
	if len(v.allowedHosts) > 0 && !slices.Contains(v.allowedHosts, host) {
		return apperrors.NewValidationError("URL host not allowed", nil)
	}
	if !v.allowInternal && isInternalHost(host) {
		return apperrors.NewValidationError("URL host not allowed", nil)
	}
	return nil
}

func isInternalHost(host string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		return !IsPublicAddr(addr)
	}
	return false
}
