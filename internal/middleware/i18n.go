package middleware

import (
	"github.com/courtside/courtside-chat/internal/common"
	"github.com/courtside/courtside-chat/pkg/i18n"
	"github.com/gin-gonic/gin"
)

const (
	localeKey = "locale"
	bundleKey = "i18n_bundle"
)

// I18n middleware detects the client's preferred language from Accept-Language header
// and stores it in the gin context for later use.
func I18n(bundle *i18n.Bundle) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Accept-Language")
		locale := i18n.ParseAcceptLanguage(header)
		c.Set(localeKey, locale)
		c.Set(bundleKey, bundle)
		c.Header("Content-Language", string(locale))
		c.Next()
	}
}

// GetLocale returns the locale from the gin context (set by I18n middleware)
func GetLocale(c *gin.Context) i18n.Locale {
	if v, exists := c.Get(localeKey); exists {
		if locale, ok := v.(i18n.Locale); ok {
			return locale
		}
	}
	return i18n.LocaleEn
}

// Translate renders key in the request locale. Without the I18n middleware
// the built-in catalogue is used.
func Translate(c *gin.Context, key string, args ...interface{}) string {
	bundle := defaultBundle
	if v, exists := c.Get(bundleKey); exists {
		if b, ok := v.(*i18n.Bundle); ok && b != nil {
			bundle = b
		}
	}
	return bundle.T(GetLocale(c), key, args...)
}

var defaultBundle = i18n.NewDefaultBundle()

// Abort writes a localized error response for err and stops the chain
func Abort(c *gin.Context, status int, err error) {
	common.ErrorResponse(c, status, Translate(c, common.MessageKey(err)), err)
	c.Abort()
}
