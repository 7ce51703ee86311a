// Package translator localizes user-facing messages. Catalogs are TOML files
// embedded from locales/, one per language.
package translator

import (
	"embed"
	"io/fs"
	"sync"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

const (
	LanguageEn = "en"
	LanguageEs = "es"
)

//go:embed locales/*.toml
var locales embed.FS

var (
	bundle     *i18n.Bundle
	bundleOnce sync.Once

	matcher = language.NewMatcher([]language.Tag{
		language.English,
		language.Spanish,
	})
)

// Bundle returns the message bundle, loading the embedded catalogs on first use.
func Bundle() *i18n.Bundle {
	bundleOnce.Do(func() {
		bundle = i18n.NewBundle(language.English)
		bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

		files, err := fs.Glob(locales, "locales/*.toml")
		if err != nil {
			zap.L().Error("failed to list translation catalogs", zap.Error(err))
			return
		}
		for _, f := range files {
			if _, err := bundle.LoadMessageFileFS(locales, f); err != nil {
				zap.L().Warn("failed to load translation file", zap.String("file", f), zap.Error(err))
			}
		}
	})
	return bundle
}

// Localize renders messageID in lang, falling back to English and then to the
// id itself.
func Localize(lang, messageID string, data map[string]interface{}) string {
	l := i18n.NewLocalizer(Bundle(), lang, LanguageEn)
	msg, err := l.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		zap.L().Warn("translation not found",
			zap.String("lang", lang),
			zap.String("message_id", messageID),
			zap.Error(err),
		)
		return messageID
	}
	return msg
}

// MatchLanguage picks the supported language that best fits an
// Accept-Language header value.
func MatchLanguage(acceptLanguage string) string {
	tag, _ := language.MatchStrings(matcher, acceptLanguage)
	base, _ := tag.Base()
	if base.String() == LanguageEs {
		return LanguageEs
	}
	return LanguageEn
}
