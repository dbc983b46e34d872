// Package i18n renders recommendation reasons in the user's language.
package i18n

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/foodiepair/foodiepair-cli/internal/recommend"
)

// Supported lists the languages with a full catalog, default first.
var Supported = []language.Tag{language.English, language.Spanish}

var matcher = language.NewMatcher(Supported)

// paramOrder binds each parameterized key to the positional order its
// catalog strings expect.
var paramOrder = map[recommend.ReasonKey][]string{
	recommend.ReasonNoRatingsYet:    nil,
	recommend.ReasonCraving:         nil,
	recommend.ReasonBothLoveCuisine: {recommend.ParamCuisine},
	recommend.ReasonVeryClose:       {recommend.ParamDistance},
	recommend.ReasonDistanceAway:    {recommend.ParamDistance},
	recommend.ReasonFavorite:        nil,
	recommend.ReasonNewDiscovery:    nil,
	recommend.ReasonMatchesCraving:  nil,
	recommend.ReasonHighlyRated:     {recommend.ParamRating},
}

var messages = map[language.Tag]map[recommend.ReasonKey]string{
	language.English: {
		recommend.ReasonNoRatingsYet:    "Rate a few places to unlock personal picks",
		recommend.ReasonCraving:         "Just what you're craving",
		recommend.ReasonBothLoveCuisine: "You both love %s food",
		recommend.ReasonVeryClose:       "Very close, only %s km",
		recommend.ReasonDistanceAway:    "%s km away",
		recommend.ReasonFavorite:        "One of your favorites",
		recommend.ReasonNewDiscovery:    "A new spot to discover",
		recommend.ReasonMatchesCraving:  "Matches your craving",
		recommend.ReasonHighlyRated:     "Highly rated (%v★)",
	},
	language.Spanish: {
		recommend.ReasonNoRatingsYet:    "Valora algunos sitios para recibir recomendaciones personales",
		recommend.ReasonCraving:         "Justo lo que os apetece",
		recommend.ReasonBothLoveCuisine: "A los dos os encanta la comida %s",
		recommend.ReasonVeryClose:       "Muy cerca, solo a %s km",
		recommend.ReasonDistanceAway:    "A %s km",
		recommend.ReasonFavorite:        "Uno de vuestros favoritos",
		recommend.ReasonNewDiscovery:    "Un sitio nuevo por descubrir",
		recommend.ReasonMatchesCraving:  "Coincide con vuestro antojo",
		recommend.ReasonHighlyRated:     "Muy bien valorado (%v★)",
	},
}

var cat = mustBuildCatalog()

func mustBuildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, msgs := range messages {
		for key, msg := range msgs {
			if err := b.SetString(tag, string(key), msg); err != nil {
				panic(fmt.Sprintf("i18n: set %s/%s: %v", tag, key, err))
			}
		}
	}
	return b
}

// Match picks the best supported language for one or more preferences,
// each either a BCP 47 tag or an Accept-Language header value. English is
// the fallback.
func Match(prefs ...string) language.Tag {
	var tags []language.Tag
	for _, p := range prefs {
		if p == "" {
			continue
		}
		parsed, _, err := language.ParseAcceptLanguage(p)
		if err != nil {
			continue
		}
		tags = append(tags, parsed...)
	}
	if len(tags) == 0 {
		return Supported[0]
	}
	_, idx, _ := matcher.Match(tags...)
	return Supported[idx]
}

// Localizer renders reasons in one language. It is safe for concurrent use.
type Localizer struct {
	tag     language.Tag
	printer *message.Printer
}

// New returns a Localizer for the best match of prefs.
func New(prefs ...string) *Localizer {
	tag := Match(prefs...)
	return &Localizer{tag: tag, printer: message.NewPrinter(tag, message.Catalog(cat))}
}

// Language returns the language reasons are rendered in.
func (l *Localizer) Language() language.Tag {
	return l.tag
}

// Render returns the display text for a reason. Unknown keys render as the
// raw key; missing params render empty.
func (l *Localizer) Render(r recommend.Reason) string {
	order, ok := paramOrder[r.Key]
	if !ok {
		return string(r.Key)
	}
	args := make([]any, len(order))
	for i, name := range order {
		v, ok := r.Params[name]
		if !ok {
			v = ""
		}
		args[i] = v
	}
	return l.printer.Sprintf(string(r.Key), args...)
}

// RenderAll renders every reason in order.
func (l *Localizer) RenderAll(reasons []recommend.Reason) []string {
	out := make([]string, len(reasons))
	for i, r := range reasons {
		out[i] = l.Render(r)
	}
	return out
}
