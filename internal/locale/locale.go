/*
Package locale provides deterministic phrase catalogs for the advisory engine.
It replaces a process-wide shared localization singleton with an injectable
Localizer so prompt building stays testable and reproducible.
*/
package locale

// Localizer resolves phrase keys for one language.
type Localizer interface {
	// Phrase returns the localized phrase for key, falling back to the
	// English phrase and finally to the key itself. It never fails.
	Phrase(key string) string

	// Lang returns the BCP-47 style language code ("en", "ja").
	Lang() string
}

// Catalog holds the phrase tables for every supported language.
type Catalog struct {
	phrases map[string]map[string]string
}

// NewCatalog returns the built-in en/ja catalog.
func NewCatalog() *Catalog {
	return &Catalog{phrases: builtinPhrases}
}

// For returns a Localizer for the given language code. Unknown codes resolve
// to English.
func (c *Catalog) For(lang string) Localizer {
	if _, ok := c.phrases[lang]; !ok {
		lang = "en"
	}
	return localizer{catalog: c, lang: lang}
}

type localizer struct {
	catalog *Catalog
	lang    string
}

func (l localizer) Lang() string { return l.lang }

func (l localizer) Phrase(key string) string {
	if table, ok := l.catalog.phrases[l.lang]; ok {
		if p, ok := table[key]; ok {
			return p
		}
	}
	if p, ok := l.catalog.phrases["en"][key]; ok {
		return p
	}
	return key
}

var builtinPhrases = map[string]map[string]string{
	"en": {
		"prompt.language_name":     "English",
		"prompt.energy_state":      "Current physiological readiness (0-100)",
		"prompt.active_focus":      "Active focus areas",
		"prompt.biological":        "Biometric snapshot",
		"prompt.environmental":     "Environmental conditions",
		"prompt.insufficient_data": "insufficient data",
		"prompt.time_of_day":       "Time of day",
		"static.rest_headline":     "Your body is asking for rest.",
		"static.rest_advice":       "Skip demanding plans, hydrate, and aim for an early night.",
		"static.low_headline":      "Take it easy today.",
		"static.low_advice":        "Favor light activity and recovery over intensity.",
		"static.ok_headline":       "You have a workable base today.",
		"static.ok_advice":         "Keep a steady pace and check in with yourself mid-day.",
		"static.high_headline":     "Good readiness today.",
		"static.high_advice":       "A solid day to push toward what matters to you.",
		"static.env_heat":          "High temperature outside; hydrate more than usual.",
		"static.env_uv":            "Strong UV today; protect your skin when outdoors.",
		"static.env_humidity":      "High humidity; pace yourself during exertion.",
		"static.synthesis":         "Advice generated from your latest readings while the full analysis is unavailable.",
	},
	"ja": {
		"prompt.language_name":     "Japanese (日本語)",
		"prompt.energy_state":      "現在のコンディション指数 (0-100)",
		"prompt.active_focus":      "選択中のフォーカス",
		"prompt.biological":        "バイオメトリクス",
		"prompt.environmental":     "環境データ",
		"prompt.insufficient_data": "データ不足",
		"prompt.time_of_day":       "時間帯",
		"static.rest_headline":     "今日は休息が必要です。",
		"static.rest_advice":       "予定を軽くして、水分補給と早めの就寝を心がけましょう。",
		"static.low_headline":      "今日は無理をしない日に。",
		"static.low_advice":        "軽い活動と回復を優先しましょう。",
		"static.ok_headline":       "今日はまずまずのコンディションです。",
		"static.ok_advice":         "一定のペースを保ち、昼に一度体調を確認しましょう。",
		"static.high_headline":     "コンディション良好です。",
		"static.high_advice":       "大事なことに取り組むのに良い一日です。",
		"static.env_heat":          "気温が高めです。こまめな水分補給を。",
		"static.env_uv":            "紫外線が強い日です。外出時は肌を守りましょう。",
		"static.env_humidity":      "湿度が高めです。運動時はペース配分に注意を。",
		"static.synthesis":         "詳細分析が利用できないため、最新の測定値から生成したアドバイスです。",
	},
}
