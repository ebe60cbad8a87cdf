package model

// SupportedLanguages 是回答可以使用的语言列表。
var SupportedLanguages = []string{
	"English", "Spanish", "French", "German", "Italian",
	"Portuguese", "Hindi", "Chinese", "Japanese", "Korean",
	"Arabic", "Russian", "Dutch", "Swedish", "Turkish",
}

// languageCodes 把语言名映射为 ISO 代码。
var languageCodes = map[string]string{
	"English": "en", "Spanish": "es", "French": "fr", "German": "de",
	"Italian": "it", "Portuguese": "pt", "Hindi": "hi", "Chinese": "zh",
	"Japanese": "ja", "Korean": "ko", "Arabic": "ar", "Russian": "ru",
	"Dutch": "nl", "Swedish": "sv", "Turkish": "tr",
}

// LanguageCode 返回语言名对应的代码，未知语言回退为 "en"。
func LanguageCode(language string) string {
	if code, ok := languageCodes[language]; ok {
		return code
	}
	return "en"
}
