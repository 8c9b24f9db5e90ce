package executor

import (
	"errors"
	"strings"
)

var ErrUnsupportedLanguage = errors.New("unsupported language")

var languageAliases = map[string]string{
	"cpp":    "c++",
	"js":     "javascript",
	"ts":     "typescript",
	"py":     "python",
	"rs":     "rust",
	"rb":     "ruby",
	"kt":     "kotlin",
	"sw":     "swift",
	"golang": "go",
	"csharp": "c#",
}

// Judge0 CE language ids
var languageIDs = map[string]int{
	"c++":        54,
	"java":       62,
	"javascript": 63,
	"python":     71,
	"rust":       73,
	"go":         60,
	"c#":         51,
	"php":        68,
	"ruby":       72,
	"swift":      83,
	"kotlin":     78,
	"typescript": 74,
	"scala":      81,
	"r":          80,
	"dart":       87,
	"elixir":     57,
	"erlang":     58,
	"haskell":    61,
	"lua":        64,
	"perl":       85,
	"bash":       46,
	"c":          50,
}

// NormalizeLanguage 별칭을 정식 언어 이름으로 변환
func NormalizeLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if canonical, ok := languageAliases[lang]; ok {
		return canonical
	}
	return lang
}

// LanguageID Judge0 언어 id 조회
func LanguageID(lang string) (int, error) {
	id, ok := languageIDs[NormalizeLanguage(lang)]
	if !ok {
		return 0, ErrUnsupportedLanguage
	}
	return id, nil
}
