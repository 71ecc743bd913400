package gather

import (
	"path/filepath"
	"strings"
)

// extensionToLanguage maps file extensions to editor language ids.
var extensionToLanguage = map[string]string{
	".go":    "go",
	".py":    "python",
	".pyi":   "python",
	".ts":    "typescript",
	".tsx":   "typescriptreact",
	".mts":   "typescript",
	".js":    "javascript",
	".jsx":   "javascriptreact",
	".mjs":   "javascript",
	".cjs":   "javascript",
	".java":  "java",
	".rs":    "rust",
	".c":     "c",
	".h":     "c",
	".cpp":   "cpp",
	".cc":    "cpp",
	".cxx":   "cpp",
	".hpp":   "cpp",
	".cs":    "csharp",
	".rb":    "ruby",
	".php":   "php",
	".swift": "swift",
	".kt":    "kotlin",
	".kts":   "kotlin",
	".scala": "scala",
	".sh":    "shellscript",
	".bash":  "shellscript",
	".sql":   "sql",
	".vue":   "vue",
	".dart":  "dart",
}

// LanguageForPath returns the language id for a file name, or "".
func LanguageForPath(path string) string {
	return extensionToLanguage[strings.ToLower(filepath.Ext(path))]
}

// languageHints are checked in order against the lowercased error text.
var languageHints = []struct {
	needles  []string
	language string
}{
	{[]string{"traceback (most recent call last)", "modulenotfounderror", "importerror", "has no attribute", "indentationerror", "keyerror:", "nameerror:"}, "python"},
	{[]string{"cannot read propert", "is not a function", "referenceerror", "uncaught", "node_modules", "npm err!"}, "javascript"},
	{[]string{"error ts"}, "typescript"},
	{[]string{"panic: ", "goroutine ", ".go:"}, "go"},
	{[]string{"error[e", "cargo", "rustc"}, "rust"},
	{[]string{"error cs"}, "csharp"},
	{[]string{"exception in thread", "at java.", ".java:"}, "java"},
	{[]string{"segmentation fault", "undefined reference to"}, "cpp"},
}

// LanguageFromErrorText guesses the language from the error text alone.
func LanguageFromErrorText(text string) string {
	lower := strings.ToLower(text)
	for _, hint := range languageHints {
		for _, n := range hint.needles {
			if strings.Contains(lower, n) {
				return hint.language
			}
		}
	}
	return ""
}
