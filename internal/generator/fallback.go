package generator

import (
	"strings"
	"text/template"
	"time"
	"unicode"
)

var fallbackTemplate = template.Must(template.New("fallback").Parse(`# Fallback generated code
# Prompt: {{.Prompt}}
# Generated at: {{.GeneratedAt}}

import asyncio
import logging
from typing import Any, Dict
from datetime import datetime
import json


class {{.ClassName}}:
    """
    Solution skeleton for: {{.Prompt}}
    """

    def __init__(self):
        self.logger = logging.getLogger(__name__)
        self.created_at = datetime.now()

    async def execute(self, **kwargs) -> Dict[str, Any]:
        try:
            result = await self._process_request(**kwargs)
            return {
                "status": "success",
                "data": result,
                "timestamp": datetime.now().isoformat(),
            }
        except Exception as exc:
            self.logger.error("execution failed: %s", exc)
            return {"status": "error", "error": str(exc)}

    async def _process_request(self, **kwargs) -> Any:
        # Implement: {{.Prompt}}
        await asyncio.sleep(0.1)
        return {"message": "Solution skeleton ready"}


async def main():
    solution = {{.ClassName}}()
    print(json.dumps(await solution.execute(), indent=2))


if __name__ == "__main__":
    asyncio.run(main())
`))

// RenderFallback renders the local code skeleton served when the upstream is unavailable.
func RenderFallback(prompt string, at time.Time) (string, error) {
	var b strings.Builder
	err := fallbackTemplate.Execute(&b, struct {
		Prompt      string
		ClassName   string
		GeneratedAt string
	}{
		Prompt:      prompt,
		ClassName:   ClassName(prompt),
		GeneratedAt: at.Format("2006-01-02 15:04:05 MST"),
	})
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

// ClassName builds an identifier from the first three words of prompt, e.g.
// "reverse a string" becomes "ReverseAStringSolution".
func ClassName(prompt string) string {
	words := strings.FieldsFunc(prompt, func(r rune) bool {
		return unicode.IsSpace(r) || r == '-' || r == '_'
	})

	var b strings.Builder
	taken := 0
	for _, w := range words {
		if taken == 3 {
			break
		}
		word := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return r
			}
			return -1
		}, w)
		if word == "" {
			continue
		}
		runes := []rune(strings.ToLower(word))
		runes[0] = unicode.ToUpper(runes[0])
		b.WriteString(string(runes))
		taken++
	}

	name := b.String()
	if name == "" || unicode.IsDigit([]rune(name)[0]) {
		name = "Generated" + name
	}
	return name + "Solution"
}
