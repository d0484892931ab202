package utils

import (
	"bytes"
	"encoding/json"
)

// DecodeStrict декодирует JSON-данные в out, запрещая неизвестные поля.
// Используется для разбора структурированных ответов AI-коллаборатора.
func DecodeStrict(data []byte, out interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

// ExtractJSONObject пытается вырезать первый JSON-объект из произвольного
// текста (модели любят оборачивать ответ в markdown или пояснения).
// Возвращает nil, если сбалансированный объект не найден.
func ExtractJSONObject(text string) []byte {
	start := bytes.IndexByte([]byte(text), '{')
	if start < 0 {
		return nil
	}
	depth := 0
	inString := false
	escape := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escape {
			escape = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escape = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					candidate := []byte(text[start : i+1])
					if json.Valid(candidate) {
						return candidate
					}
					return nil
				}
			}
		}
	}
	return nil
}
