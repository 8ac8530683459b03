// Package sl содержит вспомогательные функции для работы с логгером slog:
// единообразный вывод ошибок и маскирование чувствительных значений.
package sl

import "log/slog"

// Err возвращает slog.Attr с ключом "error" и текстом ошибки.
//
// Пример:
//
//	log.Error("failed to send batch", sl.Err(err))
func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// Token возвращает slog.Attr с замаскированным push-токеном.
// В лог попадают только первые и последние символы.
func Token(token string) slog.Attr {
	return slog.String("token", Mask(token))
}

// Mask оставляет от строки первые шесть и последние четыре символа.
func Mask(s string) string {
	const head, tail = 6, 4
	if len(s) <= head+tail {
		return "***"
	}
	return s[:head] + "..." + s[len(s)-tail:]
}
