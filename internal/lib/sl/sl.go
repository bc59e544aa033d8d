// Package sl содержит мелкие помощники для структурированного логирования
// через slog: единый ключ и формат для полей ошибок во всех сервисах бота.
package sl

import "log/slog"

// Err оборачивает ошибку в slog.Attr с ключом "error".
//
//	log.Error("failed to process payment event", sl.Err(err))
func Err(err error) slog.Attr {
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}
