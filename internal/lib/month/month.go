// Package month содержит правило ежемесячного сброса счётчиков использования.
package month

import "time"

// ResetDue сообщает, нужно ли обнулить месячные счётчики: месяц или год последнего
// сброса отличаются от текущих. Обе даты сравниваются в часовом поясе now.
func ResetDue(now, lastReset time.Time) bool {
	lastReset = lastReset.In(now.Location())
	return now.Year() != lastReset.Year() || now.Month() != lastReset.Month()
}

// Start возвращает начало календарного месяца для даты t.
func Start(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
