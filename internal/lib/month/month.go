// Package month содержит календарную арифметику по месяцам.
package month

import "time"

// Add сдвигает момент t на n календарных месяцев.
//
// Сдвигается именно поле месяца, а переполнение дня переносится в следующий месяц:
// 31 января + 1 месяц = 3 марта (2 марта в високосный год).
// Время суток и часовой пояс сохраняются.
func Add(t time.Time, n int) time.Time {
	return t.AddDate(0, n, 0)
}

// Next возвращает момент ровно через один календарный месяц после t.
func Next(t time.Time) time.Time {
	return Add(t, 1)
}
