package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// DayTime — время внутри дня в минутах от полуночи.
// В JSON сериализуется как "HH:MM", в БД хранится как smallint.
type DayTime int

// NewDayTime создаёт DayTime из часов и минут
func NewDayTime(hour, minute int) DayTime {
	return DayTime(hour*60 + minute)
}

func (t DayTime) Hour() int   { return int(t) / 60 }
func (t DayTime) Minute() int { return int(t) % 60 }

// Add сдвигает время на указанное количество минут
func (t DayTime) Add(minutes int) DayTime {
	return t + DayTime(minutes)
}

func (t DayTime) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

func (t DayTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *DayTime) UnmarshalJSON(data []byte) error {
	// Убираем кавычки вокруг строки
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("parse day time: %w", err)
	}

	parsed, err := ParseDayTime(str)
	if err != nil {
		return err
	}

	*t = parsed
	return nil
}

// ParseDayTime разбирает строку "HH:MM" или "HH:MM:SS"
func ParseDayTime(str string) (DayTime, error) {
	layout := "15:04"
	if len(str) == len("15:04:05") {
		layout = "15:04:05"
	}

	parsed, err := time.Parse(layout, str)
	if err != nil {
		return 0, fmt.Errorf("failed to parse time %q: %w", str, err)
	}

	return NewDayTime(parsed.Hour(), parsed.Minute()), nil
}

// Value реализует driver.Valuer для записи в БД
func (t DayTime) Value() (driver.Value, error) {
	return int64(t), nil
}

// Scan реализует sql.Scanner для чтения из БД
func (t *DayTime) Scan(src interface{}) error {
	switch v := src.(type) {
	case int64:
		*t = DayTime(v)
	case int32:
		*t = DayTime(v)
	case int16:
		*t = DayTime(v)
	default:
		return fmt.Errorf("cannot scan %T into DayTime", src)
	}
	return nil
}

// Date — календарная дата без времени. В JSON сериализуется как "2006-01-02".
type Date struct {
	Time time.Time
}

// NewDate создаёт дату с обнулённым временем
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf обрезает время у time.Time
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func (d Date) String() string {
	return d.Time.Format("2006-01-02")
}

func (d Date) IsZero() bool {
	return d.Time.IsZero()
}

// Equal сравнивает только календарные даты
func (d Date) Equal(other Date) bool {
	return d.Time.Equal(other.Time)
}

func (d Date) Before(other Date) bool { return d.Time.Before(other.Time) }
func (d Date) After(other Date) bool  { return d.Time.After(other.Time) }

// AddDays возвращает дату через n дней
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// DayOfWeek возвращает день недели, где 0 = понедельник, 6 = воскресенье
func (d Date) DayOfWeek() int {
	wd := int(d.Time.Weekday()) - 1
	if wd < 0 {
		wd = 6
	}
	return wd
}

// WeekStart возвращает понедельник недели, в которую попадает дата
func (d Date) WeekStart() Date {
	return d.AddDays(-d.DayOfWeek())
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("parse date: %w", err)
	}

	// Сначала пробуем дату без времени, потом RFC3339
	parsed, err := time.Parse("2006-01-02", str)
	if err != nil {
		parsed, err = time.Parse(time.RFC3339, str)
		if err != nil {
			return fmt.Errorf("failed to parse date %q: %w", str, err)
		}
	}

	*d = DateOf(parsed)
	return nil
}

// Value реализует driver.Valuer
func (d Date) Value() (driver.Value, error) {
	return d.Time, nil
}

// Scan реализует sql.Scanner
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*d = DateOf(v)
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
	return nil
}
