package services

import (
	"sort"
	"sync"
	"time"

	"github.com/quietmaple/microfolio/internal/models"
)

// CalendarServiceImpl implements TradingCalendar for the US and Canadian
// equity markets. Holiday sets are computed per (market, year) on first
// use and cached behind mu, so a shared instance serves concurrent
// callers; a published set is never mutated again.
type CalendarServiceImpl struct {
	mu    sync.RWMutex
	cache map[calendarKey]map[time.Time]struct{}
}

type calendarKey struct {
	market models.Market
	year   int
}

func NewCalendarService() TradingCalendar {
	return &CalendarServiceImpl{cache: make(map[calendarKey]map[time.Time]struct{})}
}

// IsTradingDay reports whether the market is open on date. Weekends and
// exchange holidays are closed days.
func (s *CalendarServiceImpl) IsTradingDay(date time.Time, market models.Market) bool {
	d := models.DateOnly(date)
	if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	if s.isHoliday(d, market) {
		return false
	}
	// A New Year's observance can land on Dec 31 of the prior year, so
	// December dates also consult the next year's set.
	if d.Month() == time.December {
		if _, ok := s.holidaySet(market, d.Year()+1)[d]; ok {
			return false
		}
	}
	return true
}

// Holidays returns the market's holidays for a year in ascending order.
func (s *CalendarServiceImpl) Holidays(year int, market models.Market) []time.Time {
	set := s.holidaySet(market, year)
	days := make([]time.Time, 0, len(set))
	for d := range set {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

func (s *CalendarServiceImpl) isHoliday(d time.Time, market models.Market) bool {
	_, ok := s.holidaySet(market, d.Year())[d]
	return ok
}

func (s *CalendarServiceImpl) holidaySet(market models.Market, year int) map[time.Time]struct{} {
	key := calendarKey{market: market, year: year}
	s.mu.RLock()
	set, ok := s.cache[key]
	s.mu.RUnlock()
	if ok {
		return set
	}

	var days []time.Time
	switch market {
	case models.MarketCanada:
		days = canadianHolidays(year)
	default:
		days = usHolidays(year)
	}

	set = make(map[time.Time]struct{}, len(days))
	for _, d := range days {
		set[d] = struct{}{}
	}
	s.mu.Lock()
	s.cache[key] = set
	s.mu.Unlock()
	return set
}

// usHolidays computes the NYSE/Nasdaq holiday set for a year.
func usHolidays(year int) []time.Time {
	holidays := make([]time.Time, 0, 10)

	// New Year's Day, observed on the nearest weekday
	holidays = append(holidays, observeNearestWeekday(time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)))

	// Martin Luther King Jr. Day, 3rd Monday in January
	holidays = append(holidays, nthWeekday(year, 1, time.Monday, 3))

	// Presidents Day, 3rd Monday in February
	holidays = append(holidays, nthWeekday(year, 2, time.Monday, 3))

	// Good Friday
	holidays = append(holidays, goodFriday(year))

	// Memorial Day, last Monday in May
	holidays = append(holidays, lastWeekday(year, 5, time.Monday))

	// Juneteenth, observed from 2022
	if year >= 2022 {
		holidays = append(holidays, observeNearestWeekday(time.Date(year, 6, 19, 0, 0, 0, 0, time.UTC)))
	}

	// Independence Day
	holidays = append(holidays, observeNearestWeekday(time.Date(year, 7, 4, 0, 0, 0, 0, time.UTC)))

	// Labor Day, 1st Monday in September
	holidays = append(holidays, nthWeekday(year, 9, time.Monday, 1))

	// Thanksgiving, 4th Thursday in November
	holidays = append(holidays, nthWeekday(year, 11, time.Thursday, 4))

	// Christmas
	holidays = append(holidays, observeNearestWeekday(time.Date(year, 12, 25, 0, 0, 0, 0, time.UTC)))

	return holidays
}

// canadianHolidays computes the TSX holiday set for a year. The TSX
// observes weekend holidays on the following weekday, not the nearest.
func canadianHolidays(year int) []time.Time {
	holidays := make([]time.Time, 0, 10)

	// New Year's Day
	holidays = append(holidays, observeNextWeekday(time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)))

	// Family Day, 3rd Monday in February
	holidays = append(holidays, nthWeekday(year, 2, time.Monday, 3))

	// Good Friday
	holidays = append(holidays, goodFriday(year))

	// Victoria Day, the Monday on or before May 24
	holidays = append(holidays, mondayOnOrBefore(year, 5, 24))

	// Canada Day
	holidays = append(holidays, observeNextWeekday(time.Date(year, 7, 1, 0, 0, 0, 0, time.UTC)))

	// Civic Holiday, 1st Monday in August
	holidays = append(holidays, nthWeekday(year, 8, time.Monday, 1))

	// Labour Day, 1st Monday in September
	holidays = append(holidays, nthWeekday(year, 9, time.Monday, 1))

	// Thanksgiving, 2nd Monday in October
	holidays = append(holidays, nthWeekday(year, 10, time.Monday, 2))

	// Christmas and Boxing Day stack onto the next weekdays when either
	// falls on a weekend.
	christmas := observeNextWeekday(time.Date(year, 12, 25, 0, 0, 0, 0, time.UTC))
	boxing := observeNextWeekday(christmas.AddDate(0, 0, 1))
	holidays = append(holidays, christmas, boxing)

	return holidays
}

// goodFriday is two days before Easter Sunday, via the Gregorian
// computus.
func goodFriday(year int) time.Time {
	return easterSunday(year).AddDate(0, 0, -2)
}

// easterSunday computes Gregorian Easter with the anonymous computus
// algorithm.
func easterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451

	month := (h + l - 7*m + 114) / 31
	day := ((h + l - 7*m + 114) % 31) + 1

	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// nthWeekday finds the nth occurrence of a weekday in a month.
func nthWeekday(year, month int, weekday time.Weekday, n int) time.Time {
	date := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	daysToAdd := int(weekday - date.Weekday())
	if daysToAdd < 0 {
		daysToAdd += 7
	}
	return date.AddDate(0, 0, daysToAdd+(n-1)*7)
}

// lastWeekday finds the last occurrence of a weekday in a month.
func lastWeekday(year, month int, weekday time.Weekday) time.Time {
	date := time.Date(year, time.Month(month+1), 0, 0, 0, 0, 0, time.UTC)
	daysToSubtract := int(date.Weekday() - weekday)
	if daysToSubtract < 0 {
		daysToSubtract += 7
	}
	return date.AddDate(0, 0, -daysToSubtract)
}

// mondayOnOrBefore finds the Monday on or before the given day of month.
func mondayOnOrBefore(year, month, dayOfMonth int) time.Time {
	date := time.Date(year, time.Month(month), dayOfMonth, 0, 0, 0, 0, time.UTC)
	daysBack := int(date.Weekday() - time.Monday)
	if daysBack < 0 {
		daysBack += 7
	}
	return date.AddDate(0, 0, -daysBack)
}

// observeNearestWeekday moves a weekend date to the nearest weekday,
// Saturday back to Friday and Sunday forward to Monday.
func observeNearestWeekday(date time.Time) time.Time {
	switch date.Weekday() {
	case time.Saturday:
		return date.AddDate(0, 0, -1)
	case time.Sunday:
		return date.AddDate(0, 0, 1)
	default:
		return date
	}
}

// observeNextWeekday moves a weekend date forward to the next weekday.
func observeNextWeekday(date time.Time) time.Time {
	switch date.Weekday() {
	case time.Saturday:
		return date.AddDate(0, 0, 2)
	case time.Sunday:
		return date.AddDate(0, 0, 1)
	default:
		return date
	}
}

var _ TradingCalendar = (*CalendarServiceImpl)(nil)
