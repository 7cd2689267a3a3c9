package handlers

import (
	"testing"
	"time"
)

func TestDateRangeIsInclusiveAndAscending(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	end := time.Date(2024, 3, 8, 2, 0, 0, 0, time.UTC)

	dates := dateRange(start, end)
	if len(dates) != 8 {
		t.Fatalf("expected 8 days, got %d: %v", len(dates), dates)
	}
	if dates[0] != "2024-03-01" || dates[7] != "2024-03-08" {
		t.Fatalf("unexpected bounds: %v", dates)
	}

	seen := make(map[string]bool)
	for i, date := range dates {
		if seen[date] {
			t.Fatalf("date %s appears twice", date)
		}
		seen[date] = true
		if i > 0 && dates[i-1] >= date {
			t.Fatalf("dates not ascending: %v", dates)
		}
	}
}

func TestDateRangeSingleDay(t *testing.T) {
	day := time.Date(2024, 7, 4, 12, 0, 0, 0, time.UTC)
	dates := dateRange(day, day)
	if len(dates) != 1 || dates[0] != "2024-07-04" {
		t.Fatalf("expected single day 2024-07-04, got %v", dates)
	}
}

func TestFillDailySeriesZeroFillsMissingDays(t *testing.T) {
	dates := []string{"2024-03-01", "2024-03-02", "2024-03-03"}
	rows := []dailySalesRow{
		{Date: "2024-03-02", Sales: 4, Revenue: 310.5},
	}

	series := fillDailySeries(dates, rows)
	if len(series) != 3 {
		t.Fatalf("expected 3 points, got %d", len(series))
	}
	if series[0].Sales != 0 || series[0].Revenue != 0 {
		t.Fatalf("expected zero-filled first day, got %+v", series[0])
	}
	if series[1].Sales != 4 || series[1].Revenue != 310.5 {
		t.Fatalf("expected aggregated middle day, got %+v", series[1])
	}
	if series[2].Date != "2024-03-03" {
		t.Fatalf("expected ordered dates, got %+v", series)
	}
}

func TestFillDailySeriesEmptyHistory(t *testing.T) {
	series := fillDailySeries([]string{"2024-01-01", "2024-01-02"}, nil)
	for _, point := range series {
		if point.Sales != 0 || point.Revenue != 0 {
			t.Fatalf("expected zeros with no orders, got %+v", point)
		}
	}
}
