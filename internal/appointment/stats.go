package appointment

import (
	"context"
	"fmt"
)

const trendLabelLayout = "Jan 02"

type KPI struct {
	TotalAppointments int `json:"total_appointments"`
	TodaySchedule     int `json:"today_schedule"`
	TotalCompleted    int `json:"total_completed"`
	TotalCancelled    int `json:"total_cancelled"`
}

type TrendPoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type StatusShare struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

type DashboardStats struct {
	KPI                KPI           `json:"kpi"`
	WeeklyTrend        []TrendPoint  `json:"weekly_trend"`
	StatusDistribution []StatusShare `json:"status_distribution"`
}

// Stats builds the admin dashboard: totals, a seven day trend ending today
// and the share of pending, completed and cancelled appointments.
func (s *Service) Stats(ctx context.Context) (*DashboardStats, error) {
	byStatus, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}

	now := s.now()
	from := now.AddDate(0, 0, -6).Format(dateLayout)
	today := now.Format(dateLayout)

	byDate, err := s.repo.CountByDate(ctx, from, today)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}

	total := 0
	for _, n := range byStatus {
		total += n
	}

	out := &DashboardStats{
		KPI: KPI{
			TotalAppointments: total,
			TodaySchedule:     byDate[today],
			TotalCompleted:    byStatus[StatusCompleted],
			TotalCancelled:    byStatus[StatusCancelled],
		},
		WeeklyTrend:        make([]TrendPoint, 0, 7),
		StatusDistribution: []StatusShare{},
	}

	for i := 6; i >= 0; i-- {
		day := now.AddDate(0, 0, -i)
		out.WeeklyTrend = append(out.WeeklyTrend, TrendPoint{
			Date:  day.Format(trendLabelLayout),
			Count: byDate[day.Format(dateLayout)],
		})
	}

	for _, share := range []StatusShare{
		{Name: "Pending", Value: byStatus[StatusPending]},
		{Name: "Completed", Value: byStatus[StatusCompleted]},
		{Name: "Cancelled", Value: byStatus[StatusCancelled]},
	} {
		if share.Value > 0 {
			out.StatusDistribution = append(out.StatusDistribution, share)
		}
	}

	return out, nil
}
