package services

import (
	"context"
	"fmt"
	"time"

	"github.com/pixelpanic/pixel-panic-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Dashboard ranges
const (
	RangeToday     = "today"
	RangeYesterday = "yesterday"
	RangeCustom    = "custom"
)

const maxTZOffsetMinutes = 14 * 60

// DashboardQuery selects the reporting window. TZOffsetMinutes follows the
// browser convention: the minutes to add to local time to get UTC.
type DashboardQuery struct {
	Range           string
	From            string
	To              string
	TZOffsetMinutes int
}

// DashboardStats is the admin overview for one window
type DashboardStats struct {
	RangeStart    time.Time       `json:"range_start"`
	RangeEnd      time.Time       `json:"range_end"`
	Revenue       decimal.Decimal `json:"revenue"`
	TotalCosts    decimal.Decimal `json:"total_costs"`
	Profit        decimal.Decimal `json:"profit"`
	CompletedJobs int64           `json:"completed_jobs"`
	PendingOrders int64           `json:"pending_orders"`
	// nil when no order in the window has both timestamps
	AverageRepairMinutes *float64       `json:"average_repair_minutes"`
	RecentOrders         []models.Order `json:"recent_orders"`
}

// TechnicianPerformance is computed from the technician's orders
type TechnicianPerformance struct {
	CompletedJobs        int64           `json:"completed_jobs"`
	ActiveJobs           int64           `json:"active_jobs"`
	Revenue              decimal.Decimal `json:"revenue"`
	AverageRepairMinutes *float64        `json:"average_repair_minutes"`
}

// DashboardService aggregates orders for the admin console
type DashboardService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewDashboardService creates a dashboard service
func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db, now: time.Now}
}

// ResolveRange converts q into a half-open UTC interval [start, end)
func ResolveRange(q DashboardQuery, now time.Time) (time.Time, time.Time, error) {
	if q.TZOffsetMinutes < -maxTZOffsetMinutes || q.TZOffsetMinutes > maxTZOffsetMinutes {
		return time.Time{}, time.Time{}, ValidationError("Invalid request data", map[string]string{"tzOffset": "Offset out of range"})
	}

	loc := time.FixedZone("client", -q.TZOffsetMinutes*60)
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	switch q.Range {
	case "", RangeToday:
		return today.UTC(), today.AddDate(0, 0, 1).UTC(), nil
	case RangeYesterday:
		return today.AddDate(0, 0, -1).UTC(), today.UTC(), nil
	case RangeCustom:
		fields := map[string]string{}
		from, err := time.ParseInLocation("2006-01-02", q.From, loc)
		if err != nil {
			fields["from"] = "Use the YYYY-MM-DD format"
		}
		to, err := time.ParseInLocation("2006-01-02", q.To, loc)
		if err != nil {
			fields["to"] = "Use the YYYY-MM-DD format"
		}
		if len(fields) == 0 && to.Before(from) {
			fields["to"] = "Must not be before from"
		}
		if len(fields) > 0 {
			return time.Time{}, time.Time{}, ValidationError("Invalid date range", fields)
		}
		return from.UTC(), to.AddDate(0, 0, 1).UTC(), nil
	default:
		return time.Time{}, time.Time{}, ValidationError("Invalid request data", map[string]string{"range": "Must be today, yesterday or custom"})
	}
}

type completedRow struct {
	TotalAmount       decimal.Decimal
	PartPrice         decimal.NullDecimal
	TravelCosts       decimal.NullDecimal
	MiscellaneousCost decimal.NullDecimal
	ConfirmedAt       *time.Time
	CompletedAt       *time.Time
}

func (r completedRow) order() models.Order {
	return models.Order{
		TotalAmount:       r.TotalAmount,
		PartPrice:         r.PartPrice,
		TravelCosts:       r.TravelCosts,
		MiscellaneousCost: r.MiscellaneousCost,
	}
}

// averageRepairMinutes averages confirmed_at -> completed_at over rows that have both
func averageRepairMinutes(rows []completedRow) *float64 {
	var total time.Duration
	var samples int
	for _, r := range rows {
		if r.ConfirmedAt == nil || r.CompletedAt == nil || !r.CompletedAt.After(*r.ConfirmedAt) {
			continue
		}
		total += r.CompletedAt.Sub(*r.ConfirmedAt)
		samples++
	}
	if samples == 0 {
		return nil
	}
	avg := total.Minutes() / float64(samples)
	return &avg
}

const completedColumns = "total_amount, part_price, travel_costs, miscellaneous_cost, confirmed_at, completed_at"

// Stats computes the dashboard for q
func (s *DashboardService) Stats(ctx context.Context, q DashboardQuery) (*DashboardStats, error) {
	start, end, err := ResolveRange(q, s.now())
	if err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)

	var rows []completedRow
	err = db.Model(&models.Order{}).
		Select(completedColumns).
		Where("status = ? AND completed_at >= ? AND completed_at < ?", models.OrderCompleted, start, end).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load completed orders: %w", err)
	}

	stats := &DashboardStats{
		RangeStart:    start,
		RangeEnd:      end,
		Revenue:       decimal.Zero,
		TotalCosts:    decimal.Zero,
		CompletedJobs: int64(len(rows)),
	}
	for _, r := range rows {
		o := r.order()
		stats.Revenue = stats.Revenue.Add(o.TotalAmount)
		stats.TotalCosts = stats.TotalCosts.Add(o.TotalCosts())
	}
	stats.Profit = stats.Revenue.Sub(stats.TotalCosts)
	stats.AverageRepairMinutes = averageRepairMinutes(rows)

	if err := db.Model(&models.Order{}).Where("status IN ?", models.PendingOrderStatuses).Count(&stats.PendingOrders).Error; err != nil {
		return nil, fmt.Errorf("failed to count pending orders: %w", err)
	}

	if err := db.Preload("Customer").Order("created_at DESC").Limit(10).Find(&stats.RecentOrders).Error; err != nil {
		return nil, fmt.Errorf("failed to load recent orders: %w", err)
	}

	return stats, nil
}

// TechnicianPerformance computes per-technician figures for the given users
func (s *DashboardService) TechnicianPerformance(ctx context.Context, technicianIDs []string) (map[string]*TechnicianPerformance, error) {
	out := make(map[string]*TechnicianPerformance, len(technicianIDs))
	for _, id := range technicianIDs {
		out[id] = &TechnicianPerformance{Revenue: decimal.Zero}
	}
	if len(technicianIDs) == 0 {
		return out, nil
	}

	var rows []struct {
		TechnicianID string
		Status       models.OrderStatus
		TotalAmount  decimal.Decimal
		ConfirmedAt  *time.Time
		CompletedAt  *time.Time
	}
	err := s.db.WithContext(ctx).Model(&models.Order{}).
		Select("technician_id, status, total_amount, confirmed_at, completed_at").
		Where("technician_id IN ?", technicianIDs).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load technician orders: %w", err)
	}

	completed := make(map[string][]completedRow)
	for _, r := range rows {
		perf, ok := out[r.TechnicianID]
		if !ok {
			continue
		}
		switch {
		case r.Status == models.OrderCompleted:
			perf.CompletedJobs++
			perf.Revenue = perf.Revenue.Add(r.TotalAmount)
			completed[r.TechnicianID] = append(completed[r.TechnicianID], completedRow{
				TotalAmount: r.TotalAmount,
				ConfirmedAt: r.ConfirmedAt,
				CompletedAt: r.CompletedAt,
			})
		case !r.Status.Terminal():
			perf.ActiveJobs++
		}
	}
	for id, rs := range completed {
		out[id].AverageRepairMinutes = averageRepairMinutes(rs)
	}
	return out, nil
}
