package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/visitorlog/internal/db"
	"gorm.io/gorm"
)

// MissedCheckoutRecord 是审计记录与对应访问记录拼合后的查询结果。
type MissedCheckoutRecord struct {
	ID           uint
	VisitID      uint
	Company      string
	Name         string
	Position     string
	Location     string
	CheckInTime  string
	OriginalDate string
	CheckoutDate string
	Reason       string
}

// CurrentVisitors 返回今日全部访问记录（含已离场），按入场时间倒序。
// 读取前先执行日界清扫，保证结果中不含跨日遗留的未离场记录。
func (s *VisitService) CurrentVisitors() ([]db.Visit, error) {
	if _, err := s.ReconcilePreviousDay(); err != nil {
		return nil, err
	}

	today := s.now().Format(db.DateLayout)
	return s.VisitsByDate(today)
}

// VisitsByDate 返回指定日期的访问记录，按入场时间倒序。
func (s *VisitService) VisitsByDate(date string) ([]db.Visit, error) {
	if _, err := time.Parse(db.DateLayout, date); err != nil {
		return nil, fmt.Errorf("%w: invalid date %q", ErrInvalidVisitor, date)
	}

	var visits []db.Visit
	if err := s.db.Where("date = ?", date).
		Order("check_in_time DESC").
		Find(&visits).Error; err != nil {
		return nil, fmt.Errorf("list visits by date: %w", err)
	}
	return visits, nil
}

// VisitsByMonth 返回指定自然月的访问记录，按日期、入场时间倒序。
// 月末边界按真实日历计算，短月不会混入下月记录。
func (s *VisitService) VisitsByMonth(year, month int) ([]db.Visit, error) {
	start, end, err := monthRange(year, month)
	if err != nil {
		return nil, err
	}

	var visits []db.Visit
	if err := s.db.Where("date >= ? AND date < ?", start, end).
		Order("date DESC, check_in_time DESC").
		Find(&visits).Error; err != nil {
		return nil, fmt.Errorf("list visits by month: %w", err)
	}
	return visits, nil
}

// OpenVisitsByDate 返回指定日期仍未离场的记录，按入场时间倒序。
func (s *VisitService) OpenVisitsByDate(date string) ([]db.Visit, error) {
	var visits []db.Visit
	if err := s.db.Where("date = ? AND check_out_time IS NULL", date).
		Order("check_in_time DESC").
		Find(&visits).Error; err != nil {
		return nil, fmt.Errorf("list open visits: %w", err)
	}
	return visits, nil
}

// LookupProfile 返回 (company, name) 最近一次到访的档案，未找到时返回 nil。
func (s *VisitService) LookupProfile(company, name string) (*db.VisitorProfile, error) {
	var profile db.VisitorProfile
	err := s.db.Where("company = ? AND name = ?", company, name).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup visitor profile: %w", err)
	}
	return &profile, nil
}

// MissedCheckoutRecords 返回全部强制关闭的审计记录，按处理日期、入场时间倒序。
func (s *VisitService) MissedCheckoutRecords() ([]MissedCheckoutRecord, error) {
	var records []MissedCheckoutRecord
	if err := s.missedCheckoutQuery().
		Order("missed_checkouts.checkout_date DESC, visits.check_in_time DESC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list missed checkouts: %w", err)
	}
	return records, nil
}

// MissedCheckoutsByMonth 返回原始访问日期落在指定自然月内的审计记录。
func (s *VisitService) MissedCheckoutsByMonth(year, month int) ([]MissedCheckoutRecord, error) {
	start, end, err := monthRange(year, month)
	if err != nil {
		return nil, err
	}

	var records []MissedCheckoutRecord
	if err := s.missedCheckoutQuery().
		Where("missed_checkouts.original_date >= ? AND missed_checkouts.original_date < ?", start, end).
		Order("missed_checkouts.original_date DESC, visits.check_in_time DESC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list missed checkouts by month: %w", err)
	}
	return records, nil
}

func (s *VisitService) missedCheckoutQuery() *gorm.DB {
	return s.db.Model(&db.MissedCheckout{}).
		Select(`missed_checkouts.id AS id,
			missed_checkouts.visit_id AS visit_id,
			visits.company AS company,
			visits.name AS name,
			visits.position AS position,
			visits.location AS location,
			visits.check_in_time AS check_in_time,
			missed_checkouts.original_date AS original_date,
			missed_checkouts.checkout_date AS checkout_date,
			missed_checkouts.reason AS reason`).
		Joins("JOIN visits ON visits.id = missed_checkouts.visit_id")
}

// monthRange 返回 [当月首日, 次月首日) 的日期字符串区间。
func monthRange(year, month int) (string, string, error) {
	if year < 1 || month < 1 || month > 12 {
		return "", "", fmt.Errorf("%w: invalid month %d-%d", ErrInvalidVisitor, year, month)
	}

	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	return start.Format(db.DateLayout), end.Format(db.DateLayout), nil
}
