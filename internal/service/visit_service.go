package service

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/visitorlog/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrDuplicateVisit 在同一访客当日已有未离场记录时返回
	ErrDuplicateVisit = errors.New("duplicate open visit")
	// ErrVisitNotFound 在指定访问记录不存在时返回
	ErrVisitNotFound = errors.New("visit not found")
	// ErrVisitAlreadyClosed 在对已关闭的访问记录重复操作时返回
	ErrVisitAlreadyClosed = errors.New("visit already closed")
	// ErrInvalidVisitor 在必填字段缺失时返回
	ErrInvalidVisitor = errors.New("invalid visitor input")
)

// VisitService 负责访问记录的完整生命周期：入场、离场、日界清扫与强制关闭。
// 入场重复校验与随后的写入必须构成一个原子单元，因此所有写路径都先持有
// 服务级互斥锁，再在事务内完成读写；查询路径不加锁。
type VisitService struct {
	db  *gorm.DB
	mu  sync.Mutex
	now func() time.Time
}

// VisitInput 定义入场登记时的输入对象
type VisitInput struct {
	Company  string
	Name     string
	Position string
	Contact  string
	Location string
	Purpose  string
	Manager  string
}

// NewVisitService 构造 VisitService
func NewVisitService(gdb *gorm.DB) *VisitService {
	return &VisitService{db: gdb, now: time.Now}
}

// WithClock 允许在测试中替换时钟。
func (s *VisitService) WithClock(now func() time.Time) *VisitService {
	if now != nil {
		s.now = now
	}
	return s
}

// CheckIn 登记一次入场：先做重复校验，通过后写入访问记录并整体覆盖访客档案。
// 校验失败或重复时不产生任何写入。
func (s *VisitService) CheckIn(input VisitInput) (*db.Visit, error) {
	input = trimVisitInput(input)
	if err := validateVisitInput(input); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	date := now.Format(db.DateLayout)
	clock := now.Format(db.ClockLayout)

	visit := db.Visit{
		Date:        date,
		Company:     input.Company,
		Name:        input.Name,
		Position:    input.Position,
		Contact:     input.Contact,
		Location:    input.Location,
		Purpose:     input.Purpose,
		Manager:     input.Manager,
		CheckInTime: clock,
		Status:      db.VisitStatusNormal,
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&db.Visit{}).
			Where("date = ? AND company = ? AND name = ? AND position = ? AND check_out_time IS NULL",
				date, input.Company, input.Name, input.Position).
			Count(&count).Error; err != nil {
			return fmt.Errorf("check duplicate visit: %w", err)
		}
		if count > 0 {
			return ErrDuplicateVisit
		}

		if err := tx.Create(&visit).Error; err != nil {
			return fmt.Errorf("create visit: %w", err)
		}

		profile := db.VisitorProfile{
			Company:       input.Company,
			Name:          input.Name,
			Position:      input.Position,
			Contact:       input.Contact,
			LastVisitDate: date,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "company"}, {Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"position", "contact", "last_visit_date", "updated_at"}),
		}).Create(&profile).Error; err != nil {
			return fmt.Errorf("upsert visitor profile: %w", err)
		}

		return nil
	}); err != nil {
		return nil, err
	}

	return &visit, nil
}

// CheckOut 记录正常离场时刻。对已离场的记录返回 ErrVisitAlreadyClosed，
// 不覆盖既有离场时间。
func (s *VisitService) CheckOut(id uint) (*db.Visit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clock := s.now().Format(db.ClockLayout)

	var visit db.Visit
	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&visit, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrVisitNotFound
			}
			return fmt.Errorf("find visit: %w", err)
		}
		if !visit.Open() {
			return ErrVisitAlreadyClosed
		}

		visit.CheckOutTime = &clock
		if err := tx.Model(&db.Visit{}).Where("id = ?", visit.ID).
			Update("check_out_time", clock).Error; err != nil {
			return fmt.Errorf("update checkout time: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return &visit, nil
}

// ForceClose 将一条未离场记录标记为 MISSED 并留下审计记录，是日界清扫的手工对应物。
// reason 为空时按手工处理记录。
func (s *VisitService) ForceClose(id uint, originalDate, reason string) (*db.Visit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(reason) == "" {
		reason = db.MissedReasonManual
	}

	now := s.now()

	var visit db.Visit
	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&visit, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrVisitNotFound
			}
			return fmt.Errorf("find visit: %w", err)
		}
		if !visit.Open() {
			return ErrVisitAlreadyClosed
		}

		if strings.TrimSpace(originalDate) == "" {
			originalDate = visit.Date
		}

		return s.closeMissed(tx, &visit, now, originalDate, reason)
	}); err != nil {
		return nil, err
	}

	return &visit, nil
}

// ReconcilePreviousDay 关闭所有前一自然日仍未离场的记录，返回处理条数。
// 首次执行后前一日不再存在符合条件的记录，重复调用是空操作，可无条件重试。
func (s *VisitService) ReconcilePreviousDay() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	yesterday := now.AddDate(0, 0, -1).Format(db.DateLayout)

	closed := 0
	if err := s.db.Transaction(func(tx *gorm.DB) error {
		var stale []db.Visit
		if err := tx.Where("date = ? AND check_out_time IS NULL", yesterday).
			Find(&stale).Error; err != nil {
			return fmt.Errorf("list stale visits: %w", err)
		}

		for i := range stale {
			if err := s.closeMissed(tx, &stale[i], now, stale[i].Date, db.MissedReasonAuto); err != nil {
				return err
			}
			closed++
		}
		return nil
	}); err != nil {
		return 0, err
	}

	return closed, nil
}

// closeMissed 在事务内强制关闭一条记录并写入审计行。
// WHERE 条件带 check_out_time IS NULL 保护，确保同一记录只会被关闭一次。
func (s *VisitService) closeMissed(tx *gorm.DB, visit *db.Visit, now time.Time, originalDate, reason string) error {
	clock := now.Format(db.ClockLayout)

	result := tx.Model(&db.Visit{}).
		Where("id = ? AND check_out_time IS NULL", visit.ID).
		Updates(map[string]interface{}{
			"check_out_time": clock,
			"status":         db.VisitStatusMissed,
		})
	if result.Error != nil {
		return fmt.Errorf("close visit: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrVisitAlreadyClosed
	}

	visit.CheckOutTime = &clock
	visit.Status = db.VisitStatusMissed

	record := db.MissedCheckout{
		VisitID:      visit.ID,
		OriginalDate: originalDate,
		CheckoutDate: now.Format(db.DateLayout),
		Reason:       reason,
	}
	if err := tx.Create(&record).Error; err != nil {
		return fmt.Errorf("create missed checkout: %w", err)
	}

	return nil
}

// IsDuplicate 报告当日是否已存在同一访客的未离场记录。
// 与 CheckIn 内部的校验使用同一条件，供前端预检。
func (s *VisitService) IsDuplicate(company, name, position string) (bool, *db.Visit, error) {
	date := s.now().Format(db.DateLayout)

	var visit db.Visit
	err := s.db.Where("date = ? AND company = ? AND name = ? AND position = ? AND check_out_time IS NULL",
		date, strings.TrimSpace(company), strings.TrimSpace(name), strings.TrimSpace(position)).
		First(&visit).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, fmt.Errorf("check duplicate visit: %w", err)
	}

	return true, &visit, nil
}

func trimVisitInput(input VisitInput) VisitInput {
	input.Company = strings.TrimSpace(input.Company)
	input.Name = strings.TrimSpace(input.Name)
	input.Position = strings.TrimSpace(input.Position)
	input.Contact = strings.TrimSpace(input.Contact)
	input.Location = strings.TrimSpace(input.Location)
	input.Purpose = strings.TrimSpace(input.Purpose)
	input.Manager = strings.TrimSpace(input.Manager)
	return input
}

func validateVisitInput(input VisitInput) error {
	required := []struct {
		field string
		value string
	}{
		{"company", input.Company},
		{"name", input.Name},
		{"visit_location", input.Location},
		{"visit_purpose", input.Purpose},
		{"manager", input.Manager},
	}

	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidVisitor, r.field)
		}
	}

	return nil
}
