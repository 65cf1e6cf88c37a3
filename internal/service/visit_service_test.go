package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/visitorlog/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupVisitTestDB(t *testing.T) func() {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := gdb.AutoMigrate(&db.Visit{}, &db.MissedCheckout{}, &db.VisitorProfile{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	db.DB = gdb

	return func() {
		sqlDB, err := db.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
}

func fixedClock(t *testing.T, value string) func() time.Time {
	t.Helper()
	parsed, err := time.Parse(db.DateLayout+" "+db.ClockLayout, value)
	if err != nil {
		t.Fatalf("invalid clock value %q: %v", value, err)
	}
	return func() time.Time { return parsed }
}

func sampleInput() VisitInput {
	return VisitInput{
		Company:  "Acme",
		Name:     "Jane Doe",
		Position: "Engineer",
		Contact:  "010-1234-5678",
		Location: "1층 회의실",
		Purpose:  "미팅/회의",
		Manager:  "김태건",
	}
}

func TestCheckInRejectsDuplicate(t *testing.T) {
	cleanup := setupVisitTestDB(t)
	defer cleanup()

	svc := NewVisitService(db.DB).WithClock(fixedClock(t, "2025-03-11 09:00:00"))

	visit, err := svc.CheckIn(sampleInput())
	if err != nil {
		t.Fatalf("CheckIn returned error: %v", err)
	}
	if visit.ID == 0 {
		t.Fatal("expected visit to have ID")
	}
	if visit.Date != "2025-03-11" || visit.CheckInTime != "09:00:00" {
		t.Fatalf("unexpected visit timestamps: %s %s", visit.Date, visit.CheckInTime)
	}

	duplicate, existing, err := svc.IsDuplicate("Acme", "Jane Doe", "Engineer")
	if err != nil {
		t.Fatalf("IsDuplicate returned error: %v", err)
	}
	if !duplicate {
		t.Fatal("expected duplicate after check-in")
	}
	if existing.ID != visit.ID {
		t.Fatalf("expected existing visit %d, got %d", visit.ID, existing.ID)
	}

	if _, err := svc.CheckIn(sampleInput()); !errors.Is(err, ErrDuplicateVisit) {
		t.Fatalf("expected ErrDuplicateVisit, got %v", err)
	}

	// 重复入场被拒绝后不应留下任何多余记录
	var count int64
	if err := db.DB.Model(&db.Visit{}).Count(&count).Error; err != nil {
		t.Fatalf("failed to count visits: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 visit, got %d", count)
	}

	if _, err := svc.CheckOut(visit.ID); err != nil {
		t.Fatalf("CheckOut returned error: %v", err)
	}

	duplicate, _, err = svc.IsDuplicate("Acme", "Jane Doe", "Engineer")
	if err != nil {
		t.Fatalf("IsDuplicate returned error: %v", err)
	}
	if duplicate {
		t.Fatal("expected no duplicate after checkout")
	}
}

func TestCheckInValidatesRequiredFields(t *testing.T) {
	cleanup := setupVisitTestDB(t)
	defer cleanup()

	svc := NewVisitService(db.DB)

	input := sampleInput()
	input.Company = "  "

	if _, err := svc.CheckIn(input); !errors.Is(err, ErrInvalidVisitor) {
		t.Fatalf("expected ErrInvalidVisitor, got %v", err)
	}

	var count int64
	if err := db.DB.Model(&db.Visit{}).Count(&count).Error; err != nil {
		t.Fatalf("failed to count visits: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no visits after rejected input, got %d", count)
	}
}

func TestCheckInOverwritesProfile(t *testing.T) {
	cleanup := setupVisitTestDB(t)
	defer cleanup()

	svc := NewVisitService(db.DB).WithClock(fixedClock(t, "2025-03-11 09:00:00"))

	first, err := svc.CheckIn(sampleInput())
	if err != nil {
		t.Fatalf("CheckIn returned error: %v", err)
	}
	if _, err := svc.CheckOut(first.ID); err != nil {
		t.Fatalf("CheckOut returned error: %v", err)
	}

	svc.WithClock(fixedClock(t, "2025-03-12 10:00:00"))

	input := sampleInput()
	input.Position = "Senior Engineer"
	input.Contact = ""
	if _, err := svc.CheckIn(input); err != nil {
		t.Fatalf("second CheckIn returned error: %v", err)
	}

	profile, err := svc.LookupProfile("Acme", "Jane Doe")
	if err != nil {
		t.Fatalf("LookupProfile returned error: %v", err)
	}
	if profile == nil {
		t.Fatal("expected profile to exist")
	}
	if profile.Position != "Senior Engineer" {
		t.Fatalf("expected profile position to be overwritten, got %s", profile.Position)
	}
	// 整体覆盖：空联系方式同样覆盖旧值
	if profile.Contact != "" {
		t.Fatalf("expected contact to be overwritten with empty value, got %s", profile.Contact)
	}
	if profile.LastVisitDate != "2025-03-12" {
		t.Fatalf("unexpected last visit date %s", profile.LastVisitDate)
	}

	var count int64
	if err := db.DB.Model(&db.VisitorProfile{}).Count(&count).Error; err != nil {
		t.Fatalf("failed to count profiles: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single profile row, got %d", count)
	}
}

func TestCheckOutRejectsSecondCall(t *testing.T) {
	cleanup := setupVisitTestDB(t)
	defer cleanup()

	svc := NewVisitService(db.DB).WithClock(fixedClock(t, "2025-03-11 09:00:00"))

	visit, err := svc.CheckIn(sampleInput())
	if err != nil {
		t.Fatalf("CheckIn returned error: %v", err)
	}

	svc.WithClock(fixedClock(t, "2025-03-11 17:00:00"))

	closed, err := svc.CheckOut(visit.ID)
	if err != nil {
		t.Fatalf("CheckOut returned error: %v", err)
	}
	if closed.CheckOutTime == nil || *closed.CheckOutTime != "17:00:00" {
		t.Fatalf("unexpected checkout time: %v", closed.CheckOutTime)
	}
	if closed.Status != db.VisitStatusNormal {
		t.Fatalf("expected NORMAL status after checkout, got %s", closed.Status)
	}

	svc.WithClock(fixedClock(t, "2025-03-11 18:00:00"))

	if _, err := svc.CheckOut(visit.ID); !errors.Is(err, ErrVisitAlreadyClosed) {
		t.Fatalf("expected ErrVisitAlreadyClosed, got %v", err)
	}

	var reloaded db.Visit
	if err := db.DB.First(&reloaded, visit.ID).Error; err != nil {
		t.Fatalf("failed to reload visit: %v", err)
	}
	if *reloaded.CheckOutTime != "17:00:00" {
		t.Fatalf("expected checkout time to stay 17:00:00, got %s", *reloaded.CheckOutTime)
	}

	if _, err := svc.CheckOut(9999); !errors.Is(err, ErrVisitNotFound) {
		t.Fatalf("expected ErrVisitNotFound, got %v", err)
	}
}

func TestConcurrentCheckInSingleWinner(t *testing.T) {
	cleanup := setupVisitTestDB(t)
	defer cleanup()

	svc := NewVisitService(db.DB).WithClock(fixedClock(t, "2025-03-11 09:00:00"))

	var wg sync.WaitGroup
	results := make(chan error, 2)

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CheckIn(sampleInput())
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded, rejected := 0, 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrDuplicateVisit):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if succeeded != 1 || rejected != 1 {
		t.Fatalf("expected exactly one winner, got %d successes and %d rejections", succeeded, rejected)
	}
}

func TestReconcilePreviousDayIsIdempotent(t *testing.T) {
	cleanup := setupVisitTestDB(t)
	defer cleanup()

	stale := db.Visit{
		Date:        "2025-03-10",
		Company:     "Acme",
		Name:        "Jane Doe",
		Position:    "Engineer",
		Location:    "1층 현장",
		Purpose:     "설비 점검",
		Manager:     "김태건",
		CheckInTime: "15:00:00",
		Status:      db.VisitStatusNormal,
	}
	if err := db.DB.Create(&stale).Error; err != nil {
		t.Fatalf("failed to seed stale visit: %v", err)
	}

	svc := NewVisitService(db.DB).WithClock(fixedClock(t, "2025-03-11 08:00:00"))

	closed, err := svc.ReconcilePreviousDay()
	if err != nil {
		t.Fatalf("ReconcilePreviousDay returned error: %v", err)
	}
	if closed != 1 {
		t.Fatalf("expected 1 closed visit, got %d", closed)
	}

	var reloaded db.Visit
	if err := db.DB.First(&reloaded, stale.ID).Error; err != nil {
		t.Fatalf("failed to reload visit: %v", err)
	}
	if reloaded.Status != db.VisitStatusMissed {
		t.Fatalf("expected MISSED status, got %s", reloaded.Status)
	}
	if reloaded.CheckOutTime == nil {
		t.Fatal("expected checkout time to be set")
	}

	records, err := svc.MissedCheckoutRecords()
	if err != nil {
		t.Fatalf("MissedCheckoutRecords returned error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 missed checkout, got %d", len(records))
	}
	if records[0].Reason != db.MissedReasonAuto {
		t.Fatalf("expected reason %s, got %s", db.MissedReasonAuto, records[0].Reason)
	}
	if records[0].OriginalDate != "2025-03-10" || records[0].CheckoutDate != "2025-03-11" {
		t.Fatalf("unexpected audit dates: %s %s", records[0].OriginalDate, records[0].CheckoutDate)
	}

	// 再次清扫不应产生新的审计记录
	closed, err = svc.ReconcilePreviousDay()
	if err != nil {
		t.Fatalf("second ReconcilePreviousDay returned error: %v", err)
	}
	if closed != 0 {
		t.Fatalf("expected no visits closed on rerun, got %d", closed)
	}

	var count int64
	if err := db.DB.Model(&db.MissedCheckout{}).Count(&count).Error; err != nil {
		t.Fatalf("failed to count missed checkouts: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 missed checkout after rerun, got %d", count)
	}
}

func TestForceClose(t *testing.T) {
	cleanup := setupVisitTestDB(t)
	defer cleanup()

	svc := NewVisitService(db.DB).WithClock(fixedClock(t, "2025-03-11 09:00:00"))

	visit, err := svc.CheckIn(sampleInput())
	if err != nil {
		t.Fatalf("CheckIn returned error: %v", err)
	}

	closed, err := svc.ForceClose(visit.ID, "", "")
	if err != nil {
		t.Fatalf("ForceClose returned error: %v", err)
	}
	if closed.Status != db.VisitStatusMissed {
		t.Fatalf("expected MISSED status, got %s", closed.Status)
	}

	records, err := svc.MissedCheckoutRecords()
	if err != nil {
		t.Fatalf("MissedCheckoutRecords returned error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 missed checkout, got %d", len(records))
	}
	if records[0].Reason != db.MissedReasonManual {
		t.Fatalf("expected manual reason, got %s", records[0].Reason)
	}
	if records[0].OriginalDate != visit.Date {
		t.Fatalf("expected original date to default to visit date, got %s", records[0].OriginalDate)
	}

	if _, err := svc.ForceClose(visit.ID, "", ""); !errors.Is(err, ErrVisitAlreadyClosed) {
		t.Fatalf("expected ErrVisitAlreadyClosed, got %v", err)
	}

	var count int64
	if err := db.DB.Model(&db.MissedCheckout{}).Count(&count).Error; err != nil {
		t.Fatalf("failed to count missed checkouts: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected audit count unchanged, got %d", count)
	}

	if _, err := svc.ForceClose(9999, "", ""); !errors.Is(err, ErrVisitNotFound) {
		t.Fatalf("expected ErrVisitNotFound, got %v", err)
	}
}

func TestCurrentVisitorsReconcilesFirst(t *testing.T) {
	cleanup := setupVisitTestDB(t)
	defer cleanup()

	stale := db.Visit{
		Date:        "2025-03-10",
		Company:     "Acme",
		Name:        "Old Visitor",
		Location:    "2층 현장",
		Purpose:     "현장 방문",
		Manager:     "이성민",
		CheckInTime: "14:00:00",
		Status:      db.VisitStatusNormal,
	}
	if err := db.DB.Create(&stale).Error; err != nil {
		t.Fatalf("failed to seed stale visit: %v", err)
	}

	svc := NewVisitService(db.DB).WithClock(fixedClock(t, "2025-03-11 09:00:00"))

	if _, err := svc.CheckIn(sampleInput()); err != nil {
		t.Fatalf("CheckIn returned error: %v", err)
	}

	visits, err := svc.CurrentVisitors()
	if err != nil {
		t.Fatalf("CurrentVisitors returned error: %v", err)
	}
	if len(visits) != 1 {
		t.Fatalf("expected only today's visits, got %d", len(visits))
	}
	if visits[0].Date != "2025-03-11" {
		t.Fatalf("unexpected visit date %s", visits[0].Date)
	}

	// 读取路径顺带完成了日界清扫
	var reloaded db.Visit
	if err := db.DB.First(&reloaded, stale.ID).Error; err != nil {
		t.Fatalf("failed to reload stale visit: %v", err)
	}
	if reloaded.Status != db.VisitStatusMissed || reloaded.CheckOutTime == nil {
		t.Fatalf("expected stale visit closed as MISSED, got %s", reloaded.Status)
	}
}

func TestVisitsByDateOrdering(t *testing.T) {
	cleanup := setupVisitTestDB(t)
	defer cleanup()

	visits := []db.Visit{
		{Date: "2025-03-11", Company: "Acme", Name: "Early", Location: "1층 로비", Purpose: "미팅/회의", Manager: "김태건", CheckInTime: "08:30:00", Status: db.VisitStatusNormal},
		{Date: "2025-03-11", Company: "Acme", Name: "Late", Location: "1층 로비", Purpose: "미팅/회의", Manager: "김태건", CheckInTime: "11:10:00", Status: db.VisitStatusNormal},
	}
	for i := range visits {
		if err := db.DB.Create(&visits[i]).Error; err != nil {
			t.Fatalf("failed to seed visit: %v", err)
		}
	}

	svc := NewVisitService(db.DB)

	listed, err := svc.VisitsByDate("2025-03-11")
	if err != nil {
		t.Fatalf("VisitsByDate returned error: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 visits, got %d", len(listed))
	}
	if listed[0].Name != "Late" {
		t.Fatalf("expected most recent check-in first, got %s", listed[0].Name)
	}

	if _, err := svc.VisitsByDate("11-03-2025"); !errors.Is(err, ErrInvalidVisitor) {
		t.Fatalf("expected ErrInvalidVisitor for bad date, got %v", err)
	}
}

func TestVisitsByMonthCalendarBoundaries(t *testing.T) {
	cleanup := setupVisitTestDB(t)
	defer cleanup()

	dates := []string{"2025-01-31", "2025-02-01", "2025-02-28", "2025-03-01"}
	for _, date := range dates {
		visit := db.Visit{
			Date: date, Company: "Acme", Name: "Visitor " + date,
			Location: "1층 현장", Purpose: "현장 점검", Manager: "김태건",
			CheckInTime: "10:00:00", Status: db.VisitStatusNormal,
		}
		if err := db.DB.Create(&visit).Error; err != nil {
			t.Fatalf("failed to seed visit: %v", err)
		}
	}

	svc := NewVisitService(db.DB)

	february, err := svc.VisitsByMonth(2025, 2)
	if err != nil {
		t.Fatalf("VisitsByMonth returned error: %v", err)
	}
	if len(february) != 2 {
		t.Fatalf("expected 2 visits in February, got %d", len(february))
	}
	// 日期倒序
	if february[0].Date != "2025-02-28" || february[1].Date != "2025-02-01" {
		t.Fatalf("unexpected ordering: %s, %s", february[0].Date, february[1].Date)
	}

	if _, err := svc.VisitsByMonth(2025, 13); !errors.Is(err, ErrInvalidVisitor) {
		t.Fatalf("expected ErrInvalidVisitor for month 13, got %v", err)
	}
}
