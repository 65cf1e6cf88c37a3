package db

import "time"

const (
	// DateLayout 是访问日期的存储格式（自然日）。
	DateLayout = "2006-01-02"
	// ClockLayout 是入离场时刻的存储格式（仅时分秒，与 Date 配对使用）。
	ClockLayout = "15:04:05"
)

const (
	// VisitStatusNormal 表示正常离场（或尚未离场）的访问记录。
	VisitStatusNormal = "NORMAL"
	// VisitStatusMissed 表示被系统或管理员强制关闭的访问记录。
	VisitStatusMissed = "MISSED"
)

// Visit 记录一次到访：入场时创建，离场（或被强制关闭）时写入 CheckOutTime。
// CheckOutTime 为 nil 表示访客仍在场内；记录只会被关闭一次，之后不再变更。
// 同一 (Date, Company, Name, Position) 同时最多存在一条未关闭的记录，由服务层保证。
type Visit struct {
	ID           uint    `gorm:"primaryKey"`
	Date         string  `gorm:"size:10;not null;index:idx_visits_date"`
	Company      string  `gorm:"size:100;not null;index"`
	Name         string  `gorm:"size:100;not null"`
	Position     string  `gorm:"size:100"`
	Contact      string  `gorm:"size:100"`
	Location     string  `gorm:"size:100;not null"`
	Purpose      string  `gorm:"size:100;not null"`
	Manager      string  `gorm:"size:100;not null"`
	CheckInTime  string  `gorm:"size:8;not null"`
	CheckOutTime *string `gorm:"size:8"`
	Status       string  `gorm:"size:10;not null;default:NORMAL"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName 指定自定义表名。
func (Visit) TableName() string {
	return "visits"
}

// Open 报告该记录是否仍未关闭。
func (v Visit) Open() bool {
	return v.CheckOutTime == nil
}

const (
	// MissedReasonAuto 表示日界清扫自动关闭。
	MissedReasonAuto = "auto_checkout"
	// MissedReasonManual 表示管理员手工关闭。
	MissedReasonManual = "manual_checkout"
)

// MissedCheckout 是强制关闭的审计记录：每条被强制关闭的 Visit 恰好产生一条，
// 创建后不可变更、不可删除。
type MissedCheckout struct {
	ID           uint   `gorm:"primaryKey"`
	VisitID      uint   `gorm:"not null;index"`
	Visit        Visit  `gorm:"foreignKey:VisitID"`
	OriginalDate string `gorm:"size:10;not null;index"`
	CheckoutDate string `gorm:"size:10;not null"`
	Reason       string `gorm:"size:50;not null"`
	CreatedAt    time.Time
}

// TableName 指定自定义表名。
func (MissedCheckout) TableName() string {
	return "missed_checkouts"
}

// VisitorProfile 按 (Company, Name) 保存最近一次到访的联系信息，用于入场表单自动填充。
// 每次入场整体覆盖，不做字段级合并。
type VisitorProfile struct {
	ID            uint   `gorm:"primaryKey"`
	Company       string `gorm:"size:100;not null;index:idx_profiles_identity,unique"`
	Name          string `gorm:"size:100;not null;index:idx_profiles_identity,unique"`
	Position      string `gorm:"size:100"`
	Contact       string `gorm:"size:100"`
	LastVisitDate string `gorm:"size:10;not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName 指定自定义表名。
func (VisitorProfile) TableName() string {
	return "visitor_profiles"
}
