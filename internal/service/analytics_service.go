package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/visitorlog/internal/db"
	"gorm.io/gorm"
)

// VisitAnalyticsService 基于访问记录计算统计数据，只读，不参与生命周期写入。
type VisitAnalyticsService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewVisitAnalyticsService 构造 VisitAnalyticsService
func NewVisitAnalyticsService(gdb *gorm.DB) *VisitAnalyticsService {
	return &VisitAnalyticsService{db: gdb, now: time.Now}
}

// WithClock 允许在测试中替换时钟。
func (s *VisitAnalyticsService) WithClock(now func() time.Time) *VisitAnalyticsService {
	if now != nil {
		s.now = now
	}
	return s
}

// LongestVisit 描述某业体累计停留最久的一次正常访问。
type LongestVisit struct {
	Name            string
	Position        string
	DurationSeconds int64
}

// CompanyAnalytics 汇总业体维度的访问统计。
// MISSED 记录的离场时间是清扫写入的产物而非真实离场，不计入时长统计。
type CompanyAnalytics struct {
	Company              string
	VisitCount           int
	CurrentOpenCount     int
	TotalDurationSeconds int64
	Longest              *LongestVisit
}

// PurposeCount 描述到访目的的出现次数。
type PurposeCount struct {
	Purpose    string
	VisitCount int
}

// CompanyAnalytics 计算全量访问记录的业体统计：访问次数、今日在场人数、
// 正常访问累计时长与最长一次访问。结果按访问次数倒序，同次数按业体名排序。
func (s *VisitAnalyticsService) CompanyAnalytics() ([]CompanyAnalytics, error) {
	var visits []db.Visit
	if err := s.db.Find(&visits).Error; err != nil {
		return nil, fmt.Errorf("load visits: %w", err)
	}

	today := s.now().Format(db.DateLayout)

	byCompany := make(map[string]*CompanyAnalytics)
	longestID := make(map[string]uint)

	for _, v := range visits {
		stats, ok := byCompany[v.Company]
		if !ok {
			stats = &CompanyAnalytics{Company: v.Company}
			byCompany[v.Company] = stats
		}

		stats.VisitCount++
		if v.Date == today && v.Open() {
			stats.CurrentOpenCount++
		}

		duration, ok := normalDuration(v)
		if !ok {
			continue
		}

		stats.TotalDurationSeconds += duration
		// 最长访问取时长最大者，时长相同取 ID 较小者，保证结果确定
		if stats.Longest == nil ||
			duration > stats.Longest.DurationSeconds ||
			(duration == stats.Longest.DurationSeconds && v.ID < longestID[v.Company]) {
			stats.Longest = &LongestVisit{
				Name:            v.Name,
				Position:        v.Position,
				DurationSeconds: duration,
			}
			longestID[v.Company] = v.ID
		}
	}

	result := make([]CompanyAnalytics, 0, len(byCompany))
	for _, stats := range byCompany {
		result = append(result, *stats)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].VisitCount != result[j].VisitCount {
			return result[i].VisitCount > result[j].VisitCount
		}
		return result[i].Company < result[j].Company
	})

	return result, nil
}

// PurposeRanking 返回出现次数最多的前 5 个到访目的，次数相同按名称排序。
func (s *VisitAnalyticsService) PurposeRanking() ([]PurposeCount, error) {
	var rows []PurposeCount
	if err := s.db.Model(&db.Visit{}).
		Select("purpose AS purpose, COUNT(*) AS visit_count").
		Group("purpose").
		Order("visit_count DESC, purpose ASC").
		Limit(5).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("rank purposes: %w", err)
	}
	return rows, nil
}

// normalDuration 计算一次正常访问的停留秒数。
// 未离场或 MISSED 的记录不参与时长统计。
func normalDuration(v db.Visit) (int64, bool) {
	if v.Open() || v.Status != db.VisitStatusNormal {
		return 0, false
	}

	checkIn, err := time.Parse(db.DateLayout+" "+db.ClockLayout, v.Date+" "+v.CheckInTime)
	if err != nil {
		return 0, false
	}
	checkOut, err := time.Parse(db.DateLayout+" "+db.ClockLayout, v.Date+" "+*v.CheckOutTime)
	if err != nil {
		return 0, false
	}

	seconds := int64(checkOut.Sub(checkIn) / time.Second)
	if seconds < 0 {
		return 0, false
	}
	return seconds, true
}
