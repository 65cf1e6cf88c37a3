package handler

import (
	"encoding/json"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/patrickmn/go-cache"
	"github.com/visitorlog/internal/db"
	"github.com/visitorlog/internal/hub"
	"github.com/visitorlog/internal/service"
	"gorm.io/gorm"
)

const (
	// currentVisitorsCacheKey 是今日访客列表的缓存键。
	currentVisitorsCacheKey = "current_visitors"
	// currentVisitorsCacheTTL 控制列表读取的缓存时长，写路径会主动失效。
	currentVisitorsCacheTTL = 5 * time.Second
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db          *gorm.DB
	visits      *service.VisitService
	analytics   *service.VisitAnalyticsService
	catalogs    *service.CatalogService
	exports     *service.ExportService
	hub         *hub.Hub
	cache       *cache.Cache
	sanitizer   *bluemonday.Policy
	siteBaseURL string
}

// NewAPI constructs a handler set with shared services.
func NewAPI(gdb *gorm.DB, broadcaster *hub.Hub, siteBaseURL string) *API {
	visitService := service.NewVisitService(gdb)

	return &API{
		db:          gdb,
		visits:      visitService,
		analytics:   service.NewVisitAnalyticsService(gdb),
		catalogs:    service.NewCatalogService(gdb),
		exports:     service.NewExportService(visitService),
		hub:         broadcaster,
		cache:       cache.New(currentVisitorsCacheTTL, time.Minute),
		sanitizer:   bluemonday.StrictPolicy(),
		siteBaseURL: siteBaseURL,
	}
}

// DB exposes the underlying gorm instance for legacy paths.
func (a *API) DB() *gorm.DB {
	return a.db
}

// Visits 暴露生命周期服务，供后台清扫任务复用同一实例。
func (a *API) Visits() *service.VisitService {
	return a.visits
}

// visitView 是访问记录对外的统一 JSON 形态。
type visitView struct {
	ID           uint    `json:"id"`
	Date         string  `json:"date"`
	Company      string  `json:"company"`
	Name         string  `json:"name"`
	Position     string  `json:"position"`
	Contact      string  `json:"contact"`
	Location     string  `json:"visit_location"`
	Purpose      string  `json:"visit_purpose"`
	CheckInTime  string  `json:"check_in_time"`
	CheckOutTime *string `json:"check_out_time"`
	Manager      string  `json:"manager"`
	Status       string  `json:"status"`
}

func newVisitView(v db.Visit) visitView {
	return visitView{
		ID:           v.ID,
		Date:         v.Date,
		Company:      v.Company,
		Name:         v.Name,
		Position:     v.Position,
		Contact:      v.Contact,
		Location:     v.Location,
		Purpose:      v.Purpose,
		CheckInTime:  v.CheckInTime,
		CheckOutTime: v.CheckOutTime,
		Manager:      v.Manager,
		Status:       v.Status,
	}
}

func newVisitViews(visits []db.Visit) []visitView {
	views := make([]visitView, 0, len(visits))
	for _, v := range visits {
		views = append(views, newVisitView(v))
	}
	return views
}

// currentVisitorViews 返回今日访客列表，命中缓存时跳过数据库读取。
func (a *API) currentVisitorViews() ([]visitView, error) {
	if cached, ok := a.cache.Get(currentVisitorsCacheKey); ok {
		if views, ok := cached.([]visitView); ok {
			return views, nil
		}
	}

	visits, err := a.visits.CurrentVisitors()
	if err != nil {
		return nil, err
	}

	views := newVisitViews(visits)
	a.cache.SetDefault(currentVisitorsCacheKey, views)
	return views, nil
}

// broadcastVisitors 在列表发生变化后推送最新快照并废弃缓存。
func (a *API) broadcastVisitors() {
	a.cache.Delete(currentVisitorsCacheKey)

	views, err := a.currentVisitorViews()
	if err != nil {
		return
	}

	payload, err := json.Marshal(views)
	if err != nil {
		return
	}
	a.hub.Publish(payload)
}
