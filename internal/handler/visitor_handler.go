package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/visitorlog/internal/service"
)

type checkInRequest struct {
	Company  string `json:"company" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Position string `json:"position"`
	Contact  string `json:"contact"`
	Location string `json:"visit_location" binding:"required"`
	Purpose  string `json:"visit_purpose" binding:"required"`
	Manager  string `json:"manager" binding:"required"`
}

type duplicateCheckRequest struct {
	Company  string `json:"company" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Position string `json:"position"`
}

type missedCheckoutRequest struct {
	OriginalDate string `json:"original_date"`
	Reason       string `json:"reason"`
}

// CheckInVisitor 登记入场。重复入场被拒绝且不产生任何写入。
func (a *API) CheckInVisitor(c *gin.Context) {
	var req checkInRequest
	if !bindJSON(c, &req, "company, name, visit_location, visit_purpose and manager are required") {
		return
	}

	// 访客输入会原样展示在实时面板上，入库前先做严格净化
	input := service.VisitInput{
		Company:  a.sanitizer.Sanitize(req.Company),
		Name:     a.sanitizer.Sanitize(req.Name),
		Position: a.sanitizer.Sanitize(req.Position),
		Contact:  a.sanitizer.Sanitize(req.Contact),
		Location: a.sanitizer.Sanitize(req.Location),
		Purpose:  a.sanitizer.Sanitize(req.Purpose),
		Manager:  a.sanitizer.Sanitize(req.Manager),
	}

	visit, err := a.visits.CheckIn(input)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDuplicateVisit):
			respondError(c, http.StatusBadRequest, "visitor already checked in")
		case errors.Is(err, service.ErrInvalidVisitor):
			respondError(c, http.StatusBadRequest, "missing required visitor fields")
		default:
			respondError(c, http.StatusInternalServerError, "failed to check in visitor")
		}
		return
	}

	a.recordCheckInSelections(input)
	a.broadcastVisitors()

	c.JSON(http.StatusCreated, gin.H{"id": visit.ID})
}

// CheckOutVisitor 记录正常离场。
func (a *API) CheckOutVisitor(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid visitor id")
		return
	}

	if _, err := a.visits.CheckOut(id); err != nil {
		switch {
		case errors.Is(err, service.ErrVisitNotFound):
			respondError(c, http.StatusNotFound, "visitor not found")
		case errors.Is(err, service.ErrVisitAlreadyClosed):
			respondError(c, http.StatusConflict, "visitor already checked out")
		default:
			respondError(c, http.StatusInternalServerError, "failed to check out visitor")
		}
		return
	}

	a.broadcastVisitors()

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// MarkMissedCheckout 手工强制关闭一条未离场记录。
func (a *API) MarkMissedCheckout(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid visitor id")
		return
	}

	var req missedCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, err := a.visits.ForceClose(id, req.OriginalDate, req.Reason); err != nil {
		switch {
		case errors.Is(err, service.ErrVisitNotFound):
			respondError(c, http.StatusNotFound, "visitor not found")
		case errors.Is(err, service.ErrVisitAlreadyClosed):
			respondError(c, http.StatusConflict, "visitor already checked out")
		default:
			respondError(c, http.StatusInternalServerError, "failed to close visit")
		}
		return
	}

	a.broadcastVisitors()

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// CheckDuplicateVisitor 供前端在提交前预检重复入场。
func (a *API) CheckDuplicateVisitor(c *gin.Context) {
	var req duplicateCheckRequest
	if !bindJSON(c, &req, "company and name are required") {
		return
	}

	duplicate, existing, err := a.visits.IsDuplicate(req.Company, req.Name, req.Position)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to check duplicate")
		return
	}

	if !duplicate {
		c.JSON(http.StatusOK, gin.H{"isDuplicate": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"isDuplicate": true,
		"existingVisitor": gin.H{
			"id":            existing.ID,
			"company":       existing.Company,
			"name":          existing.Name,
			"position":      existing.Position,
			"check_in_time": existing.CheckInTime,
		},
	})
}

// GetCurrentVisitors 返回今日访客列表，读取前完成日界清扫。
func (a *API) GetCurrentVisitors(c *gin.Context) {
	views, err := a.currentVisitorViews()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to list current visitors")
		return
	}
	c.JSON(http.StatusOK, views)
}

// GetVisitorsByDate 返回指定日期的访问记录。
func (a *API) GetVisitorsByDate(c *gin.Context) {
	visits, err := a.visits.VisitsByDate(c.Param("date"))
	if err != nil {
		if errors.Is(err, service.ErrInvalidVisitor) {
			respondError(c, http.StatusBadRequest, "invalid date format")
			return
		}
		respondError(c, http.StatusInternalServerError, "failed to list visitors")
		return
	}
	c.JSON(http.StatusOK, newVisitViews(visits))
}

// GetVisitorsByMonth 返回指定自然月的访问记录。
func (a *API) GetVisitorsByMonth(c *gin.Context) {
	year, err := parseIntParam(c, "year")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid year")
		return
	}
	month, err := parseIntParam(c, "month")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid month")
		return
	}

	visits, err := a.visits.VisitsByMonth(year, month)
	if err != nil {
		if errors.Is(err, service.ErrInvalidVisitor) {
			respondError(c, http.StatusBadRequest, "invalid month")
			return
		}
		respondError(c, http.StatusInternalServerError, "failed to list visitors")
		return
	}
	c.JSON(http.StatusOK, newVisitViews(visits))
}

// GetMissedCheckouts 返回全部强制关闭记录。
func (a *API) GetMissedCheckouts(c *gin.Context) {
	records, err := a.visits.MissedCheckoutRecords()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to list missed checkouts")
		return
	}

	response := make([]gin.H, 0, len(records))
	for _, r := range records {
		response = append(response, gin.H{
			"id":             r.ID,
			"visitor_id":     r.VisitID,
			"company":        r.Company,
			"name":           r.Name,
			"position":       r.Position,
			"visit_location": r.Location,
			"check_in_time":  r.CheckInTime,
			"original_date":  r.OriginalDate,
			"checkout_date":  r.CheckoutDate,
			"reason":         r.Reason,
		})
	}
	c.JSON(http.StatusOK, response)
}

// GetVisitorHistory 返回 (company, name) 的档案用于表单自动填充。
func (a *API) GetVisitorHistory(c *gin.Context) {
	company := c.Query("company")
	name := c.Query("name")

	profile, err := a.visits.LookupProfile(company, name)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to look up visitor history")
		return
	}
	if profile == nil {
		c.JSON(http.StatusOK, nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"position":        profile.Position,
		"contact":         profile.Contact,
		"last_visit_date": profile.LastVisitDate,
	})
}

// recordCheckInSelections 为本次登记用到的各选项累加使用次数。
// 统计失败不影响已完成的登记。
func (a *API) recordCheckInSelections(input service.VisitInput) {
	selections := []struct {
		catalog string
		value   string
	}{
		{"company", input.Company},
		{"position", input.Position},
		{"location", input.Location},
		{"purpose", input.Purpose},
		{"manager", input.Manager},
	}

	for _, sel := range selections {
		_ = a.catalogs.RecordSelection(sel.catalog, sel.value)
	}
}
