package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/visitorlog/internal/service"
)

type addCompanyRequest struct {
	Name string `json:"name" binding:"required"`
}

// GetCompanyOptions 返回业体选项，常用者在前。
func (a *API) GetCompanyOptions(c *gin.Context) {
	a.respondNames(c, a.catalogs.Companies)
}

// GetPositionOptions 返回职级选项，常用者在前。
func (a *API) GetPositionOptions(c *gin.Context) {
	a.respondNames(c, a.catalogs.Positions)
}

// GetLocationOptions 返回场所选项，常用者在前。
func (a *API) GetLocationOptions(c *gin.Context) {
	a.respondNames(c, a.catalogs.Locations)
}

// GetPurposeOptions 返回到访目的选项，常用者在前。
func (a *API) GetPurposeOptions(c *gin.Context) {
	a.respondNames(c, a.catalogs.Purposes)
}

func (a *API) respondNames(c *gin.Context, list func() ([]string, error)) {
	names, err := list()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to list options")
		return
	}
	c.JSON(http.StatusOK, names)
}

// AddCompany 新增业体选项。
func (a *API) AddCompany(c *gin.Context) {
	var req addCompanyRequest
	if !bindJSON(c, &req, "company name is required") {
		return
	}

	company, err := a.catalogs.AddCompany(req.Name)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCompanyExists):
			respondError(c, http.StatusBadRequest, "company already exists")
		case errors.Is(err, service.ErrInvalidVisitor):
			respondError(c, http.StatusBadRequest, "company name is required")
		default:
			respondError(c, http.StatusInternalServerError, "failed to add company")
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "success", "name": company.Name})
}

// GetDepartments 返回部门列表。
func (a *API) GetDepartments(c *gin.Context) {
	departments, err := a.catalogs.Departments()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to list departments")
		return
	}

	response := make([]gin.H, 0, len(departments))
	for _, dept := range departments {
		response = append(response, gin.H{"id": dept.ID, "name": dept.Name})
	}
	c.JSON(http.StatusOK, response)
}

// GetManagersByDepartment 返回指定部门的负责人。
func (a *API) GetManagersByDepartment(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid department id")
		return
	}

	managers, err := a.catalogs.ManagersByDepartment(id)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to list managers")
		return
	}

	response := make([]gin.H, 0, len(managers))
	for _, m := range managers {
		response = append(response, gin.H{"name": m.Name, "position": m.Position})
	}
	c.JSON(http.StatusOK, response)
}

// SearchManagers 按姓名检索负责人。
func (a *API) SearchManagers(c *gin.Context) {
	options, err := a.catalogs.SearchManagers(c.Query("q"))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to search managers")
		return
	}

	response := make([]gin.H, 0, len(options))
	for _, opt := range options {
		response = append(response, gin.H{
			"name":       opt.Name,
			"position":   opt.Position,
			"department": opt.Department,
		})
	}
	c.JSON(http.StatusOK, response)
}
