package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/visitorlog/internal/db"
	"gorm.io/gorm"
)

var (
	// ErrCompanyExists 在新增的业体已存在时返回
	ErrCompanyExists = errors.New("company already exists")
	// ErrUnknownCatalog 在引用不存在的选项类别时返回
	ErrUnknownCatalog = errors.New("unknown catalog")
)

// CatalogService 负责入场表单的各类选项：业体、职级、场所、目的、部门与负责人。
// 选项按使用次数排序，次数在每次入场登记后累加。
type CatalogService struct {
	db *gorm.DB
}

// ManagerOption 描述负责人选项。
type ManagerOption struct {
	Name       string
	Position   string
	Department string
}

// NewCatalogService 构造 CatalogService
func NewCatalogService(gdb *gorm.DB) *CatalogService {
	return &CatalogService{db: gdb}
}

// Companies 返回业体名称，按使用次数倒序、名称正序。
func (s *CatalogService) Companies() ([]string, error) {
	return s.names(&db.Company{}, "name")
}

// Positions 返回职级名称，按使用次数倒序、名称正序。
func (s *CatalogService) Positions() ([]string, error) {
	return s.names(&db.Position{}, "title")
}

// Locations 返回场所名称，按使用次数倒序、名称正序。
func (s *CatalogService) Locations() ([]string, error) {
	return s.names(&db.Location{}, "name")
}

// Purposes 返回到访目的，按使用次数倒序、名称正序。
func (s *CatalogService) Purposes() ([]string, error) {
	return s.names(&db.VisitPurpose{}, "purpose")
}

func (s *CatalogService) names(model interface{}, column string) ([]string, error) {
	var values []string
	if err := s.db.Model(model).
		Order(fmt.Sprintf("selection_count DESC, %s ASC", column)).
		Pluck(column, &values).Error; err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	return values, nil
}

// RecordSelection 为被选中的选项累加使用次数。未收录的值静默忽略，
// 选项表只统计已知条目。
func (s *CatalogService) RecordSelection(catalog, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	var (
		model  interface{}
		column string
	)
	switch catalog {
	case "company":
		model, column = &db.Company{}, "name"
	case "position":
		model, column = &db.Position{}, "title"
	case "location":
		model, column = &db.Location{}, "name"
	case "purpose":
		model, column = &db.VisitPurpose{}, "purpose"
	case "manager":
		model, column = &db.Manager{}, "name"
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCatalog, catalog)
	}

	if err := s.db.Model(model).
		Where(fmt.Sprintf("%s = ?", column), value).
		Update("selection_count", gorm.Expr("selection_count + 1")).Error; err != nil {
		return fmt.Errorf("record selection: %w", err)
	}
	return nil
}

// AddCompany 新增业体，重名时返回 ErrCompanyExists。
func (s *CatalogService) AddCompany(name string) (*db.Company, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: company name is required", ErrInvalidVisitor)
	}

	company := db.Company{Name: name}
	if err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&db.Company{}).Where("name = ?", name).Count(&count).Error; err != nil {
			return fmt.Errorf("check company: %w", err)
		}
		if count > 0 {
			return ErrCompanyExists
		}
		if err := tx.Create(&company).Error; err != nil {
			return fmt.Errorf("create company: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return &company, nil
}

// Departments 返回全部部门，按名称排序。
func (s *CatalogService) Departments() ([]db.Department, error) {
	var departments []db.Department
	if err := s.db.Order("name ASC").Find(&departments).Error; err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	return departments, nil
}

// ManagersByDepartment 返回指定部门的负责人，按姓名排序。
func (s *CatalogService) ManagersByDepartment(departmentID uint) ([]db.Manager, error) {
	var managers []db.Manager
	if err := s.db.Where("department_id = ?", departmentID).
		Order("name ASC").
		Find(&managers).Error; err != nil {
		return nil, fmt.Errorf("list managers: %w", err)
	}
	return managers, nil
}

// SearchManagers 按姓名模糊检索负责人，常用者在前。
func (s *CatalogService) SearchManagers(query string) ([]ManagerOption, error) {
	like := fmt.Sprintf("%%%s%%", strings.TrimSpace(query))

	var options []ManagerOption
	if err := s.db.Model(&db.Manager{}).
		Select("managers.name AS name, managers.position AS position, departments.name AS department").
		Joins("LEFT JOIN departments ON departments.id = managers.department_id").
		Where("managers.name LIKE ?", like).
		Order("managers.selection_count DESC, managers.name ASC").
		Find(&options).Error; err != nil {
		return nil, fmt.Errorf("search managers: %w", err)
	}
	return options, nil
}
