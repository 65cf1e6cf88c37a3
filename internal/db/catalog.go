package db

import "gorm.io/gorm"

// Company 是访客所属业体的选项条目，SelectionCount 用于按使用频次排序。
type Company struct {
	gorm.Model
	Name           string `gorm:"size:100;not null;uniqueIndex"`
	SelectionCount int    `gorm:"not null;default:0"`
}

// Position 是职级选项条目。
type Position struct {
	gorm.Model
	Title          string `gorm:"size:100;not null;uniqueIndex"`
	SelectionCount int    `gorm:"not null;default:0"`
}

// Location 是到访场所选项条目。
type Location struct {
	gorm.Model
	Name           string `gorm:"size:100;not null;uniqueIndex"`
	SelectionCount int    `gorm:"not null;default:0"`
}

// VisitPurpose 是到访目的选项条目。
type VisitPurpose struct {
	gorm.Model
	Purpose        string `gorm:"size:100;not null;uniqueIndex"`
	SelectionCount int    `gorm:"not null;default:0"`
}

// TableName 指定自定义表名，避免自动复数化产生歧义。
func (VisitPurpose) TableName() string {
	return "visit_purposes"
}

// Department 是接待方部门。
type Department struct {
	gorm.Model
	Name string `gorm:"size:100;not null;uniqueIndex"`
}

// Manager 是接待负责人，DepartmentID 为空表示不隶属具体部门。
type Manager struct {
	gorm.Model
	DepartmentID   *uint       `gorm:"index"`
	Department     *Department `gorm:"foreignKey:DepartmentID"`
	Name           string      `gorm:"size:100;not null"`
	Position       string      `gorm:"size:100;not null"`
	SelectionCount int         `gorm:"not null;default:0"`
}
