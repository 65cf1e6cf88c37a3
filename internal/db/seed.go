package db

import "gorm.io/gorm"

// 初始选项数据来源于现场运营方提供的清单，仅在对应表为空时写入，
// 不会覆盖运行期间新增或累计的使用次数。

var seedCompanies = []string{"PIXEL", "GENESEM", "DAEDUCK", "KCC", "LGIT", "KINSUS", "ATI"}

var seedPositions = []string{"사원", "주임", "계장", "대리", "과장", "팀장", "차장", "이사", "상무", "부대표", "대표"}

var seedLocations = []string{"1층 현장", "2층 현장", "1층 로비", "1층 회의실", "2층 회의실"}

var seedPurposes = []string{"미팅/회의", "현장 점검", "현장 방문", "설비 점검", "설비 셋업"}

var seedManagers = []struct {
	Department string
	Name       string
	Position   string
}{
	{"기술팀", "김태건", "과장"},
	{"기술팀", "정태훈", "사원"},
	{"설비팀", "천성수", "대리"},
	{"설비팀", "김찬우", "사원"},
	{"설비팀", "한동권", "실장"},
	{"기술팀", "이성민", "팀장"},
	{"품질팀", "여상덕", "팀장"},
	{"품질팀", "이슬기", "대리"},
	{"품질팀", "김슬기", "사원"},
	{"품질팀", "김현진", "사원"},
	{"품질팀", "임성수", "사원"},
	{"생산팀", "정운교", "팀장"},
	{"생산팀", "조현석", "과장"},
	{"생산팀", "이주현", "주임"},
	{"관리부", "김정수", "팀장"},
	{"관리부", "김려화", "사원"},
	{"", "김원식", "부대표"},
}

var seedDepartments = []string{"기술팀", "설비팀", "품질팀", "생산팀", "관리부"}

// SeedCatalogs 为空表写入初始选项数据。
func SeedCatalogs(gdb *gorm.DB) error {
	if err := seedIfEmpty(gdb, &Company{}, func(tx *gorm.DB) error {
		for _, name := range seedCompanies {
			if err := tx.Create(&Company{Name: name}).Error; err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}

	if err := seedIfEmpty(gdb, &Position{}, func(tx *gorm.DB) error {
		for _, title := range seedPositions {
			if err := tx.Create(&Position{Title: title}).Error; err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}

	if err := seedIfEmpty(gdb, &Location{}, func(tx *gorm.DB) error {
		for _, name := range seedLocations {
			if err := tx.Create(&Location{Name: name}).Error; err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}

	if err := seedIfEmpty(gdb, &VisitPurpose{}, func(tx *gorm.DB) error {
		for _, purpose := range seedPurposes {
			if err := tx.Create(&VisitPurpose{Purpose: purpose}).Error; err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}

	return seedIfEmpty(gdb, &Department{}, func(tx *gorm.DB) error {
		ids := make(map[string]uint, len(seedDepartments))
		for _, name := range seedDepartments {
			dept := Department{Name: name}
			if err := tx.Create(&dept).Error; err != nil {
				return err
			}
			ids[name] = dept.ID
		}

		for _, m := range seedManagers {
			manager := Manager{Name: m.Name, Position: m.Position}
			if m.Department != "" {
				id := ids[m.Department]
				manager.DepartmentID = &id
			}
			if err := tx.Create(&manager).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func seedIfEmpty(gdb *gorm.DB, model interface{}, fill func(tx *gorm.DB) error) error {
	var count int64
	if err := gdb.Model(model).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return gdb.Transaction(fill)
}
