package subjects

import "github.com/RK2301/classify-backend/internal/types"

func Migration() ([]interface{}, []string) {
	models := []interface{}{
		&types.Subject{},
		&types.CourseRef{},
	}
	return models, nil
}
